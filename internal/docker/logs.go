// internal/docker/logs.go
package docker

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// demuxLogs reassembles the Engine API's multiplexed log stream into plain
// text. Each frame is an 8-byte header (stream type, three zero bytes, a
// big-endian payload length) followed by the payload. Stdout and stderr
// frames are interleaved in arrival order, which is the order the daemon
// logged them.
func demuxLogs(r io.Reader) (string, error) {
	var b strings.Builder
	header := make([]byte, 8)

	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if errors.Is(err, io.EOF) {
				return b.String(), nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				// Truncated trailing frame; keep what we have.
				return b.String(), nil
			}
			return b.String(), fmt.Errorf("read log frame header: %w", err)
		}

		size := binary.BigEndian.Uint32(header[4:8])
		if size == 0 {
			continue
		}

		if _, err := io.CopyN(&b, r, int64(size)); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return b.String(), nil
			}
			return b.String(), fmt.Errorf("read log frame payload: %w", err)
		}
	}
}
