// internal/store/db.go
package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"triage/internal/diagnosis"
)

// StoredReport is one persisted per-subject diagnosis.
type StoredReport struct {
	ID            int64            `json:"id"`
	SweepID       string           `json:"sweep_id,omitempty"`
	Subject       string           `json:"subject"`
	Kind          string           `json:"kind"`
	MaxSeverity   string           `json:"max_severity"`
	IssueCount    int              `json:"issue_count"`
	PriorityIssue string           `json:"priority_issue,omitempty"`
	Report        diagnosis.Report `json:"report"`
	CreatedAt     time.Time        `json:"created_at"`
}

// DB wraps the SQLite report store.
type DB struct {
	db *sql.DB
}

// NewDB opens or creates the SQLite database at path.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL keeps concurrent readers cheap while sweeps write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sweep_id TEXT,
		subject TEXT NOT NULL,
		kind TEXT NOT NULL,
		max_severity TEXT NOT NULL,
		issue_count INTEGER NOT NULL,
		priority_issue TEXT,
		report TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);
	CREATE INDEX IF NOT EXISTS idx_reports_subject ON reports(subject);
	CREATE INDEX IF NOT EXISTS idx_reports_sweep ON reports(sweep_id);
	CREATE INDEX IF NOT EXISTS idx_reports_severity ON reports(max_severity);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertReport stores one per-subject report under an optional sweep id.
func (d *DB) InsertReport(sweepID string, report diagnosis.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}

	maxSev := diagnosis.SeverityLow
	if sev, ok := report.Analysis.MaxSeverity(); ok {
		maxSev = sev
	}

	_, err = d.db.Exec(`
		INSERT INTO reports (sweep_id, subject, kind, max_severity, issue_count, priority_issue, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sweepID, report.Subject.Name, report.Subject.Kind, maxSev.String(),
		report.Analysis.Total, report.PriorityIssue, string(payload))

	return err
}

// RecentReports returns the newest reports first.
func (d *DB) RecentReports(limit int) ([]StoredReport, error) {
	rows, err := d.db.Query(`
		SELECT id, sweep_id, subject, kind, max_severity, issue_count, priority_issue, report, created_at
		FROM reports
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReports(rows)
}

// ReportsBySubject returns recent reports for one subject.
func (d *DB) ReportsBySubject(subject string, limit int) ([]StoredReport, error) {
	rows, err := d.db.Query(`
		SELECT id, sweep_id, subject, kind, max_severity, issue_count, priority_issue, report, created_at
		FROM reports
		WHERE subject = ?
		ORDER BY id DESC
		LIMIT ?
	`, subject, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReports(rows)
}

// SeverityCounts returns how many stored reports peak at each severity.
func (d *DB) SeverityCounts() (map[string]int, error) {
	rows, err := d.db.Query(`
		SELECT max_severity, COUNT(*) FROM reports GROUP BY max_severity
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, err
		}
		counts[severity] = count
	}
	return counts, rows.Err()
}

func scanReports(rows *sql.Rows) ([]StoredReport, error) {
	var reports []StoredReport
	for rows.Next() {
		var r StoredReport
		var sweepID, priority sql.NullString
		var payload string
		var createdStr string

		err := rows.Scan(&r.ID, &sweepID, &r.Subject, &r.Kind, &r.MaxSeverity,
			&r.IssueCount, &priority, &payload, &createdStr)
		if err != nil {
			return nil, err
		}

		if sweepID.Valid {
			r.SweepID = sweepID.String
		}
		if priority.Valid {
			r.PriorityIssue = priority.String
		}
		json.Unmarshal([]byte(payload), &r.Report)
		r.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdStr)

		reports = append(reports, r)
	}
	return reports, rows.Err()
}
