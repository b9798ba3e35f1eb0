// internal/diagnosis/pattern.go
package diagnosis

import (
	"fmt"
	"regexp"
)

// Rule is one classification rule before compilation.
type Rule struct {
	ID             string
	Expr           string
	Severity       Severity
	Recommendation string
}

// Pattern is a compiled rule held by a Registry.
type Pattern struct {
	ID             string
	Severity       Severity
	Recommendation string
	re             *regexp.Regexp
}

// Registry is an ordered, immutable catalog of patterns. Declaration order
// is significant: Match returns the first pattern that matches, which keeps
// classification deterministic. A Registry is safe for concurrent readers.
type Registry struct {
	patterns []Pattern
}

// NewRegistry compiles rules into a Registry. A rule that fails to compile
// aborts construction: a broken rule set would silently degrade every
// diagnosis after it.
func NewRegistry(rules []Rule) (*Registry, error) {
	patterns := make([]Pattern, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile("(?i)" + r.Expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", r.ID, err)
		}
		patterns = append(patterns, Pattern{
			ID:             r.ID,
			Severity:       r.Severity,
			Recommendation: r.Recommendation,
			re:             re,
		})
	}
	return &Registry{patterns: patterns}, nil
}

// Match returns the first pattern matching line, or nil if none match.
func (r *Registry) Match(line string) *Pattern {
	for i := range r.patterns {
		if r.patterns[i].re.MatchString(line) {
			return &r.patterns[i]
		}
	}
	return nil
}

// Len reports the number of patterns in the registry.
func (r *Registry) Len() int { return len(r.patterns) }

var defaultRules = []Rule{
	{
		ID:             "connection_refused",
		Expr:           `(connection refused|ECONNREFUSED|connect ECONNREFUSED)`,
		Severity:       SeverityHigh,
		Recommendation: "Service dependency not reachable. Check if the target service is running and network is configured correctly.",
	},
	{
		ID:             "permission_denied",
		Expr:           `(permission denied|EACCES|access denied)`,
		Severity:       SeverityHigh,
		Recommendation: "File or directory permission issue. Check volume mounts and file ownership.",
	},
	{
		ID:             "out_of_memory",
		Expr:           `(out of memory|OOM|killed|cannot allocate memory)`,
		Severity:       SeverityCritical,
		Recommendation: "Container ran out of memory. Increase memory limits or optimize application memory usage.",
	},
	{
		ID:             "port_in_use",
		Expr:           `(address already in use|EADDRINUSE|port.*already.*allocated)`,
		Severity:       SeverityHigh,
		Recommendation: "Port conflict. Another process is using the same port. Change port mapping or stop the conflicting process.",
	},
	{
		ID:             "database_connection",
		Expr:           `(database.*connection|ENOTFOUND.*postgres|mysql.*denied|mongodb.*failed)`,
		Severity:       SeverityHigh,
		Recommendation: "Database connection failed. Verify database credentials, host, and port configuration.",
	},
	{
		ID:             "api_error",
		Expr:           `(401|403|unauthorized|forbidden|invalid.*token|authentication.*failed)`,
		Severity:       SeverityMedium,
		Recommendation: "API authentication error. Check API keys, tokens, or credentials.",
	},
	{
		ID:             "timeout",
		Expr:           `(timeout|ETIMEDOUT|timed out|context deadline exceeded)`,
		Severity:       SeverityMedium,
		Recommendation: "Operation timed out. Check network connectivity or increase timeout limits.",
	},
	{
		ID:             "file_not_found",
		Expr:           `(no such file|ENOENT|not found|file not found|module not found)`,
		Severity:       SeverityMedium,
		Recommendation: "Missing file or module. Check volume mounts, paths, and dependencies.",
	},
	{
		ID:             "syntax_error",
		Expr:           `(syntax error|SyntaxError|parse error|unexpected token)`,
		Severity:       SeverityHigh,
		Recommendation: "Code syntax error. Review recent code changes for syntax issues.",
	},
	{
		ID:             "configuration_error",
		Expr:           `(invalid.*config|configuration.*error|env.*not.*set|missing.*environment)`,
		Severity:       SeverityMedium,
		Recommendation: "Configuration or environment variable issue. Check .env file and docker-compose.yml.",
	},
	{
		ID:             "ssl_certificate",
		Expr:           `(ssl|certificate|x509|TLS|self-signed)`,
		Severity:       SeverityMedium,
		Recommendation: "SSL/TLS certificate issue. Check certificate validity or disable SSL verification for development.",
	},
	{
		ID:             "dns_resolution",
		Expr:           `(getaddrinfo|EAI_AGAIN|dns|name resolution|could not resolve)`,
		Severity:       SeverityMedium,
		Recommendation: "DNS resolution failed. Check network configuration and container DNS settings.",
	},
	{
		ID:             "crash_restart",
		Expr:           `(exited with code|fatal|panic|segfault|core dumped)`,
		Severity:       SeverityCritical,
		Recommendation: "Container crashed. Check application logs for the root cause before restart.",
	},
}

var defaultRegistry = mustRegistry(defaultRules)

func mustRegistry(rules []Rule) *Registry {
	r, err := NewRegistry(rules)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns the built-in rule set. The registry is compiled
// once at package init, so a malformed built-in rule fails the process
// immediately rather than at first use.
func DefaultRegistry() *Registry { return defaultRegistry }
