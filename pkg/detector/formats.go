package detector

import "github.com/ccollicutt/loglens/pkg/parser"

// Origin records where a candidate pattern comes from.
type Origin string

const (
	// OriginBuiltIn patterns are always active in the parser.
	OriginBuiltIn Origin = "built-in"
	// OriginConfigured patterns come from the config file.
	OriginConfigured Origin = "configured"
	// OriginCatalog patterns are suggestions that need to be added to a
	// config before the parser uses them.
	OriginCatalog Origin = "catalog"
)

// Candidate is a line pattern evaluated during detection.
type Candidate struct {
	Pattern     *parser.LinePattern
	Origin      Origin
	Description string
	Example     string
}

// Active reports whether the parser already uses this candidate.
func (c *Candidate) Active() bool {
	return c.Origin != OriginCatalog
}

const (
	datetimeExpr = `\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[.,]\d{1,9})?`
	isoExpr      = `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`
)

// CatalogPatterns returns common line shapes that the built-in patterns do
// not cover. Every entry resolves its timestamp with the datetime style.
func CatalogPatterns() []*Candidate {
	return []*Candidate{
		{
			Pattern: parser.MustLinePattern("bracketed-datetime",
				`^\[(?P<ts>`+datetimeExpr+`)\]\s+\[?(?P<level>[A-Za-z]+)\]?:?\s+(?P<msg>.*)$`,
				parser.StyleDateTime),
			Description: "Bracketed datetime",
			Example:     "[2024-01-15 10:30:00] ERROR connection refused",
		},
		{
			Pattern: parser.MustLinePattern("log4j",
				`^(?P<ts>`+datetimeExpr+`)\s+\[[^\]]*\]\s+(?P<level>[A-Za-z]+)\s+(?P<msg>.*)$`,
				parser.StyleDateTime),
			Description: "Log4j/Java logging with thread",
			Example:     "2024-01-15 10:30:00.123 [main] ERROR com.example.Db - connection lost",
		},
		{
			Pattern: parser.MustLinePattern("python-logging",
				`^(?P<ts>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:,\d{3})?) - .+? - (?P<level>[A-Za-z]+) - (?P<msg>.*)$`,
				parser.StyleDateTime),
			Description: "Python logging (asctime - name - levelname - message)",
			Example:     "2024-01-15 10:30:00,123 - app.db - ERROR - connection lost",
		},
		{
			Pattern: parser.MustLinePattern("logfmt",
				`^time="?(?P<ts>`+isoExpr+`)"?\s+level=(?P<level>[A-Za-z]+)\s+msg="?(?P<msg>[^"]*?)"?(?:\s+[\w.]+=.*)?$`,
				parser.StyleDateTime),
			Description: "logfmt / slog text handler",
			Example:     `time=2024-01-15T10:30:00.123Z level=ERROR msg="connection lost" err=timeout`,
		},
		{
			Pattern: parser.MustLinePattern("json-lines",
				`^\{.*"time":\s*"(?P<ts>`+isoExpr+`)".*?"level":\s*"(?P<level>[A-Za-z]+)".*?"msg":\s*"(?P<msg>(?:[^"\\]|\\.)*)"`,
				parser.StyleDateTime),
			Description: "JSON lines (slog/zap style time, level, msg keys)",
			Example:     `{"time":"2024-01-15T10:30:00Z","level":"ERROR","msg":"connection lost"}`,
		},
	}
}

// builtInCandidates wraps the parser's default patterns.
func builtInCandidates() []*Candidate {
	examples := map[string]string{
		"datetime-level":    "2025-09-05 14:32:10,123 INFO service started",
		"iso8601-bracketed": "2025-09-05T14:32:10Z [WARNING] disk low",
		"syslog":            "Sep  5 14:32:10 host app[123]: [ERROR] boom",
	}

	var out []*Candidate
	for _, p := range parser.DefaultPatterns() {
		out = append(out, &Candidate{
			Pattern:     p,
			Origin:      OriginBuiltIn,
			Description: "Built-in " + p.Name,
			Example:     examples[p.Name],
		})
	}
	return out
}
