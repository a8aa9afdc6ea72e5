// Package severity models the vulnerability risk levels understood by TeamServer.
package severity

import "strings"

// Level is a vulnerability severity as TeamServer spells it.
type Level string

const (
	Critical Level = "CRITICAL"
	High     Level = "HIGH"
	Medium   Level = "MEDIUM"
	Low      Level = "LOW"
	Note     Level = "NOTE"
)

// DefaultCSV is used when no severities are configured.
const DefaultCSV = "CRITICAL,HIGH"

// All lists every level in descending order of severity.
var All = []Level{Critical, High, Medium, Low, Note}

// Parse turns a comma separated list into the levels it names. Entries are
// trimmed and upper-cased, unknown entries are dropped and the result is
// always in descending order, whatever order the input used.
func Parse(csv string) []Level {
	requested := make(map[Level]struct{})
	for _, part := range strings.Split(csv, ",") {
		requested[Level(strings.ToUpper(strings.TrimSpace(part)))] = struct{}{}
	}

	levels := make([]Level, 0, len(All))
	for _, level := range All {
		if _, ok := requested[level]; ok {
			levels = append(levels, level)
		}
	}
	return levels
}

// Join renders levels the way the quick filter endpoint expects them.
func Join(levels []Level) string {
	parts := make([]string, len(levels))
	for i, level := range levels {
		parts[i] = string(level)
	}
	return strings.Join(parts, ",")
}
