package payroll

import (
	"fmt"
	"strings"
	"time"
)

const (
	runIDPrefixProject = "PRJ"
	runIDPrefixDefault = "HOF"
)

// FormatRunID builds the human-readable pay run identifier
// {PREFIX}-{YYYYMMDD}-{HHMMSS} from the creation instant and category.
// Deterministic given the same clock reading, so it stays testable.
func FormatRunID(at time.Time, category string) string {
	prefix := runIDPrefixDefault
	if strings.EqualFold(strings.TrimSpace(category), "project") {
		prefix = runIDPrefixProject
	}
	at = at.UTC()
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), at.Format("150405"))
}
