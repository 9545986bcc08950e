package record

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Status is the inspection outcome. The values are the wire vocabulary of the
// status-update endpoint and are stored verbatim.
type Status string

const (
	StatusNotStarted Status = "NÃO INICIADA"
	StatusInProgress Status = "EM ANDAMENTO"
	StatusCompleted  Status = "CONCLUÍDA"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus maps user input to a Status. Matching is case-insensitive and
// normalization-insensitive: "concluída" typed on a keyboard that emits
// combining accents still parses. English aliases are accepted for CLI use.
func ParseStatus(raw string) (Status, error) {
	key := strings.ToUpper(strings.TrimSpace(norm.NFC.String(raw)))
	switch key {
	case string(StatusNotStarted), "NOT_STARTED", "NOT-STARTED":
		return StatusNotStarted, nil
	case string(StatusInProgress), "IN_PROGRESS", "IN-PROGRESS":
		return StatusInProgress, nil
	case string(StatusCompleted), "COMPLETED":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}
