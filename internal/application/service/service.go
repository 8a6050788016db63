package service

import (
	"strings"
	"time"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Requester identifies the authenticated caller of a service operation.
type Requester struct {
	AccountID      string
	OrganizationID string
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

func defaultClock() time.Time { return time.Now().UTC() }

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
