// Package service holds the journal use cases. Handlers call services; services call
// repositories, object storage and the AI clients.
package service

import (
	"regexp"
	"strings"
	"time"

	"journalapi/internal/model"
)

const (
	maxUserIDLen = 255

	defaultListLimit = 100
	maxListLimit     = 1000
)

var summaryUserPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// clock resolves "today" in the application timezone.
type clock struct {
	now func() time.Time
	loc *time.Location
}

func newClock(loc *time.Location) clock {
	if loc == nil {
		loc = time.UTC
	}
	return clock{now: time.Now, loc: loc}
}

func (c clock) today() model.Date {
	return model.DateOf(c.now().In(c.loc))
}

func validateUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || len(userID) > maxUserIDLen {
		return "", ErrInvalidUserID
	}
	return userID, nil
}

func clampPage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func nonEmpty(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
