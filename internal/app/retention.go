package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dev-tams/s3cleanup/internal/storage/prunable"
)

const keyDateLayout = "2006-01-02"

// keyDate matches the first run of ten digits, hyphens or dots in a key,
// e.g. "2023-07-04" in "docker_backup/2023-07-04.tar".
var keyDate = regexp.MustCompile(`[\d\-.]{10}`)

// Cutoff returns the calendar date retentionDays before the date of now.
// The result is midnight UTC so it compares cleanly with dates parsed from keys.
func Cutoff(now time.Time, retentionDays int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -retentionDays)
}

// ListCandidates lists the whole bucket and keeps objects whose key contains
// marker. It also returns the number of objects listed.
func ListCandidates(ctx context.Context, pr prunable.Prunable, marker string) ([]prunable.ObjectInfo, int, error) {
	objects, err := pr.List(ctx, "")
	if err != nil {
		return nil, 0, fmt.Errorf("list candidates: %w", err)
	}
	return selectCandidates(objects, marker), len(objects), nil
}

func selectCandidates(objects []prunable.ObjectInfo, marker string) []prunable.ObjectInfo {
	out := make([]prunable.ObjectInfo, 0, len(objects))
	for _, o := range objects {
		if strings.Contains(o.Key, marker) {
			out = append(out, o)
		}
	}
	return out
}

// SelectExpired keeps candidates whose embedded date is on or before cutoff.
// Keys without a well-formed date are dropped.
func SelectExpired(candidates []prunable.ObjectInfo, cutoff time.Time) []prunable.ObjectInfo {
	out := make([]prunable.ObjectInfo, 0, len(candidates))
	for _, o := range candidates {
		t, ok := parseKeyDate(o.Key)
		if !ok {
			continue
		}
		if !t.After(cutoff) {
			out = append(out, o)
		}
	}
	return out
}

// parseKeyDate only looks at the first match; a malformed first match is not
// retried further along the key.
func parseKeyDate(key string) (time.Time, bool) {
	token := keyDate.FindString(key)
	if token == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(keyDateLayout, token)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
