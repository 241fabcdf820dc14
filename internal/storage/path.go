package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildResultArchivePath lays archived query results out by conversation and day:
// <prefix>/<conversation>/date=YYYY-MM-DD/result-<unix nanos>.parquet
func BuildResultArchivePath(prefix, conversationID string, createdAt time.Time) (string, error) {
	if err := validatePathComponent(conversationID, "conversation id"); err != nil {
		return "", err
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix != "" {
		for _, component := range strings.Split(prefix, "/") {
			if err := validatePathComponent(component, "archive prefix"); err != nil {
				return "", err
			}
		}
	}

	ts := createdAt.UTC()
	return path.Join(
		prefix,
		conversationID,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("result-%d.parquet", ts.UnixNano()),
	), nil
}

// TablePrefix normalizes a lake table location to a directory prefix ending in "/".
func TablePrefix(location string) (string, error) {
	location = strings.Trim(strings.TrimSpace(location), "/")
	if location == "" {
		return "", fmt.Errorf("table location is required")
	}
	for _, component := range strings.Split(location, "/") {
		if err := validatePathComponent(component, "table location"); err != nil {
			return "", err
		}
	}
	return location + "/", nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
