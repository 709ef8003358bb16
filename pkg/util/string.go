package util

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Truncate returns at most max runes of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	return string(runes[:max])
}

// BuildTitle creates a content title from a topic and the generation time
func BuildTitle(topic string, at time.Time) string {
	topic = strings.Join(strings.Fields(topic), " ")
	return fmt.Sprintf("%s - %s", topic, at.UTC().Format("2006-01-02 15:04"))
}

// ParseList splits a comma separated string into trimmed, non-empty items
func ParseList(s string) []string {
	if s == "" {
		return []string{}
	}

	s = strings.Trim(s, "[]")

	var items []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		item = strings.Trim(item, "\"'")
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}
