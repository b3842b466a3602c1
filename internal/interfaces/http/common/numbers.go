package common

import (
	"net/url"
	"strconv"
	"strings"
)

// ParsePositiveInt parses positive integers with fallback.
func ParsePositiveInt(value string, fallback int) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback, false
	}
	return parsed, true
}

// PageParams reads page/limit query parameters.
func PageParams(query url.Values, defaultLimit int) (page, limit int) {
	page, _ = ParsePositiveInt(query.Get("page"), 1)
	limit, _ = ParsePositiveInt(query.Get("limit"), defaultLimit)
	return page, limit
}
