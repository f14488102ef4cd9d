package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ttacon/libphonenumber"
)

var CountryCode = "US"

// NormalizePhoneNumber formats a phone number in national format for the
// remote API. Numbers that do not parse are returned trimmed but otherwise
// untouched; the remote side does its own validation.
func NormalizePhoneNumber(phoneNumber, countryCode string) string {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return ""
	}
	if countryCode == "" {
		countryCode = CountryCode
	}
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return phoneNumber
	}
	return libphonenumber.Format(p, libphonenumber.NATIONAL)
}

// FirstNonEmpty returns the first value that is not blank and not "n/a".
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "n/a") {
			continue
		}
		return v
	}
	return ""
}

// SanitizeFileName strips path separators so a user-supplied name cannot
// escape its storage prefix.
func SanitizeFileName(name string) string {
	trimmed := strings.TrimSpace(strings.NewReplacer("/", " ", "\\", " ").Replace(name))
	if trimmed == "" {
		return "upload"
	}
	return trimmed
}

func EnvBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

func EnvIntDefault(key string, def int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

func EnvStringDefault(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// ParseInt64 accepts int-ish values coming back from rows or JSON payloads.
func ParseInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case *int64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case []byte:
		return ParseInt64(string(n))
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func Int64Ptr(v int64) *int64 {
	return &v
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func UniqueInt64s(values []int64) []int64 {
	seen := make(map[int64]struct{}, len(values))
	out := make([]int64, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// AsString reads a row value as a string; driver []byte values are converted.
func AsString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case *string:
		if s == nil {
			return ""
		}
		return *s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}
