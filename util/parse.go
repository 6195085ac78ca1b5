package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSize parses a human-readable size string ("10MB", "512KB", "2GB",
// "1024") into bytes.
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	var multiplier int64 = 1
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil || val < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return val * multiplier, nil
}

// ParseSizeOr is ParseSize with a fallback for unparsable input.
func ParseSizeOr(s string, defaultBytes int64) int64 {
	n, err := ParseSize(s)
	if err != nil {
		return defaultBytes
	}
	return n
}
