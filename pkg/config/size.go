package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize parses a human byte size such as "1GiB", "500 MB" or "1024".
// Binary (KiB, MiB) and decimal (KB, MB) units are both accepted.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return int64(n), nil
}

// decodeSize reads an optional size option from a backend map. Numbers are
// taken as bytes; strings go through ParseSize.
func decodeSize(options map[string]any, key string) (int64, error) {
	raw, ok := options[key]
	if !ok || raw == nil {
		return 0, nil
	}

	switch v := raw.(type) {
	case string:
		return ParseSize(v)
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%s: size is too large", key)
		}
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%s: unsupported size value %v", key, raw)
	}
}
