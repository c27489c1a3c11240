// Package size parses human-readable byte counts such as "64K" or "1.5G".
package size

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var suffixes = map[byte]int64{
	'B': 1,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
}

// Parse parses a human-readable size string into bytes.
// Supports: 100, 100B, 100K, 100M, 100G, 100T (case-insensitive).
// Uses powers of 1024.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	multiplier := int64(1)
	numStr := s
	if m, ok := suffixes[strings.ToUpper(s[len(s)-1:])[0]]; ok {
		multiplier = m
		numStr = s[:len(s)-1]
	}

	if numStr == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	if n, err := strconv.ParseInt(numStr, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative size: %q", s)
		}
		if n > math.MaxInt64/multiplier {
			return 0, fmt.Errorf("size out of range: %q", s)
		}
		return n * multiplier, nil
	}

	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative size: %q", s)
	}

	v := f * float64(multiplier)
	if math.IsNaN(v) || v >= math.MaxInt64 {
		return 0, fmt.Errorf("size out of range: %q", s)
	}
	return int64(v), nil
}

// Value is a pflag.Value holding a byte count. It accepts the same
// syntax as Parse.
type Value struct {
	n *int64
}

// NewValue returns a Value that stores into p, initialised to def.
func NewValue(def int64, p *int64) *Value {
	*p = def
	return &Value{n: p}
}

func (v *Value) String() string {
	if v.n == nil {
		return "0"
	}
	return strconv.FormatInt(*v.n, 10)
}

func (v *Value) Set(s string) error {
	n, err := Parse(s)
	if err != nil {
		return err
	}
	*v.n = n
	return nil
}

func (*Value) Type() string { return "size" }
