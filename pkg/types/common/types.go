// Package common defines shared primitive types used across the Dropsight
// engine's layers.  Domain packages own their own entities; only truly
// cross-cutting aliases and small value types live here.
package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ID is an opaque product or entity identifier supplied by the caller.
// The engine never generates or interprets IDs beyond equality comparison.
type ID string

// Level is a qualitative attribute magnitude used where callers supply
// coarse-grained signals ("how much search volume?") instead of raw numbers.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ParseLevel normalizes a free-text level string.  Unrecognized values return
// ("", false) so callers can treat them as missing rather than guessing.
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelLow:
		return LevelLow, true
	case LevelMedium:
		return LevelMedium, true
	case LevelHigh:
		return LevelHigh, true
	}
	return "", false
}

// UnmarshalJSON accepts any casing or surrounding whitespace for a level and
// rejects unrecognized values, so "High" cannot slip through as a level that
// silently scores zero.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*l = ""
		return nil
	}
	parsed, ok := ParseLevel(s)
	if !ok {
		return fmt.Errorf("unknown level %q: want low, medium, or high", s)
	}
	*l = parsed
	return nil
}

// Score01 converts a Level to a normalized [0,1] magnitude.
func (l Level) Score01() float64 {
	switch l {
	case LevelLow:
		return 0.25
	case LevelMedium:
		return 0.55
	case LevelHigh:
		return 0.9
	}
	return 0
}

// Clamp bounds v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
