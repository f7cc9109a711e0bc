package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"high", LevelHigh, true},
		{"HIGH", LevelHigh, true},
		{"  medium ", LevelMedium, true},
		{"low", LevelLow, true},
		{"huge", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLevelUnmarshalJSON(t *testing.T) {
	var l Level
	require.NoError(t, json.Unmarshal([]byte(`"HIGH"`), &l))
	assert.Equal(t, LevelHigh, l)

	require.NoError(t, json.Unmarshal([]byte(`""`), &l))
	assert.Equal(t, Level(""), l)

	err := json.Unmarshal([]byte(`"huge"`), &l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown level")
}

func TestLevelScore01Ordering(t *testing.T) {
	assert.Less(t, LevelLow.Score01(), LevelMedium.Score01())
	assert.Less(t, LevelMedium.Score01(), LevelHigh.Score01())
	assert.Zero(t, Level("bogus").Score01())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-5, 0, 100))
	assert.Equal(t, 100.0, Clamp(250, 0, 100))
	assert.Equal(t, 42.0, Clamp(42, 0, 100))
}
