package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(ValidThreshold))
	assert.True(t, IsValid(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	assert.False(t, IsValid(ValidThreshold.Add(-time.Second)))
	assert.False(t, IsValid(time.Unix(0, 0)))
}

func TestManual(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	assert.False(t, IsValid(m.Now()))

	require.NoError(t, m.Set(time.Unix(1735689600, 0)))
	assert.True(t, IsValid(m.Now()))
	assert.Equal(t, 1, m.Sets())

	m.Advance(time.Minute)
	assert.Equal(t, int64(1735689660), m.Now().Unix())
	assert.Equal(t, 1, m.Sets())
}

func TestSystemNowIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, System{}.Now().Location())
}
