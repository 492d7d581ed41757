package securelink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGrowth(t *testing.T) {
	b := NewBackoff()
	b.jitter = 0 // deterministic for the test

	assert.Equal(t, 1*time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 3, b.Attempts())
}

func TestBackoffCap(t *testing.T) {
	b := NewBackoff()
	b.jitter = 0

	for i := 0; i < 10; i++ {
		b.Next()
	}
	assert.Equal(t, MaxBackoff, b.Next())
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff()
	b.jitter = 0

	b.Next()
	b.Next()
	b.Reset()

	assert.Equal(t, 0, b.Attempts())
	assert.Equal(t, InitialBackoff, b.Next())
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff()

	for i := 0; i < 50; i++ {
		b.Reset()
		d := b.Next()
		assert.GreaterOrEqual(t, d, InitialBackoff)
		assert.LessOrEqual(t, d, InitialBackoff+time.Duration(float64(InitialBackoff)*JitterFactor))
	}
}
