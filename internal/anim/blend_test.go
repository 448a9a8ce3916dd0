package anim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlendController_ConvergesWithoutOvershoot(t *testing.T) {
	b := NewBlendController(10)
	b.SetTarget("happy", 0.8)

	var prev float32
	for i := 0; i < 600; i++ {
		b.Tick(1.0 / 60.0)
		cur := b.Current("happy")
		assert.GreaterOrEqual(t, cur, prev, "approach must be monotonic")
		assert.LessOrEqual(t, cur, float32(0.8))
		prev = cur
	}
	assert.InDelta(t, 0.8, b.Current("happy"), 0.01)
}

func TestBlendController_WeightsStayInUnitInterval(t *testing.T) {
	b := NewBlendController(10)
	b.SetTarget("aa", 5)  // clamped to 1
	b.SetTarget("oh", -2) // clamped to 0

	for i := 0; i < 200; i++ {
		b.Tick(0.016)
		for name, w := range b.Weights() {
			assert.GreaterOrEqual(t, w, float32(0), name)
			assert.LessOrEqual(t, w, float32(1), name)
		}
	}
	assert.InDelta(t, 1.0, b.Current("aa"), 0.01)
}

func TestBlendController_LargeDeltaDoesNotOvershoot(t *testing.T) {
	b := NewBlendController(10)
	b.SetTarget("aa", 1)

	// dt*rate > 1 must clamp to a full step, not extrapolate past the target.
	b.Tick(5)
	assert.InDelta(t, 1.0, b.Current("aa"), 0.0001)
}

func TestBlendController_SetActiveIsExclusive(t *testing.T) {
	b := NewBlendController(10)
	b.SetActive("happy")
	for i := 0; i < 200; i++ {
		b.Tick(0.016)
	}
	require.InDelta(t, 1.0, b.Current("happy"), 0.01)

	b.SetActive("sad")
	assert.Equal(t, "sad", b.Active())
	for i := 0; i < 300; i++ {
		b.Tick(0.016)
	}
	assert.InDelta(t, 1.0, b.Current("sad"), 0.01)
	assert.Less(t, b.Current("happy"), float32(0.01))
}

func TestBlendController_EmitsFinalZeroThenSkipsDecayedShapes(t *testing.T) {
	b := NewBlendController(20)
	b.SetTarget("aa", 1)
	for i := 0; i < 100; i++ {
		b.Tick(0.016)
	}
	require.Contains(t, b.Weights(), "aa")

	b.SetTarget("aa", 0)
	sawZero := false
	for i := 0; i < 400; i++ {
		b.Tick(0.016)
		v, present := b.Weights()["aa"]
		if present && v == 0 {
			sawZero = true
		}
		if !present {
			break
		}
	}
	assert.True(t, sawZero, "decayed shape must be flushed as zero once")
	assert.NotContains(t, b.Weights(), "aa", "fully decayed shape is skipped")
}

func TestBlendController_Reset(t *testing.T) {
	b := NewBlendController(10)
	b.SetActive("happy")
	b.Tick(0.1)

	b.Reset()
	assert.Empty(t, b.Weights())
	assert.Empty(t, b.Active())
	assert.Zero(t, b.Current("happy"))
}
