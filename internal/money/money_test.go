package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 12.35, Round2(12.345))
	assert.Equal(t, 12.34, Round2(12.344))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, -3.33, Round2(-3.3333))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 12.0, Clamp(5, 12, 35))
	assert.Equal(t, 35.0, Clamp(100, 12, 35))
	assert.Equal(t, 20.0, Clamp(20, 12, 35))
}

func TestEstimateShippingToUK(t *testing.T) {
	// Below the floor: 12 + 0.08*10 = 12.8.
	assert.Equal(t, 12.8, EstimateShippingToUK(10))
	// Cheap items hit the floor.
	assert.Equal(t, 12.0, EstimateShippingToUK(0))
	// Expensive items hit the cap: 12 + 0.08*1000 = 92 -> 35.
	assert.Equal(t, 35.0, EstimateShippingToUK(1000))
	// Mid-range: 12 + 0.08*100 = 20.
	assert.Equal(t, 20.0, EstimateShippingToUK(100))
}
