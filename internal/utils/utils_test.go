package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(-3.5))
	assert.True(t, IsFinite(math.MaxFloat64))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(1)))
	assert.False(t, IsFinite(math.Inf(-1)))
}
