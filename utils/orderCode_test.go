package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderCodeUnique(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 5000; i++ {
		code := GenerateOrderCode()
		assert.Positive(t, code)
		assert.False(t, seen[code], "order code %d generated twice", code)
		seen[code] = true
	}
}

func TestGenerateOrderCodeTrendsUpward(t *testing.T) {
	first := GenerateOrderCode()
	time.Sleep(5 * time.Millisecond)
	second := GenerateOrderCode()
	assert.Greater(t, second, first)
}
