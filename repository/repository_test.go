package repository

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	cases := []struct {
		name             string
		page, limit      int
		wantSkip, wantTk int
	}{
		{"defaults", 0, 0, 0, 10},
		{"third page of ten", 2, 10, 20, 10},
		{"page without limit", 1, 0, 0, 10},
		{"limit without page", 0, 5, 0, 5},
		{"negative page", -3, 5, 0, 5},
		{"negative limit", 2, -1, 0, 10},
		{"overflowing page", math.MaxInt, 10, MaxSkip, 10},
		{"overflowing product", math.MaxInt / 2, math.MaxInt / 2, MaxSkip, math.MaxInt / 2},
		{"offset at cap", MaxSkip / 2, 2, MaxSkip - 1, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			skip, take := Window(tc.page, tc.limit)
			assert.Equal(t, tc.wantSkip, skip)
			assert.Equal(t, tc.wantTk, take)
		})
	}
}
