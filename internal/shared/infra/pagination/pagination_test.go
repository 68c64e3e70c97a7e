package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name       string
		limit      string
		offset     string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", "", DefaultLimit, 0},
		{"explicit", "10", "20", 10, 20},
		{"limit clamped", "9999", "", MaxLimit, 0},
		{"garbage falls back", "abc", "xyz", DefaultLimit, 0},
		{"negatives fall back", "-5", "-3", DefaultLimit, 0},
		{"zero limit falls back", "0", "", DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromQuery(tt.limit, tt.offset)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, Page(items, Params{Limit: 2}))
	assert.Equal(t, []int{3, 4}, Page(items, Params{Limit: 2, Offset: 2}))
	assert.Equal(t, []int{5}, Page(items, Params{Limit: 50, Offset: 4}))
	assert.Empty(t, Page(items, Params{Limit: 50, Offset: 10}))
	assert.Empty(t, Page([]int{}, Params{Limit: 50}))
}
