package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", 1, 10},
		{"explicit", "?page=3&limit=25", 3, 25},
		{"zero page falls back", "?page=0", 1, 10},
		{"negative page falls back", "?page=-2", 1, 10},
		{"limit over max falls back", "?limit=500", 1, 10},
		{"limit at max accepted", "?limit=100", 1, 100},
		{"non-numeric ignored", "?page=abc&limit=xyz", 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/assets"+tt.query, nil)
			params := ParsePageParams(r)
			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantLimit, params.Limit)
		})
	}
}

func TestPageParamsSkip(t *testing.T) {
	assert.Equal(t, int64(0), PageParams{Page: 1, Limit: 10}.Skip())
	assert.Equal(t, int64(40), PageParams{Page: 5, Limit: 10}.Skip())
	assert.Equal(t, int64(50), PageParams{Page: 3, Limit: 25}.Skip())
}

func TestNewPagedResponseTotalPages(t *testing.T) {
	params := PageParams{Page: 1, Limit: 10}

	assert.Equal(t, int64(0), NewPagedResponse(params, 0, nil).TotalPages)
	assert.Equal(t, int64(1), NewPagedResponse(params, 10, nil).TotalPages)
	assert.Equal(t, int64(2), NewPagedResponse(params, 11, nil).TotalPages)
	assert.Equal(t, int64(10), NewPagedResponse(params, 100, nil).TotalPages)
}
