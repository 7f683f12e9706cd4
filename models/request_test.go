package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRequestTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{RequestPending, RequestApproved, true},
		{RequestPending, RequestRejected, true},
		{RequestApproved, RequestReturned, true},

		{RequestPending, RequestReturned, false},
		{RequestApproved, RequestPending, false},
		{RequestApproved, RequestRejected, false},
		{RequestRejected, RequestApproved, false},
		{RequestRejected, RequestPending, false},
		{RequestReturned, RequestApproved, false},
		{RequestReturned, RequestPending, false},
		{"", RequestApproved, false},
		{"bogus", RequestApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidRequestTransition(tt.from, tt.to))
		})
	}
}

func TestPackageByID(t *testing.T) {
	p, ok := PackageByID("standard")
	assert.True(t, ok)
	assert.Equal(t, 10, p.MaxEmployees)

	_, ok = PackageByID("enterprise")
	assert.False(t, ok)
}
