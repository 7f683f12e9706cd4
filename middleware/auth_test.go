package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shoybit/AssetVerse-Backend/models"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid bearer", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"missing header", "", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz", ""},
		{"bearer no space", "Bearerabc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/assets", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, BearerToken(r))
		})
	}
}

func TestRequireRole(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		role       string
		allowed    []string
		wantStatus int
	}{
		{"hr allowed", models.RoleHR, []string{models.RoleHR}, http.StatusOK},
		{"employee allowed", models.RoleEmployee, []string{models.RoleEmployee}, http.StatusOK},
		{"employee blocked from hr route", models.RoleEmployee, []string{models.RoleHR}, http.StatusForbidden},
		{"hr blocked from employee route", models.RoleHR, []string{models.RoleEmployee}, http.StatusForbidden},
		{"no role in context", "", []string{models.RoleHR}, http.StatusForbidden},
		{"multiple roles", models.RoleEmployee, []string{models.RoleHR, models.RoleEmployee}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/requests", nil)
			if tt.role != "" {
				r = r.WithContext(context.WithValue(r.Context(), CtxUserRole, tt.role))
			}

			rr := httptest.NewRecorder()
			RequireRole(tt.allowed...)(okHandler).ServeHTTP(rr, r)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
