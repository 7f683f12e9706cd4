package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorIs(t *testing.T) {
	err := ErrConflict.WithMessage("Asset is out of stock")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Asset is out of stock", err.Error())
}

func TestAppErrorIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("approve failed: %w", ErrCapacityExceeded.WithMessage("upgrade your package"))

	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestRespondAppErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "Forbidden"},
		{"not found", ErrNotFound.WithMessage("Request not found"), http.StatusNotFound, "NotFound"},
		{"invalid state", ErrInvalidState, http.StatusBadRequest, "InvalidState"},
		{"conflict", ErrConflict, http.StatusConflict, "Conflict"},
		{"capacity", ErrCapacityExceeded, http.StatusBadRequest, "CapacityExceeded"},
		{"invalid operation", ErrInvalidOperation, http.StatusBadRequest, "InvalidOperation"},
		{"unknown error hidden", errors.New("connection reset by peer"), http.StatusInternalServerError, "Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondAppError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestRespondAppErrorNeverLeaksUnknownMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondAppError(rr, errors.New("dial tcp 10.0.0.5:27017: i/o timeout"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotContains(t, body["error"], "10.0.0.5")
	assert.Equal(t, ErrInternal.Message, body["error"])
}
