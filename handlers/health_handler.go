package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Shoybit/AssetVerse-Backend/database"
	"github.com/Shoybit/AssetVerse-Backend/utils"
)

// HealthCheck reports process liveness and database reachability.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := "connected"
	code := http.StatusOK

	if err := database.Client.Ping(ctx, nil); err != nil {
		status = "degraded"
		dbStatus = "unreachable"
		code = http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, code, map[string]string{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
