package routes

import (
	"github.com/gorilla/mux"

	"github.com/Shoybit/AssetVerse-Backend/handlers"
	"github.com/Shoybit/AssetVerse-Backend/middleware"
	"github.com/Shoybit/AssetVerse-Backend/models"
)

// HTTP method constants for better maintainability
var (
	MethodsGetOnly    = []string{"GET", "OPTIONS"}
	MethodsPostOnly   = []string{"POST", "OPTIONS"}
	MethodsPutOnly    = []string{"PUT", "OPTIONS"}
	MethodsDeleteOnly = []string{"DELETE", "OPTIONS"}
)

const (
	PathAPI    = "/api"
	PathHealth = "/health"
)

func RegisterRoutes(r *mux.Router) {
	// ====================
	// HEALTH CHECK (Public)
	// ====================
	r.HandleFunc(PathHealth, handlers.HealthCheck).Methods(MethodsGetOnly...)

	// ====================
	// AUTHENTICATION ROUTES (Public - No auth required)
	// ====================
	r.HandleFunc("/api/auth/register", handlers.Register).Methods(MethodsPostOnly...)
	r.HandleFunc("/api/auth/login", handlers.Login).Methods(MethodsPostOnly...)

	// Package catalog is public so the pricing page works pre-signup
	r.HandleFunc("/api/packages", handlers.ListPackages).Methods(MethodsGetOnly...)

	// ====================
	// PAYMENT WEBHOOKS (Public - signature verified, not JWT)
	// ====================
	r.HandleFunc("/webhooks/payment", handlers.PaymentWebhook).Methods(MethodsPostOnly...)
	r.HandleFunc("/webhooks/payment/simulate", handlers.SimulatePayment).Methods(MethodsPostOnly...)

	// ====================
	// PROTECTED API ROUTES (Require authentication)
	// ====================
	apiRouter := r.PathPrefix(PathAPI).Subrouter()
	apiRouter.Use(middleware.AuthMiddleware)

	// ====================
	// ACCOUNT
	// ====================
	apiRouter.HandleFunc("/auth/me", handlers.GetCurrentUser).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/auth/profile", handlers.UpdateProfile).Methods(MethodsPutOnly...)

	// ====================
	// ASSET INVENTORY (HR only)
	// ====================
	hrRouter := apiRouter.NewRoute().Subrouter()
	hrRouter.Use(middleware.RequireRole(models.RoleHR))

	hrRouter.HandleFunc("/assets", handlers.CreateAsset).Methods(MethodsPostOnly...)
	hrRouter.HandleFunc("/assets", handlers.ListAssets).Methods(MethodsGetOnly...)
	hrRouter.HandleFunc("/assets/{id}", handlers.DeleteAsset).Methods(MethodsDeleteOnly...)

	// ====================
	// EMPLOYEE CATALOG & REQUESTS
	// ====================
	employeeRouter := apiRouter.NewRoute().Subrouter()
	employeeRouter.Use(middleware.RequireRole(models.RoleEmployee))

	employeeRouter.HandleFunc("/assets/available", handlers.ListAvailableAssets).Methods(MethodsGetOnly...)
	employeeRouter.HandleFunc("/requests", handlers.CreateRequest).Methods(MethodsPostOnly...)
	employeeRouter.HandleFunc("/requests/my", handlers.ListMyRequests).Methods(MethodsGetOnly...)
	employeeRouter.HandleFunc("/assigned-assets/my", handlers.ListMyAssignments).Methods(MethodsGetOnly...)
	employeeRouter.HandleFunc("/affiliations/my", handlers.ListMyAffiliations).Methods(MethodsGetOnly...)

	// ====================
	// REQUEST WORKFLOW (HR only)
	// ====================
	hrRouter.HandleFunc("/requests", handlers.ListCompanyRequests).Methods(MethodsGetOnly...)
	hrRouter.HandleFunc("/requests/{id}/approve", handlers.ApproveRequest).Methods(MethodsPutOnly...)
	hrRouter.HandleFunc("/requests/{id}/reject", handlers.RejectRequest).Methods(MethodsPutOnly...)

	// ====================
	// ASSIGNMENTS & RETURNS
	// ====================
	hrRouter.HandleFunc("/assigned-assets", handlers.ListCompanyAssignments).Methods(MethodsGetOnly...)
	employeeRouter.HandleFunc("/assigned-assets/{id}/return", handlers.ReturnAssignment).Methods(MethodsPostOnly...)

	// ====================
	// AFFILIATIONS (HR roster)
	// ====================
	hrRouter.HandleFunc("/affiliations", handlers.ListAffiliations).Methods(MethodsGetOnly...)
	hrRouter.HandleFunc("/affiliations/{employeeEmail}", handlers.RemoveAffiliation).Methods(MethodsDeleteOnly...)

	// ====================
	// BILLING
	// ====================
	hrRouter.HandleFunc("/payments", handlers.ListPayments).Methods(MethodsGetOnly...)

	// ====================
	// DASHBOARD & AUDIT (HR only)
	// ====================
	hrRouter.HandleFunc("/dashboard/hr", handlers.GetHRDashboard).Methods(MethodsGetOnly...)
	hrRouter.HandleFunc("/audit-logs", handlers.ListAuditLogs).Methods(MethodsGetOnly...)

	// ====================
	// WEBSOCKET (token auth handled inside the handler)
	// ====================
	r.HandleFunc("/api/events/ws", handlers.HandleWebSocket)
}
