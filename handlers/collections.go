// handlers/collections.go
package handlers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shoybit/AssetVerse-Backend/database"
	"github.com/Shoybit/AssetVerse-Backend/middleware"
)

var (
	userCollection        *mongo.Collection
	assetCollection       *mongo.Collection
	requestCollection     *mongo.Collection
	assignmentCollection  *mongo.Collection
	affiliationCollection *mongo.Collection
	paymentCollection     *mongo.Collection
	auditLogCollection    *mongo.Collection
)

func InitCollections() {
	db := database.DB()
	userCollection = db.Collection("users")
	assetCollection = db.Collection("assets")
	requestCollection = db.Collection("requests")
	assignmentCollection = db.Collection("assigned_assets")
	affiliationCollection = db.Collection("affiliations")
	paymentCollection = db.Collection("payments")
	auditLogCollection = db.Collection("audit_logs")
}

// caller pulls the authenticated identity out of the request context.
type caller struct {
	ID    primitive.ObjectID
	Email string
	Name  string
	Role  string
}

func callerFromContext(r *http.Request) (caller, bool) {
	idStr, ok := r.Context().Value(middleware.CtxUserID).(string)
	if !ok || idStr == "" {
		return caller{}, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		return caller{}, false
	}
	email, _ := r.Context().Value(middleware.CtxUserEmail).(string)
	name, _ := r.Context().Value(middleware.CtxUserName).(string)
	role, _ := r.Context().Value(middleware.CtxUserRole).(string)
	return caller{ID: id, Email: email, Name: name, Role: role}, true
}
