package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shoybit/AssetVerse-Backend/models"
	"github.com/Shoybit/AssetVerse-Backend/utils"
)

// CreateAsset adds an inventory line for the calling HR's tenant.
// Available quantity equals total quantity at creation.
func CreateAsset(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		ProductName     string `json:"productName"`
		ProductType     string `json:"productType"`
		ProductQuantity int    `json:"productQuantity"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if req.ProductName == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Product name is required")
		return
	}
	if req.ProductType != models.AssetTypeReturnable && req.ProductType != models.AssetTypeNonReturnable {
		utils.RespondWithError(w, http.StatusBadRequest, "Product type must be Returnable or Non-returnable")
		return
	}
	if req.ProductQuantity < 1 {
		utils.RespondWithError(w, http.StatusBadRequest, "Product quantity must be at least 1")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var hr models.User
	if err := userCollection.FindOne(ctx, bson.M{"_id": c.ID}).Decode(&hr); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "HR account not found")
		return
	}

	asset := models.Asset{
		ID:                primitive.NewObjectID(),
		ProductName:       req.ProductName,
		ProductType:       req.ProductType,
		ProductQuantity:   req.ProductQuantity,
		AvailableQuantity: req.ProductQuantity,
		HRID:              c.ID,
		HREmail:           c.Email,
		CompanyName:       hr.CompanyName,
		CreatedAt:         time.Now().UTC(),
	}

	if _, err := assetCollection.InsertOne(ctx, asset); err != nil {
		log.Error().Err(err).Msg("asset insert failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create asset")
		return
	}

	writeAudit(ctx, r, c, "asset_create", "asset", asset.ID, bson.M{
		"productName": asset.ProductName,
		"quantity":    asset.ProductQuantity,
	})

	utils.RespondWithJSON(w, http.StatusCreated, asset)
}

// ListAssets returns the calling HR's inventory, paginated and
// filterable by name search, type and stock availability.
func ListAssets(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := bson.M{"hrId": c.ID}

	query := r.URL.Query()
	if search := query.Get("search"); search != "" {
		filter["productName"] = bson.M{"$regex": search, "$options": "i"}
	}
	if assetType := query.Get("type"); assetType != "" && assetType != "all" {
		filter["productType"] = assetType
	}
	if stock := query.Get("stock"); stock != "" {
		switch stock {
		case "available":
			filter["availableQuantity"] = bson.M{"$gt": 0}
		case "out":
			filter["availableQuantity"] = 0
		}
	}

	params := utils.ParsePageParams(r)

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	total, err := assetCollection.CountDocuments(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("asset count failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch assets")
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(params.Limit)).
		SetSkip(params.Skip())

	cursor, err := assetCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Error().Err(err).Msg("asset find failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch assets")
		return
	}
	defer cursor.Close(ctx)

	var assets []models.Asset
	if err = cursor.All(ctx, &assets); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode assets")
		return
	}
	if assets == nil {
		assets = []models.Asset{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.NewPagedResponse(params, total, assets))
}

// ListAvailableAssets is the employee-facing view: assets with stock
// across every tenant, searchable by name.
func ListAvailableAssets(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{"availableQuantity": bson.M{"$gt": 0}}

	if search := r.URL.Query().Get("search"); search != "" {
		filter["productName"] = bson.M{"$regex": search, "$options": "i"}
	}
	if assetType := r.URL.Query().Get("type"); assetType != "" && assetType != "all" {
		filter["productType"] = assetType
	}

	params := utils.ParsePageParams(r)

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	total, err := assetCollection.CountDocuments(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch assets")
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(params.Limit)).
		SetSkip(params.Skip())

	cursor, err := assetCollection.Find(ctx, filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch assets")
		return
	}
	defer cursor.Close(ctx)

	var assets []models.Asset
	if err = cursor.All(ctx, &assets); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode assets")
		return
	}
	if assets == nil {
		assets = []models.Asset{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.NewPagedResponse(params, total, assets))
}

// DeleteAsset removes an inventory line. Fails with a conflict while any
// unit of it is still in an employee's hands.
func DeleteAsset(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	assetID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid asset ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var asset models.Asset
	err = assetCollection.FindOne(ctx, bson.M{"_id": assetID, "hrId": c.ID}).Decode(&asset)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.RespondWithError(w, http.StatusNotFound, "Asset not found")
		} else {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch asset")
		}
		return
	}

	liveCount, err := assignmentCollection.CountDocuments(ctx, bson.M{
		"assetId": assetID,
		"status":  models.AssignmentAssigned,
	})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to check assignments")
		return
	}
	if liveCount > 0 {
		utils.RespondWithError(w, http.StatusConflict, "Asset has units currently assigned and cannot be deleted")
		return
	}

	result, err := assetCollection.DeleteOne(ctx, bson.M{"_id": assetID, "hrId": c.ID})
	if err != nil {
		log.Error().Err(err).Msg("asset delete failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete asset")
		return
	}
	if result.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Asset not found")
		return
	}

	writeAudit(ctx, r, c, "asset_delete", "asset", assetID, bson.M{
		"productName": asset.ProductName,
	})

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Asset deleted successfully",
		"assetId": assetID.Hex(),
	})
}
