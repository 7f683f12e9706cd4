package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shoybit/AssetVerse-Backend/models"
	"github.com/Shoybit/AssetVerse-Backend/utils"
)

// GetHRDashboard aggregates the inventory and request numbers an HR
// landing page needs in one round trip per collection.
func GetHRDashboard(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	assetPipeline := []bson.M{
		{"$match": bson.M{"hrId": c.ID}},
		{"$facet": bson.M{
			"totals": []bson.M{
				{"$group": bson.M{
					"_id":           nil,
					"totalAssets":   bson.M{"$sum": 1},
					"totalUnits":    bson.M{"$sum": "$productQuantity"},
					"unitsInStock":  bson.M{"$sum": "$availableQuantity"},
					"limitedStock":  bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$lt": bson.A{"$availableQuantity", 10}}, 1, 0}}},
					"outOfStock":    bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$availableQuantity", 0}}, 1, 0}}},
				}},
			},
			"byType": []bson.M{
				{"$group": bson.M{"_id": "$productType", "count": bson.M{"$sum": 1}}},
			},
		}},
	}

	requestPipeline := []bson.M{
		{"$match": bson.M{"hrId": c.ID}},
		{"$facet": bson.M{
			"byStatus": []bson.M{
				{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
			"topRequested": []bson.M{
				{"$group": bson.M{"_id": "$assetName", "count": bson.M{"$sum": 1}}},
				{"$sort": bson.M{"count": -1}},
				{"$limit": 5},
			},
		}},
	}

	assetStats, err := runFacet(ctx, assetPipeline, assetCollection)
	if err != nil {
		log.Error().Err(err).Msg("asset stats aggregation failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to compute dashboard stats")
		return
	}

	requestStats, err := runFacet(ctx, requestPipeline, requestCollection)
	if err != nil {
		log.Error().Err(err).Msg("request stats aggregation failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to compute dashboard stats")
		return
	}

	var hr models.User
	if err := userCollection.FindOne(ctx, bson.M{"_id": c.ID}).Decode(&hr); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load account")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"assets":   assetStats,
		"requests": requestStats,
		"capacity": map[string]interface{}{
			"packageLimit":     hr.PackageLimit,
			"currentEmployees": hr.CurrentEmployees,
			"seatsRemaining":   hr.PackageLimit - hr.CurrentEmployees,
			"selectedPackage":  hr.SelectedPackage,
		},
	})
}

func runFacet(ctx context.Context, pipeline []bson.M, coll *mongo.Collection) (bson.M, error) {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return bson.M{}, nil
	}
	return results[0], nil
}
