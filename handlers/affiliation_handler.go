package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shoybit/AssetVerse-Backend/models"
	"github.com/Shoybit/AssetVerse-Backend/utils"
)

// ListAffiliations returns the calling HR's employee roster.
func ListAffiliations(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := bson.M{"hrId": c.ID}
	if search := r.URL.Query().Get("search"); search != "" {
		filter["$or"] = []bson.M{
			{"employeeEmail": bson.M{"$regex": search, "$options": "i"}},
			{"employeeName": bson.M{"$regex": search, "$options": "i"}},
		}
	}

	params := utils.ParsePageParams(r)

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	total, err := affiliationCollection.CountDocuments(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("affiliation count failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch employees")
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "affiliationDate", Value: -1}}).
		SetLimit(int64(params.Limit)).
		SetSkip(params.Skip())

	cursor, err := affiliationCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Error().Err(err).Msg("affiliation find failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch employees")
		return
	}
	defer cursor.Close(ctx)

	var affiliations []models.Affiliation
	if err = cursor.All(ctx, &affiliations); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode employees")
		return
	}
	if affiliations == nil {
		affiliations = []models.Affiliation{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.NewPagedResponse(params, total, affiliations))
}

// ListMyAffiliations returns the tenants the calling employee belongs to.
func ListMyAffiliations(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := affiliationCollection.Find(ctx, bson.M{"employeeEmail": c.Email})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch affiliations")
		return
	}
	defer cursor.Close(ctx)

	var affiliations []models.Affiliation
	if err = cursor.All(ctx, &affiliations); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode affiliations")
		return
	}
	if affiliations == nil {
		affiliations = []models.Affiliation{}
	}

	utils.RespondWithJSON(w, http.StatusOK, affiliations)
}

// RemoveAffiliation offboards an employee from the calling HR's tenant.
// One transaction returns every unit the employee still holds under this
// HR (restoring availability and reconciling the matching requests),
// deletes the affiliation, and decrements the live-employee counter,
// floored at zero. Responds with the number of assignments reverted.
func RemoveAffiliation(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	employeeEmail := strings.ToLower(strings.TrimSpace(mux.Vars(r)["employeeEmail"]))
	if employeeEmail == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Employee email required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	session, err := affiliationCollection.Database().Client().StartSession()
	if err != nil {
		log.Error().Err(err).Msg("failed to start session")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to start database session")
		return
	}
	defer session.EndSession(ctx)

	now := time.Now().UTC()

	reverted, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var affiliation models.Affiliation
		err := affiliationCollection.FindOne(sc, bson.M{
			"employeeEmail": employeeEmail,
			"hrId":          c.ID,
		}).Decode(&affiliation)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, utils.ErrNotFound.WithMessage("No affiliation found for " + employeeEmail)
			}
			return nil, err
		}

		cursor, err := assignmentCollection.Find(sc, bson.M{
			"employeeEmail": employeeEmail,
			"hrId":          c.ID,
			"status":        models.AssignmentAssigned,
		})
		if err != nil {
			return nil, err
		}
		var live []models.AssignedAsset
		if err = cursor.All(sc, &live); err != nil {
			return nil, err
		}

		revertedCount := 0
		for _, assignment := range live {
			res, err := assignmentCollection.UpdateOne(sc,
				bson.M{"_id": assignment.ID, "status": models.AssignmentAssigned},
				bson.M{"$set": bson.M{
					"status":     models.AssignmentReturned,
					"returnDate": now,
				}},
			)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				// Returned concurrently between our read and this write.
				continue
			}
			if err := restoreAssetUnit(sc, assignment.AssetID); err != nil {
				return nil, err
			}
			if err := reconcileReturnedRequest(sc, assignment); err != nil {
				return nil, err
			}
			revertedCount++
		}

		if _, err := affiliationCollection.DeleteOne(sc, bson.M{"_id": affiliation.ID}); err != nil {
			return nil, err
		}

		// Floored decrement: an already-zero counter stays at zero.
		if _, err := userCollection.UpdateOne(sc,
			bson.M{"_id": c.ID, "currentEmployees": bson.M{"$gt": 0}},
			bson.M{"$inc": bson.M{"currentEmployees": -1}},
		); err != nil {
			return nil, err
		}

		return revertedCount, nil
	}, txnOptions())

	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			utils.RespondAppError(w, appErr)
			return
		}
		log.Error().Err(err).Str("employee", employeeEmail).Msg("offboarding transaction failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to remove employee")
		return
	}

	revertedCount := reverted.(int)

	writeAudit(ctx, r, c, "affiliation_remove", "affiliation", c.ID, bson.M{
		"employeeEmail":       employeeEmail,
		"assignmentsReverted": revertedCount,
	})

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":             "Employee removed successfully",
		"employeeEmail":       employeeEmail,
		"assignmentsReverted": revertedCount,
	})
}
