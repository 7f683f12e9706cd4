package handlers

import (
	"context"
	"errors"
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

// ListMyAssignments returns the calling employee's assignments.
func ListMyAssignments(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := bson.M{"employeeEmail": c.Email}
	if status := r.URL.Query().Get("status"); status != "" && status != "all" {
		filter["status"] = status
	}
	if search := r.URL.Query().Get("search"); search != "" {
		filter["assetName"] = bson.M{"$regex": search, "$options": "i"}
	}

	listAssignments(w, r, filter)
}

// ListCompanyAssignments returns every assignment under the calling HR's
// tenant.
func ListCompanyAssignments(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := bson.M{"hrId": c.ID}
	if status := r.URL.Query().Get("status"); status != "" && status != "all" {
		filter["status"] = status
	}
	if search := r.URL.Query().Get("search"); search != "" {
		filter["$or"] = []bson.M{
			{"employeeEmail": bson.M{"$regex": search, "$options": "i"}},
			{"employeeName": bson.M{"$regex": search, "$options": "i"}},
			{"assetName": bson.M{"$regex": search, "$options": "i"}},
		}
	}

	listAssignments(w, r, filter)
}

func listAssignments(w http.ResponseWriter, r *http.Request, filter bson.M) {
	params := utils.ParsePageParams(r)

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	total, err := assignmentCollection.CountDocuments(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("assignment count failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch assignments")
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "assignmentDate", Value: -1}}).
		SetLimit(int64(params.Limit)).
		SetSkip(params.Skip())

	cursor, err := assignmentCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Error().Err(err).Msg("assignment find failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch assignments")
		return
	}
	defer cursor.Close(ctx)

	var assignments []models.AssignedAsset
	if err = cursor.All(ctx, &assignments); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode assignments")
		return
	}
	if assignments == nil {
		assignments = []models.AssignedAsset{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.NewPagedResponse(params, total, assignments))
}

// ReturnAssignment gives a unit back. Only the holding employee may
// return it, only while it is assigned, and only for Returnable asset
// types. One transaction marks the assignment returned, restores the
// asset's available quantity (clamped at the total) and opportunistically
// moves the matching approved request to returned — the request link is
// by convention, so a missing match is not an error.
func ReturnAssignment(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	assignmentID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid assignment ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	session, err := assignmentCollection.Database().Client().StartSession()
	if err != nil {
		log.Error().Err(err).Msg("failed to start session")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to start database session")
		return
	}
	defer session.EndSession(ctx)

	now := time.Now().UTC()

	var assignment models.AssignedAsset

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := assignmentCollection.FindOne(sc, bson.M{"_id": assignmentID}).Decode(&assignment); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, utils.ErrNotFound.WithMessage("Assignment not found")
			}
			return nil, err
		}
		if assignment.EmployeeEmail != c.Email {
			return nil, utils.ErrForbidden.WithMessage("Assignment belongs to another employee")
		}
		if assignment.Status != models.AssignmentAssigned {
			return nil, utils.ErrInvalidState.WithMessage("Assignment is already " + assignment.Status)
		}
		if assignment.AssetType != models.AssetTypeReturnable {
			return nil, utils.ErrInvalidOperation.WithMessage("Non-returnable assets cannot be returned")
		}

		res, err := assignmentCollection.UpdateOne(sc,
			bson.M{"_id": assignmentID, "status": models.AssignmentAssigned},
			bson.M{"$set": bson.M{
				"status":     models.AssignmentReturned,
				"returnDate": now,
			}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, utils.ErrConflict.WithMessage("Assignment was returned concurrently")
		}

		if err := restoreAssetUnit(sc, assignment.AssetID); err != nil {
			return nil, err
		}

		// Best-effort request reconciliation.
		if err := reconcileReturnedRequest(sc, assignment); err != nil {
			return nil, err
		}

		return nil, nil
	}, txnOptions())

	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			utils.RespondAppError(w, appErr)
			return
		}
		log.Error().Err(err).Str("assignmentId", assignmentID.Hex()).Msg("return transaction failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to return assignment")
		return
	}

	writeTenantAudit(ctx, r, assignment.HRID, c, "assignment_return", "assignment", assignmentID, bson.M{
		"assetName": assignment.AssetName,
	})

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message":    "Asset returned successfully",
		"assignedId": assignmentID.Hex(),
		"returnDate": now.Format(time.RFC3339),
	})
}

// restoreAssetUnit puts one unit back into availability. The update is
// conditional on availableQuantity < productQuantity so a double return
// can never push availability past the total; a saturated increment is
// silently a no-op.
func restoreAssetUnit(sc mongo.SessionContext, assetID primitive.ObjectID) error {
	_, err := assetCollection.UpdateOne(sc,
		bson.M{
			"_id":   assetID,
			"$expr": bson.M{"$lt": bson.A{"$availableQuantity", "$productQuantity"}},
		},
		bson.M{"$inc": bson.M{"availableQuantity": 1}},
	)
	return err
}

// reconcileReturnedRequest flips the approved request that matches this
// assignment (same asset, same employee) to returned. There is no hard
// foreign key between the two collections; a zero matched count is fine.
func reconcileReturnedRequest(sc mongo.SessionContext, assignment models.AssignedAsset) error {
	_, err := requestCollection.UpdateOne(sc,
		bson.M{
			"assetId":        assignment.AssetID,
			"requesterEmail": assignment.EmployeeEmail,
			"status":         models.RequestApproved,
		},
		bson.M{"$set": bson.M{"status": models.RequestReturned}},
	)
	return err
}
