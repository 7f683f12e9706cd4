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
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/Shoybit/AssetVerse-Backend/models"
	"github.com/Shoybit/AssetVerse-Backend/utils"
)

// txnOptions gives every workflow transaction majority read and write
// concern: nothing is considered committed before a majority of the
// replica set acknowledges it.
func txnOptions() *options.TransactionOptions {
	return options.Transaction().
		SetReadConcern(readconcern.Majority()).
		SetWriteConcern(writeconcern.Majority())
}

// CreateRequest files an employee's ask for one unit of an asset. HR
// identity and tenant label are snapshotted from the asset here and
// never re-derived. Requests are accepted even when the asset is
// currently out of stock; availability is checked at approval.
func CreateRequest(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		AssetID string `json:"assetId"`
		Note    string `json:"note,omitempty"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	assetID, err := primitive.ObjectIDFromHex(req.AssetID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid asset ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var asset models.Asset
	err = assetCollection.FindOne(ctx, bson.M{"_id": assetID}).Decode(&asset)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.RespondWithError(w, http.StatusNotFound, "Asset not found")
		} else {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch asset")
		}
		return
	}

	request := models.Request{
		ID:             primitive.NewObjectID(),
		AssetID:        asset.ID,
		AssetName:      asset.ProductName,
		AssetType:      asset.ProductType,
		RequesterEmail: c.Email,
		RequesterName:  c.Name,
		HRID:           asset.HRID,
		HREmail:        asset.HREmail,
		CompanyName:    asset.CompanyName,
		Note:           req.Note,
		Status:         models.RequestPending,
		RequestDate:    time.Now().UTC(),
	}

	if _, err := requestCollection.InsertOne(ctx, request); err != nil {
		log.Error().Err(err).Msg("request insert failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create request")
		return
	}

	writeTenantAudit(ctx, r, asset.HRID, c, "request_create", "request", request.ID, bson.M{
		"assetName": asset.ProductName,
	})

	utils.RespondWithJSON(w, http.StatusCreated, request)
}

// ListMyRequests returns the calling employee's requests, paginated.
func ListMyRequests(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := bson.M{"requesterEmail": c.Email}
	if status := r.URL.Query().Get("status"); status != "" && status != "all" {
		filter["status"] = status
	}
	if search := r.URL.Query().Get("search"); search != "" {
		filter["assetName"] = bson.M{"$regex": search, "$options": "i"}
	}

	listRequests(w, r, filter)
}

// ListCompanyRequests returns every request filed against the calling
// HR's assets, paginated and filterable by status and requester search.
func ListCompanyRequests(w http.ResponseWriter, r *http.Request) {
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
			{"requesterEmail": bson.M{"$regex": search, "$options": "i"}},
			{"requesterName": bson.M{"$regex": search, "$options": "i"}},
			{"assetName": bson.M{"$regex": search, "$options": "i"}},
		}
	}

	listRequests(w, r, filter)
}

func listRequests(w http.ResponseWriter, r *http.Request, filter bson.M) {
	params := utils.ParsePageParams(r)

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	total, err := requestCollection.CountDocuments(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("request count failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch requests")
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "requestDate", Value: -1}}).
		SetLimit(int64(params.Limit)).
		SetSkip(params.Skip())

	cursor, err := requestCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Error().Err(err).Msg("request find failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch requests")
		return
	}
	defer cursor.Close(ctx)

	var requests []models.Request
	if err = cursor.All(ctx, &requests); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode requests")
		return
	}
	if requests == nil {
		requests = []models.Request{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.NewPagedResponse(params, total, requests))
}

// ApproveRequest is the central workflow step. Inside one transaction it
// decrements the asset's available quantity, creates the assignment,
// transitions the request, and — for an employee not yet affiliated with
// this HR — enforces the package capacity limit and enrolls them. Every
// precondition failure aborts the whole transaction; no partial writes
// survive.
func ApproveRequest(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	requestID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	session, err := requestCollection.Database().Client().StartSession()
	if err != nil {
		log.Error().Err(err).Msg("failed to start session")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to start database session")
		return
	}
	defer session.EndSession(ctx)

	now := time.Now().UTC()

	assignedID, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		// 1. Request exists, belongs to this HR, still pending.
		var request models.Request
		if err := requestCollection.FindOne(sc, bson.M{"_id": requestID}).Decode(&request); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, utils.ErrNotFound.WithMessage("Request not found")
			}
			return nil, err
		}
		if request.HRID != c.ID {
			return nil, utils.ErrForbidden.WithMessage("Request belongs to another company")
		}
		if !models.ValidRequestTransition(request.Status, models.RequestApproved) {
			return nil, utils.ErrInvalidState.WithMessage("Request is already " + request.Status)
		}

		// 2. Asset exists and has stock. The decrement is conditional on
		// availableQuantity > 0; a zero matched count means a concurrent
		// approval took the last unit between our read and this write.
		var asset models.Asset
		if err := assetCollection.FindOne(sc, bson.M{"_id": request.AssetID}).Decode(&asset); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, utils.ErrNotFound.WithMessage("Asset no longer exists")
			}
			return nil, err
		}

		dec, err := assetCollection.UpdateOne(sc,
			bson.M{"_id": request.AssetID, "availableQuantity": bson.M{"$gt": 0}},
			bson.M{"$inc": bson.M{"availableQuantity": -1}},
		)
		if err != nil {
			return nil, err
		}
		if dec.MatchedCount == 0 {
			return nil, utils.ErrConflict.WithMessage("Asset is out of stock")
		}

		// 3. Create the assignment.
		assignment := models.AssignedAsset{
			ID:             primitive.NewObjectID(),
			AssetID:        request.AssetID,
			AssetName:      request.AssetName,
			AssetType:      request.AssetType,
			EmployeeEmail:  request.RequesterEmail,
			EmployeeName:   request.RequesterName,
			HRID:           request.HRID,
			HREmail:        request.HREmail,
			CompanyName:    request.CompanyName,
			Status:         models.AssignmentAssigned,
			AssignmentDate: now,
		}
		if _, err := assignmentCollection.InsertOne(sc, assignment); err != nil {
			return nil, err
		}

		// 4. Transition the request, guarded on it still being pending.
		res, err := requestCollection.UpdateOne(sc,
			bson.M{"_id": requestID, "status": models.RequestPending},
			bson.M{"$set": bson.M{
				"status":       models.RequestApproved,
				"approvalDate": now,
				"processedBy":  c.Email,
			}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, utils.ErrConflict.WithMessage("Request was processed concurrently")
		}

		// 5. Lazy affiliation: first approval for this (employee, HR)
		// pair enrolls the employee, gated by the package limit read
		// fresh inside this transaction.
		count, err := affiliationCollection.CountDocuments(sc, bson.M{
			"employeeEmail": request.RequesterEmail,
			"hrId":          request.HRID,
		})
		if err != nil {
			return nil, err
		}
		if count == 0 {
			var hr models.User
			if err := userCollection.FindOne(sc, bson.M{"_id": request.HRID}).Decode(&hr); err != nil {
				return nil, err
			}
			if hr.CurrentEmployees+1 > hr.PackageLimit {
				return nil, utils.ErrCapacityExceeded.WithMessage("Employee package limit reached, upgrade your package")
			}

			affiliation := models.Affiliation{
				ID:              primitive.NewObjectID(),
				EmployeeEmail:   request.RequesterEmail,
				EmployeeName:    request.RequesterName,
				HRID:            request.HRID,
				HREmail:         request.HREmail,
				CompanyName:     hr.CompanyName,
				CompanyLogo:     hr.CompanyLogo,
				Status:          "active",
				AffiliationDate: now,
			}
			if _, err := affiliationCollection.InsertOne(sc, affiliation); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return nil, utils.ErrConflict.WithMessage("Employee was enrolled concurrently")
				}
				return nil, err
			}
			if _, err := userCollection.UpdateOne(sc,
				bson.M{"_id": request.HRID},
				bson.M{"$inc": bson.M{"currentEmployees": 1}},
			); err != nil {
				return nil, err
			}
		}

		return assignment.ID, nil
	}, txnOptions())

	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			utils.RespondAppError(w, appErr)
			return
		}
		log.Error().Err(err).Str("requestId", requestID.Hex()).Msg("approve transaction failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to approve request")
		return
	}

	assignmentID := assignedID.(primitive.ObjectID)

	writeAudit(ctx, r, c, "request_approve", "request", requestID, bson.M{
		"assignedId": assignmentID.Hex(),
	})

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message":    "Request approved successfully",
		"assignedId": assignmentID.Hex(),
	})
}

// RejectRequest is a single-document pending→rejected transition with no
// inventory side effects.
func RejectRequest(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	requestID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request ID format")
		return
	}

	var req struct {
		Note string `json:"note,omitempty"`
	}
	_ = utils.ParseJSON(r, &req)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var request models.Request
	if err := requestCollection.FindOne(ctx, bson.M{"_id": requestID}).Decode(&request); err != nil {
		if err == mongo.ErrNoDocuments {
			utils.RespondWithError(w, http.StatusNotFound, "Request not found")
		} else {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch request")
		}
		return
	}
	if request.HRID != c.ID {
		utils.RespondWithError(w, http.StatusForbidden, "Request belongs to another company")
		return
	}
	if !models.ValidRequestTransition(request.Status, models.RequestRejected) {
		utils.RespondWithError(w, http.StatusBadRequest, "Request is already "+request.Status)
		return
	}

	now := time.Now().UTC()
	update := bson.M{
		"status":       models.RequestRejected,
		"approvalDate": now,
		"processedBy":  c.Email,
	}
	if req.Note != "" {
		update["note"] = req.Note
	}

	res, err := requestCollection.UpdateOne(ctx,
		bson.M{"_id": requestID, "status": models.RequestPending},
		bson.M{"$set": update},
	)
	if err != nil {
		log.Error().Err(err).Msg("reject update failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to reject request")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusConflict, "Request was processed concurrently")
		return
	}

	writeAudit(ctx, r, c, "request_reject", "request", requestID, nil)

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Request rejected",
	})
}
