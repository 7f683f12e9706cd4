package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Shoybit/AssetVerse-Backend/config"
	"github.com/Shoybit/AssetVerse-Backend/database"
	"github.com/Shoybit/AssetVerse-Backend/middleware"
	"github.com/Shoybit/AssetVerse-Backend/models"
)

// These tests run the approval, return, offboarding and payment
// transactions against a real MongoDB. They need a replica set (single
// node is fine) because the workflows use multi-document transactions.
// Set TEST_MONGO_URI to enable them.

var hubOnce sync.Once

func setupWorkflowEnv(t *testing.T) context.Context {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set; workflow tests need a replica-set MongoDB")
	}

	config.MongoURI = uri
	config.DatabaseName = "assetverse_test"

	require.NoError(t, database.Connect())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	require.NoError(t, database.DB().Drop(ctx))
	require.NoError(t, database.EnsureIndexes(ctx))
	InitCollections()

	hubOnce.Do(func() { go hub.Run() })

	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()
		_ = database.DB().Drop(dropCtx)
		database.Disconnect()
	})

	return ctx
}

func seedUser(t *testing.T, ctx context.Context, role, email string, packageLimit, currentEmployees int) models.User {
	t.Helper()
	u := models.User{
		ID:               primitive.NewObjectID(),
		Name:             email,
		Email:            email,
		Role:             role,
		PackageLimit:     packageLimit,
		CurrentEmployees: currentEmployees,
		CreatedAt:        time.Now().UTC(),
	}
	if role == models.RoleHR {
		u.CompanyName = "Acme Corp"
	}
	_, err := userCollection.InsertOne(ctx, u)
	require.NoError(t, err)
	return u
}

func seedAsset(t *testing.T, ctx context.Context, hr models.User, name, assetType string, total, available int) models.Asset {
	t.Helper()
	a := models.Asset{
		ID:                primitive.NewObjectID(),
		ProductName:       name,
		ProductType:       assetType,
		ProductQuantity:   total,
		AvailableQuantity: available,
		HRID:              hr.ID,
		HREmail:           hr.Email,
		CompanyName:       hr.CompanyName,
		CreatedAt:         time.Now().UTC(),
	}
	_, err := assetCollection.InsertOne(ctx, a)
	require.NoError(t, err)
	return a
}

func seedPendingRequest(t *testing.T, ctx context.Context, asset models.Asset, emp models.User) models.Request {
	t.Helper()
	req := models.Request{
		ID:             primitive.NewObjectID(),
		AssetID:        asset.ID,
		AssetName:      asset.ProductName,
		AssetType:      asset.ProductType,
		RequesterEmail: emp.Email,
		RequesterName:  emp.Name,
		HRID:           asset.HRID,
		HREmail:        asset.HREmail,
		CompanyName:    asset.CompanyName,
		Status:         models.RequestPending,
		RequestDate:    time.Now().UTC(),
	}
	_, err := requestCollection.InsertOne(ctx, req)
	require.NoError(t, err)
	return req
}

func seedAffiliation(t *testing.T, ctx context.Context, hr, emp models.User) models.Affiliation {
	t.Helper()
	aff := models.Affiliation{
		ID:              primitive.NewObjectID(),
		EmployeeEmail:   emp.Email,
		EmployeeName:    emp.Name,
		HRID:            hr.ID,
		HREmail:         hr.Email,
		CompanyName:     hr.CompanyName,
		Status:          "active",
		AffiliationDate: time.Now().UTC(),
	}
	_, err := affiliationCollection.InsertOne(ctx, aff)
	require.NoError(t, err)
	return aff
}

// authedRequest builds a request carrying the identity AuthMiddleware
// would have seeded.
func authedRequest(u models.User, method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")

	ctx := context.WithValue(r.Context(), middleware.CtxUserID, u.ID.Hex())
	ctx = context.WithValue(ctx, middleware.CtxUserEmail, u.Email)
	ctx = context.WithValue(ctx, middleware.CtxUserName, u.Name)
	ctx = context.WithValue(ctx, middleware.CtxUserRole, u.Role)
	return r.WithContext(ctx)
}

func fetchAsset(t *testing.T, ctx context.Context, id primitive.ObjectID) models.Asset {
	t.Helper()
	var a models.Asset
	require.NoError(t, assetCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&a))
	return a
}

func fetchUser(t *testing.T, ctx context.Context, id primitive.ObjectID) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, userCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&u))
	return u
}

func fetchRequest(t *testing.T, ctx context.Context, id primitive.ObjectID) models.Request {
	t.Helper()
	var req models.Request
	require.NoError(t, requestCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&req))
	return req
}

func doApprove(u models.User, requestID primitive.ObjectID) *httptest.ResponseRecorder {
	r := authedRequest(u, "POST", "/api/requests/"+requestID.Hex()+"/approve", nil)
	r = mux.SetURLVars(r, map[string]string{"id": requestID.Hex()})
	rr := httptest.NewRecorder()
	ApproveRequest(rr, r)
	return rr
}

func doReturn(u models.User, assignmentID primitive.ObjectID) *httptest.ResponseRecorder {
	r := authedRequest(u, "POST", "/api/assigned-assets/"+assignmentID.Hex()+"/return", nil)
	r = mux.SetURLVars(r, map[string]string{"id": assignmentID.Hex()})
	rr := httptest.NewRecorder()
	ReturnAssignment(rr, r)
	return rr
}

func TestApproveNeverOversellsLastUnit(t *testing.T) {
	ctx := setupWorkflowEnv(t)

	hr := seedUser(t, ctx, models.RoleHR, "hr@acme.test", 10, 0)
	empA := seedUser(t, ctx, models.RoleEmployee, "alice@acme.test", 0, 0)
	empB := seedUser(t, ctx, models.RoleEmployee, "bob@acme.test", 0, 0)
	asset := seedAsset(t, ctx, hr, "Laptop", models.AssetTypeReturnable, 3, 1)

	reqA := seedPendingRequest(t, ctx, asset, empA)
	reqB := seedPendingRequest(t, ctx, asset, empB)

	assert.Equal(t, http.StatusOK, doApprove(hr, reqA.ID).Code)

	rr := doApprove(hr, reqB.ID)
	assert.Equal(t, http.StatusConflict, rr.Code)

	assert.Equal(t, 0, fetchAsset(t, ctx, asset.ID).AvailableQuantity)
	assert.Equal(t, models.RequestApproved, fetchRequest(t, ctx, reqA.ID).Status)
	assert.Equal(t, models.RequestPending, fetchRequest(t, ctx, reqB.ID).Status)

	count, err := assignmentCollection.CountDocuments(ctx, bson.M{"assetId": asset.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestApproveCreatesAffiliationOnceAndCounts(t *testing.T) {
	ctx := setupWorkflowEnv(t)

	hr := seedUser(t, ctx, models.RoleHR, "hr@acme.test", 10, 0)
	emp := seedUser(t, ctx, models.RoleEmployee, "alice@acme.test", 0, 0)
	asset := seedAsset(t, ctx, hr, "Monitor", models.AssetTypeReturnable, 5, 5)

	reqA := seedPendingRequest(t, ctx, asset, emp)
	reqB := seedPendingRequest(t, ctx, asset, emp)

	require.Equal(t, http.StatusOK, doApprove(hr, reqA.ID).Code)
	require.Equal(t, http.StatusOK, doApprove(hr, reqB.ID).Code)

	affCount, err := affiliationCollection.CountDocuments(ctx, bson.M{
		"employeeEmail": emp.Email, "hrId": hr.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affCount)
	assert.Equal(t, 1, fetchUser(t, ctx, hr.ID).CurrentEmployees)
	assert.Equal(t, 3, fetchAsset(t, ctx, asset.ID).AvailableQuantity)
}

func TestCapacityExceededAbortsWholeApproval(t *testing.T) {
	ctx := setupWorkflowEnv(t)

	hr := seedUser(t, ctx, models.RoleHR, "hr@acme.test", 1, 1)
	enrolled := seedUser(t, ctx, models.RoleEmployee, "alice@acme.test", 0, 0)
	seedAffiliation(t, ctx, hr, enrolled)

	newcomer := seedUser(t, ctx, models.RoleEmployee, "bob@acme.test", 0, 0)
	asset := seedAsset(t, ctx, hr, "Keyboard", models.AssetTypeReturnable, 4, 4)
	req := seedPendingRequest(t, ctx, asset, newcomer)

	rr := doApprove(hr, req.ID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "CapacityExceeded", body["code"])

	// The abort must leave no trace: stock, request state, assignments
	// and the employee counter are all untouched.
	assert.Equal(t, 4, fetchAsset(t, ctx, asset.ID).AvailableQuantity)
	assert.Equal(t, models.RequestPending, fetchRequest(t, ctx, req.ID).Status)
	assert.Equal(t, 1, fetchUser(t, ctx, hr.ID).CurrentEmployees)

	count, err := assignmentCollection.CountDocuments(ctx, bson.M{"employeeEmail": newcomer.Email})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRequestTransitionsAreMonotonic(t *testing.T) {
	ctx := setupWorkflowEnv(t)

	hr := seedUser(t, ctx, models.RoleHR, "hr@acme.test", 10, 0)
	emp := seedUser(t, ctx, models.RoleEmployee, "alice@acme.test", 0, 0)
	asset := seedAsset(t, ctx, hr, "Headset", models.AssetTypeReturnable, 5, 5)
	req := seedPendingRequest(t, ctx, asset, emp)

	require.Equal(t, http.StatusOK, doApprove(hr, req.ID).Code)

	// Second approval of the same request must fail.
	assert.Equal(t, http.StatusBadRequest, doApprove(hr, req.ID).Code)

	// Rejection after approval must fail too.
	rejectReq := authedRequest(hr, "POST", "/api/requests/"+req.ID.Hex()+"/reject", nil)
	rejectReq = mux.SetURLVars(rejectReq, map[string]string{"id": req.ID.Hex()})
	rr := httptest.NewRecorder()
	RejectRequest(rr, rejectReq)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, models.RequestApproved, fetchRequest(t, ctx, req.ID).Status)
	assert.Equal(t, 4, fetchAsset(t, ctx, asset.ID).AvailableQuantity)
}

func TestReturnRestoresStockAndReconcilesRequest(t *testing.T) {
	ctx := setupWorkflowEnv(t)

	hr := seedUser(t, ctx, models.RoleHR, "hr@acme.test", 10, 0)
	emp := seedUser(t, ctx, models.RoleEmployee, "alice@acme.test", 0, 0)
	asset := seedAsset(t, ctx, hr, "Laptop", models.AssetTypeReturnable, 2, 2)
	req := seedPendingRequest(t, ctx, asset, emp)

	require.Equal(t, http.StatusOK, doApprove(hr, req.ID).Code)

	var assignment models.AssignedAsset
	require.NoError(t, assignmentCollection.FindOne(ctx, bson.M{
		"employeeEmail": emp.Email, "assetId": asset.ID,
	}).Decode(&assignment))

	require.Equal(t, http.StatusOK, doReturn(emp, assignment.ID).Code)

	assert.Equal(t, 2, fetchAsset(t, ctx, asset.ID).AvailableQuantity)
	assert.Equal(t, models.RequestReturned, fetchRequest(t, ctx, req.ID).Status)

	var after models.AssignedAsset
	require.NoError(t, assignmentCollection.FindOne(ctx, bson.M{"_id": assignment.ID}).Decode(&after))
	assert.Equal(t, models.AssignmentReturned, after.Status)
	require.NotNil(t, after.ReturnDate)

	// A second return of the same assignment fails and the availability
	// stays clamped at the total.
	assert.Equal(t, http.StatusBadRequest, doReturn(emp, assignment.ID).Code)
	assert.Equal(t, 2, fetchAsset(t, ctx, asset.ID).AvailableQuantity)
}

func TestReturnRulesAreEnforced(t *testing.T) {
	ctx := setupWorkflowEnv(t)

	hr := seedUser(t, ctx, models.RoleHR, "hr@acme.test", 10, 0)
	emp := seedUser(t, ctx, models.RoleEmployee, "alice@acme.test", 0, 0)
	other := seedUser(t, ctx, models.RoleEmployee, "mallory@acme.test", 0, 0)
	asset := seedAsset(t, ctx, hr, "Notebook", models.AssetTypeNonReturnable, 5, 5)
	req := seedPendingRequest(t, ctx, asset, emp)

	require.Equal(t, http.StatusOK, doApprove(hr, req.ID).Code)

	var assignment models.AssignedAsset
	require.NoError(t, assignmentCollection.FindOne(ctx, bson.M{
		"employeeEmail": emp.Email, "assetId": asset.ID,
	}).Decode(&assignment))

	// Someone else's assignment.
	assert.Equal(t, http.StatusForbidden, doReturn(other, assignment.ID).Code)

	// Non-returnable asset type.
	assert.Equal(t, http.StatusBadRequest, doReturn(emp, assignment.ID).Code)

	// Consumables stay consumed.
	assert.Equal(t, 4, fetchAsset(t, ctx, asset.ID).AvailableQuantity)
}

func TestRemoveAffiliationRevertsEverythingAndFloorsCounter(t *testing.T) {
	ctx := setupWorkflowEnv(t)

	hr := seedUser(t, ctx, models.RoleHR, "hr@acme.test", 10, 0)
	emp := seedUser(t, ctx, models.RoleEmployee, "alice@acme.test", 0, 0)
	laptop := seedAsset(t, ctx, hr, "Laptop", models.AssetTypeReturnable, 2, 2)
	monitor := seedAsset(t, ctx, hr, "Monitor", models.AssetTypeReturnable, 2, 2)

	reqA := seedPendingRequest(t, ctx, laptop, emp)
	reqB := seedPendingRequest(t, ctx, monitor, emp)
	require.Equal(t, http.StatusOK, doApprove(hr, reqA.ID).Code)
	require.Equal(t, http.StatusOK, doApprove(hr, reqB.ID).Code)
	require.Equal(t, 1, fetchUser(t, ctx, hr.ID).CurrentEmployees)

	r := authedRequest(hr, "DELETE", "/api/affiliations/"+emp.Email, nil)
	r = mux.SetURLVars(r, map[string]string{"employeeEmail": emp.Email})
	rr := httptest.NewRecorder()
	RemoveAffiliation(rr, r)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["assignmentsReverted"])

	assert.Equal(t, 2, fetchAsset(t, ctx, laptop.ID).AvailableQuantity)
	assert.Equal(t, 2, fetchAsset(t, ctx, monitor.ID).AvailableQuantity)
	assert.Equal(t, 0, fetchUser(t, ctx, hr.ID).CurrentEmployees)
	assert.Equal(t, models.RequestReturned, fetchRequest(t, ctx, reqA.ID).Status)

	live, err := assignmentCollection.CountDocuments(ctx, bson.M{
		"employeeEmail": emp.Email, "status": models.AssignmentAssigned,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), live)

	// Removing again: the affiliation is gone and the counter cannot go
	// below zero.
	rr2 := httptest.NewRecorder()
	r2 := authedRequest(hr, "DELETE", "/api/affiliations/"+emp.Email, nil)
	r2 = mux.SetURLVars(r2, map[string]string{"employeeEmail": emp.Email})
	RemoveAffiliation(rr2, r2)
	assert.Equal(t, http.StatusNotFound, rr2.Code)
	assert.Equal(t, 0, fetchUser(t, ctx, hr.ID).CurrentEmployees)
}

func TestPaymentEventIsIdempotent(t *testing.T) {
	ctx := setupWorkflowEnv(t)

	hr := seedUser(t, ctx, models.RoleHR, "hr@acme.test", 5, 0)

	event := PaymentEvent{
		Type:          "checkout.completed",
		TransactionID: "txn_test_001",
		Amount:        8,
		Currency:      "usd",
	}
	event.Metadata.HRID = hr.ID.Hex()
	event.Metadata.PackageID = "standard"
	event.Metadata.PackageName = "Standard"
	event.Metadata.EmployeeLimit = 10

	deliver := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest("POST", "/webhooks/payment", nil)
		rr := httptest.NewRecorder()
		processPaymentEvent(rr, r, event)
		return rr
	}

	require.Equal(t, http.StatusOK, deliver().Code)
	assert.Equal(t, 10, fetchUser(t, ctx, hr.ID).PackageLimit)

	// Redelivery: acknowledged, but no second record and no change.
	rr := deliver()
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "already processed")

	count, err := paymentCollection.CountDocuments(ctx, bson.M{"transactionId": event.TransactionID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The granted limit replaces the ceiling, it does not accumulate.
	event.TransactionID = "txn_test_002"
	event.Metadata.PackageID = "basic"
	event.Metadata.PackageName = "Basic"
	event.Metadata.EmployeeLimit = 5
	require.Equal(t, http.StatusOK, deliver().Code)
	assert.Equal(t, 5, fetchUser(t, ctx, hr.ID).PackageLimit)
}

func TestWebhookRejectsBadSignatureBeforeTouchingState(t *testing.T) {
	ctx := setupWorkflowEnv(t)

	hr := seedUser(t, ctx, models.RoleHR, "hr@acme.test", 0, 0)
	config.PaymentWebhookSecret = "whsec_integration"

	payload, err := json.Marshal(map[string]interface{}{
		"type":          "checkout.completed",
		"transactionId": "txn_forged",
		"metadata": map[string]interface{}{
			"hrId":          hr.ID.Hex(),
			"employeeLimit": 100,
		},
	})
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/webhooks/payment", bytes.NewReader(payload))
	r.Header.Set("X-Payment-Signature", SignPaymentPayload(payload, "whsec_wrong", time.Now()))
	rr := httptest.NewRecorder()
	PaymentWebhook(rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, fetchUser(t, ctx, hr.ID).PackageLimit)

	count, err := paymentCollection.CountDocuments(ctx, bson.M{"transactionId": "txn_forged"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// The same payload with the right signature goes through.
	r2 := httptest.NewRequest("POST", "/webhooks/payment", bytes.NewReader(payload))
	r2.Header.Set("X-Payment-Signature", SignPaymentPayload(payload, "whsec_integration", time.Now()))
	rr2 := httptest.NewRecorder()
	PaymentWebhook(rr2, r2)
	assert.Equal(t, http.StatusOK, rr2.Code)
	assert.Equal(t, 100, fetchUser(t, ctx, hr.ID).PackageLimit)
}
