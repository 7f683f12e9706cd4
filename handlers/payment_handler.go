package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shoybit/AssetVerse-Backend/config"
	"github.com/Shoybit/AssetVerse-Backend/models"
	"github.com/Shoybit/AssetVerse-Backend/utils"
)

// ListPackages returns the static subscription tiers.
func ListPackages(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, models.Packages())
}

// PaymentEvent is the completed-checkout payload the provider delivers.
type PaymentEvent struct {
	Type          string  `json:"type"`
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Metadata      struct {
		HRID          string `json:"hrId"`
		PackageID     string `json:"packageId"`
		PackageName   string `json:"packageName"`
		EmployeeLimit int    `json:"employeeLimit"`
	} `json:"metadata"`
}

// signatureTolerance bounds how old a signed timestamp may be; replayed
// events outside the window are rejected.
const signatureTolerance = 5 * time.Minute

// VerifyPaymentSignature checks the provider signature header
// ("t=<unix>,v1=<hex>") against HMAC-SHA256(secret, "<t>.<payload>")
// with a constant-time compare.
func VerifyPaymentSignature(payload []byte, header, secret string, now time.Time) error {
	if secret == "" {
		return errors.New("webhook secret not configured")
	}
	if header == "" {
		return errors.New("missing signature header")
	}

	var timestamp int64
	var signature []byte
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return errors.New("malformed signature header")
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return errors.New("malformed signature timestamp")
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(kv[1])
			if err != nil {
				return errors.New("malformed signature value")
			}
			signature = sig
		}
	}
	if timestamp == 0 || len(signature) == 0 {
		return errors.New("incomplete signature header")
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return errors.New("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, signature) != 1 {
		return errors.New("signature mismatch")
	}
	return nil
}

// SignPaymentPayload produces the signature header for a payload. Used
// by tests and the simulated-event tooling.
func SignPaymentPayload(payload []byte, secret string, now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// PaymentWebhook consumes a signed completed-checkout event. The
// signature is verified before anything is read or written; on success
// the payment record insert and the capacity grant commit together.
func PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to read payload")
		return
	}

	sig := r.Header.Get("X-Payment-Signature")
	if err := VerifyPaymentSignature(body, sig, config.PaymentWebhookSecret, time.Now()); err != nil {
		log.Warn().Err(err).Msg("webhook signature rejected")
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid webhook signature")
		return
	}

	var event PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	processPaymentEvent(w, r, event)
}

// SimulatePayment replicates the webhook's effect without signature
// verification. Development only: disabled in production, gated by a
// shared-secret header.
func SimulatePayment(w http.ResponseWriter, r *http.Request) {
	if config.Env == "production" {
		http.NotFound(w, r)
		return
	}
	if config.DevWebhookSecret == "" || r.Header.Get("X-Dev-Secret") != config.DevWebhookSecret {
		utils.RespondWithError(w, http.StatusForbidden, "Invalid dev secret")
		return
	}

	var event PaymentEvent
	if err := utils.ParseJSON(r, &event); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}
	if event.TransactionID == "" {
		event.TransactionID = "sim_" + uuid.NewString()
	}

	processPaymentEvent(w, r, event)
}

func processPaymentEvent(w http.ResponseWriter, r *http.Request, event PaymentEvent) {
	if event.Type != "" && event.Type != "checkout.completed" {
		// Not an event we act on; acknowledge so the provider stops
		// redelivering it.
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Event ignored"})
		return
	}
	if event.TransactionID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Transaction ID required")
		return
	}
	if event.Metadata.EmployeeLimit <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Employee limit must be positive")
		return
	}

	hrID, err := primitive.ObjectIDFromHex(event.Metadata.HRID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid HR ID in event metadata")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	session, err := paymentCollection.Database().Client().StartSession()
	if err != nil {
		log.Error().Err(err).Msg("failed to start session")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to start database session")
		return
	}
	defer session.EndSession(ctx)

	duplicate := false

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var hr models.User
		if err := userCollection.FindOne(sc, bson.M{"_id": hrID, "role": models.RoleHR}).Decode(&hr); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, utils.ErrNotFound.WithMessage("HR account not found for payment event")
			}
			return nil, err
		}

		// Redelivery check first: a duplicate-key write error would
		// abort the whole transaction server-side.
		err := paymentCollection.FindOne(sc, bson.M{"transactionId": event.TransactionID}).Err()
		if err == nil {
			duplicate = true
			return nil, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, err
		}

		record := models.PaymentRecord{
			ID:            primitive.NewObjectID(),
			HRID:          hrID,
			HREmail:       hr.Email,
			PackageID:     event.Metadata.PackageID,
			PackageName:   event.Metadata.PackageName,
			EmployeeLimit: event.Metadata.EmployeeLimit,
			Amount:        event.Amount,
			Currency:      event.Currency,
			TransactionID: event.TransactionID,
			Status:        "completed",
			PaidAt:        time.Now().UTC(),
		}
		if _, err := paymentCollection.InsertOne(sc, record); err != nil {
			return nil, err
		}

		// Overwrite, not add: the granted limit replaces the old ceiling.
		if _, err := userCollection.UpdateOne(sc,
			bson.M{"_id": hrID},
			bson.M{"$set": bson.M{
				"packageLimit":    event.Metadata.EmployeeLimit,
				"subscription":    event.Metadata.PackageName,
				"selectedPackage": event.Metadata.PackageID,
			}},
		); err != nil {
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
		// Two concurrent first deliveries: the loser hits the unique
		// index on transactionId, which means the grant already landed.
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithJSON(w, http.StatusOK, map[string]string{
				"message":       "Event already processed",
				"transactionId": event.TransactionID,
			})
			return
		}
		log.Error().Err(err).Str("transactionId", event.TransactionID).Msg("payment transaction failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process payment event")
		return
	}

	if duplicate {
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{
			"message":       "Event already processed",
			"transactionId": event.TransactionID,
		})
		return
	}

	log.Info().
		Str("transactionId", event.TransactionID).
		Str("hrId", event.Metadata.HRID).
		Int("employeeLimit", event.Metadata.EmployeeLimit).
		Msg("capacity granted")

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Payment recorded, capacity updated",
		"transactionId": event.TransactionID,
		"employeeLimit": event.Metadata.EmployeeLimit,
	})
}

// ListPayments returns the calling HR's payment history.
func ListPayments(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := paymentCollection.Find(ctx, bson.M{"hrId": c.ID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch payments")
		return
	}
	defer cursor.Close(ctx)

	var payments []models.PaymentRecord
	if err = cursor.All(ctx, &payments); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode payments")
		return
	}
	if payments == nil {
		payments = []models.PaymentRecord{}
	}

	utils.RespondWithJSON(w, http.StatusOK, payments)
}
