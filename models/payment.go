// models/payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentRecord is an append-only audit row written once per successful
// payment event, keyed by the provider transaction id.
type PaymentRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HRID          primitive.ObjectID `bson:"hrId" json:"hrId"`
	HREmail       string             `bson:"hrEmail" json:"hrEmail"`
	PackageID     string             `bson:"packageId" json:"packageId"`
	PackageName   string             `bson:"packageName" json:"packageName"`
	EmployeeLimit int                `bson:"employeeLimit" json:"employeeLimit"`
	Amount        float64            `bson:"amount" json:"amount"`
	Currency      string             `bson:"currency" json:"currency"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	Status        string             `bson:"status" json:"status"`
	PaidAt        time.Time          `bson:"paidAt" json:"paidAt"`
}

// Package is a purchasable subscription tier. The list is static.
type Package struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	MaxEmployees int     `json:"maxEmployees"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
}

// Packages returns the subscription tiers an HR can purchase.
func Packages() []Package {
	return []Package{
		{ID: "basic", Name: "Basic", MaxEmployees: 5, Price: 5, Currency: "usd"},
		{ID: "standard", Name: "Standard", MaxEmployees: 10, Price: 8, Currency: "usd"},
		{ID: "premium", Name: "Premium", MaxEmployees: 20, Price: 15, Currency: "usd"},
	}
}

// PackageByID looks a tier up by id; ok is false for unknown ids.
func PackageByID(id string) (Package, bool) {
	for _, p := range Packages() {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}
