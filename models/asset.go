// models/asset.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AssetTypeReturnable    = "Returnable"
	AssetTypeNonReturnable = "Non-returnable"
)

type Asset struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductName     string             `bson:"productName" json:"productName"`
	ProductType     string             `bson:"productType" json:"productType"`
	ProductQuantity int                `bson:"productQuantity" json:"productQuantity"`
	// AvailableQuantity is mutated only by approval, return and
	// offboarding operations, always through guarded updates.
	AvailableQuantity int                `bson:"availableQuantity" json:"availableQuantity"`
	HRID              primitive.ObjectID `bson:"hrId" json:"hrId"`
	HREmail           string             `bson:"hrEmail" json:"hrEmail"`
	CompanyName       string             `bson:"companyName" json:"companyName"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}
