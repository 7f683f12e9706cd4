// models/request.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
	RequestReturned = "returned"
)

// Request is an employee's ask for one unit of an asset. HR identity and
// tenant label are copied from the asset at creation time and never
// re-derived afterwards.
type Request struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssetID        primitive.ObjectID `bson:"assetId" json:"assetId"`
	AssetName      string             `bson:"assetName" json:"assetName"`
	AssetType      string             `bson:"assetType" json:"assetType"`
	RequesterEmail string             `bson:"requesterEmail" json:"requesterEmail"`
	RequesterName  string             `bson:"requesterName" json:"requesterName"`
	HRID           primitive.ObjectID `bson:"hrId" json:"hrId"`
	HREmail        string             `bson:"hrEmail" json:"hrEmail"`
	CompanyName    string             `bson:"companyName" json:"companyName"`
	Note           string             `bson:"note,omitempty" json:"note,omitempty"`
	Status         string             `bson:"status" json:"status"`
	RequestDate    time.Time          `bson:"requestDate" json:"requestDate"`
	ApprovalDate   *time.Time         `bson:"approvalDate,omitempty" json:"approvalDate,omitempty"`
	ProcessedBy    string             `bson:"processedBy,omitempty" json:"processedBy,omitempty"`
}

// ValidRequestTransition reports whether a request may move from one
// status to another. Transitions are one-directional: pending can be
// approved or rejected, only approved requests can be returned.
func ValidRequestTransition(from, to string) bool {
	switch from {
	case RequestPending:
		return to == RequestApproved || to == RequestRejected
	case RequestApproved:
		return to == RequestReturned
	default:
		return false
	}
}
