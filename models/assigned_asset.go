// models/assigned_asset.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AssignmentAssigned = "assigned"
	AssignmentReturned = "returned"
)

// AssignedAsset records a concrete unit in an employee's hands. It is
// created at approval time, one per approved request, and linked back to
// the request by matching fields rather than a foreign key.
type AssignedAsset struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssetID        primitive.ObjectID `bson:"assetId" json:"assetId"`
	AssetName      string             `bson:"assetName" json:"assetName"`
	AssetType      string             `bson:"assetType" json:"assetType"`
	EmployeeEmail  string             `bson:"employeeEmail" json:"employeeEmail"`
	EmployeeName   string             `bson:"employeeName" json:"employeeName"`
	HRID           primitive.ObjectID `bson:"hrId" json:"hrId"`
	HREmail        string             `bson:"hrEmail" json:"hrEmail"`
	CompanyName    string             `bson:"companyName" json:"companyName"`
	Status         string             `bson:"status" json:"status"`
	AssignmentDate time.Time          `bson:"assignmentDate" json:"assignmentDate"`
	ReturnDate     *time.Time         `bson:"returnDate,omitempty" json:"returnDate,omitempty"`
}
