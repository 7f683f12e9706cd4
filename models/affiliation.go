// models/affiliation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Affiliation enrolls one employee under one HR tenant and consumes one
// unit of that tenant's capacity. The (employeeEmail, hrId) pair is
// unique-indexed; creation happens lazily on the first approved request.
type Affiliation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EmployeeEmail   string             `bson:"employeeEmail" json:"employeeEmail"`
	EmployeeName    string             `bson:"employeeName" json:"employeeName"`
	HRID            primitive.ObjectID `bson:"hrId" json:"hrId"`
	HREmail         string             `bson:"hrEmail" json:"hrEmail"`
	CompanyName     string             `bson:"companyName" json:"companyName"`
	CompanyLogo     string             `bson:"companyLogo,omitempty" json:"companyLogo,omitempty"`
	Status          string             `bson:"status" json:"status"`
	AffiliationDate time.Time          `bson:"affiliationDate" json:"affiliationDate"`
}
