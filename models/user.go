// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleHR       = "hr"
	RoleEmployee = "employee"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         string             `bson:"role" json:"role"`
	DateOfBirth  string             `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`

	// HR-only fields. PackageLimit is the employee-capacity ceiling,
	// raised only by a completed payment; CurrentEmployees is the live
	// affiliation count. The guard enforces CurrentEmployees <= PackageLimit
	// at enrollment time.
	CompanyName      string `bson:"companyName,omitempty" json:"companyName,omitempty"`
	CompanyLogo      string `bson:"companyLogo,omitempty" json:"companyLogo,omitempty"`
	SelectedPackage  string `bson:"selectedPackage,omitempty" json:"selectedPackage,omitempty"`
	Subscription     string `bson:"subscription,omitempty" json:"subscription,omitempty"`
	PackageLimit     int    `bson:"packageLimit" json:"packageLimit"`
	CurrentEmployees int    `bson:"currentEmployees" json:"currentEmployees"`
}
