package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password,omitempty" json:"-"` // Hide from JSON responses
	Role     string             `bson:"role" json:"role"`
	GoogleID string             `bson:"googleId,omitempty" json:"-"`

	Phone       string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Address     string     `bson:"address,omitempty" json:"address,omitempty"`
	DateOfBirth *time.Time `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	Gender      string     `bson:"gender,omitempty" json:"gender,omitempty"`

	// Doctor specific fields
	Department     primitive.ObjectID `bson:"department,omitempty" json:"department,omitempty"`
	Specialization string             `bson:"specialization,omitempty" json:"specialization,omitempty"`
	Qualification  string             `bson:"qualification,omitempty" json:"qualification,omitempty"`
	Experience     int                `bson:"experience,omitempty" json:"experience,omitempty"`

	IsActive bool `bson:"isActive" json:"isActive"`

	ResetPasswordToken  string     `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpire *time.Time `bson:"resetPasswordExpire,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
