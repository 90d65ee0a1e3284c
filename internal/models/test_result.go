package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TestPending   = "pending"
	TestCompleted = "completed"
)

type TestResult struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Patient     primitive.ObjectID `bson:"patient" json:"patient"`
	Doctor      primitive.ObjectID `bson:"doctor" json:"doctor"`
	Appointment primitive.ObjectID `bson:"appointment,omitempty" json:"appointment,omitempty"`
	TestName    string             `bson:"testName" json:"testName"`
	TestType    string             `bson:"testType,omitempty" json:"testType,omitempty"`
	Result      string             `bson:"result,omitempty" json:"result,omitempty"`
	Status      string             `bson:"status" json:"status"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`

	// Set when the patient uploads the result artifact.
	UploadedFile     string     `bson:"uploadedFile,omitempty" json:"uploadedFile,omitempty"`
	UploadedFileName string     `bson:"uploadedFileName,omitempty" json:"uploadedFileName,omitempty"`
	UploadedAt       *time.Time `bson:"uploadedAt,omitempty" json:"uploadedAt,omitempty"`
	ResultDate       *time.Time `bson:"resultDate,omitempty" json:"resultDate,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
