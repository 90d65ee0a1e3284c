package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MedicalRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Patient     primitive.ObjectID `bson:"patient" json:"patient"`
	Doctor      primitive.ObjectID `bson:"doctor" json:"doctor"`
	Appointment primitive.ObjectID `bson:"appointment,omitempty" json:"appointment,omitempty"`
	Diagnosis   string             `bson:"diagnosis" json:"diagnosis"`
	Symptoms    string             `bson:"symptoms,omitempty" json:"symptoms,omitempty"`
	Treatment   string             `bson:"treatment,omitempty" json:"treatment,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
