package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Medication struct {
	Name         string `bson:"name" json:"name"`
	Dosage       string `bson:"dosage,omitempty" json:"dosage,omitempty"`
	Frequency    string `bson:"frequency,omitempty" json:"frequency,omitempty"`
	Duration     string `bson:"duration,omitempty" json:"duration,omitempty"`
	Instructions string `bson:"instructions,omitempty" json:"instructions,omitempty"`
}

type Prescription struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Patient     primitive.ObjectID `bson:"patient" json:"patient"`
	Doctor      primitive.ObjectID `bson:"doctor" json:"doctor"`
	Appointment primitive.ObjectID `bson:"appointment,omitempty" json:"appointment,omitempty"`
	Medications []Medication       `bson:"medications" json:"medications"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
