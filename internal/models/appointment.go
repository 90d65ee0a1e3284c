package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ActiveStatuses are the appointment statuses that occupy a slot. A cancelled
// or completed appointment frees its slot for rebooking.
var ActiveStatuses = []string{StatusScheduled, StatusInProgress}

type Appointment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Patient         primitive.ObjectID `bson:"patient" json:"patient"`
	Doctor          primitive.ObjectID `bson:"doctor" json:"doctor"`
	Department      primitive.ObjectID `bson:"department" json:"department"`
	AppointmentDate time.Time          `bson:"appointmentDate" json:"appointmentDate"`
	AppointmentTime string             `bson:"appointmentTime" json:"appointmentTime"`
	Status          string             `bson:"status" json:"status"`
	Reason          string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
