// Package booking owns the appointment slot invariant: for any
// (doctor, date, time) tuple at most one scheduled or in-progress appointment
// may exist. The availability pre-check is a fast path only; the authority is
// the storage-level unique constraint reported through Store.Insert.
package booking

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/savelife/hospital-api/internal/models"
)

// ErrSlotTaken is the conflict signal: another live appointment already
// occupies the requested (doctor, date, time) slot.
var ErrSlotTaken = errors.New("this time slot is already booked")

// Store persists appointments. Insert must fail with ErrSlotTaken when the
// active-slot uniqueness constraint rejects the document.
type Store interface {
	HasActive(ctx context.Context, doctor primitive.ObjectID, date time.Time, timeSlot string) (bool, error)
	Insert(ctx context.Context, appt *models.Appointment) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// NormalizeDate truncates to UTC midnight so "same calendar day" compares
// equal regardless of how the client formatted the timestamp.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsAvailable reports whether the slot is currently free. The answer can be
// stale by the time the client books; Reserve is the only authoritative path.
func (s *Service) IsAvailable(ctx context.Context, doctor primitive.ObjectID, date time.Time, timeSlot string) (bool, error) {
	occupied, err := s.store.HasActive(ctx, doctor, NormalizeDate(date), timeSlot)
	if err != nil {
		return false, err
	}
	return !occupied, nil
}

// Reserve books the slot for appt. The pre-check rejects the common case
// cheaply; concurrent winners are decided by the unique constraint inside
// Insert, so at most one of N racing requests ever succeeds.
func (s *Service) Reserve(ctx context.Context, appt *models.Appointment) error {
	appt.AppointmentDate = NormalizeDate(appt.AppointmentDate)

	occupied, err := s.store.HasActive(ctx, appt.Doctor, appt.AppointmentDate, appt.AppointmentTime)
	if err != nil {
		return err
	}
	if occupied {
		return ErrSlotTaken
	}

	if appt.ID.IsZero() {
		appt.ID = primitive.NewObjectID()
	}
	appt.Status = models.StatusScheduled
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	return s.store.Insert(ctx, appt)
}
