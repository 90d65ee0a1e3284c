package booking

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/savelife/hospital-api/internal/models"
)

// IsSlotConflict reports whether err means a write tried to put a second
// active appointment into an occupied slot. It covers both the mapped
// ErrSlotTaken from Reserve and a raw unique-index rejection, which status
// updates hit when they move an appointment back into the active set.
func IsSlotConflict(err error) bool {
	return errors.Is(err, ErrSlotTaken) || mongo.IsDuplicateKeyError(err)
}

// MongoStore backs the booking service with the appointments collection. It
// relies on the uniq_active_slot partial index created in database.EnsureIndexes.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("appointments")}
}

func (s *MongoStore) HasActive(ctx context.Context, doctor primitive.ObjectID, date time.Time, timeSlot string) (bool, error) {
	filter := bson.M{
		"doctor":          doctor,
		"appointmentDate": date,
		"appointmentTime": timeSlot,
		"status":          bson.M{"$in": models.ActiveStatuses},
	}
	count, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoStore) Insert(ctx context.Context, appt *models.Appointment) error {
	_, err := s.coll.InsertOne(ctx, appt)
	if mongo.IsDuplicateKeyError(err) {
		// The partial unique index rejected the document: somebody else
		// won the slot between our pre-check and this insert.
		return ErrSlotTaken
	}
	return err
}
