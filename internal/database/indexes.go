package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/savelife/hospital-api/internal/models"
)

// EnsureIndexes creates the indexes the application depends on. The partial
// unique index on appointments is load-bearing: it is what makes a concurrent
// double booking impossible. Two inserts for the same (doctor, date, time)
// can both pass the availability pre-check, but only one can win the index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("departments").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	appointments := db.Collection("appointments")
	_, err = appointments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// Unique only while the appointment still occupies its slot.
			// Cancelled and completed appointments fall out of the index,
			// which is exactly what frees the slot for rebooking.
			// $in inside partialFilterExpression needs MongoDB 6.3 or
			// newer; older servers reject this index at startup.
			Keys: bson.D{
				{Key: "doctor", Value: 1},
				{Key: "appointmentDate", Value: 1},
				{Key: "appointmentTime", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_active_slot").
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": models.ActiveStatuses},
				}),
		},
		{Keys: bson.D{{Key: "patient", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "doctor", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "appointmentDate", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return err
	}

	for _, name := range []string{"medicalrecords", "prescriptions", "testresults"} {
		_, err = db.Collection(name).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "patient", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "doctor", Value: 1}, {Key: "createdAt", Value: -1}}},
		})
		if err != nil {
			return err
		}
	}

	return nil
}
