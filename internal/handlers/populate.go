package handlers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/savelife/hospital-api/internal/models"
)

// userRef is the summary embedded in place of a bare user reference so
// clients can render names without a second request.
type userRef struct {
	ID             primitive.ObjectID `bson:"_id" json:"_id"`
	Name           string             `bson:"name" json:"name,omitempty"`
	Email          string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Specialization string             `bson:"specialization,omitempty" json:"specialization,omitempty"`
}

type departmentRef struct {
	ID   primitive.ObjectID `bson:"_id" json:"_id"`
	Name string             `bson:"name" json:"name"`
}

func dedupeIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func loadUserRefs(ctx context.Context, db *mongo.Database, ids []primitive.ObjectID) (map[primitive.ObjectID]userRef, error) {
	refs := make(map[primitive.ObjectID]userRef, len(ids))
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return refs, nil
	}

	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1, "phone": 1, "specialization": 1})
	cursor, err := db.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []userRef
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		refs[u.ID] = u
	}
	return refs, nil
}

func loadDepartmentRefs(ctx context.Context, db *mongo.Database, ids []primitive.ObjectID) (map[primitive.ObjectID]departmentRef, error) {
	refs := make(map[primitive.ObjectID]departmentRef, len(ids))
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return refs, nil
	}

	opts := options.Find().SetProjection(bson.M{"name": 1})
	cursor, err := db.Collection("departments").Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var depts []departmentRef
	if err := cursor.All(ctx, &depts); err != nil {
		return nil, err
	}
	for _, d := range depts {
		refs[d.ID] = d
	}
	return refs, nil
}

// userRefOr keeps at least the raw ID when the referenced user is gone.
func userRefOr(refs map[primitive.ObjectID]userRef, id primitive.ObjectID) userRef {
	if r, ok := refs[id]; ok {
		return r
	}
	return userRef{ID: id}
}

// appointmentView shadows the reference fields of an appointment with their
// populated summaries; the shallower fields win during JSON encoding.
type appointmentView struct {
	models.Appointment
	Patient    userRef        `json:"patient"`
	Doctor     userRef        `json:"doctor"`
	Department *departmentRef `json:"department,omitempty"`
}

func appointmentViews(ctx context.Context, db *mongo.Database, appts []models.Appointment) ([]appointmentView, error) {
	userIDs := make([]primitive.ObjectID, 0, 2*len(appts))
	deptIDs := make([]primitive.ObjectID, 0, len(appts))
	for _, a := range appts {
		userIDs = append(userIDs, a.Patient, a.Doctor)
		deptIDs = append(deptIDs, a.Department)
	}

	users, err := loadUserRefs(ctx, db, userIDs)
	if err != nil {
		return nil, err
	}
	depts, err := loadDepartmentRefs(ctx, db, deptIDs)
	if err != nil {
		return nil, err
	}

	views := make([]appointmentView, len(appts))
	for i, a := range appts {
		views[i] = appointmentView{
			Appointment: a,
			Patient:     userRefOr(users, a.Patient),
			Doctor:      userRefOr(users, a.Doctor),
		}
		if d, ok := depts[a.Department]; ok {
			views[i].Department = &d
		}
	}
	return views, nil
}

func appointmentView1(ctx context.Context, db *mongo.Database, appt models.Appointment) (appointmentView, error) {
	views, err := appointmentViews(ctx, db, []models.Appointment{appt})
	if err != nil {
		return appointmentView{}, err
	}
	return views[0], nil
}

type medicalRecordView struct {
	models.MedicalRecord
	Patient userRef `json:"patient"`
	Doctor  userRef `json:"doctor"`
}

func medicalRecordViews(ctx context.Context, db *mongo.Database, records []models.MedicalRecord) ([]medicalRecordView, error) {
	userIDs := make([]primitive.ObjectID, 0, 2*len(records))
	for _, r := range records {
		userIDs = append(userIDs, r.Patient, r.Doctor)
	}
	users, err := loadUserRefs(ctx, db, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]medicalRecordView, len(records))
	for i, r := range records {
		views[i] = medicalRecordView{
			MedicalRecord: r,
			Patient:       userRefOr(users, r.Patient),
			Doctor:        userRefOr(users, r.Doctor),
		}
	}
	return views, nil
}

func medicalRecordView1(ctx context.Context, db *mongo.Database, record models.MedicalRecord) (medicalRecordView, error) {
	views, err := medicalRecordViews(ctx, db, []models.MedicalRecord{record})
	if err != nil {
		return medicalRecordView{}, err
	}
	return views[0], nil
}

type prescriptionView struct {
	models.Prescription
	Patient userRef `json:"patient"`
	Doctor  userRef `json:"doctor"`
}

func prescriptionViews(ctx context.Context, db *mongo.Database, prescriptions []models.Prescription) ([]prescriptionView, error) {
	userIDs := make([]primitive.ObjectID, 0, 2*len(prescriptions))
	for _, p := range prescriptions {
		userIDs = append(userIDs, p.Patient, p.Doctor)
	}
	users, err := loadUserRefs(ctx, db, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]prescriptionView, len(prescriptions))
	for i, p := range prescriptions {
		views[i] = prescriptionView{
			Prescription: p,
			Patient:      userRefOr(users, p.Patient),
			Doctor:       userRefOr(users, p.Doctor),
		}
	}
	return views, nil
}

func prescriptionView1(ctx context.Context, db *mongo.Database, prescription models.Prescription) (prescriptionView, error) {
	views, err := prescriptionViews(ctx, db, []models.Prescription{prescription})
	if err != nil {
		return prescriptionView{}, err
	}
	return views[0], nil
}

type testResultView struct {
	models.TestResult
	Patient userRef `json:"patient"`
	Doctor  userRef `json:"doctor"`
}

func testResultViews(ctx context.Context, db *mongo.Database, results []models.TestResult) ([]testResultView, error) {
	userIDs := make([]primitive.ObjectID, 0, 2*len(results))
	for _, r := range results {
		userIDs = append(userIDs, r.Patient, r.Doctor)
	}
	users, err := loadUserRefs(ctx, db, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]testResultView, len(results))
	for i, r := range results {
		views[i] = testResultView{
			TestResult: r,
			Patient:    userRefOr(users, r.Patient),
			Doctor:     userRefOr(users, r.Doctor),
		}
	}
	return views, nil
}

func testResultView1(ctx context.Context, db *mongo.Database, result models.TestResult) (testResultView, error) {
	views, err := testResultViews(ctx, db, []models.TestResult{result})
	if err != nil {
		return testResultView{}, err
	}
	return views[0], nil
}
