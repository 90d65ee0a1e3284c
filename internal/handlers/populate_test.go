package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/savelife/hospital-api/internal/models"
)

func TestDedupeIDs(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	got := dedupeIDs([]primitive.ObjectID{a, b, a, primitive.NilObjectID, b})

	assert.Equal(t, []primitive.ObjectID{a, b}, got)
	assert.Empty(t, dedupeIDs(nil))
}

func TestUserRefOrKeepsRawID(t *testing.T) {
	known := primitive.NewObjectID()
	unknown := primitive.NewObjectID()
	refs := map[primitive.ObjectID]userRef{known: {ID: known, Name: "Jane Roe"}}

	assert.Equal(t, "Jane Roe", userRefOr(refs, known).Name)

	got := userRefOr(refs, unknown)
	assert.Equal(t, unknown, got.ID)
	assert.Empty(t, got.Name)
}

// Responses must carry the referenced people and department as embedded
// summaries, not bare ObjectIDs, so a client can render names directly.
func TestAppointmentViewEmbedsReferences(t *testing.T) {
	patientID := primitive.NewObjectID()
	doctorID := primitive.NewObjectID()
	deptID := primitive.NewObjectID()

	view := appointmentView{
		Appointment: models.Appointment{
			ID:              primitive.NewObjectID(),
			Patient:         patientID,
			Doctor:          doctorID,
			Department:      deptID,
			AppointmentDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			AppointmentTime: "10:00",
			Status:          models.StatusScheduled,
		},
		Patient:    userRef{ID: patientID, Name: "Jane Roe", Email: "jane@example.com", Phone: "555-0101"},
		Doctor:     userRef{ID: doctorID, Name: "Gregory House", Specialization: "Cardiology"},
		Department: &departmentRef{ID: deptID, Name: "Cardiology"},
	}

	raw, err := json.Marshal(view)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	patient, ok := got["patient"].(map[string]any)
	require.True(t, ok, "patient should be an embedded document")
	assert.Equal(t, patientID.Hex(), patient["_id"])
	assert.Equal(t, "Jane Roe", patient["name"])
	assert.Equal(t, "jane@example.com", patient["email"])
	assert.Equal(t, "555-0101", patient["phone"])

	doctor, ok := got["doctor"].(map[string]any)
	require.True(t, ok, "doctor should be an embedded document")
	assert.Equal(t, "Gregory House", doctor["name"])
	assert.Equal(t, "Cardiology", doctor["specialization"])

	dept, ok := got["department"].(map[string]any)
	require.True(t, ok, "department should be an embedded document")
	assert.Equal(t, "Cardiology", dept["name"])

	// The plain fields still come from the underlying appointment.
	assert.Equal(t, "10:00", got["appointmentTime"])
	assert.Equal(t, models.StatusScheduled, got["status"])
}

func TestClinicalViewsEmbedReferences(t *testing.T) {
	patientID := primitive.NewObjectID()
	doctorID := primitive.NewObjectID()

	record := medicalRecordView{
		MedicalRecord: models.MedicalRecord{ID: primitive.NewObjectID(), Patient: patientID, Doctor: doctorID, Diagnosis: "Flu"},
		Patient:       userRef{ID: patientID, Name: "Jane Roe"},
		Doctor:        userRef{ID: doctorID, Name: "Gregory House"},
	}

	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	patient, ok := got["patient"].(map[string]any)
	require.True(t, ok, "patient should be an embedded document")
	assert.Equal(t, "Jane Roe", patient["name"])
	assert.Equal(t, "Flu", got["diagnosis"])
}
