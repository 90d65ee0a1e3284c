package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The same decision matrix must hold for every owned resource type; the
// clinical kinds are listed to document that handlers share one policy.
var resourceKinds = []string{"appointment", "medical-record", "prescription", "test-result"}

func TestAuthorizeAdminAllowsEverything(t *testing.T) {
	admin := Actor{ID: primitive.NewObjectID(), Role: "admin"}
	owners := &Ownership{Patient: primitive.NewObjectID(), Doctor: primitive.NewObjectID()}

	ops := []Operation{
		OpCreateClinical, OpCreateAppointment,
		OpRead, OpUpdate, OpCancel, OpUpload, OpDelete,
	}
	for _, op := range ops {
		assert.NoError(t, Authorize(admin, op, owners), "admin must be allowed op %s", op)
		assert.NoError(t, Authorize(admin, op, nil), "admin must be allowed op %s without a resource", op)
	}
}

func TestAuthorizeCreate(t *testing.T) {
	patient := Actor{ID: primitive.NewObjectID(), Role: "patient"}
	doctor := Actor{ID: primitive.NewObjectID(), Role: "doctor"}

	assert.NoError(t, Authorize(doctor, OpCreateClinical, nil))
	assert.ErrorIs(t, Authorize(patient, OpCreateClinical, nil), ErrNotAuthorized)

	assert.NoError(t, Authorize(patient, OpCreateAppointment, nil))
	assert.ErrorIs(t, Authorize(doctor, OpCreateAppointment, nil), ErrNotAuthorized)
}

func TestAuthorizeMatrix(t *testing.T) {
	patientID := primitive.NewObjectID()
	doctorID := primitive.NewObjectID()
	owners := &Ownership{Patient: patientID, Doctor: doctorID}

	actors := map[string]Actor{
		"owner-patient":    {ID: patientID, Role: "patient"},
		"owner-doctor":     {ID: doctorID, Role: "doctor"},
		"unrelated-patient": {ID: primitive.NewObjectID(), Role: "patient"},
		"unrelated-doctor":  {ID: primitive.NewObjectID(), Role: "doctor"},
	}

	cases := []struct {
		op    Operation
		allow map[string]bool
	}{
		{OpRead, map[string]bool{"owner-patient": true, "owner-doctor": true, "unrelated-patient": false, "unrelated-doctor": false}},
		{OpUpdate, map[string]bool{"owner-patient": false, "owner-doctor": true, "unrelated-patient": false, "unrelated-doctor": false}},
		{OpCancel, map[string]bool{"owner-patient": true, "owner-doctor": false, "unrelated-patient": false, "unrelated-doctor": false}},
		{OpUpload, map[string]bool{"owner-patient": true, "owner-doctor": false, "unrelated-patient": false, "unrelated-doctor": false}},
		{OpDelete, map[string]bool{"owner-patient": false, "owner-doctor": true, "unrelated-patient": false, "unrelated-doctor": false}},
	}

	for _, kind := range resourceKinds {
		for _, tc := range cases {
			for relation, want := range tc.allow {
				err := Authorize(actors[relation], tc.op, owners)
				if want {
					assert.NoError(t, err, "%s: %s by %s must be allowed", kind, tc.op, relation)
				} else {
					assert.ErrorIs(t, err, ErrNotAuthorized, "%s: %s by %s must be denied", kind, tc.op, relation)
				}
			}
		}
	}
}

// A doctor who treats the same patient but did not create the record must
// not be able to edit it.
func TestAuthorizeOtherDoctorCannotUpdate(t *testing.T) {
	patientID := primitive.NewObjectID()
	owners := &Ownership{Patient: patientID, Doctor: primitive.NewObjectID()}
	otherDoctor := Actor{ID: primitive.NewObjectID(), Role: "doctor"}

	assert.ErrorIs(t, Authorize(otherDoctor, OpUpdate, owners), ErrNotAuthorized)
	assert.ErrorIs(t, Authorize(otherDoctor, OpRead, owners), ErrNotAuthorized)
}

// Ambiguous input always denies.
func TestAuthorizeFailsClosed(t *testing.T) {
	patient := Actor{ID: primitive.NewObjectID(), Role: "patient"}

	// No resource for an ownership-based operation.
	assert.ErrorIs(t, Authorize(patient, OpRead, nil), ErrNotAuthorized)
	assert.ErrorIs(t, Authorize(patient, OpUpdate, nil), ErrNotAuthorized)

	// Zero actor identity never matches, even against a zero owner field.
	zeroActor := Actor{Role: "patient"}
	assert.ErrorIs(t, Authorize(zeroActor, OpRead, &Ownership{}), ErrNotAuthorized)

	// Unknown operation.
	assert.ErrorIs(t, Authorize(patient, Operation("export"), &Ownership{Patient: patient.ID}), ErrNotAuthorized)

	// Unknown role gets no role-based grants.
	stranger := Actor{ID: primitive.NewObjectID(), Role: "receptionist"}
	assert.ErrorIs(t, Authorize(stranger, OpCreateClinical, nil), ErrNotAuthorized)
}
