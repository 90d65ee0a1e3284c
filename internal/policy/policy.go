// Package policy is the single authorization decision point. Every resource
// handler funnels its access check through Authorize so the (role, ownership,
// operation) matrix is identical for appointments, medical records,
// prescriptions and test results instead of drifting per handler.
package policy

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotAuthorized is returned for every denied decision. Callers translate
// it to 403; a denial is never a silent empty result.
var ErrNotAuthorized = errors.New("not authorized")

type Actor struct {
	ID   primitive.ObjectID
	Role string
}

type Operation string

const (
	// OpCreateClinical covers medical records, prescriptions and test
	// results, all created by the doctor of record.
	OpCreateClinical Operation = "create-clinical"
	// OpCreateAppointment is the patient booking an appointment.
	OpCreateAppointment Operation = "create-appointment"
	OpRead              Operation = "read"
	// OpUpdate also covers appointment status changes.
	OpUpdate Operation = "update"
	// OpCancel is the patient cancelling their own appointment.
	OpCancel Operation = "cancel"
	// OpUpload is the patient attaching an artifact to their test result.
	OpUpload Operation = "upload"
	// OpDelete is the hard delete of a test result by its creating doctor.
	OpDelete Operation = "delete"
)

// Ownership is the (patient, doctor) pair bound to a resource. It is nil for
// create operations, where no resource exists yet.
type Ownership struct {
	Patient primitive.ObjectID
	Doctor  primitive.ObjectID
}

// Authorize decides whether actor may perform op on the resource owned per
// res. Rules are evaluated in precedence order, first match wins, and any
// ambiguous input denies.
func Authorize(actor Actor, op Operation, res *Ownership) error {
	if actor.ID.IsZero() {
		return ErrNotAuthorized
	}

	if actor.Role == "admin" {
		return nil
	}

	switch op {
	case OpCreateClinical:
		if actor.Role == "doctor" {
			return nil
		}
	case OpCreateAppointment:
		if actor.Role == "patient" {
			return nil
		}
	case OpRead:
		if isPatient(actor, res) || isDoctor(actor, res) {
			return nil
		}
	case OpUpdate, OpDelete:
		if isDoctor(actor, res) {
			return nil
		}
	case OpCancel, OpUpload:
		if isPatient(actor, res) {
			return nil
		}
	}

	return ErrNotAuthorized
}

func isPatient(actor Actor, res *Ownership) bool {
	return res != nil && !res.Patient.IsZero() && actor.ID == res.Patient
}

func isDoctor(actor Actor, res *Ownership) bool {
	return res != nil && !res.Doctor.IsZero() && actor.ID == res.Doctor
}
