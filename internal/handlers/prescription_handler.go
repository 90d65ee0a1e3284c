package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/savelife/hospital-api/internal/httperr"
	"github.com/savelife/hospital-api/internal/middleware"
	"github.com/savelife/hospital-api/internal/models"
	"github.com/savelife/hospital-api/internal/policy"
)

type CreatePrescriptionRequest struct {
	Patient     string              `json:"patient" binding:"required"`
	Appointment string              `json:"appointment"`
	Medications []models.Medication `json:"medications" binding:"required,min=1"`
	Notes       string              `json:"notes"`
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	if err := policy.Authorize(actor, policy.OpCreateClinical, nil); err != nil {
		httperr.Write(c, httperr.Forbidden("Only doctors can create prescriptions"))
		return
	}

	var req CreatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide a patient and at least one medication"))
		return
	}

	patientID, err := primitive.ObjectIDFromHex(req.Patient)
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid patient ID"))
		return
	}

	now := time.Now().UTC()
	prescription := models.Prescription{
		ID:          primitive.NewObjectID(),
		Patient:     patientID,
		Doctor:      actor.ID,
		Medications: req.Medications,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Appointment != "" {
		apptID, err := primitive.ObjectIDFromHex(req.Appointment)
		if err != nil {
			httperr.Write(c, httperr.Validation("Invalid appointment ID"))
			return
		}
		prescription.Appointment = apptID
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	if _, err := db.Collection("prescriptions").InsertOne(c.Request.Context(), prescription); err != nil {
		httperr.Write(c, httperr.Internal("Failed to create prescription", err))
		return
	}

	view, err := prescriptionView1(c.Request.Context(), db, prescription)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load prescription", err))
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	filter := bson.M{}
	switch actor.Role {
	case models.RolePatient:
		filter["patient"] = actor.ID
	case models.RoleDoctor:
		filter["doctor"] = actor.ID
	}

	db, ok := h.db(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := db.Collection("prescriptions").Find(ctx, filter, opts)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve prescriptions", err))
		return
	}
	defer cursor.Close(ctx)

	prescriptions := make([]models.Prescription, 0)
	if err := cursor.All(ctx, &prescriptions); err != nil {
		httperr.Write(c, httperr.Internal("Failed to decode prescriptions", err))
		return
	}

	views, err := prescriptionViews(ctx, db, prescriptions)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve prescriptions", err))
		return
	}

	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetPrescription(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	prescriptionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid prescription ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	var prescription models.Prescription
	if err := db.Collection("prescriptions").FindOne(c.Request.Context(), bson.M{"_id": prescriptionID}).Decode(&prescription); err != nil {
		httperr.Write(c, httperr.NotFound("Prescription not found"))
		return
	}

	owners := &policy.Ownership{Patient: prescription.Patient, Doctor: prescription.Doctor}
	if err := policy.Authorize(actor, policy.OpRead, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to access this prescription"))
		return
	}

	view, err := prescriptionView1(c.Request.Context(), db, prescription)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load prescription", err))
		return
	}

	c.JSON(http.StatusOK, view)
}

// UpdatePrescription is restricted to the prescribing doctor (or an admin).
func (h *Handler) UpdatePrescription(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	prescriptionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid prescription ID"))
		return
	}

	var req struct {
		Medications []models.Medication `json:"medications"`
		Notes       *string             `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Invalid request body"))
		return
	}

	update := bson.M{}
	if len(req.Medications) > 0 {
		update["medications"] = req.Medications
	}
	if req.Notes != nil {
		update["notes"] = *req.Notes
	}
	if len(update) == 0 {
		httperr.Write(c, httperr.Validation("No update fields provided"))
		return
	}
	update["updatedAt"] = time.Now().UTC()

	db, ok := h.db(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	coll := db.Collection("prescriptions")

	var prescription models.Prescription
	if err := coll.FindOne(ctx, bson.M{"_id": prescriptionID}).Decode(&prescription); err != nil {
		httperr.Write(c, httperr.NotFound("Prescription not found"))
		return
	}

	owners := &policy.Ownership{Patient: prescription.Patient, Doctor: prescription.Doctor}
	if err := policy.Authorize(actor, policy.OpUpdate, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to update this prescription"))
		return
	}

	if _, err := coll.UpdateOne(ctx, bson.M{"_id": prescriptionID}, bson.M{"$set": update}); err != nil {
		httperr.Write(c, httperr.Internal("Failed to update prescription", err))
		return
	}

	if err := coll.FindOne(ctx, bson.M{"_id": prescriptionID}).Decode(&prescription); err != nil {
		httperr.Write(c, httperr.Internal("Failed to load prescription", err))
		return
	}

	view, err := prescriptionView1(ctx, db, prescription)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load prescription", err))
		return
	}

	c.JSON(http.StatusOK, view)
}
