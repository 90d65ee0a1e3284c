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

type CreateMedicalRecordRequest struct {
	Patient     string `json:"patient" binding:"required"`
	Appointment string `json:"appointment"`
	Diagnosis   string `json:"diagnosis" binding:"required"`
	Symptoms    string `json:"symptoms"`
	Treatment   string `json:"treatment"`
	Notes       string `json:"notes"`
}

// CreateMedicalRecord is performed by the doctor of record.
func (h *Handler) CreateMedicalRecord(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	if err := policy.Authorize(actor, policy.OpCreateClinical, nil); err != nil {
		httperr.Write(c, httperr.Forbidden("Only doctors can create medical records"))
		return
	}

	var req CreateMedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide all required fields"))
		return
	}

	patientID, err := primitive.ObjectIDFromHex(req.Patient)
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid patient ID"))
		return
	}

	now := time.Now().UTC()
	record := models.MedicalRecord{
		ID:        primitive.NewObjectID(),
		Patient:   patientID,
		Doctor:    actor.ID,
		Diagnosis: req.Diagnosis,
		Symptoms:  req.Symptoms,
		Treatment: req.Treatment,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Appointment != "" {
		apptID, err := primitive.ObjectIDFromHex(req.Appointment)
		if err != nil {
			httperr.Write(c, httperr.Validation("Invalid appointment ID"))
			return
		}
		record.Appointment = apptID
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	if _, err := db.Collection("medicalrecords").InsertOne(c.Request.Context(), record); err != nil {
		httperr.Write(c, httperr.Internal("Failed to create medical record", err))
		return
	}

	view, err := medicalRecordView1(c.Request.Context(), db, record)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load medical record", err))
		return
	}

	c.JSON(http.StatusCreated, view)
}

// ListMedicalRecords is role-scoped: patients and doctors see records they
// are bound to, admins see everything.
func (h *Handler) ListMedicalRecords(c *gin.Context) {
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
	cursor, err := db.Collection("medicalrecords").Find(ctx, filter, opts)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve medical records", err))
		return
	}
	defer cursor.Close(ctx)

	records := make([]models.MedicalRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		httperr.Write(c, httperr.Internal("Failed to decode medical records", err))
		return
	}

	views, err := medicalRecordViews(ctx, db, records)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve medical records", err))
		return
	}

	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetMedicalRecord(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	recordID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid medical record ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	var record models.MedicalRecord
	if err := db.Collection("medicalrecords").FindOne(c.Request.Context(), bson.M{"_id": recordID}).Decode(&record); err != nil {
		httperr.Write(c, httperr.NotFound("Medical record not found"))
		return
	}

	owners := &policy.Ownership{Patient: record.Patient, Doctor: record.Doctor}
	if err := policy.Authorize(actor, policy.OpRead, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to access this medical record"))
		return
	}

	view, err := medicalRecordView1(c.Request.Context(), db, record)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load medical record", err))
		return
	}

	c.JSON(http.StatusOK, view)
}

// UpdateMedicalRecord is restricted to the doctor who created the record
// (or an admin). Another doctor treating the same patient may not edit it.
func (h *Handler) UpdateMedicalRecord(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	recordID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid medical record ID"))
		return
	}

	var req struct {
		Diagnosis *string `json:"diagnosis"`
		Symptoms  *string `json:"symptoms"`
		Treatment *string `json:"treatment"`
		Notes     *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Invalid request body"))
		return
	}

	update := bson.M{}
	if req.Diagnosis != nil {
		update["diagnosis"] = *req.Diagnosis
	}
	if req.Symptoms != nil {
		update["symptoms"] = *req.Symptoms
	}
	if req.Treatment != nil {
		update["treatment"] = *req.Treatment
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
	coll := db.Collection("medicalrecords")

	var record models.MedicalRecord
	if err := coll.FindOne(ctx, bson.M{"_id": recordID}).Decode(&record); err != nil {
		httperr.Write(c, httperr.NotFound("Medical record not found"))
		return
	}

	owners := &policy.Ownership{Patient: record.Patient, Doctor: record.Doctor}
	if err := policy.Authorize(actor, policy.OpUpdate, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to update this medical record"))
		return
	}

	if _, err := coll.UpdateOne(ctx, bson.M{"_id": recordID}, bson.M{"$set": update}); err != nil {
		httperr.Write(c, httperr.Internal("Failed to update medical record", err))
		return
	}

	if err := coll.FindOne(ctx, bson.M{"_id": recordID}).Decode(&record); err != nil {
		httperr.Write(c, httperr.Internal("Failed to load medical record", err))
		return
	}

	view, err := medicalRecordView1(ctx, db, record)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load medical record", err))
		return
	}

	c.JSON(http.StatusOK, view)
}
