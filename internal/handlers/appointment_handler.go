package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/savelife/hospital-api/internal/booking"
	"github.com/savelife/hospital-api/internal/httperr"
	"github.com/savelife/hospital-api/internal/middleware"
	"github.com/savelife/hospital-api/internal/models"
	"github.com/savelife/hospital-api/internal/policy"
)

// parseAppointmentDate accepts either a bare date or a full RFC3339 timestamp;
// both collapse to UTC midnight so slot comparison is calendar-day exact.
func parseAppointmentDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return booking.NormalizeDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return booking.NormalizeDate(t), nil
}

type CreateAppointmentRequest struct {
	Doctor          string `json:"doctor" binding:"required"`
	Department      string `json:"department" binding:"required"`
	AppointmentDate string `json:"appointmentDate" binding:"required"`
	AppointmentTime string `json:"appointmentTime" binding:"required"`
	Reason          string `json:"reason"`
}

// CreateAppointment books a slot for the authenticated patient.
func (h *Handler) CreateAppointment(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	if err := policy.Authorize(actor, policy.OpCreateAppointment, nil); err != nil {
		httperr.Write(c, httperr.Forbidden("Only patients can book appointments"))
		return
	}

	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide all required fields"))
		return
	}

	doctorID, err := primitive.ObjectIDFromHex(req.Doctor)
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid doctor ID"))
		return
	}
	deptID, err := primitive.ObjectIDFromHex(req.Department)
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid department ID"))
		return
	}
	date, err := parseAppointmentDate(req.AppointmentDate)
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid appointment date"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var doctor models.User
	err = db.Collection("users").FindOne(ctx, bson.M{
		"_id": doctorID, "role": models.RoleDoctor, "isActive": true,
	}).Decode(&doctor)
	if err != nil {
		httperr.Write(c, httperr.NotFound("Doctor not found"))
		return
	}

	appt := &models.Appointment{
		Patient:         actor.ID,
		Doctor:          doctorID,
		Department:      deptID,
		AppointmentDate: date,
		AppointmentTime: req.AppointmentTime,
		Reason:          req.Reason,
	}

	if err := h.Booking.Reserve(ctx, appt); err != nil {
		if booking.IsSlotConflict(err) {
			httperr.Write(c, httperr.Conflict("This time slot is already booked"))
			return
		}
		httperr.Write(c, httperr.Internal("Failed to create appointment", err))
		return
	}

	view, err := appointmentView1(ctx, db, *appt)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load appointment", err))
		return
	}

	c.JSON(http.StatusCreated, view)
}

// CheckSlot answers the read-only availability query. The answer may be stale
// by the time the client books; booking itself re-decides authoritatively.
func (h *Handler) CheckSlot(c *gin.Context) {
	doctorID, err := primitive.ObjectIDFromHex(c.Query("doctor"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid doctor ID"))
		return
	}
	date, err := parseAppointmentDate(c.Query("appointmentDate"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid appointment date"))
		return
	}
	timeSlot := c.Query("appointmentTime")
	if timeSlot == "" {
		httperr.Write(c, httperr.Validation("Appointment time is required"))
		return
	}

	if _, ok := h.db(c); !ok {
		return
	}

	available, err := h.Booking.IsAvailable(c.Request.Context(), doctorID, date, timeSlot)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to check slot", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": available})
}

func paginationParams(c *gin.Context, defaultLimit int64) (page, limit, skip int64) {
	page, _ = strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.ParseInt(c.DefaultQuery("limit", strconv.FormatInt(defaultLimit, 10)), 10, 64)
	if limit < 1 || limit > 500 {
		limit = defaultLimit
	}
	return page, limit, (page - 1) * limit
}

// ListAppointments returns the caller's appointments: patients see their own,
// doctors their own schedule, admins everything.
func (h *Handler) ListAppointments(c *gin.Context) {
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
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}

	h.listAppointments(c, filter)
}

// ListAllAppointments is the admin view with status and date-range filters.
func (h *Handler) ListAllAppointments(c *gin.Context) {
	filter := bson.M{}
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}

	dateRange := bson.M{}
	if s := c.Query("startDate"); s != "" {
		if t, err := parseAppointmentDate(s); err == nil {
			dateRange["$gte"] = t
		}
	}
	if s := c.Query("endDate"); s != "" {
		if t, err := parseAppointmentDate(s); err == nil {
			dateRange["$lte"] = t
		}
	}
	if len(dateRange) > 0 {
		filter["appointmentDate"] = dateRange
	}

	h.listAppointments(c, filter)
}

func (h *Handler) listAppointments(c *gin.Context, filter bson.M) {
	db, ok := h.db(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	page, limit, skip := paginationParams(c, 100)
	coll := db.Collection("appointments")

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve appointments", err))
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "appointmentDate", Value: -1}}).
		SetLimit(limit).
		SetSkip(skip)
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve appointments", err))
		return
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		httperr.Write(c, httperr.Internal("Failed to decode appointments", err))
		return
	}

	views, err := appointmentViews(ctx, db, appointments)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve appointments", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"appointments": views,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}

// GetAppointment returns one appointment to its bound patient, bound doctor
// or an admin. Gin cannot register static segments next to :id, so the
// check-slot and admin-wide listing paths are dispatched from here.
func (h *Handler) GetAppointment(c *gin.Context) {
	switch c.Param("id") {
	case "check-slot":
		h.CheckSlot(c)
		return
	case "all":
		actor, err := middleware.CurrentActor(c)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		if actor.Role != models.RoleAdmin {
			httperr.Write(c, httperr.Forbidden("Not authorized to perform this action"))
			return
		}
		h.ListAllAppointments(c)
		return
	}

	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	apptID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid appointment ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	var appt models.Appointment
	if err := db.Collection("appointments").FindOne(c.Request.Context(), bson.M{"_id": apptID}).Decode(&appt); err != nil {
		httperr.Write(c, httperr.NotFound("Appointment not found"))
		return
	}

	owners := &policy.Ownership{Patient: appt.Patient, Doctor: appt.Doctor}
	if err := policy.Authorize(actor, policy.OpRead, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to access this appointment"))
		return
	}

	view, err := appointmentView1(c.Request.Context(), db, appt)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load appointment", err))
		return
	}

	c.JSON(http.StatusOK, view)
}

// UpdateAppointment lets the bound doctor or an admin change status and notes.
func (h *Handler) UpdateAppointment(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	apptID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid appointment ID"))
		return
	}

	var req struct {
		Status *string `json:"status"`
		Notes  *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Invalid request body"))
		return
	}

	update := bson.M{}
	if req.Status != nil {
		if !models.ValidStatus(*req.Status) {
			httperr.Write(c, httperr.Validation("Invalid appointment status"))
			return
		}
		update["status"] = *req.Status
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
	coll := db.Collection("appointments")

	var appt models.Appointment
	if err := coll.FindOne(ctx, bson.M{"_id": apptID}).Decode(&appt); err != nil {
		httperr.Write(c, httperr.NotFound("Appointment not found"))
		return
	}

	owners := &policy.Ownership{Patient: appt.Patient, Doctor: appt.Doctor}
	if err := policy.Authorize(actor, policy.OpUpdate, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to update this appointment"))
		return
	}

	if _, err := coll.UpdateOne(ctx, bson.M{"_id": apptID}, bson.M{"$set": update}); err != nil {
		// Moving a cancelled or completed appointment back to an active
		// status re-enters the unique slot index; a rejection here means
		// the slot was rebooked in the meantime.
		if booking.IsSlotConflict(err) {
			httperr.Write(c, httperr.Conflict("This time slot is already booked"))
			return
		}
		httperr.Write(c, httperr.Internal("Failed to update appointment", err))
		return
	}

	if err := coll.FindOne(ctx, bson.M{"_id": apptID}).Decode(&appt); err != nil {
		httperr.Write(c, httperr.Internal("Failed to load appointment", err))
		return
	}

	view, err := appointmentView1(ctx, db, appt)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load appointment", err))
		return
	}

	c.JSON(http.StatusOK, view)
}

// CancelAppointment marks the appointment cancelled. Only the owning patient
// or an admin may cancel; the record itself is never deleted. Cancelling
// drops the appointment out of the active-slot index, which frees the slot
// for rebooking immediately.
func (h *Handler) CancelAppointment(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	apptID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid appointment ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	coll := db.Collection("appointments")

	var appt models.Appointment
	if err := coll.FindOne(ctx, bson.M{"_id": apptID}).Decode(&appt); err != nil {
		httperr.Write(c, httperr.NotFound("Appointment not found"))
		return
	}

	owners := &policy.Ownership{Patient: appt.Patient, Doctor: appt.Doctor}
	if err := policy.Authorize(actor, policy.OpCancel, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to cancel this appointment"))
		return
	}

	_, err = coll.UpdateOne(ctx, bson.M{"_id": apptID}, bson.M{
		"$set": bson.M{"status": models.StatusCancelled, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to cancel appointment", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled successfully"})
}
