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

type CreateTestResultRequest struct {
	Patient     string `json:"patient" binding:"required"`
	Appointment string `json:"appointment"`
	TestName    string `json:"testName" binding:"required"`
	TestType    string `json:"testType"`
	Result      string `json:"result"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
}

// CreateTestResult is performed by the ordering doctor; the result usually
// starts pending and is completed by the patient's upload.
func (h *Handler) CreateTestResult(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	if err := policy.Authorize(actor, policy.OpCreateClinical, nil); err != nil {
		httperr.Write(c, httperr.Forbidden("Only doctors can create test results"))
		return
	}

	var req CreateTestResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide all required fields"))
		return
	}

	patientID, err := primitive.ObjectIDFromHex(req.Patient)
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid patient ID"))
		return
	}

	status := req.Status
	if status == "" {
		status = models.TestPending
	}
	if status != models.TestPending && status != models.TestCompleted {
		httperr.Write(c, httperr.Validation("Invalid test result status"))
		return
	}

	now := time.Now().UTC()
	result := models.TestResult{
		ID:        primitive.NewObjectID(),
		Patient:   patientID,
		Doctor:    actor.ID,
		TestName:  req.TestName,
		TestType:  req.TestType,
		Result:    req.Result,
		Status:    status,
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
		result.Appointment = apptID
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	if _, err := db.Collection("testresults").InsertOne(c.Request.Context(), result); err != nil {
		httperr.Write(c, httperr.Internal("Failed to create test result", err))
		return
	}

	view, err := testResultView1(c.Request.Context(), db, result)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load test result", err))
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *Handler) ListTestResults(c *gin.Context) {
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
	cursor, err := db.Collection("testresults").Find(ctx, filter, opts)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve test results", err))
		return
	}
	defer cursor.Close(ctx)

	results := make([]models.TestResult, 0)
	if err := cursor.All(ctx, &results); err != nil {
		httperr.Write(c, httperr.Internal("Failed to decode test results", err))
		return
	}

	views, err := testResultViews(ctx, db, results)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve test results", err))
		return
	}

	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetTestResult(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	resultID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid test result ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	var result models.TestResult
	if err := db.Collection("testresults").FindOne(c.Request.Context(), bson.M{"_id": resultID}).Decode(&result); err != nil {
		httperr.Write(c, httperr.NotFound("Test result not found"))
		return
	}

	owners := &policy.Ownership{Patient: result.Patient, Doctor: result.Doctor}
	if err := policy.Authorize(actor, policy.OpRead, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to access this test result"))
		return
	}

	view, err := testResultView1(c.Request.Context(), db, result)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load test result", err))
		return
	}

	c.JSON(http.StatusOK, view)
}

// UpdateTestResult is restricted to the ordering doctor (or an admin).
func (h *Handler) UpdateTestResult(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	resultID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid test result ID"))
		return
	}

	var req struct {
		TestName *string `json:"testName"`
		TestType *string `json:"testType"`
		Result   *string `json:"result"`
		Status   *string `json:"status"`
		Notes    *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Invalid request body"))
		return
	}

	update := bson.M{}
	if req.TestName != nil {
		update["testName"] = *req.TestName
	}
	if req.TestType != nil {
		update["testType"] = *req.TestType
	}
	if req.Result != nil {
		update["result"] = *req.Result
	}
	if req.Status != nil {
		if *req.Status != models.TestPending && *req.Status != models.TestCompleted {
			httperr.Write(c, httperr.Validation("Invalid test result status"))
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
	coll := db.Collection("testresults")

	var result models.TestResult
	if err := coll.FindOne(ctx, bson.M{"_id": resultID}).Decode(&result); err != nil {
		httperr.Write(c, httperr.NotFound("Test result not found"))
		return
	}

	owners := &policy.Ownership{Patient: result.Patient, Doctor: result.Doctor}
	if err := policy.Authorize(actor, policy.OpUpdate, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to update this test result"))
		return
	}

	if _, err := coll.UpdateOne(ctx, bson.M{"_id": resultID}, bson.M{"$set": update}); err != nil {
		httperr.Write(c, httperr.Internal("Failed to update test result", err))
		return
	}

	if err := coll.FindOne(ctx, bson.M{"_id": resultID}).Decode(&result); err != nil {
		httperr.Write(c, httperr.Internal("Failed to load test result", err))
		return
	}

	view, err := testResultView1(ctx, db, result)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load test result", err))
		return
	}

	c.JSON(http.StatusOK, view)
}

// UploadTestResultFile lets the owning patient attach the result artifact,
// which completes the test.
func (h *Handler) UploadTestResultFile(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	resultID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid test result ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	coll := db.Collection("testresults")

	var result models.TestResult
	if err := coll.FindOne(ctx, bson.M{"_id": resultID}).Decode(&result); err != nil {
		httperr.Write(c, httperr.NotFound("Test result not found"))
		return
	}

	owners := &policy.Ownership{Patient: result.Patient, Doctor: result.Doctor}
	if err := policy.Authorize(actor, policy.OpUpload, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to upload a file for this test"))
		return
	}

	file, err := c.FormFile("testFile")
	if err != nil {
		httperr.Write(c, httperr.Validation("Please upload a file"))
		return
	}

	stored, err := h.Uploads.Save(c, file)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to store uploaded file", err))
		return
	}

	now := time.Now().UTC()
	_, err = coll.UpdateOne(ctx, bson.M{"_id": resultID}, bson.M{"$set": bson.M{
		"uploadedFile":     stored,
		"uploadedFileName": file.Filename,
		"uploadedAt":       now,
		"status":           models.TestCompleted,
		"resultDate":       now,
		"updatedAt":        now,
	}})
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to update test result", err))
		return
	}

	if err := coll.FindOne(ctx, bson.M{"_id": resultID}).Decode(&result); err != nil {
		httperr.Write(c, httperr.Internal("Failed to load test result", err))
		return
	}

	view, err := testResultView1(ctx, db, result)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to load test result", err))
		return
	}

	c.JSON(http.StatusOK, view)
}

// DeleteTestResult hard deletes a test result and its stored artifact. The
// only hard delete in the system, reserved for the ordering doctor or admin.
func (h *Handler) DeleteTestResult(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	resultID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid test result ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	coll := db.Collection("testresults")

	var result models.TestResult
	if err := coll.FindOne(ctx, bson.M{"_id": resultID}).Decode(&result); err != nil {
		httperr.Write(c, httperr.NotFound("Test result not found"))
		return
	}

	owners := &policy.Ownership{Patient: result.Patient, Doctor: result.Doctor}
	if err := policy.Authorize(actor, policy.OpDelete, owners); err != nil {
		httperr.Write(c, httperr.Forbidden("Not authorized to delete this test result"))
		return
	}

	if _, err := coll.DeleteOne(ctx, bson.M{"_id": resultID}); err != nil {
		httperr.Write(c, httperr.Internal("Failed to delete test result", err))
		return
	}

	if err := h.Uploads.Remove(result.UploadedFile); err != nil {
		h.Log.Warn().Err(err).Str("file", result.UploadedFile).Msg("failed to remove uploaded file")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Test result removed"})
}
