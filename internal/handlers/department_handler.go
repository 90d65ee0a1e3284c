package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/savelife/hospital-api/internal/httperr"
	"github.com/savelife/hospital-api/internal/models"
)

// ListDepartments returns all active departments. Public.
func (h *Handler) ListDepartments(c *gin.Context) {
	db, ok := h.db(c)
	if !ok {
		return
	}

	cursor, err := db.Collection("departments").Find(c.Request.Context(), bson.M{"isActive": true})
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve departments", err))
		return
	}
	defer cursor.Close(c.Request.Context())

	departments := make([]models.Department, 0)
	if err := cursor.All(c.Request.Context(), &departments); err != nil {
		httperr.Write(c, httperr.Internal("Failed to decode departments", err))
		return
	}

	c.JSON(http.StatusOK, departments)
}

func (h *Handler) GetDepartment(c *gin.Context) {
	deptID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid department ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	var dept models.Department
	if err := db.Collection("departments").FindOne(c.Request.Context(), bson.M{"_id": deptID}).Decode(&dept); err != nil {
		httperr.Write(c, httperr.NotFound("Department not found"))
		return
	}

	c.JSON(http.StatusOK, dept)
}

// ListDoctorsByDepartment returns the active doctors of a department. Public:
// patients browse this list when booking.
func (h *Handler) ListDoctorsByDepartment(c *gin.Context) {
	deptID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid department ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	opts := options.Find().SetProjection(bson.M{
		"name": 1, "email": 1, "specialization": 1, "qualification": 1, "experience": 1,
	})
	cursor, err := db.Collection("users").Find(c.Request.Context(), bson.M{
		"role":       models.RoleDoctor,
		"department": deptID,
		"isActive":   true,
	}, opts)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve doctors", err))
		return
	}
	defer cursor.Close(c.Request.Context())

	doctors := make([]models.User, 0)
	if err := cursor.All(c.Request.Context(), &doctors); err != nil {
		httperr.Write(c, httperr.Internal("Failed to decode doctors", err))
		return
	}

	c.JSON(http.StatusOK, doctors)
}

// CreateDepartment is admin only.
func (h *Handler) CreateDepartment(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide a department name"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	dept := models.Department{
		ID:          primitive.NewObjectID(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := db.Collection("departments").InsertOne(c.Request.Context(), dept); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Write(c, httperr.Conflict("Department already exists"))
			return
		}
		httperr.Write(c, httperr.Internal("Failed to create department", err))
		return
	}

	c.JSON(http.StatusCreated, dept)
}

// UpdateDepartment is admin only.
func (h *Handler) UpdateDepartment(c *gin.Context) {
	deptID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid department ID"))
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		IsActive    *bool   `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Invalid request body"))
		return
	}

	update := bson.M{}
	if req.Name != nil {
		update["name"] = *req.Name
	}
	if req.Description != nil {
		update["description"] = *req.Description
	}
	if req.IsActive != nil {
		update["isActive"] = *req.IsActive
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

	departments := db.Collection("departments")
	res, err := departments.UpdateOne(c.Request.Context(), bson.M{"_id": deptID}, bson.M{"$set": update})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Write(c, httperr.Conflict("Department already exists"))
			return
		}
		httperr.Write(c, httperr.Internal("Failed to update department", err))
		return
	}
	if res.MatchedCount == 0 {
		httperr.Write(c, httperr.NotFound("Department not found"))
		return
	}

	var dept models.Department
	if err := departments.FindOne(c.Request.Context(), bson.M{"_id": deptID}).Decode(&dept); err != nil {
		httperr.Write(c, httperr.Internal("Failed to load department", err))
		return
	}

	c.JSON(http.StatusOK, dept)
}

// DeleteDepartment deactivates a department. Admin only; never a hard delete,
// doctors and appointments still reference it.
func (h *Handler) DeleteDepartment(c *gin.Context) {
	deptID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid department ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	res, err := db.Collection("departments").UpdateOne(
		c.Request.Context(),
		bson.M{"_id": deptID},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to deactivate department", err))
		return
	}
	if res.MatchedCount == 0 {
		httperr.Write(c, httperr.NotFound("Department not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Department deactivated successfully"})
}
