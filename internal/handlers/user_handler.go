package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/savelife/hospital-api/internal/httperr"
	"github.com/savelife/hospital-api/internal/middleware"
	"github.com/savelife/hospital-api/internal/models"
	"github.com/savelife/hospital-api/internal/utils"
)

// GetProfile returns the authenticated user's own record.
func (h *Handler) GetProfile(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	var user models.User
	if err := db.Collection("users").FindOne(c.Request.Context(), bson.M{"_id": actor.ID}).Decode(&user); err != nil {
		httperr.Write(c, httperr.NotFound("User not found"))
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile lets a user change their own name, contact details or password.
func (h *Handler) UpdateProfile(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	var req struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Address  string `json:"address"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Invalid request body"))
		return
	}

	update := bson.M{}
	if req.Name != "" {
		update["name"] = req.Name
	}
	if req.Phone != "" {
		update["phone"] = req.Phone
	}
	if req.Address != "" {
		update["address"] = req.Address
	}
	if req.Password != "" {
		if len(req.Password) < 6 {
			httperr.Write(c, httperr.Validation("Password must be at least 6 characters"))
			return
		}
		hashed, err := utils.HashPassword(req.Password)
		if err != nil {
			httperr.Write(c, httperr.Internal("Failed to update password", err))
			return
		}
		update["password"] = hashed
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

	users := db.Collection("users")
	res, err := users.UpdateOne(c.Request.Context(), bson.M{"_id": actor.ID}, bson.M{"$set": update})
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to update profile", err))
		return
	}
	if res.MatchedCount == 0 {
		httperr.Write(c, httperr.NotFound("User not found"))
		return
	}

	var user models.User
	if err := users.FindOne(c.Request.Context(), bson.M{"_id": actor.ID}).Decode(&user); err != nil {
		httperr.Write(c, httperr.Internal("Failed to load profile", err))
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers returns all users, optionally filtered by role. Admin only.
func (h *Handler) ListUsers(c *gin.Context) {
	db, ok := h.db(c)
	if !ok {
		return
	}

	filter := bson.M{}
	if role := c.Query("role"); role != "" {
		filter["role"] = role
	}

	cursor, err := db.Collection("users").Find(c.Request.Context(), filter)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to retrieve users", err))
		return
	}
	defer cursor.Close(c.Request.Context())

	users := make([]models.User, 0)
	if err := cursor.All(c.Request.Context(), &users); err != nil {
		httperr.Write(c, httperr.Internal("Failed to decode users", err))
		return
	}

	c.JSON(http.StatusOK, users)
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Gender   string `json:"gender"`

	// Doctor fields
	Department     string `json:"department"`
	Specialization string `json:"specialization"`
	Qualification  string `json:"qualification"`
	Experience     int    `json:"experience"`
}

// CreateUser lets an admin provision any account, including doctors.
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide all required fields"))
		return
	}

	role := req.Role
	if role == "" {
		role = models.RolePatient
	}
	if role != models.RolePatient && role != models.RoleDoctor && role != models.RoleAdmin {
		httperr.Write(c, httperr.Validation("Invalid role"))
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to create user", err))
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Password:  hashed,
		Role:      role,
		Phone:     req.Phone,
		Address:   req.Address,
		Gender:    req.Gender,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if role == models.RoleDoctor {
		if req.Department != "" {
			deptID, err := primitive.ObjectIDFromHex(req.Department)
			if err != nil {
				httperr.Write(c, httperr.Validation("Invalid department ID"))
				return
			}
			user.Department = deptID
		}
		user.Specialization = req.Specialization
		user.Qualification = req.Qualification
		user.Experience = req.Experience
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	if _, err := db.Collection("users").InsertOne(c.Request.Context(), user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Write(c, httperr.Conflict("An account with this email already exists"))
			return
		}
		httperr.Write(c, httperr.Internal("Failed to create user", err))
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUser lets an admin edit any account. The own-profile path shares the
// :id position in gin's route tree, so it is dispatched from here.
func (h *Handler) UpdateUser(c *gin.Context) {
	if c.Param("id") == "profile" {
		h.UpdateProfile(c)
		return
	}

	actor, err := middleware.CurrentActor(c)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	if actor.Role != models.RoleAdmin {
		httperr.Write(c, httperr.Forbidden("Not authorized to perform this action"))
		return
	}

	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid user ID"))
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Role     *string `json:"role"`
		Phone    *string `json:"phone"`
		Address  *string `json:"address"`
		Gender   *string `json:"gender"`
		IsActive *bool   `json:"isActive"`
		Password *string `json:"password"`

		Department     *string `json:"department"`
		Specialization *string `json:"specialization"`
		Qualification  *string `json:"qualification"`
		Experience     *int    `json:"experience"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Invalid request body"))
		return
	}

	update := bson.M{}
	if req.Name != nil {
		update["name"] = *req.Name
	}
	if req.Email != nil {
		update["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		if *req.Role != models.RolePatient && *req.Role != models.RoleDoctor && *req.Role != models.RoleAdmin {
			httperr.Write(c, httperr.Validation("Invalid role"))
			return
		}
		update["role"] = *req.Role
	}
	if req.Phone != nil {
		update["phone"] = *req.Phone
	}
	if req.Address != nil {
		update["address"] = *req.Address
	}
	if req.Gender != nil {
		update["gender"] = *req.Gender
	}
	if req.IsActive != nil {
		update["isActive"] = *req.IsActive
	}
	if req.Department != nil {
		deptID, err := primitive.ObjectIDFromHex(*req.Department)
		if err != nil {
			httperr.Write(c, httperr.Validation("Invalid department ID"))
			return
		}
		update["department"] = deptID
	}
	if req.Specialization != nil {
		update["specialization"] = *req.Specialization
	}
	if req.Qualification != nil {
		update["qualification"] = *req.Qualification
	}
	if req.Experience != nil {
		update["experience"] = *req.Experience
	}
	if req.Password != nil && *req.Password != "" {
		hashed, err := utils.HashPassword(*req.Password)
		if err != nil {
			httperr.Write(c, httperr.Internal("Failed to update user", err))
			return
		}
		update["password"] = hashed
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

	users := db.Collection("users")
	res, err := users.UpdateOne(c.Request.Context(), bson.M{"_id": userID}, bson.M{"$set": update})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Write(c, httperr.Conflict("An account with this email already exists"))
			return
		}
		httperr.Write(c, httperr.Internal("Failed to update user", err))
		return
	}
	if res.MatchedCount == 0 {
		httperr.Write(c, httperr.NotFound("User not found"))
		return
	}

	var user models.User
	if err := users.FindOne(c.Request.Context(), bson.M{"_id": userID}).Decode(&user); err != nil {
		httperr.Write(c, httperr.Internal("Failed to load user", err))
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser deactivates an account. Users are never hard deleted; clinical
// records keep referencing them.
func (h *Handler) DeleteUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid user ID"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	res, err := db.Collection("users").UpdateOne(
		c.Request.Context(),
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to deactivate user", err))
		return
	}
	if res.MatchedCount == 0 {
		httperr.Write(c, httperr.NotFound("User not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deactivated successfully"})
}
