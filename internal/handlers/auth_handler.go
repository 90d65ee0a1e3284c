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
	"github.com/savelife/hospital-api/internal/models"
	"github.com/savelife/hospital-api/internal/utils"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide all required fields"))
		return
	}

	db, ok := h.db(c)
	if !ok {
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
		Role:      models.RolePatient,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := db.Collection("users").InsertOne(c.Request.Context(), user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Write(c, httperr.Conflict("An account with this email already exists"))
			return
		}
		httperr.Write(c, httperr.Internal("Failed to create user", err))
		return
	}

	token, err := h.Tokens.Issue(user.ID.Hex(), user.Role)
	if err != nil {
		httperr.Write(c, httperr.Internal("Could not generate token", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide email and password"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	var user models.User
	err := db.Collection("users").FindOne(c.Request.Context(), bson.M{"email": strings.ToLower(strings.TrimSpace(req.Email))}).Decode(&user)
	if err != nil {
		httperr.Write(c, httperr.Authentication("Invalid credentials"))
		return
	}

	// Accounts created through Google login have no local password.
	if user.Password == "" {
		httperr.Write(c, httperr.Authentication("Please login with Google"))
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		httperr.Write(c, httperr.Authentication("Invalid credentials"))
		return
	}

	token, err := h.Tokens.Issue(user.ID.Hex(), user.Role)
	if err != nil {
		httperr.Write(c, httperr.Internal("Could not generate token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GoogleLogin upserts a user carrying only the external-identity marker.
// Token verification against Google happens at the frontend boundary.
func (h *Handler) GoogleLogin(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide user information"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	users := db.Collection("users")

	var user models.User
	err := users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	switch {
	case err == mongo.ErrNoDocuments:
		now := time.Now().UTC()
		user = models.User{
			ID:        primitive.NewObjectID(),
			Name:      req.Name,
			Email:     email,
			Role:      models.RolePatient,
			GoogleID:  email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := users.InsertOne(ctx, user); err != nil {
			httperr.Write(c, httperr.Internal("Failed to create user", err))
			return
		}
	case err != nil:
		httperr.Write(c, httperr.Internal("Failed to look up user", err))
		return
	default:
		if user.GoogleID == "" {
			_, err := users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{"googleId": email, "updatedAt": time.Now().UTC()}})
			if err != nil {
				httperr.Write(c, httperr.Internal("Failed to update user", err))
				return
			}
		}
	}

	token, err := h.Tokens.Issue(user.ID.Hex(), user.Role)
	if err != nil {
		httperr.Write(c, httperr.Internal("Could not generate token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide an email address"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	users := db.Collection("users")

	var user models.User
	if err := users.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(req.Email))}).Decode(&user); err != nil {
		httperr.Write(c, httperr.NotFound("User not found"))
		return
	}

	token, digest, err := utils.NewResetToken()
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to generate reset token", err))
		return
	}

	expires := time.Now().UTC().Add(10 * time.Minute)
	_, err = users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"resetPasswordToken":  digest,
		"resetPasswordExpire": expires,
		"updatedAt":           time.Now().UTC(),
	}})
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to store reset token", err))
		return
	}

	if err := h.Mailer.SendPasswordReset(user.Email, user.Name, token); err != nil {
		httperr.Write(c, httperr.Internal("Failed to send reset email", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.Validation("Please provide a new password"))
		return
	}

	db, ok := h.db(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	users := db.Collection("users")
	digest := utils.HashResetToken(c.Param("resetToken"))

	var user models.User
	err := users.FindOne(ctx, bson.M{
		"resetPasswordToken":  digest,
		"resetPasswordExpire": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&user)
	if err != nil {
		httperr.Write(c, httperr.Validation("Invalid or expired token"))
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to reset password", err))
		return
	}

	_, err = users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set":   bson.M{"password": hashed, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""},
	})
	if err != nil {
		httperr.Write(c, httperr.Internal("Failed to reset password", err))
		return
	}

	token, err := h.Tokens.Issue(user.ID.Hex(), user.Role)
	if err != nil {
		httperr.Write(c, httperr.Internal("Could not generate token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
