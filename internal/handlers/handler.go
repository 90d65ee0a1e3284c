package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/savelife/hospital-api/internal/booking"
	"github.com/savelife/hospital-api/internal/database"
	"github.com/savelife/hospital-api/internal/services"
	"github.com/savelife/hospital-api/internal/storage"
	"github.com/savelife/hospital-api/internal/utils"
)

// Handler carries the shared dependencies for every HTTP handler.
type Handler struct {
	Conn    *database.Connection
	Booking *booking.Service
	Mailer  *services.Mailer
	Uploads *storage.UploadStore
	Tokens  *utils.TokenIssuer
	Log     zerolog.Logger
}

func NewHandler(conn *database.Connection, bookingSvc *booking.Service, mailer *services.Mailer, uploads *storage.UploadStore, tokens *utils.TokenIssuer, log zerolog.Logger) *Handler {
	return &Handler{
		Conn:    conn,
		Booking: bookingSvc,
		Mailer:  mailer,
		Uploads: uploads,
		Tokens:  tokens,
		Log:     log,
	}
}

// db resolves the database handle, reconnecting if a previous dial failed.
// On failure it writes a 503 and reports false.
func (h *Handler) db(c *gin.Context) (*mongo.Database, bool) {
	db, err := h.Conn.EnsureConnected(c.Request.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("database connection failed")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Service temporarily unavailable"})
		return nil, false
	}
	return db, true
}

// Health reports liveness for the root route.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "SaveLife API is running...", "status": "healthy"})
}
