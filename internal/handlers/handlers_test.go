package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savelife/hospital-api/internal/middleware"
	"github.com/savelife/hospital-api/internal/utils"
)

// The router here only wires the paths that stop before touching the
// database: authentication, role policy and input validation.
func newTestAPI(t *testing.T) (*gin.Engine, *utils.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := utils.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	h := NewHandler(nil, nil, nil, nil, tokens, zerolog.Nop())

	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.Auth(tokens))
	api.POST("/appointments", h.CreateAppointment)
	api.GET("/appointments/:id", h.GetAppointment)
	return r, tokens
}

func doJSON(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateAppointmentRequiresAuth(t *testing.T) {
	r, _ := newTestAPI(t)

	rec := doJSON(r, http.MethodPost, "/api/appointments", "", `{}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "goroutine")
}

func TestCreateAppointmentRejectsDoctors(t *testing.T) {
	r, tokens := newTestAPI(t)
	token, err := tokens.Issue("665f1f77bcf86cd799439011", "doctor")
	require.NoError(t, err)

	rec := doJSON(r, http.MethodPost, "/api/appointments", token,
		`{"doctor":"665f1f77bcf86cd799439012","department":"665f1f77bcf86cd799439013","appointmentDate":"2024-06-01","appointmentTime":"10:00"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAppointmentValidatesBody(t *testing.T) {
	r, tokens := newTestAPI(t)
	token, err := tokens.Issue("665f1f77bcf86cd799439011", "patient")
	require.NoError(t, err)

	// Missing required fields.
	rec := doJSON(r, http.MethodPost, "/api/appointments", token, `{"doctor":"665f1f77bcf86cd799439012"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed doctor ID.
	rec = doJSON(r, http.MethodPost, "/api/appointments", token,
		`{"doctor":"nope","department":"665f1f77bcf86cd799439013","appointmentDate":"2024-06-01","appointmentTime":"10:00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed date.
	rec = doJSON(r, http.MethodPost, "/api/appointments", token,
		`{"doctor":"665f1f77bcf86cd799439012","department":"665f1f77bcf86cd799439013","appointmentDate":"June 1st","appointmentTime":"10:00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckSlotValidatesQuery(t *testing.T) {
	r, tokens := newTestAPI(t)
	token, err := tokens.Issue("665f1f77bcf86cd799439011", "patient")
	require.NoError(t, err)

	rec := doJSON(r, http.MethodGet, "/api/appointments/check-slot?doctor=nope&appointmentDate=2024-06-01&appointmentTime=10:00", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(r, http.MethodGet, "/api/appointments/check-slot?doctor=665f1f77bcf86cd799439012&appointmentDate=2024-06-01", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseAppointmentDate(t *testing.T) {
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	got, err := parseAppointmentDate("2024-06-01")
	require.NoError(t, err)
	assert.True(t, got.Equal(want))

	// RFC3339 timestamps collapse to the same UTC midnight.
	got, err = parseAppointmentDate("2024-06-01T15:04:05+02:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(want))

	_, err = parseAppointmentDate("01/06/2024")
	assert.Error(t, err)
}
