package httperr

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindValidation.Status())
	assert.Equal(t, http.StatusUnauthorized, KindAuthentication.Status())
	assert.Equal(t, http.StatusForbidden, KindAuthorization.Status())
	assert.Equal(t, http.StatusNotFound, KindNotFound.Status())
	assert.Equal(t, http.StatusConflict, KindConflict.Status())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.Status())
}

func TestWriteTypedError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Write(c, Conflict("This time slot is already booked"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message": "This time slot is already booked"}`, rec.Body.String())
}

// Internal detail must never reach the client.
func TestWriteHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Write(c, Internal("Failed to create appointment", errors.New("mongo: connection refused to 10.0.0.7:27017")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message": "Failed to create appointment"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "mongo")
}

func TestWriteUnknownErrorIsInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Write(c, errors.New("driver said something scary"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "scary")
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := Internal("outer", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "outer: inner", err.Error())
	assert.Equal(t, "outer", Validation("outer").Error())
}
