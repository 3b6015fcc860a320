package handler

import (
	"errors"
	"net/http"
	"runtime/debug"

	"grimoire/internal/api/service"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses and the response
// envelope. Production responses carry only a short message; development
// adds the error name and a stack for debugging and must never be enabled
// on a public deployment.
func respondError(c *gin.Context, err error, development bool) {
	status, name := classify(err)

	message := err.Error()
	if status == http.StatusInternalServerError && !development {
		message = "an internal error occurred"
	}

	if development {
		c.JSON(status, gin.H{"error": gin.H{
			"name":    name,
			"message": err.Error(),
			"stack":   string(debug.Stack()),
		}})
		return
	}
	c.JSON(status, gin.H{"error": message})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidBook),
		errors.Is(err, service.ErrInvalidGrade),
		errors.Is(err, service.ErrMissingImage),
		errors.Is(err, service.ErrInvalidImage):
		return http.StatusBadRequest, "ValidationError"
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "AuthError"
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrAlreadyRated):
		return http.StatusForbidden, "ForbiddenError"
	case errors.Is(err, service.ErrBookNotFound):
		return http.StatusNotFound, "NotFoundError"
	case errors.Is(err, service.ErrEmailInUse):
		return http.StatusConflict, "ConflictError"
	}
	return http.StatusInternalServerError, "InternalError"
}
