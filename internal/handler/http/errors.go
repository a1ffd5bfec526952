package http

import (
	"errors"
	"net/http"

	"aura-board/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HandleServiceError maps service errors to HTTP responses.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRegistrationFailed):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRoomFull):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidParticipant),
		errors.Is(err, service.ErrInvalidScore):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidInviteCode),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrParticipantNotFound),
		errors.Is(err, service.ErrUserNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
