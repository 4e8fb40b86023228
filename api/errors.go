package api

import (
	"errors"
	"net/http"

	"rafflehub/domain/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// statusFor maps a raffle error to its HTTP status. Unclassified errors are
// server errors.
func statusFor(err error) int {
	var (
		validation   *services.ValidationError
		invalidID    *services.InvalidIDError
		notFound     *services.NotFoundError
		duplicate    *services.DuplicateParticipantError
		notActive    *services.RaffleNotActiveError
		insufficient *services.InsufficientTicketsError
		threshold    *services.ThresholdNotMetError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation),
		errors.As(err, &invalidID),
		errors.As(err, &duplicate),
		errors.As(err, &notActive),
		errors.As(err, &insufficient),
		errors.As(err, &threshold):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message}. Server errors are logged and
// replaced by a generic message so store details never reach the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)

	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err,
		}).Error("Request failed")
		c.AbortWithStatusJSON(status, errorResponse{Error: "Internal server error"})
		return
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

// bindJSON decodes the body, answering 400 on malformed JSON
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, &services.ValidationError{Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}
