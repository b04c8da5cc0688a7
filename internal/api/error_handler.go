package api

import (
	"net/http"

	"github.com/vytor/openingtiers/internal/errors"
	"github.com/vytor/openingtiers/internal/logger"
)

type errorBody struct {
	Detail string `json:"detail"`
}

// handleError centralizes error handling for HTTP responses. Every error is
// rendered as {"detail": "<message>"}.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	appErr := errors.As(err)

	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else if appErr.Status >= 400 {
		log.Warn("client error: %v", appErr)
	} else {
		log.Debug("error: %v", appErr)
	}

	writeJSON(w, appErr.Status, errorBody{Detail: appErr.Message})
}
