package errutil

import (
	"context"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/utils/logging"
)

// Handle logs the error with a message and returns it for the caller to
// surface. 5xx-class failures must always pass through here so they are
// never silently dropped.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	return err
}

// StatusCode maps the error taxonomy to an HTTP status. Collaborator
// failures are distinguished from validation failures so operators know
// whether to retry immediately or fix input.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case goerr.HasTag(err, types.TagValidation):
		return http.StatusBadRequest
	case goerr.HasTag(err, types.TagNotFound):
		return http.StatusNotFound
	case goerr.HasTag(err, types.TagConflict):
		return http.StatusConflict
	case goerr.HasTag(err, types.TagExpiredToken):
		return http.StatusGone
	case goerr.HasTag(err, types.TagState):
		return http.StatusUnprocessableEntity
	case goerr.HasTag(err, types.TagCollaborator):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleHTTP logs the error and writes an HTTP error response with the
// status derived from the error taxonomy.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	statusCode := StatusCode(err)
	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
			"values", ge.Values(),
		)
	} else {
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
		)
	}

	http.Error(w, err.Error(), statusCode)
}
