package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/newsbrief/internal/archive"
	"github.com/jonathan/newsbrief/internal/jobs"
	"github.com/jonathan/newsbrief/internal/pipeline"
	"github.com/jonathan/newsbrief/internal/store"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validation *ErrValidation
	var exists *pipeline.ErrBriefExists
	var wrongStage *jobs.ErrWrongStage

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, archive.ErrNoBriefs):
		return http.StatusNotFound
	case errors.As(err, &exists), errors.As(err, &wrongStage):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
