package http

import (
	"errors"
	"net/http"

	"live-quiz-service/internal/domain"
)

type errorMapping struct {
	err    error
	code   string
	status int
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidTransition, "invalid_transition", http.StatusConflict},
	{domain.ErrInvalidSession, "invalid_session", http.StatusUnprocessableEntity},
	{domain.ErrNotAcceptingAnswers, "not_accepting_answers", http.StatusLocked},
	{domain.ErrDuplicateSubmission, "duplicate_submission", http.StatusConflict},
	{domain.ErrUnknownParticipant, "unknown_participant", http.StatusNotFound},
	{domain.ErrAlreadyRegistered, "already_registered", http.StatusOK},
	{domain.ErrInvalidCredential, "invalid_credential", http.StatusUnauthorized},
	{domain.ErrAdminRequired, "admin_required", http.StatusForbidden},
	{domain.ErrInvalidOption, "invalid_option", http.StatusUnprocessableEntity},
	{domain.ErrInvalidParticipant, "invalid_participant", http.StatusBadRequest},
	{domain.ErrInvalidCatalog, "invalid_catalog", http.StatusInternalServerError},
}

// errorCode maps a domain error to the code sent to clients and its HTTP status.
func errorCode(err error) (string, int) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.code, m.status
		}
	}
	return "internal", http.StatusInternalServerError
}
