package domain

import "errors"

var (
	// ErrInvalidTransition is returned when a command is not valid from the current status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidSession indicates the session is unknown, empty, or already completed.
	ErrInvalidSession = errors.New("invalid session")
	// ErrNotAcceptingAnswers is returned outside the window of the submitted question.
	ErrNotAcceptingAnswers = errors.New("not accepting answers")
	// ErrDuplicateSubmission is returned when the participant already answered the question.
	ErrDuplicateSubmission = errors.New("duplicate submission")
	// ErrUnknownParticipant is returned when a user tries to act before registering.
	ErrUnknownParticipant = errors.New("unknown participant")
	// ErrAlreadyRegistered accompanies the existing participant on a repeated registration.
	// Callers treat it as success.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrInvalidCredential is returned when the admin secret does not match.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrAdminRequired is returned when a privileged command arrives without admin rights.
	ErrAdminRequired = errors.New("admin privileges required")
	// ErrInvalidOption indicates the option index is outside the question's options.
	ErrInvalidOption = errors.New("invalid option")
	// ErrInvalidParticipant indicates a registration without name or identity.
	ErrInvalidParticipant = errors.New("name and identity are required")
	// ErrInvalidCatalog indicates the catalog failed validation.
	ErrInvalidCatalog = errors.New("invalid catalog")
)
