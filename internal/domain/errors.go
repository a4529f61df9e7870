package domain

import "errors"

var (
	// ErrUnauthorized is returned when no identity accompanies a request.
	ErrUnauthorized = errors.New("no identity")
	// ErrForbidden is returned when the caller is not the session host or an admin.
	ErrForbidden = errors.New("not the session host")
	// ErrNotFound covers sessions, players, questions and set references that
	// do not resolve. Join failures deliberately collapse to this one error.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a transition is attempted while another is
	// in flight. Callers may retry after a short delay.
	ErrConflict = errors.New("transition already in flight")
	// ErrNoQuestions is returned when a session is started with an empty
	// resolved question set.
	ErrNoQuestions = errors.New("no questions resolved for session")
	// ErrInvalidNickname is returned before any store access when the
	// nickname length bounds are violated.
	ErrInvalidNickname = errors.New("nickname must be 2-16 characters")
	// ErrInvalidAction is returned for unrecognized transition verbs and for
	// any action on an ended session.
	ErrInvalidAction = errors.New("invalid transition action")
	// ErrMissingFields is returned when required submission fields are absent.
	ErrMissingFields = errors.New("missing required fields")
)
