package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is returned for any 401 reply; the session is gone.
	ErrUnauthorized = errors.New("session is not authorized")
	// ErrNoActiveRound is returned when a round action arrives with no round.
	ErrNoActiveRound = errors.New("no active round")
	// ErrRoundNotPlaying is returned when a round action arrives outside the playing phase.
	ErrRoundNotPlaying = errors.New("round is not in play")
	// ErrInputDisabled is returned once a multi-answer round has all its answers.
	ErrInputDisabled = errors.New("answer input is disabled for this round")
	// ErrEmptyAnswer is returned for a blank answer to a multi-answer round.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrInvalidOption is returned when a selection is not one of the round's choices.
	ErrInvalidOption = errors.New("option is not one of the round's choices")
	// ErrNotMultiAnswer is returned when finalize is asked of a single-answer round.
	ErrNotMultiAnswer = errors.New("only multi-answer rounds can be finalized")
	// ErrSubmissionPending is returned while a previous submission is in flight.
	ErrSubmissionPending = errors.New("a submission is already in flight")
	// ErrStaleRound marks a reply that belongs to a round that is no longer current.
	ErrStaleRound = errors.New("reply belongs to a round that is no longer current")
	// ErrUnknownQuestionType is returned when the backend sends a question type the client cannot play.
	ErrUnknownQuestionType = errors.New("unknown question type")
	// ErrInvalidCredentials is returned when the backend rejects a username/PIN pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound is returned by stores that have nothing saved under a key.
	ErrNotFound = errors.New("not found")
)

// RequestError is a non-2xx reply other than 401.
type RequestError struct {
	Op      string
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// ValidationError collects shape violations found before any request is sent.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, field := range []string{"username", "pin", "display_name"} {
		if msg, ok := e.Fields[field]; ok {
			msgs = append(msgs, msg)
		}
	}
	return strings.Join(msgs, "; ")
}
