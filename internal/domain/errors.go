package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRegistered is returned when no team has this submitter.
	ErrNotRegistered = errors.New("no team registered for this submitter")
	// ErrUnknownChallenge indicates a challenge id absent from the catalog.
	ErrUnknownChallenge = errors.New("challenge not found")
	// ErrDuplicateSubmission guards the one-submission-per-challenge invariant.
	ErrDuplicateSubmission = errors.New("challenge already answered by this team")
	// ErrSubmitterTaken is returned when a submitter already leads a team.
	ErrSubmitterTaken = errors.New("submitter already leads another team")
	// ErrTeamExists is returned when the team name is already on the roster.
	ErrTeamExists = errors.New("team name already registered")
	// ErrNoPlayers is returned when a registration names no players.
	ErrNoPlayers = errors.New("at least one player required")
	// ErrStoreUnavailable marks transient record-store failures. Callers
	// should ask the user to retry, never report a wrong answer.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// DuplicateError reports the status already on record for the pair.
// It matches ErrDuplicateSubmission under errors.Is.
type DuplicateError struct {
	ChallengeID int
	Status      Status
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("challenge %d already answered (%s)", e.ChallengeID, e.Status)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicateSubmission
}
