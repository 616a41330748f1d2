package domain

import (
	"strings"
	"time"
)

// Status classifies a recorded submission.
type Status string

const (
	StatusValidated Status = "VALIDATED"
	StatusIncorrect Status = "INCORRECT"
	StatusPending   Status = "PENDING"
)

// ChallengeType tells the validator how to score a raw answer.
type ChallengeType string

const (
	// TypeTrivia answers are free text matched against the accepted alternatives.
	TypeTrivia ChallengeType = "trivia"
	// TypeQR answers are scanned codes, matched the same way as trivia.
	TypeQR ChallengeType = "qr"
	// TypePhoto answers need a human reviewer before points are awarded.
	TypePhoto ChallengeType = "photo"
	// TypeCeremony challenges award their points unconditionally.
	TypeCeremony ChallengeType = "ceremony"
)

// Known reports whether the validator understands this type. Unknown types
// score as pending so a catalog typo never silently awards points.
func (t ChallengeType) Known() bool {
	switch t {
	case TypeTrivia, TypeQR, TypePhoto, TypeCeremony:
		return true
	}
	return false
}

// ReviewSentinel in a challenge's answer column marks the answer as
// requiring manual review regardless of type.
const ReviewSentinel = "REVIEW_REQUIRED"

// Challenge is one entry of the immutable-per-load catalog.
type Challenge struct {
	ID          int           `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        ChallengeType `json:"type"`
	Points      int           `json:"points"`
	// Answer holds the accepted alternatives separated by '|',
	// or ReviewSentinel for manually reviewed challenges.
	Answer string `json:"answer"`
}

// Alternatives returns the normalized accepted answers.
func (c Challenge) Alternatives() []string {
	parts := strings.Split(c.Answer, "|")
	alts := make([]string, 0, len(parts))
	for _, p := range parts {
		if norm := NormalizeAnswer(p); norm != "" {
			alts = append(alts, norm)
		}
	}
	return alts
}

// NormalizeAnswer trims and case-folds a raw answer for comparison.
func NormalizeAnswer(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeIdentity maps a chat principal to the canonical submitter key.
// The stable username wins over the display name when both are present, so
// two people sharing a first name cannot collide as long as they have
// usernames. Leading '@' is stripped and the result is case-folded.
func NormalizeIdentity(username, displayName string) string {
	id := strings.TrimPrefix(strings.TrimSpace(username), "@")
	if id == "" {
		id = strings.TrimSpace(displayName)
	}
	return strings.ToLower(id)
}

// Team is a roster row. Submitter is the normalized identity of the one
// principal allowed to answer for the team, fixed at registration.
type Team struct {
	Name         string    `json:"name"`
	Submitter    string    `json:"submitter"`
	Players      []string  `json:"players"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Submission is one append-only ledger row. At most one submission may
// exist per (Team, ChallengeID) pair; rows are never mutated or deleted.
type Submission struct {
	Team        string    `json:"team"`
	ChallengeID int       `json:"challengeId"`
	Answer      string    `json:"answer"`
	Points      int       `json:"points"`
	Status      Status    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// SubmissionOutcome is what the caller renders after an accepted submission.
type SubmissionOutcome struct {
	ChallengeID int    `json:"challengeId"`
	Points      int    `json:"points"`
	Status      Status `json:"status"`
	// UnlockedBlock is the block this submission just made reachable,
	// zero when no block boundary was crossed.
	UnlockedBlock int `json:"unlockedBlock,omitempty"`
	// Completed is true only on the submission that finished the hunt.
	Completed bool `json:"completed,omitempty"`
}

// RankingEntry is one row of the scoreboard.
type RankingEntry struct {
	Team     string `json:"team"`
	Points   int    `json:"points"`
	Correct  int    `json:"correct"`
	Answered int    `json:"answered"`
	// FinishedAt is the time of the submission that answered the last
	// open challenge; zero while the team has not finished.
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// TeamSummary is the roster view with validated points folded in.
type TeamSummary struct {
	Name         string    `json:"name"`
	Submitter    string    `json:"submitter"`
	Players      []string  `json:"players"`
	RegisteredAt time.Time `json:"registeredAt"`
	Points       int       `json:"points"`
}

// PendingList enumerates the open challenges of a team's current block.
type PendingList struct {
	Block      int         `json:"block"`
	Completed  bool        `json:"completed"`
	Challenges []Challenge `json:"challenges"`
}
