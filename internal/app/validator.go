package app

import (
	"strings"

	"ginkana-service/internal/domain"
)

// Validate scores a raw answer against a challenge definition. It is pure:
// the same inputs always produce the same (points, status) pair.
func Validate(ch domain.Challenge, raw string) (int, domain.Status) {
	if strings.TrimSpace(ch.Answer) == domain.ReviewSentinel {
		return 0, domain.StatusPending
	}

	switch ch.Type {
	case domain.TypeTrivia, domain.TypeQR:
		got := domain.NormalizeAnswer(raw)
		for _, alt := range ch.Alternatives() {
			if got == alt {
				return ch.Points, domain.StatusValidated
			}
		}
		return 0, domain.StatusIncorrect
	case domain.TypeCeremony:
		// There is no wrong way to show up at the closing ceremony.
		return ch.Points, domain.StatusValidated
	case domain.TypePhoto:
		return 0, domain.StatusPending
	default:
		// Unknown catalog types never award points.
		return 0, domain.StatusPending
	}
}
