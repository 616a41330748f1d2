package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"ginkana-service/internal/domain"
)

// Store persists the catalog, roster and submission ledger in Postgres.
// Rows map to typed records here at the boundary; nothing loosely typed
// crosses into the engine. Players are stored comma-joined, matching the
// spreadsheet layout the datasets interoperate with.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LoadCatalog(ctx context.Context) ([]domain.Challenge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, type, points, answer FROM challenges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	var catalog []domain.Challenge
	for rows.Next() {
		var ch domain.Challenge
		var typ string
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.Description, &typ, &ch.Points, &ch.Answer); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		ch.Type = domain.ChallengeType(typ)
		catalog = append(catalog, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return catalog, nil
}

func (s *Store) LoadRoster(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, submitter, players, registered_at FROM teams ORDER BY registered_at, name`)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	defer rows.Close()

	var roster []domain.Team
	for rows.Next() {
		var t domain.Team
		var players string
		if err := rows.Scan(&t.Name, &t.Submitter, &players, &t.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		t.Players = splitPlayers(players)
		roster = append(roster, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return roster, nil
}

func (s *Store) LoadSubmissions(ctx context.Context) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT team, challenge_id, answer, points, status, submitted_at FROM submissions ORDER BY submitted_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		var sub domain.Submission
		var status string
		if err := rows.Scan(&sub.Team, &sub.ChallengeID, &sub.Answer, &sub.Points, &status, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Status = domain.Status(status)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	return subs, nil
}

func (s *Store) AppendSubmission(ctx context.Context, sub domain.Submission) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO submissions (team, challenge_id, answer, points, status, submitted_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.Team, sub.ChallengeID, sub.Answer, sub.Points, string(sub.Status), sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	return nil
}

func (s *Store) AppendTeam(ctx context.Context, team domain.Team) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO teams (name, submitter, players, registered_at) VALUES ($1, $2, $3, $4)`,
		team.Name, team.Submitter, strings.Join(team.Players, ","), team.RegisteredAt)
	if err != nil {
		return fmt.Errorf("append team: %w", err)
	}
	return nil
}

func splitPlayers(raw string) []string {
	var players []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			players = append(players, p)
		}
	}
	return players
}
