package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ginkana-service/internal/domain"
)

// Store is the slow, rate-limited external record store. Reads are expected
// to come through a caching decorator; appends must invalidate the decorated
// dataset so the next read observes the write.
type Store interface {
	LoadCatalog(ctx context.Context) ([]domain.Challenge, error)
	LoadRoster(ctx context.Context) ([]domain.Team, error)
	LoadSubmissions(ctx context.Context) ([]domain.Submission, error)
	AppendSubmission(ctx context.Context, sub domain.Submission) error
	AppendTeam(ctx context.Context, team domain.Team) error
}

// ServiceConfig tunes how the service talks to the record store. Zero
// values fall back to sane defaults.
type ServiceConfig struct {
	// StoreTimeout bounds each individual store call so one stalled
	// request cannot block other teams indefinitely.
	StoreTimeout time.Duration
	// RetryAttempts is the total number of tries per store call.
	RetryAttempts int
	// RetryBackoff is the initial delay between tries; it doubles each retry.
	RetryBackoff time.Duration
	// Clock is test-only; defaults to time.Now.
	Clock func() time.Time
}

const (
	defaultStoreTimeout  = 5 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 200 * time.Millisecond
)

// GameService coordinates submissions: eligibility, duplicate guard,
// validation, ledger append and block-progression deltas.
type GameService struct {
	store   Store
	plan    BlockPlan
	log     zerolog.Logger
	now     func() time.Time
	timeout time.Duration
	retries int
	backoff time.Duration

	mu        sync.Mutex
	teamLocks map[string]*sync.Mutex

	subMu       sync.Mutex
	subscribers map[chan []domain.RankingEntry]struct{}
}

func NewGameService(store Store, plan BlockPlan, logger zerolog.Logger, cfg ServiceConfig) *GameService {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &GameService{
		store:       store,
		plan:        plan,
		log:         logger,
		now:         cfg.Clock,
		timeout:     cfg.StoreTimeout,
		retries:     cfg.RetryAttempts,
		backoff:     cfg.RetryBackoff,
		teamLocks:   make(map[string]*sync.Mutex),
		subscribers: make(map[chan []domain.RankingEntry]struct{}),
	}
}

// RegisterTeam adds a roster row. A submitter may lead at most one team;
// this is enforced here, at registration, and never re-checked later.
func (s *GameService) RegisterTeam(ctx context.Context, name, submitter string, players []string) error {
	name = strings.TrimSpace(name)
	submitter = domain.NormalizeIdentity(submitter, "")
	if name == "" || submitter == "" {
		return domain.ErrNotRegistered
	}
	kept := players[:0]
	for _, p := range players {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return domain.ErrNoPlayers
	}

	roster, err := s.loadRoster(ctx)
	if err != nil {
		return err
	}
	for _, t := range roster {
		if t.Submitter == submitter {
			return domain.ErrSubmitterTaken
		}
		if strings.EqualFold(t.Name, name) {
			return domain.ErrTeamExists
		}
	}

	team := domain.Team{
		Name:         name,
		Submitter:    submitter,
		Players:      kept,
		RegisteredAt: s.now(),
	}
	return s.withStore(ctx, "append team", func(ctx context.Context) error {
		return s.store.AppendTeam(ctx, team)
	})
}

// SubmitAnswer runs one submission attempt end to end and reports the
// outcome, including whether this very submission unlocked a block or
// finished the hunt. Only one in-flight submission per team is processed
// at a time; different teams proceed in parallel.
func (s *GameService) SubmitAnswer(ctx context.Context, submitter string, challengeID int, answer string) (domain.SubmissionOutcome, error) {
	team, err := s.teamFor(ctx, submitter)
	if err != nil {
		return domain.SubmissionOutcome{}, err
	}

	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return domain.SubmissionOutcome{}, err
	}
	ch, ok := catalog[challengeID]
	if !ok {
		return domain.SubmissionOutcome{}, domain.ErrUnknownChallenge
	}

	unlock := s.lockTeam(team.Name)
	defer unlock()

	subs, err := s.loadSubmissions(ctx)
	if err != nil {
		return domain.SubmissionOutcome{}, err
	}
	answered := AnsweredSet(subs, team.Name)
	if status, ok := answered[challengeID]; ok {
		return domain.SubmissionOutcome{}, &domain.DuplicateError{ChallengeID: challengeID, Status: status}
	}

	before := s.plan.CurrentBlock(answered, catalog)
	doneBefore := s.plan.Completed(answered, catalog)

	points, status := Validate(ch, answer)
	if status == domain.StatusPending && !ch.Type.Known() {
		s.log.Warn().
			Int("challenge", ch.ID).
			Str("type", string(ch.Type)).
			Msg("unrecognized challenge type, scored as pending")
	}

	sub := domain.Submission{
		Team:        team.Name,
		ChallengeID: challengeID,
		Answer:      answer,
		Points:      points,
		Status:      status,
		SubmittedAt: s.now(),
	}
	if err := s.withStore(ctx, "append submission", func(ctx context.Context) error {
		return s.store.AppendSubmission(ctx, sub)
	}); err != nil {
		return domain.SubmissionOutcome{}, err
	}

	// The appended row is the only delta, so the post-append state can be
	// derived locally instead of re-reading the freshly invalidated cache.
	answered[challengeID] = status
	after := s.plan.CurrentBlock(answered, catalog)
	doneAfter := s.plan.Completed(answered, catalog)

	outcome := domain.SubmissionOutcome{
		ChallengeID: challengeID,
		Points:      points,
		Status:      status,
	}
	if after > before {
		outcome.UnlockedBlock = after
	}
	if doneAfter && !doneBefore {
		outcome.Completed = true
	}

	s.broadcastRanking()
	return outcome, nil
}

// PendingChallenges lists the open challenges of the team's current block.
func (s *GameService) PendingChallenges(ctx context.Context, submitter string) (domain.PendingList, error) {
	team, err := s.teamFor(ctx, submitter)
	if err != nil {
		return domain.PendingList{}, err
	}
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return domain.PendingList{}, err
	}
	subs, err := s.loadSubmissions(ctx)
	if err != nil {
		return domain.PendingList{}, err
	}

	answered := AnsweredSet(subs, team.Name)
	block := s.plan.CurrentBlock(answered, catalog)
	list := domain.PendingList{
		Block:     block,
		Completed: s.plan.Completed(answered, catalog),
	}
	for _, id := range s.plan.PendingIDs(block, answered, catalog) {
		list.Challenges = append(list.Challenges, catalog[id])
	}
	return list, nil
}

// Ranking returns the scoreboard, best team first.
func (s *GameService) Ranking(ctx context.Context) ([]domain.RankingEntry, error) {
	roster, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.loadSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return s.plan.BuildRanking(roster, subs, catalog), nil
}

// TeamSummaries lists the roster in registration order with points.
func (s *GameService) TeamSummaries(ctx context.Context) ([]domain.TeamSummary, error) {
	roster, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.loadSubmissions(ctx)
	if err != nil {
		return nil, err
	}

	points := make(map[string]int)
	for _, sub := range subs {
		if sub.Status == domain.StatusValidated {
			points[sub.Team] += sub.Points
		}
	}
	summaries := make([]domain.TeamSummary, 0, len(roster))
	for _, t := range roster {
		summaries = append(summaries, domain.TeamSummary{
			Name:         t.Name,
			Submitter:    t.Submitter,
			Players:      t.Players,
			RegisteredAt: t.RegisteredAt,
			Points:       points[t.Name],
		})
	}
	return summaries, nil
}

// SubscribeRanking returns a channel that receives a fresh scoreboard after
// every accepted submission. The caller must invoke cancel to avoid leaks.
func (s *GameService) SubscribeRanking() (<-chan []domain.RankingEntry, func()) {
	ch := make(chan []domain.RankingEntry, 8)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *GameService) broadcastRanking() {
	s.subMu.Lock()
	n := len(s.subscribers)
	s.subMu.Unlock()
	if n == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		entries, err := s.Ranking(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("ranking broadcast skipped")
			return
		}

		s.subMu.Lock()
		defer s.subMu.Unlock()
		for ch := range s.subscribers {
			select {
			case ch <- entries:
			default:
				// Drop the stale snapshot so slow readers never block.
				select {
				case <-ch:
				default:
				}
				ch <- entries
			}
		}
	}()
}

// teamFor resolves a submitter identity to its team.
func (s *GameService) teamFor(ctx context.Context, submitter string) (domain.Team, error) {
	id := domain.NormalizeIdentity(submitter, "")
	if id == "" {
		return domain.Team{}, domain.ErrNotRegistered
	}
	roster, err := s.loadRoster(ctx)
	if err != nil {
		return domain.Team{}, err
	}
	for _, t := range roster {
		if t.Submitter == id {
			return t, nil
		}
	}
	return domain.Team{}, domain.ErrNotRegistered
}

// lockTeam serializes submissions per team so the duplicate check and the
// append cannot interleave for the same (team, challenge) pair.
func (s *GameService) lockTeam(name string) func() {
	s.mu.Lock()
	l, ok := s.teamLocks[name]
	if !ok {
		l = &sync.Mutex{}
		s.teamLocks[name] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *GameService) loadCatalog(ctx context.Context) (map[int]domain.Challenge, error) {
	var list []domain.Challenge
	err := s.withStore(ctx, "load catalog", func(ctx context.Context) error {
		var err error
		list, err = s.store.LoadCatalog(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	catalog := make(map[int]domain.Challenge, len(list))
	for _, ch := range list {
		catalog[ch.ID] = ch
	}
	return catalog, nil
}

func (s *GameService) loadRoster(ctx context.Context) ([]domain.Team, error) {
	var roster []domain.Team
	err := s.withStore(ctx, "load roster", func(ctx context.Context) error {
		var err error
		roster, err = s.store.LoadRoster(ctx)
		return err
	})
	return roster, err
}

func (s *GameService) loadSubmissions(ctx context.Context) ([]domain.Submission, error) {
	var subs []domain.Submission
	err := s.withStore(ctx, "load submissions", func(ctx context.Context) error {
		var err error
		subs, err = s.store.LoadSubmissions(ctx)
		return err
	})
	return subs, err
}

// withStore runs one store call with a bounded timeout, retrying with
// exponential backoff. Exhausted retries surface as ErrStoreUnavailable so
// transports render "try again" instead of a false negative.
func (s *GameService) withStore(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	backoff := s.backoff
	for attempt := 1; attempt <= s.retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < s.retries {
			s.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("store call failed, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, ctx.Err())
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
