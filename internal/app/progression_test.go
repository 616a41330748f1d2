package app

import (
	"reflect"
	"testing"
	"time"

	"ginkana-service/internal/domain"
)

func catalogOf(ids ...int) map[int]domain.Challenge {
	catalog := make(map[int]domain.Challenge, len(ids))
	for _, id := range ids {
		catalog[id] = domain.Challenge{ID: id, Type: domain.TypeTrivia, Points: 10, Answer: "x"}
	}
	return catalog
}

func rangeIDs(lo, hi int) []int {
	var ids []int
	for id := lo; id <= hi; id++ {
		ids = append(ids, id)
	}
	return ids
}

func answeredOf(ids ...int) map[int]domain.Status {
	answered := make(map[int]domain.Status, len(ids))
	for _, id := range ids {
		answered[id] = domain.StatusValidated
	}
	return answered
}

func TestCurrentBlockAdvancesOnlyWhenRangeComplete(t *testing.T) {
	plan := NewBlockPlan(10, 3, nil)
	catalog := catalogOf(rangeIDs(1, 30)...)

	if got := plan.CurrentBlock(answeredOf(), catalog); got != 1 {
		t.Fatalf("fresh team should be in block 1, got %d", got)
	}
	if got := plan.CurrentBlock(answeredOf(rangeIDs(1, 9)...), catalog); got != 1 {
		t.Fatalf("nine answers should keep block 1, got %d", got)
	}
	if got := plan.CurrentBlock(answeredOf(rangeIDs(1, 10)...), catalog); got != 2 {
		t.Fatalf("full first range should unlock block 2, got %d", got)
	}
	if got := plan.CurrentBlock(answeredOf(rangeIDs(1, 20)...), catalog); got != 3 {
		t.Fatalf("two full ranges should unlock block 3, got %d", got)
	}
}

func TestSkippingAheadDoesNotUnlock(t *testing.T) {
	plan := NewBlockPlan(10, 3, nil)
	catalog := catalogOf(rangeIDs(1, 30)...)

	// Answers in block 2's range do nothing while block 1 is open.
	answered := answeredOf(11, 12, 13, 14, 15, 16, 17, 18, 19, 20)
	if got := plan.CurrentBlock(answered, catalog); got != 1 {
		t.Fatalf("block 1 incomplete, expected 1, got %d", got)
	}
}

func TestAnyStatusCountsAsAnswered(t *testing.T) {
	plan := NewBlockPlan(2, 2, nil)
	catalog := catalogOf(1, 2, 3, 4)
	answered := map[int]domain.Status{
		1: domain.StatusIncorrect,
		2: domain.StatusPending,
	}
	if got := plan.CurrentBlock(answered, catalog); got != 2 {
		t.Fatalf("wrong and pending answers still complete a block, got %d", got)
	}
}

func TestShortCatalogDoesNotWedgeBlock(t *testing.T) {
	plan := NewBlockPlan(10, 2, nil)
	// Only eight challenges exist in block 1's nominal 1-10 range.
	catalog := catalogOf(rangeIDs(1, 8)...)
	if got := plan.CurrentBlock(answeredOf(rangeIDs(1, 8)...), catalog); got != 2 {
		t.Fatalf("missing catalog ids must not block progression, got %d", got)
	}
}

func TestPendingIDsAscendingAndCatalogOnly(t *testing.T) {
	plan := NewBlockPlan(10, 1, nil)
	catalog := catalogOf(1, 2, 3, 5, 7)
	answered := answeredOf(2, 5)

	got := plan.PendingIDs(1, answered, catalog)
	want := []int{1, 3, 7}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("pending ids = %v, want %v", got, want)
	}
}

func TestCompletedRequiresFinalChallenges(t *testing.T) {
	plan := NewBlockPlan(2, 1, []int{9})
	catalog := catalogOf(1, 2, 9)

	if plan.Completed(answeredOf(1, 2), catalog) {
		t.Fatalf("closing challenge still open, should not be completed")
	}
	if !plan.Completed(answeredOf(1, 2, 9), catalog) {
		t.Fatalf("all ids answered, should be completed")
	}
}

func TestCurrentBlockNeverRegresses(t *testing.T) {
	plan := NewBlockPlan(10, 3, nil)
	catalog := catalogOf(rangeIDs(1, 30)...)

	answered := answeredOf()
	last := 0
	for id := 1; id <= 30; id++ {
		answered[id] = domain.StatusIncorrect
		block := plan.CurrentBlock(answered, catalog)
		if block < last {
			t.Fatalf("block regressed from %d to %d after answering %d", last, block, id)
		}
		last = block
	}
}

func TestBuildRankingTotalsAndOrder(t *testing.T) {
	plan := NewBlockPlan(10, 1, nil)
	catalog := catalogOf(rangeIDs(1, 3)...)
	base := time.Date(2025, 9, 28, 11, 0, 0, 0, time.UTC)
	teams := []domain.Team{{Name: "Foxes"}, {Name: "Owls"}, {Name: "Moles"}}
	subs := []domain.Submission{
		{Team: "Foxes", ChallengeID: 1, Points: 10, Status: domain.StatusValidated, SubmittedAt: base},
		{Team: "Foxes", ChallengeID: 2, Points: 0, Status: domain.StatusIncorrect, SubmittedAt: base.Add(time.Minute)},
		{Team: "Owls", ChallengeID: 1, Points: 10, Status: domain.StatusValidated, SubmittedAt: base},
		{Team: "Owls", ChallengeID: 2, Points: 10, Status: domain.StatusValidated, SubmittedAt: base.Add(2 * time.Minute)},
		{Team: "Owls", ChallengeID: 3, Points: 0, Status: domain.StatusPending, SubmittedAt: base.Add(3 * time.Minute)},
	}

	entries := plan.BuildRanking(teams, subs, catalog)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Team != "Owls" || entries[0].Points != 20 || entries[0].Correct != 2 || entries[0].Answered != 3 {
		t.Fatalf("unexpected leader: %+v", entries[0])
	}
	if entries[0].FinishedAt.IsZero() || !entries[0].FinishedAt.Equal(base.Add(3*time.Minute)) {
		t.Fatalf("expected finish time of the last answer, got %v", entries[0].FinishedAt)
	}
	if entries[1].Team != "Foxes" || entries[1].Points != 10 || !entries[1].FinishedAt.IsZero() {
		t.Fatalf("unexpected second place: %+v", entries[1])
	}
	if entries[2].Team != "Moles" || entries[2].Points != 0 || entries[2].Answered != 0 {
		t.Fatalf("unexpected last place: %+v", entries[2])
	}
}

func TestBuildRankingPendingAndIncorrectScoreZero(t *testing.T) {
	plan := NewBlockPlan(10, 1, nil)
	catalog := catalogOf(rangeIDs(1, 10)...)
	subs := []domain.Submission{
		{Team: "Foxes", ChallengeID: 1, Points: 0, Status: domain.StatusIncorrect},
		{Team: "Foxes", ChallengeID: 2, Points: 0, Status: domain.StatusPending},
	}

	entries := plan.BuildRanking([]domain.Team{{Name: "Foxes"}}, subs, catalog)
	if entries[0].Points != 0 || entries[0].Correct != 0 || entries[0].Answered != 2 {
		t.Fatalf("expected zero points with two answers, got %+v", entries[0])
	}
}
