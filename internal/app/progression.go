package app

import (
	"sort"
	"time"

	"ginkana-service/internal/domain"
)

// BlockPlan fixes the ordered, contiguous challenge-id ranges teams unlock
// in sequence, plus the trailing closing ids answered after the last block.
// Blocks are strict: block N+1 is reachable only once every catalog id in
// block N's range has a submission, whatever its status.
type BlockPlan struct {
	blockSize  int
	blockCount int
	finalIDs   []int
}

// NewBlockPlan builds a plan of blockCount ranges of blockSize ids starting
// at 1. Zero values fall back to the classic 3 blocks of 10.
func NewBlockPlan(blockSize, blockCount int, finalIDs []int) BlockPlan {
	if blockSize <= 0 {
		blockSize = 10
	}
	if blockCount <= 0 {
		blockCount = 3
	}
	ids := make([]int, len(finalIDs))
	copy(ids, finalIDs)
	sort.Ints(ids)
	return BlockPlan{blockSize: blockSize, blockCount: blockCount, finalIDs: ids}
}

// Blocks returns the number of sequential blocks in the plan.
func (p BlockPlan) Blocks() int { return p.blockCount }

// BlockRange returns the inclusive id range of a 1-based block number.
func (p BlockPlan) BlockRange(block int) (lo, hi int) {
	lo = (block-1)*p.blockSize + 1
	return lo, lo + p.blockSize - 1
}

// AnsweredSet collects the challenge ids a team has submitted, any status.
func AnsweredSet(subs []domain.Submission, team string) map[int]domain.Status {
	answered := make(map[int]domain.Status)
	for _, sub := range subs {
		if sub.Team == team {
			answered[sub.ChallengeID] = sub.Status
		}
	}
	return answered
}

// CurrentBlock derives the lowest block that still has an open challenge.
// Ids missing from the catalog do not count toward a range, so a catalog
// shorter than the nominal range cannot wedge a block forever.
func (p BlockPlan) CurrentBlock(answered map[int]domain.Status, catalog map[int]domain.Challenge) int {
	for block := 1; block < p.blockCount; block++ {
		if !p.blockDone(block, answered, catalog) {
			return block
		}
	}
	return p.blockCount
}

// Completed reports the terminal state: every block range and every closing
// id present in the catalog has been answered.
func (p BlockPlan) Completed(answered map[int]domain.Status, catalog map[int]domain.Challenge) bool {
	for block := 1; block <= p.blockCount; block++ {
		if !p.blockDone(block, answered, catalog) {
			return false
		}
	}
	for _, id := range p.finalIDs {
		if _, inCatalog := catalog[id]; !inCatalog {
			continue
		}
		if _, ok := answered[id]; !ok {
			return false
		}
	}
	return true
}

// PendingIDs lists the catalog ids of a block not yet answered, ascending.
func (p BlockPlan) PendingIDs(block int, answered map[int]domain.Status, catalog map[int]domain.Challenge) []int {
	lo, hi := p.BlockRange(block)
	var ids []int
	for id := lo; id <= hi; id++ {
		if _, inCatalog := catalog[id]; !inCatalog {
			continue
		}
		if _, ok := answered[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (p BlockPlan) blockDone(block int, answered map[int]domain.Status, catalog map[int]domain.Challenge) bool {
	lo, hi := p.BlockRange(block)
	for id := lo; id <= hi; id++ {
		if _, inCatalog := catalog[id]; !inCatalog {
			continue
		}
		if _, ok := answered[id]; !ok {
			return false
		}
	}
	return true
}

// allIDs returns every planned id present in the catalog.
func (p BlockPlan) allIDs(catalog map[int]domain.Challenge) []int {
	_, hi := p.BlockRange(p.blockCount)
	var ids []int
	for id := 1; id <= hi; id++ {
		if _, ok := catalog[id]; ok {
			ids = append(ids, id)
		}
	}
	for _, id := range p.finalIDs {
		if _, ok := catalog[id]; ok && id > hi {
			ids = append(ids, id)
		}
	}
	return ids
}

// BuildRanking folds the ledger into per-team totals. Only VALIDATED rows
// score; INCORRECT and PENDING rows count as answered but add nothing.
// Teams that answered every planned catalog id get a finish time: the
// timestamp of their latest submission.
func (p BlockPlan) BuildRanking(teams []domain.Team, subs []domain.Submission, catalog map[int]domain.Challenge) []domain.RankingEntry {
	type acc struct {
		entry    domain.RankingEntry
		answered map[int]time.Time
	}
	byTeam := make(map[string]*acc)
	for _, t := range teams {
		byTeam[t.Name] = &acc{
			entry:    domain.RankingEntry{Team: t.Name},
			answered: make(map[int]time.Time),
		}
	}
	for _, sub := range subs {
		a, ok := byTeam[sub.Team]
		if !ok {
			// Ledger rows for unregistered names still rank; the sheet
			// is the source of truth.
			a = &acc{
				entry:    domain.RankingEntry{Team: sub.Team},
				answered: make(map[int]time.Time),
			}
			byTeam[sub.Team] = a
		}
		a.entry.Answered++
		a.answered[sub.ChallengeID] = sub.SubmittedAt
		if sub.Status == domain.StatusValidated {
			a.entry.Points += sub.Points
			a.entry.Correct++
		}
	}

	planned := p.allIDs(catalog)
	entries := make([]domain.RankingEntry, 0, len(byTeam))
	for _, a := range byTeam {
		if len(planned) > 0 {
			finished := true
			var last time.Time
			for _, id := range planned {
				at, ok := a.answered[id]
				if !ok {
					finished = false
					break
				}
				if at.After(last) {
					last = at
				}
			}
			if finished {
				a.entry.FinishedAt = last
			}
		}
		entries = append(entries, a.entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		fi, fj := entries[i].FinishedAt, entries[j].FinishedAt
		if !fi.IsZero() || !fj.IsZero() {
			if fi.IsZero() != fj.IsZero() {
				return !fi.IsZero()
			}
			if !fi.Equal(fj) {
				return fi.Before(fj)
			}
		}
		return entries[i].Team < entries[j].Team
	})
	return entries
}
