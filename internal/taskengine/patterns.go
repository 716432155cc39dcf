package taskengine

import (
	"sort"
	"time"

	"github.com/cloi-dev/hub/internal/hubcore"
)

// CoordinationPattern is one value in the closed variant set of ways a
// task dispatches work to its participants and merges their
// contributions into a result. Adding a fourth pattern means adding
// one more value here, not touching the engine's dispatch logic.
type CoordinationPattern interface {
	Name() hubcore.CoordinationPatternName

	// Initiate turns the set of capability-matched agents into the
	// task's initial Participant list.
	Initiate(agents []hubcore.AgentRecord) []hubcore.Participant

	// Merge inspects the task's current Participants and decides
	// whether enough contributions are in to produce a final result.
	// reached is false when Merge should be called again after more
	// contributions arrive.
	Merge(task *hubcore.Task) (result any, reached bool, err error)
}

// Vote is the Contribution shape expected from each participant under
// the consensus pattern.
type Vote struct {
	Proposal string  `json:"proposal"`
	Score    float64 `json:"score"`
}

func patternByName(name hubcore.CoordinationPatternName, consensusThreshold float64) (CoordinationPattern, bool) {
	switch name {
	case hubcore.PatternPeerToPeer:
		return peerToPeerPattern{}, true
	case hubcore.PatternHierarchical:
		return hierarchicalPattern{}, true
	case hubcore.PatternConsensus:
		return consensusPattern{threshold: consensusThreshold}, true
	default:
		return nil, false
	}
}

// peerToPeerPattern invites every matched agent as an equal and merges
// once all of them have contributed, concatenating contributions in
// participant order.
type peerToPeerPattern struct{}

func (peerToPeerPattern) Name() hubcore.CoordinationPatternName { return hubcore.PatternPeerToPeer }

func (peerToPeerPattern) Initiate(agents []hubcore.AgentRecord) []hubcore.Participant {
	out := make([]hubcore.Participant, 0, len(agents))
	for _, a := range agents {
		out = append(out, hubcore.Participant{Identity: a.Identity})
	}
	return out
}

func (peerToPeerPattern) Merge(task *hubcore.Task) (any, bool, error) {
	if len(task.Participants) == 0 {
		return nil, false, nil
	}
	contributions := make([]any, 0, len(task.Participants))
	for _, p := range task.Participants {
		if p.SubmittedAt.IsZero() {
			return nil, false, nil
		}
		contributions = append(contributions, p.Contribution)
	}
	return contributions, true, nil
}

// hierarchicalPattern appoints the first matched agent as leader; the
// task merges as soon as the leader contributes, regardless of the
// other participants.
type hierarchicalPattern struct{}

func (hierarchicalPattern) Name() hubcore.CoordinationPatternName { return hubcore.PatternHierarchical }

func (hierarchicalPattern) Initiate(agents []hubcore.AgentRecord) []hubcore.Participant {
	out := make([]hubcore.Participant, 0, len(agents))
	for _, a := range agents {
		out = append(out, hubcore.Participant{Identity: a.Identity})
	}
	return out
}

func (hierarchicalPattern) Merge(task *hubcore.Task) (any, bool, error) {
	if len(task.Participants) == 0 {
		return nil, false, nil
	}
	leader := task.Participants[0]
	if leader.SubmittedAt.IsZero() {
		return nil, false, nil
	}
	return leader.Contribution, true, nil
}

// consensusPattern waits until every participant has voted, then sums
// each proposal's vote scores and declares a winner if one proposal's
// share of the total score reaches threshold. Ties for the winning
// proposal are broken by whichever vote arrived first.
type consensusPattern struct {
	threshold float64
}

func (consensusPattern) Name() hubcore.CoordinationPatternName { return hubcore.PatternConsensus }

func (consensusPattern) Initiate(agents []hubcore.AgentRecord) []hubcore.Participant {
	out := make([]hubcore.Participant, 0, len(agents))
	for _, a := range agents {
		out = append(out, hubcore.Participant{Identity: a.Identity})
	}
	return out
}

func (c consensusPattern) Merge(task *hubcore.Task) (any, bool, error) {
	type tally struct {
		proposal string
		score    float64
		firstAt  time.Time // arrival of the first vote for this proposal, for tie-break
		firstIdx int       // participant order of that vote, if arrivals are equal
	}
	votes := make(map[string]*tally)
	var total float64
	order := 0
	allIn := true

	for _, p := range task.Participants {
		if p.SubmittedAt.IsZero() {
			allIn = false
			continue
		}
		vote, ok := asVote(p.Contribution)
		if !ok {
			return nil, false, hubcore.NewError(hubcore.KindInvalidParams, "consensus contribution is not a vote")
		}
		total += vote.Score
		t, exists := votes[vote.Proposal]
		if !exists {
			votes[vote.Proposal] = &tally{proposal: vote.Proposal, score: vote.Score, firstAt: p.SubmittedAt, firstIdx: order}
		} else {
			t.score += vote.Score
			if p.SubmittedAt.Before(t.firstAt) {
				t.firstAt, t.firstIdx = p.SubmittedAt, order
			}
		}
		order++
	}

	if !allIn {
		return nil, false, nil
	}
	if total == 0 {
		return nil, true, hubcore.NewError(hubcore.KindConsensusNotReached, "no votes carried any weight")
	}

	tallies := make([]*tally, 0, len(votes))
	for _, t := range votes {
		tallies = append(tallies, t)
	}
	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].score != tallies[j].score {
			return tallies[i].score > tallies[j].score
		}
		if !tallies[i].firstAt.Equal(tallies[j].firstAt) {
			return tallies[i].firstAt.Before(tallies[j].firstAt)
		}
		return tallies[i].firstIdx < tallies[j].firstIdx
	})

	winner := tallies[0]
	if winner.score/total >= c.threshold {
		return Vote{Proposal: winner.proposal, Score: winner.score}, true, nil
	}
	return nil, true, hubcore.NewError(hubcore.KindConsensusNotReached, "no proposal crossed the consensus threshold")
}

func asVote(contribution any) (Vote, bool) {
	switch v := contribution.(type) {
	case Vote:
		return v, true
	case *Vote:
		if v == nil {
			return Vote{}, false
		}
		return *v, true
	default:
		return Vote{}, false
	}
}
