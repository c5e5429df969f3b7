package flow

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/matzehuels/dopflow/pkg/tabulation"
)

func threeWay() ([]tabulation.Candidate, []tabulation.Round) {
	cands := []tabulation.Candidate{{"name": "A"}, {"name": "B"}, {"name": "C"}}
	rounds := []tabulation.Round{
		{Eliminated: tabulation.FirstPreferences, Votes: []float64{40, 35, 25}},
		{Eliminated: 2, Votes: []float64{10, 15, 0}},
	}
	return cands, rounds
}

func TestBuildThreeWay(t *testing.T) {
	cands, rounds := threeWay()
	g, err := Build(cands, rounds)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if g.TotalVotes != 100 {
		t.Errorf("TotalVotes = %g, want 100", g.TotalVotes)
	}
	if len(g.NodeGroups) != 2 {
		t.Fatalf("len(NodeGroups) = %d, want 2", len(g.NodeGroups))
	}
	if len(g.Nodes) != 5 {
		t.Errorf("len(Nodes) = %d, want 5", len(g.Nodes))
	}
	if len(g.Links) != 4 {
		t.Errorf("len(Links) = %d, want 4", len(g.Links))
	}

	r0 := g.NodeGroups[0]
	wantR0 := []struct {
		idx   int
		id    int
		votes float64
	}{{0, 0, 40}, {1, 1, 35}, {2, 2, 25}}
	for i, w := range wantR0 {
		n := r0[i]
		if n.CandidateIndex != w.idx || n.ID != w.id || n.Votes != w.votes {
			t.Errorf("round 0 [%d] = {idx %d id %d votes %g}, want {idx %d id %d votes %g}",
				i, n.CandidateIndex, n.ID, n.Votes, w.idx, w.id, w.votes)
		}
		if n.PrevNode != nil {
			t.Errorf("round 0 [%d] has PrevNode", i)
		}
	}

	r1 := g.NodeGroups[1]
	if len(r1) != 2 {
		t.Fatalf("round 1 has %d nodes, want 2", len(r1))
	}
	a, b := r1[0], r1[1]
	if a.Data.Name() != "A" || b.Data.Name() != "B" {
		t.Errorf("round 1 order = %s, %s; want A, B (stable tie)", a.Data.Name(), b.Data.Name())
	}
	if a.Votes != 50 || b.Votes != 50 {
		t.Errorf("round 1 votes = %g, %g; want 50, 50", a.Votes, b.Votes)
	}
	if a.ID != 3 || b.ID != 4 {
		t.Errorf("round 1 ids = %d, %d; want 3, 4", a.ID, b.ID)
	}
	if a.Value != a.Votes {
		t.Errorf("Value = %g, want %g", a.Value, a.Votes)
	}
	if a.VotePercentage != 50 {
		t.Errorf("VotePercentage = %g, want 50", a.VotePercentage)
	}
	if a.PrevNode != r0[0] || b.PrevNode != r0[1] {
		t.Error("round 1 PrevNode should point at the same candidate in round 0")
	}

	c0 := r0[2]
	wantLinks := []struct {
		source, target *Node
		votes          float64
		kind           LinkKind
	}{
		{c0, a, 10, Redistribution},
		{r0[0], a, 40, Continuation},
		{c0, b, 15, Redistribution},
		{r0[1], b, 35, Continuation},
	}
	for i, w := range wantLinks {
		l := g.Links[i]
		if l.Source != w.source || l.Target != w.target || l.Votes != w.votes || l.Kind != w.kind {
			t.Errorf("Links[%d] = %s %d->%d %g, want %s %d->%d %g",
				i, l.Kind, l.Source.ID, l.Target.ID, l.Votes, w.kind, w.source.ID, w.target.ID, w.votes)
		}
	}

	if len(c0.SourceLinks) != 2 {
		t.Errorf("eliminated node has %d source links, want 2", len(c0.SourceLinks))
	}
	if len(a.TargetLinks) != 2 || a.TargetLinks[0].Kind != Redistribution || a.TargetLinks[1].Kind != Continuation {
		t.Error("target links should be redistribution then continuation")
	}
	if got := a.Received(); got != 10 {
		t.Errorf("Received() = %g, want 10", got)
	}
	if got := r0[1].Received(); got != 35 {
		t.Errorf("first-round Received() = %g, want 35", got)
	}
	if w := g.Winner(); w != a {
		t.Errorf("Winner() = %v, want A", w.Label())
	}
	if g.Eliminated[0] != tabulation.FirstPreferences || g.Eliminated[1] != 2 {
		t.Errorf("Eliminated = %v, want [-1 2]", g.Eliminated)
	}
}

func TestBuildSharesCandidatePayload(t *testing.T) {
	cands, rounds := threeWay()
	g, err := Build(cands, rounds)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	cands[0]["name"] = "Alice"
	if g.NodeGroups[1][0].Data.Name() != "Alice" {
		t.Error("node data should reference the input candidate, not a copy")
	}
}

func TestBuildDoesNotModifyInput(t *testing.T) {
	cands, rounds := threeWay()
	if _, err := Build(cands, rounds); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rounds[1].Votes[0] != 10 || rounds[0].Votes[2] != 25 {
		t.Error("Build modified round votes")
	}
}

func TestBuildSingleRound(t *testing.T) {
	cands := []tabulation.Candidate{{"name": "A"}, {"name": "B"}}
	rounds := []tabulation.Round{{Eliminated: -1, Votes: []float64{3, 7}}}

	g, err := Build(cands, rounds)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Links) != 0 {
		t.Errorf("len(Links) = %d, want 0", len(g.Links))
	}
	if len(g.NodeGroups) != 1 {
		t.Fatalf("len(NodeGroups) = %d, want 1", len(g.NodeGroups))
	}
	for _, n := range g.Nodes {
		if n.PrevNode != nil {
			t.Errorf("node %d has PrevNode", n.ID)
		}
	}
	if g.Nodes[0].CandidateIndex != 1 {
		t.Error("group should be sorted by descending votes")
	}
	if g.Nodes[0].ID != 1 {
		t.Errorf("sorting renumbered ids: got %d, want 1", g.Nodes[0].ID)
	}
}

func TestBuildZeroRedistributionLinkKept(t *testing.T) {
	cands := []tabulation.Candidate{{"name": "A"}, {"name": "B"}, {"name": "C"}}
	rounds := []tabulation.Round{
		{Eliminated: -1, Votes: []float64{50, 30, 20}},
		{Eliminated: 2, Votes: []float64{20, 0, 0}},
	}
	g, err := Build(cands, rounds)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var b *Node
	for _, n := range g.NodeGroups[1] {
		if n.CandidateIndex == 1 {
			b = n
		}
	}
	if b == nil {
		t.Fatal("B missing from round 1")
	}
	if len(b.TargetLinks) != 2 {
		t.Fatalf("B has %d incoming links, want 2", len(b.TargetLinks))
	}
	if b.TargetLinks[0].Kind != Redistribution || b.TargetLinks[0].Votes != 0 {
		t.Errorf("zero-vote redistribution link = %+v", b.TargetLinks[0])
	}
}

func TestBuildErrors(t *testing.T) {
	cands := []tabulation.Candidate{{"name": "A"}, {"name": "B"}, {"name": "C"}}
	first := tabulation.Round{Eliminated: -1, Votes: []float64{40, 35, 25}}

	tests := []struct {
		name   string
		rounds []tabulation.Round
		want   error
	}{
		{"Empty", nil, ErrEmptyFlow},
		{"FirstRoundEliminates", []tabulation.Round{{Eliminated: 1, Votes: []float64{1, 1, 1}}}, ErrFirstRound},
		{"LaterFirstPreferences", []tabulation.Round{first, {Eliminated: -1, Votes: []float64{0, 0, 0}}}, ErrFirstRound},
		{"ShortVotes", []tabulation.Round{{Eliminated: -1, Votes: []float64{1, 1}}}, ErrVoteCount},
		{"LongVotes", []tabulation.Round{first, {Eliminated: 2, Votes: []float64{1, 1, 1, 1}}}, ErrVoteCount},
		{"OutOfRange", []tabulation.Round{first, {Eliminated: 5, Votes: []float64{0, 0, 0}}}, ErrInconsistentRound},
		{"EliminatedTwice", []tabulation.Round{
			first,
			{Eliminated: 2, Votes: []float64{10, 15, 0}},
			{Eliminated: 2, Votes: []float64{0, 0, 0}},
		}, ErrInconsistentRound},
		{"ZeroTotal", []tabulation.Round{{Eliminated: -1, Votes: []float64{0, 0, 0}}}, ErrZeroTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Build(cands, tt.rounds)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Build error = %v, want %v", err, tt.want)
			}
			if g != nil {
				t.Error("Build should not return a partial graph")
			}
		})
	}
}

// randomCount generates a well-formed count: every elimination transfers the
// eliminated candidate's full cumulative total to the survivors.
func randomCount(r *rand.Rand) ([]tabulation.Candidate, []tabulation.Round) {
	n := 2 + r.IntN(7)
	cands := make([]tabulation.Candidate, n)
	totals := make([]float64, n)
	first := make([]float64, n)
	for i := range cands {
		cands[i] = tabulation.Candidate{"name": string(rune('A' + i))}
		first[i] = float64(r.IntN(100))
		totals[i] = first[i]
	}
	first[0]++
	totals[0]++

	rounds := []tabulation.Round{{Eliminated: -1, Votes: first}}
	standing := make([]int, n)
	for i := range standing {
		standing[i] = i
	}
	for len(standing) > 1 && r.IntN(10) > 0 {
		k := r.IntN(len(standing))
		out := standing[k]
		standing = append(standing[:k:k], standing[k+1:]...)

		votes := make([]float64, n)
		remaining := int(totals[out])
		for j, idx := range standing {
			share := remaining
			if j < len(standing)-1 {
				share = r.IntN(remaining + 1)
			}
			votes[idx] = float64(share)
			totals[idx] += float64(share)
			remaining -= share
		}
		totals[out] = 0
		rounds = append(rounds, tabulation.Round{Eliminated: out, Votes: votes})
	}
	return cands, rounds
}

func TestBuildProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 42))
	for iter := 0; iter < 200; iter++ {
		cands, rounds := randomCount(r)
		g, err := Build(cands, rounds)
		if err != nil {
			t.Fatalf("iteration %d: Build: %v", iter, err)
		}

		// Conservation
		for ri, group := range g.NodeGroups {
			var sum float64
			for _, n := range group {
				sum += n.Votes
			}
			if math.Abs(sum-g.TotalVotes) > 1e-9 {
				t.Fatalf("iteration %d: round %d sums to %g, want %g", iter, ri, sum, g.TotalVotes)
			}
		}

		// Monotonic cumulative votes and incoming link shape
		for _, n := range g.Nodes {
			if n.PrevNode == nil {
				if n.Round != 0 || len(n.TargetLinks) != 0 {
					t.Fatalf("iteration %d: node %d lacks PrevNode outside round 0", iter, n.ID)
				}
				continue
			}
			if n.Votes < n.PrevNode.Votes {
				t.Fatalf("iteration %d: node %d votes %g < previous %g", iter, n.ID, n.Votes, n.PrevNode.Votes)
			}
			if len(n.TargetLinks) != 2 {
				t.Fatalf("iteration %d: node %d has %d incoming links", iter, n.ID, len(n.TargetLinks))
			}
		}

		// Id uniqueness and creation order
		seen := make(map[int]bool, len(g.Nodes))
		for _, n := range g.Nodes {
			if seen[n.ID] {
				t.Fatalf("iteration %d: duplicate id %d", iter, n.ID)
			}
			seen[n.ID] = true
		}
		for _, a := range g.Nodes {
			for _, b := range g.Nodes {
				created := a.Round < b.Round || (a.Round == b.Round && a.CandidateIndex < b.CandidateIndex)
				if created && a.ID >= b.ID {
					t.Fatalf("iteration %d: id %d created before id %d", iter, a.ID, b.ID)
				}
			}
		}

		// Elimination exclusivity
		gone := make(map[int]bool)
		for ri, group := range g.NodeGroups {
			if ri > 0 {
				gone[rounds[ri].Eliminated] = true
			}
			inRound := make(map[int]bool)
			for _, n := range group {
				if gone[n.CandidateIndex] {
					t.Fatalf("iteration %d: eliminated candidate %d in round %d", iter, n.CandidateIndex, ri)
				}
				if inRound[n.CandidateIndex] {
					t.Fatalf("iteration %d: candidate %d twice in round %d", iter, n.CandidateIndex, ri)
				}
				inRound[n.CandidateIndex] = true
			}
		}

		// Group ordering
		for ri, group := range g.NodeGroups {
			for i := 1; i < len(group); i++ {
				if group[i].Votes > group[i-1].Votes {
					t.Fatalf("iteration %d: round %d not sorted at %d", iter, ri, i)
				}
				if group[i].Votes == group[i-1].Votes && group[i].CandidateIndex < group[i-1].CandidateIndex {
					t.Fatalf("iteration %d: round %d tie not stable at %d", iter, ri, i)
				}
			}
		}

		// Percentage correctness
		for _, n := range g.Nodes {
			want := n.Votes / g.TotalVotes * 100
			if math.Abs(n.VotePercentage-want) >= 1e-9 {
				t.Fatalf("iteration %d: node %d percentage %g, want %g", iter, n.ID, n.VotePercentage, want)
			}
		}

		// Flat list is the concatenation of groups
		i := 0
		for _, group := range g.NodeGroups {
			for _, n := range group {
				if g.Nodes[i] != n {
					t.Fatalf("iteration %d: Nodes[%d] does not match group order", iter, i)
				}
				i++
			}
		}
	}
}

func TestGraphAccessors(t *testing.T) {
	cands, rounds := threeWay()
	g, err := Build(cands, rounds)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if g.RoundCount() != 2 {
		t.Errorf("RoundCount() = %d, want 2", g.RoundCount())
	}
	if g.Round(2) != nil || g.Round(-1) != nil {
		t.Error("Round out of range should be nil")
	}
	n, ok := g.NodeByID(4)
	if !ok || n.Label() != "B" || n.Round != 1 {
		t.Errorf("NodeByID(4) = %v, %v", n, ok)
	}
	if _, ok := g.NodeByID(99); ok {
		t.Error("NodeByID(99) should miss")
	}

	elims := g.Eliminations()
	if !slices.Equal(elims, []int{-1, 2}) {
		t.Errorf("Eliminations() = %v, want [-1 2]", elims)
	}
	elims[1] = 0
	if g.Eliminated[1] != 2 {
		t.Error("Eliminations() shares storage with the graph")
	}

	if LinkKind(Continuation).String() != "continuation" || Redistribution.String() != "redistribution" {
		t.Error("LinkKind.String mismatch")
	}
}

func BenchmarkBuild(b *testing.B) {
	r := rand.New(rand.NewPCG(1, 2))
	cands, rounds := randomCount(r)
	for b.Loop() {
		if _, err := Build(cands, rounds); err != nil {
			b.Fatal(err)
		}
	}
}
