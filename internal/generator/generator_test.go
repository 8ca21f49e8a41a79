package generator

import (
	"math/rand"
	"testing"

	"go-redflag-detector/pkg/models"
)

// sequenceRand replays fixed draws, clamped into range
type sequenceRand struct {
	values []int
	calls  []int
}

func (s *sequenceRand) Intn(n int) int {
	s.calls = append(s.calls, n)
	v := s.values[(len(s.calls)-1)%len(s.values)]
	if v >= n {
		v = n - 1
	}
	return v
}

func TestGenerate_DeterministicSource(t *testing.T) {
	src := &sequenceRand{values: []int{45, 3, 8, 5}}
	v := New(src).Generate()

	if v.Score != 85 {
		t.Errorf("Expected score 85, got %d", v.Score)
	}
	if v.Type != Categories[3] {
		t.Errorf("Expected %q, got %q", Categories[3], v.Type)
	}
	if v.Comment != Comments[8] {
		t.Errorf("Expected %q, got %q", Comments[8], v.Comment)
	}
	if v.Illustration != Illustrations[5] {
		t.Errorf("Expected %q, got %q", Illustrations[5], v.Illustration)
	}
	if v.Advice != "" {
		t.Error("Synthetic verdicts never carry advice")
	}
	if v.Source != models.SourceSynthetic {
		t.Errorf("Expected synthetic source, got %s", v.Source)
	}

	wantBounds := []int{60, len(Categories), len(Comments), len(Illustrations)}
	for i, n := range wantBounds {
		if src.calls[i] != n {
			t.Errorf("Draw %d: expected Intn(%d), got Intn(%d)", i, n, src.calls[i])
		}
	}
}

func TestGenerate_ScoreBounds(t *testing.T) {
	low := New(&sequenceRand{values: []int{0}}).Generate()
	if low.Score != MinScore {
		t.Errorf("Expected minimum score %d, got %d", MinScore, low.Score)
	}
	high := New(&sequenceRand{values: []int{1000}}).Generate()
	if high.Score != MaxScore {
		t.Errorf("Expected maximum score %d, got %d", MaxScore, high.Score)
	}
}

func TestGenerate_RandomStaysInTables(t *testing.T) {
	g := New(rand.New(rand.NewSource(42)))
	for i := 0; i < 500; i++ {
		v := g.Generate()
		if v.Score < MinScore || v.Score > MaxScore {
			t.Fatalf("Score %d out of range", v.Score)
		}
		if !IsCategory(v.Type) {
			t.Fatalf("Unexpected category %q", v.Type)
		}
		if v.Comment == "" || v.Illustration == "" {
			t.Fatal("Expected comment and illustration to be set")
		}
	}
}

func TestNew_NilSourceUsesGlobal(t *testing.T) {
	v := New(nil).Generate()
	if !IsCategory(v.Type) {
		t.Errorf("Unexpected category %q", v.Type)
	}
}

func TestTables(t *testing.T) {
	if len(Categories) != 8 {
		t.Errorf("Expected 8 categories, got %d", len(Categories))
	}
	if len(Comments) != 9 || len(Illustrations) != 6 {
		t.Errorf("Unexpected table sizes: comments=%d illustrations=%d", len(Comments), len(Illustrations))
	}
	if IsCategory("Ghosting") {
		t.Error("Ghosting is not a synthetic category")
	}
}
