package generator

import (
	"math/rand"

	"go-redflag-detector/pkg/models"
)

// RandSource picks a uniform integer in [0, n)
type RandSource interface {
	Intn(n int) int
}

// globalRand uses the package-level math/rand functions, which are safe for concurrent use
type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// Generator builds fallback verdicts from the static tables
type Generator struct {
	rnd RandSource
}

// New returns a generator; a nil source falls back to math/rand
func New(rnd RandSource) *Generator {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Generator{rnd: rnd}
}

// Generate always succeeds. Draws happen in a fixed order (score, category,
// comment, illustration) so seeded sources give reproducible verdicts.
func (g *Generator) Generate() models.Verdict {
	return models.Verdict{
		Score:        MinScore + g.rnd.Intn(MaxScore-MinScore+1),
		Type:         pick(g.rnd, Categories),
		Comment:      pick(g.rnd, Comments),
		Illustration: pick(g.rnd, Illustrations),
		Source:       models.SourceSynthetic,
	}
}

// IsCategory reports whether t is one of the synthetic flag types
func IsCategory(t string) bool {
	for _, c := range Categories {
		if c == t {
			return true
		}
	}
	return false
}

func pick(rnd RandSource, items []string) string {
	return items[rnd.Intn(len(items))]
}
