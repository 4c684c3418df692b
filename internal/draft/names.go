package draft

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

var (
	teamAdjectives = []string{
		"Rusty", "Midnight", "Thunder", "Copper", "Salty", "Golden",
		"Crimson", "Prairie", "Harbor", "Electric", "Granite", "Velvet",
	}
	teamNouns = []string{
		"Sluggers", "Pelicans", "Stingrays", "Bison", "Comets", "Foxes",
		"Lumberjacks", "Owls", "Mariners", "Hornets", "Cyclones", "Otters",
	}
	draftThemes = []string{
		"Opening Day", "Spring Training", "Dog Days", "Pennant Race", "Hot Stove", "Bullpen",
	}
)

// NameGenerator produces team names, draft names and strategy picks from a
// seeded source. It is safe for concurrent use.
type NameGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNameGenerator returns a generator seeded with seed.
func NewNameGenerator(seed uint64) *NameGenerator {
	return &NameGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// TeamNames returns n names that are unique case-insensitively.
func (g *NameGenerator) TeamNames(n int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(names) < n {
		name := teamAdjectives[g.rng.IntN(len(teamAdjectives))] + " " + teamNouns[g.rng.IntN(len(teamNouns))]
		if seen[strings.ToLower(name)] {
			if len(seen) < len(teamAdjectives)*len(teamNouns) {
				continue
			}
			name = fmt.Sprintf("%s %d", name, len(names)+1)
		}
		seen[strings.ToLower(name)] = true
		names = append(names, name)
	}
	return names
}

// DraftName returns a display name for a new draft.
func (g *NameGenerator) DraftName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s Draft #%d", draftThemes[g.rng.IntN(len(draftThemes))], g.rng.IntN(900)+100)
}

// Strategy picks one of strategies uniformly.
func (g *NameGenerator) Strategy(strategies []string) string {
	if len(strategies) == 0 {
		return ""
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return strategies[g.rng.IntN(len(strategies))]
}
