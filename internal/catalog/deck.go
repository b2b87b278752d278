package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DeckSize is the exact number of main-deck cards in a legal decklist.
	DeckSize = 50
	// MaxCopies is the per-id copy limit in the main deck.
	MaxCopies = 4
)

// Decklist names a leader and the ordered main-deck card ids.
type Decklist struct {
	Name   string   `yaml:"name"`
	Leader string   `yaml:"leader"`
	Cards  []string `yaml:"cards"`
}

// decklistFile is the top-level YAML structure of a decklist file.
type decklistFile struct {
	Decks []Decklist `yaml:"decks"`
}

// LoadDecklists parses a YAML decklist file.
func LoadDecklists(path string) ([]Decklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file decklistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse decklist YAML %s: %w", path, err)
	}
	return file.Decks, nil
}

// ValidateDecklist checks deck construction rules against this catalog:
// a known leader, exactly DeckSize known non-leader cards, at most
// MaxCopies per id, and color identity within the leader's colors.
// Effect keys are checked by the engine at match creation.
func (c *Catalog) ValidateDecklist(d Decklist) error {
	leader, ok := c.Lookup(d.Leader)
	if !ok {
		return fmt.Errorf("decklist %s: unknown leader %s", d.Name, d.Leader)
	}
	if leader.Category != CategoryLeader {
		return fmt.Errorf("decklist %s: %s is not a leader", d.Name, d.Leader)
	}
	if len(d.Cards) != DeckSize {
		return fmt.Errorf("decklist %s: %d cards, want %d", d.Name, len(d.Cards), DeckSize)
	}

	leaderColors := make(map[string]bool, len(leader.Colors))
	for _, color := range leader.Colors {
		leaderColors[color] = true
	}

	copies := make(map[string]int)
	for _, id := range d.Cards {
		card, ok := c.Lookup(id)
		if !ok {
			return fmt.Errorf("decklist %s: unknown card %s", d.Name, id)
		}
		if card.Category == CategoryLeader {
			return fmt.Errorf("decklist %s: leader %s in main deck", d.Name, id)
		}
		copies[id]++
		if copies[id] > MaxCopies {
			return fmt.Errorf("decklist %s: more than %d copies of %s", d.Name, MaxCopies, id)
		}
		matched := false
		for _, color := range card.Colors {
			if leaderColors[color] {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("decklist %s: %s is outside the leader's colors", d.Name, id)
		}
	}
	return nil
}

// StarterDecklist builds a legal decklist from the built-in set for the
// given starter leader. Used by the demo flow and tests.
func StarterDecklist(leaderID string) Decklist {
	d := Decklist{Name: "starter-" + leaderID, Leader: leaderID}
	var pool []string
	switch leaderID {
	case StarterLeaderCrimson:
		pool = starterCrimsonPool
	case StarterLeaderAzure:
		pool = starterAzurePool
	default:
		pool = starterCrimsonPool
	}
	for len(d.Cards) < DeckSize {
		for _, id := range pool {
			if len(d.Cards) == DeckSize {
				break
			}
			d.Cards = append(d.Cards, id)
		}
	}
	return d
}
