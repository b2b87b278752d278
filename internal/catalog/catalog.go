// Package catalog loads and serves immutable card definitions. The engine
// treats it as a read-only lookup keyed by card id; per-instance state lives
// with the match, never here.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category classifies a card definition.
type Category string

const (
	CategoryLeader    Category = "leader"
	CategoryCharacter Category = "character"
	CategoryEvent     Category = "event"
	CategoryStage     Category = "stage"
)

// Keyword is a rules keyword printed on a card.
type Keyword string

const (
	KeywordRush         Keyword = "rush"
	KeywordBlocker      Keyword = "blocker"
	KeywordDoubleAttack Keyword = "double-attack"
	KeywordUnblockable  Keyword = "unblockable"
)

// AbilityTiming names the window in which an ability fires.
type AbilityTiming string

const (
	TimingOnPlay        AbilityTiming = "on_play"
	TimingOnAttack      AbilityTiming = "on_attack"
	TimingActivateMain  AbilityTiming = "activate_main"
	TimingEventMain     AbilityTiming = "event_main"
	TimingEventCounter  AbilityTiming = "event_counter"
	TimingTrigger       AbilityTiming = "trigger"
)

// Ability binds a timing window to an effect key the engine resolves
// through its registry. Params are effect-specific numeric knobs.
type Ability struct {
	Timing      AbilityTiming  `yaml:"timing"`
	EffectKey   string         `yaml:"effect"`
	Description string         `yaml:"description"`
	Params      map[string]int `yaml:"params,omitempty"`
	Optional    bool           `yaml:"optional,omitempty"`
}

// Card is an immutable card definition.
type Card struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Category  Category  `yaml:"category"`
	Colors    []string  `yaml:"colors"`
	Cost      int       `yaml:"cost"`
	Power     int       `yaml:"power"`
	Counter   int       `yaml:"counter"`
	Life      int       `yaml:"life,omitempty"`
	Attribute string    `yaml:"attribute,omitempty"`
	Types     []string  `yaml:"types,omitempty"`
	Keywords  []Keyword `yaml:"keywords,omitempty"`
	Abilities []Ability `yaml:"abilities,omitempty"`
}

// HasKeyword reports whether the definition prints the keyword.
func (c *Card) HasKeyword(k Keyword) bool {
	for _, kw := range c.Keywords {
		if kw == k {
			return true
		}
	}
	return false
}

// AbilityAt returns the first ability firing in the given window.
func (c *Card) AbilityAt(timing AbilityTiming) (Ability, bool) {
	for _, ab := range c.Abilities {
		if ab.Timing == timing {
			return ab, true
		}
	}
	return Ability{}, false
}

// HasTrigger reports whether the card declares a life-trigger ability.
func (c *Card) HasTrigger() bool {
	_, ok := c.AbilityAt(TimingTrigger)
	return ok
}

// Catalog is the read-only card lookup handed to the engine.
type Catalog struct {
	cards map[string]*Card
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{cards: make(map[string]*Card)}
}

// NewWithStarterSet returns a catalog preloaded with the built-in set so the
// server runs without a card-data directory.
func NewWithStarterSet() *Catalog {
	c := New()
	for _, card := range starterSet() {
		// Starter definitions are maintained in this package; a bad one
		// is a programming error, not an input error.
		if err := c.Add(card); err != nil {
			panic(fmt.Sprintf("starter set: %v", err))
		}
	}
	return c
}

// Add validates and registers a definition. Duplicate ids are rejected.
func (c *Catalog) Add(card *Card) error {
	if err := validateCard(card); err != nil {
		return err
	}
	if _, exists := c.cards[card.ID]; exists {
		return fmt.Errorf("card %s: duplicate id", card.ID)
	}
	c.cards[card.ID] = card
	return nil
}

// Lookup returns the definition for a card id.
func (c *Catalog) Lookup(id string) (*Card, bool) {
	card, ok := c.cards[id]
	return card, ok
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int {
	return len(c.cards)
}

// IDs returns all registered card ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.cards))
	for id := range c.cards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// cardFile is the top-level YAML structure of a card data file.
type cardFile struct {
	Cards []*Card `yaml:"cards"`
}

// LoadFile registers every card in one YAML file.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file cardFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse card YAML %s: %w", path, err)
	}
	for _, card := range file.Cards {
		if err := c.Add(card); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// LoadDir registers every *.yaml and *.yml file under dir.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := c.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func validateCard(card *Card) error {
	if card == nil {
		return fmt.Errorf("nil card definition")
	}
	if strings.TrimSpace(card.ID) == "" {
		return fmt.Errorf("card %q: missing id", card.Name)
	}
	if strings.TrimSpace(card.Name) == "" {
		return fmt.Errorf("card %s: missing name", card.ID)
	}
	switch card.Category {
	case CategoryLeader:
		if card.Life <= 0 {
			return fmt.Errorf("card %s: leader requires positive life", card.ID)
		}
		if card.Cost != 0 {
			return fmt.Errorf("card %s: leader has no cost", card.ID)
		}
	case CategoryCharacter:
		if card.Cost < 0 {
			return fmt.Errorf("card %s: negative cost", card.ID)
		}
		if card.Power < 0 {
			return fmt.Errorf("card %s: negative power", card.ID)
		}
	case CategoryEvent, CategoryStage:
		if card.Cost < 0 {
			return fmt.Errorf("card %s: negative cost", card.ID)
		}
	default:
		return fmt.Errorf("card %s: unknown category %q", card.ID, card.Category)
	}
	if card.Counter < 0 {
		return fmt.Errorf("card %s: negative counter value", card.ID)
	}
	for _, ab := range card.Abilities {
		switch ab.Timing {
		case TimingOnPlay, TimingOnAttack, TimingActivateMain,
			TimingEventMain, TimingEventCounter, TimingTrigger:
		default:
			return fmt.Errorf("card %s: unknown ability timing %q", card.ID, ab.Timing)
		}
		if strings.TrimSpace(ab.EffectKey) == "" {
			return fmt.Errorf("card %s: ability at %s missing effect key", card.ID, ab.Timing)
		}
	}
	return nil
}
