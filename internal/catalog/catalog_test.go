package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStarterSetLoads(t *testing.T) {
	c := NewWithStarterSet()
	require.Equal(t, 30, c.Len())

	leader, ok := c.Lookup(StarterLeaderCrimson)
	require.True(t, ok)
	assert.Equal(t, CategoryLeader, leader.Category)
	assert.Equal(t, 5000, leader.Power)
	assert.Equal(t, 5, leader.Life)

	blocker, ok := c.Lookup("STC-104")
	require.True(t, ok)
	assert.True(t, blocker.HasKeyword(KeywordBlocker))
	assert.False(t, blocker.HasKeyword(KeywordRush))
}

func TestStarterSetAbilityMetadata(t *testing.T) {
	c := NewWithStarterSet()

	trigger, ok := c.Lookup("STC-006")
	require.True(t, ok)
	assert.True(t, trigger.HasTrigger())

	counterEvent, ok := c.Lookup("STE-101")
	require.True(t, ok)
	ab, ok := counterEvent.AbilityAt(TimingEventCounter)
	require.True(t, ok)
	assert.Equal(t, "rally", ab.EffectKey)
	assert.Equal(t, 2000, ab.Params["amount"])
}

func TestAddRejectsInvalidCards(t *testing.T) {
	cases := []struct {
		name string
		card *Card
	}{
		{"missing id", &Card{Name: "x", Category: CategoryCharacter}},
		{"missing name", &Card{ID: "X-001", Category: CategoryCharacter}},
		{"unknown category", &Card{ID: "X-001", Name: "x", Category: "relic"}},
		{"leader without life", &Card{ID: "X-001", Name: "x", Category: CategoryLeader}},
		{"leader with cost", &Card{ID: "X-001", Name: "x", Category: CategoryLeader, Life: 4, Cost: 2}},
		{"negative counter", &Card{ID: "X-001", Name: "x", Category: CategoryCharacter, Counter: -1}},
		{"bad ability timing", &Card{
			ID: "X-001", Name: "x", Category: CategoryEvent,
			Abilities: []Ability{{Timing: "whenever", EffectKey: "draw"}},
		}},
		{"ability without effect key", &Card{
			ID: "X-001", Name: "x", Category: CategoryEvent,
			Abilities: []Ability{{Timing: TimingEventMain}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, New().Add(tc.card))
		})
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	c := New()
	card := &Card{ID: "X-001", Name: "x", Category: CategoryCharacter, Cost: 1, Power: 1000}
	require.NoError(t, c.Add(card))
	assert.Error(t, c.Add(card))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	data := `cards:
  - id: CU-001
    name: Custom Raider
    category: character
    colors: [crimson]
    cost: 2
    power: 3000
    counter: 1000
    keywords: [rush]
    abilities:
      - timing: on_play
        effect: rally
        description: "On play: up to 1 of your characters gains +1000 power this turn."
        params:
          amount: 1000
          count: 1
        optional: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(data), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	c := New()
	require.NoError(t, c.LoadDir(dir))
	require.Equal(t, 1, c.Len())

	card, ok := c.Lookup("CU-001")
	require.True(t, ok)
	assert.True(t, card.HasKeyword(KeywordRush))
	ab, ok := card.AbilityAt(TimingOnPlay)
	require.True(t, ok)
	assert.True(t, ab.Optional)
	assert.Equal(t, 1000, ab.Params["amount"])
}

func TestLoadFileRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cards: {nope"), 0o644))
	assert.Error(t, New().LoadFile(path))
}
