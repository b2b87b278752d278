package catalog

// Built-in starter set. Two leaders and enough spread across costs,
// keywords, and effect keys to run full matches without external data.

const (
	StarterLeaderCrimson = "STL-01"
	StarterLeaderAzure   = "STL-02"
)

var starterCrimsonPool = []string{
	"STC-001", "STC-002", "STC-003", "STC-004", "STC-005",
	"STC-006", "STC-007", "STC-008", "STC-009", "STC-010",
	"STE-001", "STE-002", "STE-003", "STS-001",
}

var starterAzurePool = []string{
	"STC-101", "STC-102", "STC-103", "STC-104", "STC-105",
	"STC-106", "STC-107", "STC-108", "STC-109", "STC-110",
	"STE-101", "STE-102", "STE-103", "STS-101",
}

func starterSet() []*Card {
	return []*Card{
		{
			ID: StarterLeaderCrimson, Name: "Varros, Crimson Corsair",
			Category: CategoryLeader, Colors: []string{"crimson"},
			Power: 5000, Life: 5, Attribute: "Slash",
			Types: []string{"Ember Fleet"},
			Abilities: []Ability{{
				Timing: TimingOnAttack, EffectKey: "rally",
				Description: "When this leader attacks, up to 1 of your characters gains +1000 power this turn.",
				Params:      map[string]int{"amount": 1000, "count": 1},
				Optional:    true,
			}},
		},
		{
			ID: StarterLeaderAzure, Name: "Nerissa of the Deep Courts",
			Category: CategoryLeader, Colors: []string{"azure"},
			Power: 5000, Life: 4, Attribute: "Wisdom",
			Types: []string{"Tide Court"},
			Abilities: []Ability{{
				Timing: TimingActivateMain, EffectKey: "discard_draw",
				Description: "Once per turn: you may discard 1 card to draw 2 cards.",
				Params:      map[string]int{"discard": 1, "draw": 2},
				Optional:    true,
			}},
		},

		// Crimson characters
		{
			ID: "STC-001", Name: "Hull Breaker Drogan",
			Category: CategoryCharacter, Colors: []string{"crimson"},
			Cost: 1, Power: 2000, Counter: 1000, Attribute: "Slash",
			Types: []string{"Ember Fleet"},
		},
		{
			ID: "STC-002", Name: "Rig Runner Melka",
			Category: CategoryCharacter, Colors: []string{"crimson"},
			Cost: 1, Power: 1000, Counter: 2000, Attribute: "Wisdom",
			Types: []string{"Ember Fleet"}, Keywords: []Keyword{KeywordBlocker},
		},
		{
			ID: "STC-003", Name: "Boarding Party Vanguard",
			Category: CategoryCharacter, Colors: []string{"crimson"},
			Cost: 2, Power: 3000, Counter: 1000, Attribute: "Slash",
			Types: []string{"Ember Fleet"},
		},
		{
			ID: "STC-004", Name: "Cinder Gunner Posa",
			Category: CategoryCharacter, Colors: []string{"crimson"},
			Cost: 2, Power: 2000, Counter: 1000, Attribute: "Ranged",
			Types: []string{"Ember Fleet"},
			Abilities: []Ability{{
				Timing: TimingOnPlay, EffectKey: "weaken",
				Description: "On play: up to 1 of your opponent's characters gets -1000 power this turn.",
				Params:      map[string]int{"amount": 1000, "count": 1},
				Optional:    true,
			}},
		},
		{
			ID: "STC-005", Name: "First Mate Callum",
			Category: CategoryCharacter, Colors: []string{"crimson"},
			Cost: 3, Power: 4000, Counter: 1000, Attribute: "Strike",
			Types: []string{"Ember Fleet"},
		},
		{
			ID: "STC-006", Name: "Stormcaller Brig",
			Category: CategoryCharacter, Colors: []string{"crimson"},
			Cost: 3, Power: 3000, Counter: 2000, Attribute: "Special",
			Types: []string{"Ember Fleet"},
			Abilities: []Ability{{
				Timing: TimingTrigger, EffectKey: "draw",
				Description: "Trigger: draw 1 card.",
				Params:      map[string]int{"count": 1},
			}},
		},
		{
			ID: "STC-007", Name: "Ram Ship Kestrel",
			Category: CategoryCharacter, Colors: []string{"crimson"},
			Cost: 4, Power: 5000, Counter: 1000, Attribute: "Strike",
			Types: []string{"Ember Fleet"}, Keywords: []Keyword{KeywordRush},
		},
		{
			ID: "STC-008", Name: "Powder Keg Bruiser",
			Category: CategoryCharacter, Colors: []string{"crimson"},
			Cost: 4, Power: 6000, Attribute: "Strike",
			Types: []string{"Ember Fleet"},
		},
		{
			ID: "STC-009", Name: "Quartermaster Ilsa",
			Category: CategoryCharacter, Colors: []string{"crimson"},
			Cost: 5, Power: 6000, Counter: 1000, Attribute: "Wisdom",
			Types: []string{"Ember Fleet"},
			Abilities: []Ability{{
				Timing: TimingOnPlay, EffectKey: "rally",
				Description: "On play: up to 1 of your characters gains +2000 power this turn.",
				Params:      map[string]int{"amount": 2000, "count": 1},
				Optional:    true,
			}},
		},
		{
			ID: "STC-010", Name: "Dreadwake Leviathan",
			Category: CategoryCharacter, Colors: []string{"crimson"},
			Cost: 7, Power: 9000, Attribute: "Strike",
			Types: []string{"Deep Beasts"}, Keywords: []Keyword{KeywordDoubleAttack},
		},

		// Crimson events and stage
		{
			ID: "STE-001", Name: "Full Broadside",
			Category: CategoryEvent, Colors: []string{"crimson"}, Cost: 1,
			Abilities: []Ability{{
				Timing: TimingEventCounter, EffectKey: "rally",
				Description: "Counter: your leader or up to 1 of your characters gains +2000 power this battle.",
				Params:      map[string]int{"amount": 2000, "count": 1},
			}},
		},
		{
			ID: "STE-002", Name: "Scuttle the Weak",
			Category: CategoryEvent, Colors: []string{"crimson"}, Cost: 2,
			Abilities: []Ability{{
				Timing: TimingEventMain, EffectKey: "ko_under_cost",
				Description: "Knock out up to 1 of your opponent's characters with cost 3 or less.",
				Params:      map[string]int{"max_cost": 3, "count": 1},
			}},
		},
		{
			ID: "STE-003", Name: "Chart the Currents",
			Category: CategoryEvent, Colors: []string{"crimson"}, Cost: 1,
			Abilities: []Ability{
				{
					Timing: TimingEventMain, EffectKey: "deck_recruit",
					Description: "Reveal the top 4 cards of your deck. Add up to 1 character with cost 4 or less to your hand; put the rest on the bottom of your deck.",
					Params:      map[string]int{"reveal": 4, "max_cost": 4, "count": 1},
				},
				{
					Timing: TimingTrigger, EffectKey: "draw",
					Description: "Trigger: draw 1 card.",
					Params:      map[string]int{"count": 1},
				},
			},
		},
		{
			ID: "STS-001", Name: "The Ember Port",
			Category: CategoryStage, Colors: []string{"crimson"}, Cost: 1,
			Abilities: []Ability{{
				Timing: TimingActivateMain, EffectKey: "refresh_don",
				Description: "Once per turn: set up to 1 of your rested DON active.",
				Params:      map[string]int{"count": 1},
				Optional:    true,
			}},
		},

		// Azure characters
		{
			ID: "STC-101", Name: "Tidewarden Oath",
			Category: CategoryCharacter, Colors: []string{"azure"},
			Cost: 1, Power: 0, Counter: 2000, Attribute: "Wisdom",
			Types: []string{"Tide Court"}, Keywords: []Keyword{KeywordBlocker},
		},
		{
			ID: "STC-102", Name: "Mistveil Scout",
			Category: CategoryCharacter, Colors: []string{"azure"},
			Cost: 1, Power: 2000, Counter: 1000, Attribute: "Ranged",
			Types: []string{"Tide Court"},
		},
		{
			ID: "STC-103", Name: "Pearl Diver Sylla",
			Category: CategoryCharacter, Colors: []string{"azure"},
			Cost: 2, Power: 3000, Counter: 1000, Attribute: "Strike",
			Types: []string{"Tide Court"},
		},
		{
			ID: "STC-104", Name: "Harbor Sentinel",
			Category: CategoryCharacter, Colors: []string{"azure"},
			Cost: 2, Power: 2000, Counter: 2000, Attribute: "Strike",
			Types: []string{"Tide Court"}, Keywords: []Keyword{KeywordBlocker},
		},
		{
			ID: "STC-105", Name: "Current Binder Maeve",
			Category: CategoryCharacter, Colors: []string{"azure"},
			Cost: 3, Power: 4000, Counter: 1000, Attribute: "Special",
			Types: []string{"Tide Court"},
			Abilities: []Ability{{
				Timing: TimingOnPlay, EffectKey: "refresh_don",
				Description: "On play: set up to 1 of your rested DON active.",
				Params:      map[string]int{"count": 1},
				Optional:    true,
			}},
		},
		{
			ID: "STC-106", Name: "Abyssal Cartographer",
			Category: CategoryCharacter, Colors: []string{"azure"},
			Cost: 3, Power: 3000, Counter: 1000, Attribute: "Wisdom",
			Types: []string{"Tide Court"},
			Abilities: []Ability{{
				Timing: TimingTrigger, EffectKey: "draw",
				Description: "Trigger: draw 1 card.",
				Params:      map[string]int{"count": 1},
			}},
		},
		{
			ID: "STC-107", Name: "Spearfin Vanguard",
			Category: CategoryCharacter, Colors: []string{"azure"},
			Cost: 4, Power: 5000, Counter: 1000, Attribute: "Slash",
			Types: []string{"Tide Court"},
		},
		{
			ID: "STC-108", Name: "Sire of the Undertow",
			Category: CategoryCharacter, Colors: []string{"azure"},
			Cost: 5, Power: 6000, Counter: 1000, Attribute: "Special",
			Types: []string{"Deep Beasts"},
			Abilities: []Ability{{
				Timing: TimingOnPlay, EffectKey: "weaken",
				Description: "On play: up to 1 of your opponent's characters gets -2000 power this turn.",
				Params:      map[string]int{"amount": 2000, "count": 1},
				Optional:    true,
			}},
		},
		{
			ID: "STC-109", Name: "Leviathan Herald",
			Category: CategoryCharacter, Colors: []string{"azure"},
			Cost: 6, Power: 7000, Attribute: "Special",
			Types: []string{"Deep Beasts"}, Keywords: []Keyword{KeywordUnblockable},
		},
		{
			ID: "STC-110", Name: "Maw of the Trench",
			Category: CategoryCharacter, Colors: []string{"azure"},
			Cost: 8, Power: 10000, Attribute: "Strike",
			Types: []string{"Deep Beasts"},
		},

		// Azure events and stage
		{
			ID: "STE-101", Name: "Undertow Ward",
			Category: CategoryEvent, Colors: []string{"azure"}, Cost: 1,
			Abilities: []Ability{{
				Timing: TimingEventCounter, EffectKey: "rally",
				Description: "Counter: your leader or up to 1 of your characters gains +2000 power this battle.",
				Params:      map[string]int{"amount": 2000, "count": 1},
			}},
		},
		{
			ID: "STE-102", Name: "Drown the Armada",
			Category: CategoryEvent, Colors: []string{"azure"}, Cost: 4,
			Abilities: []Ability{{
				Timing: TimingEventMain, EffectKey: "ko_under_cost",
				Description: "Knock out up to 1 of your opponent's characters with cost 5 or less.",
				Params:      map[string]int{"max_cost": 5, "count": 1},
			}},
		},
		{
			ID: "STE-103", Name: "Scry the Shoals",
			Category: CategoryEvent, Colors: []string{"azure"}, Cost: 1,
			Abilities: []Ability{
				{
					Timing: TimingEventMain, EffectKey: "deck_recruit",
					Description: "Reveal the top 4 cards of your deck. Add up to 1 character with cost 3 or less to your hand; put the rest on the bottom of your deck.",
					Params:      map[string]int{"reveal": 4, "max_cost": 3, "count": 1},
				},
				{
					Timing: TimingTrigger, EffectKey: "draw",
					Description: "Trigger: draw 1 card.",
					Params:      map[string]int{"count": 1},
				},
			},
		},
		{
			ID: "STS-101", Name: "Sunken Reliquary",
			Category: CategoryStage, Colors: []string{"azure"}, Cost: 1,
			Abilities: []Ability{{
				Timing: TimingActivateMain, EffectKey: "refresh_don",
				Description: "Once per turn: set up to 1 of your rested DON active.",
				Params:      map[string]int{"count": 1},
				Optional:    true,
			}},
		},
	}
}
