package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

// matchSnapshot is the persisted form of a match: everything the state
// carries plus the machine fields it keeps out of its own encoding.
type matchSnapshot struct {
	MatchID       string
	Turn          int
	Active        string
	First         string
	Chooser       string
	Seats         [2]string
	Phase         string
	ReturnStack   []string
	Seed          int64
	Players       map[string]*PlayerState
	Combat        *CurrentCombat
	TriggerCardID uuid.UUID
	WinnerID      string
	Reason        WinReason
	Timestamp     time.Time
}

// SnapshotChecksum is a deterministic digest of a snapshot. It guards
// against divergent states across restores or network transmission.
type SnapshotChecksum struct {
	Hash      string
	Timestamp string
	Version   int
}

// TakeSnapshot captures a match between decisions. Matches with queued
// pending effects cannot snapshot; their resolution closures do not
// survive encoding.
func TakeSnapshot(m *MatchState) (*matchSnapshot, error) {
	for kind, queue := range m.Pending.Queues {
		if len(queue) > 0 {
			return nil, fmt.Errorf("cannot snapshot with %d pending %s effects", len(queue), kind)
		}
	}
	snapshot := &matchSnapshot{
		MatchID:       m.ID,
		Turn:          m.Turn,
		Active:        m.Active,
		First:         m.First,
		Chooser:       m.Chooser,
		Seats:         m.Seats,
		Phase:         m.Phase().String(),
		Seed:          m.seed,
		Players:       m.Players,
		Combat:        m.Combat,
		TriggerCardID: m.TriggerCardID,
		WinnerID:      m.WinnerID,
		Reason:        m.Reason,
		Timestamp:     time.Now().UTC(),
	}
	for _, p := range m.Machine.ReturnStack() {
		snapshot.ReturnStack = append(snapshot.ReturnStack, p.String())
	}
	return snapshot, nil
}

// ComputeChecksum hashes a canonical representation of the snapshot,
// independent of map iteration order and timestamps.
func (snapshot *matchSnapshot) ComputeChecksum() (*SnapshotChecksum, error) {
	hash := sha256.New()
	if _, err := hash.Write([]byte(snapshot.buildDeterministicRepresentation())); err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}
	return &SnapshotChecksum{
		Hash:      hex.EncodeToString(hash.Sum(nil)),
		Timestamp: snapshot.Timestamp.Format("2006-01-02T15:04:05.000Z"),
		Version:   1,
	}, nil
}

// buildDeterministicRepresentation writes the match as canonical lines.
// Ordered piles stay in pile order; everything keyed by map is sorted.
func (snapshot *matchSnapshot) buildDeterministicRepresentation() string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("MATCH:%s|%d|%s|%s|%s|%s\n",
		snapshot.MatchID,
		snapshot.Turn,
		snapshot.Phase,
		snapshot.Active,
		snapshot.First,
		snapshot.WinnerID,
	))
	buf.WriteString("RETURN_STACK:")
	buf.WriteString(strings.Join(snapshot.ReturnStack, ","))
	buf.WriteString("\n")

	playerIDs := make([]string, 0, len(snapshot.Players))
	for id := range snapshot.Players {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)

	for _, id := range playerIDs {
		player := snapshot.Players[id]
		buf.WriteString(fmt.Sprintf("PLAYER:%s|%s|%d|%d|%d|%d|%t|%t\n",
			id,
			player.Name,
			len(player.Deck),
			len(player.Hand),
			len(player.Life),
			len(player.DonField),
			player.MulliganDone,
			player.PreGameDone,
		))
		// Pile order is game state; keep it verbatim.
		writePile := func(label string, pile []uuid.UUID) {
			ids := make([]string, len(pile))
			for i, cardID := range pile {
				ids[i] = cardID.String()
			}
			buf.WriteString(fmt.Sprintf("  %s:%s\n", label, strings.Join(ids, ",")))
		}
		writePile("DECK", player.Deck)
		writePile("HAND", player.Hand)
		writePile("FIELD", player.Field)
		writePile("LIFE", player.Life)
		writePile("TRASH", player.Trash)
		writePile("DON_DECK", player.DonDeck)
		writePile("DON_FIELD", player.DonField)

		cardIDs := make([]string, 0, len(player.Cards))
		for cardID := range player.Cards {
			cardIDs = append(cardIDs, cardID.String())
		}
		sort.Strings(cardIDs)
		for _, cardID := range cardIDs {
			card := player.Cards[uuid.MustParse(cardID)]
			buf.WriteString(fmt.Sprintf("  CARD:%s|%s|%s|%t|%s|%t|%d|%t|%t\n",
				cardID,
				card.DefID,
				card.Zone,
				card.Rested,
				card.AttachedTo,
				card.IsDon,
				card.PlayedTurn,
				card.AttackedThisTurn,
				card.Revealed,
			))
			for _, b := range card.Buffs {
				buf.WriteString(fmt.Sprintf("    BUFF:%d|%s|%d\n", b.Amount, b.SourceID, int(b.Expiry)))
			}
			for _, k := range card.TempKeywords {
				buf.WriteString(fmt.Sprintf("    TEMP_KEYWORD:%s\n", k))
			}
		}
	}

	if snapshot.Combat != nil {
		buf.WriteString(fmt.Sprintf("COMBAT:%s|%s|%s|%d|%d|%d|%t\n",
			snapshot.Combat.AttackerID,
			snapshot.Combat.TargetID,
			snapshot.Combat.TargetKind,
			snapshot.Combat.AttackPower,
			snapshot.Combat.CounterPower,
			snapshot.Combat.EffectBuff,
			snapshot.Combat.Blocked,
		))
	}
	return buf.String()
}

// VerifyChecksum reports whether the snapshot still matches a previously
// computed checksum.
func (snapshot *matchSnapshot) VerifyChecksum(expected *SnapshotChecksum) (bool, error) {
	computed, err := snapshot.ComputeChecksum()
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	return computed.Hash == expected.Hash, nil
}

// SerializeToBytes encodes the snapshot with gob for storage.
func (snapshot *matchSnapshot) SerializeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshot); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeSnapshot decodes a stored snapshot.
func DeserializeSnapshot(data []byte) (*matchSnapshot, error) {
	var snapshot matchSnapshot
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// Restore rebuilds a live match from the snapshot. The RNG restarts from
// the original seed, so shuffles after the restore point can differ from
// the interrupted run.
func (snapshot *matchSnapshot) Restore(cat *catalog.Catalog) (*MatchState, error) {
	phase, ok := rules.ParsePhase(snapshot.Phase)
	if !ok {
		return nil, fmt.Errorf("unknown phase %q in snapshot", snapshot.Phase)
	}
	stack := make([]rules.Phase, 0, len(snapshot.ReturnStack))
	for _, name := range snapshot.ReturnStack {
		p, ok := rules.ParsePhase(name)
		if !ok {
			return nil, fmt.Errorf("unknown phase %q in snapshot return stack", name)
		}
		stack = append(stack, p)
	}
	m := &MatchState{
		ID:            snapshot.MatchID,
		Machine:       rules.RestoreMachine(phase, stack),
		Turn:          snapshot.Turn,
		Active:        snapshot.Active,
		First:         snapshot.First,
		Chooser:       snapshot.Chooser,
		Players:       snapshot.Players,
		Seats:         snapshot.Seats,
		Combat:        snapshot.Combat,
		Pending:       NewPendingSet(),
		TriggerCardID: snapshot.TriggerCardID,
		WinnerID:      snapshot.WinnerID,
		Reason:        snapshot.Reason,
		CreatedAt:     snapshot.Timestamp,
		catalog:       cat,
		bus:           rules.NewEventBus(),
		rng:           rand.New(rand.NewSource(snapshot.Seed)),
		seed:          snapshot.Seed,
	}
	return m, nil
}

// ValidateSnapshotRoundtrip confirms a snapshot survives encode/decode
// without drift by comparing checksums.
func ValidateSnapshotRoundtrip(snapshot *matchSnapshot) error {
	originalChecksum, err := snapshot.ComputeChecksum()
	if err != nil {
		return fmt.Errorf("failed to compute original checksum: %w", err)
	}
	data, err := snapshot.SerializeToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}
	decoded, err := DeserializeSnapshot(data)
	if err != nil {
		return fmt.Errorf("failed to deserialize: %w", err)
	}
	decodedChecksum, err := decoded.ComputeChecksum()
	if err != nil {
		return fmt.Errorf("failed to compute deserialized checksum: %w", err)
	}
	if originalChecksum.Hash != decodedChecksum.Hash {
		return fmt.Errorf("checksum mismatch: original=%s, deserialized=%s",
			originalChecksum.Hash, decodedChecksum.Hash)
	}
	return nil
}
