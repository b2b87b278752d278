package server

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/optcgsim/duel-server-go/internal/auth"
	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game"
)

func newTestHub(t *testing.T) (*Hub, *game.Engine, *auth.TokenIssuer) {
	t.Helper()
	log := zaptest.NewLogger(t)
	cat := catalog.NewWithStarterSet()
	eng := game.NewEngine(log, cat)
	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	h := NewHub(log, eng, cat, tokens, nil, Options{RejoinWindow: time.Minute})
	return h, eng, tokens
}

func runHub(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
}

// awaitFrame drains a client's send channel until a frame of the wanted
// type shows up. Other frames (queue acks, state pushes) are skipped.
func awaitFrame(t *testing.T, c *Client, want string) []byte {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case payload, ok := <-c.Send:
			require.True(t, ok, "send channel closed while waiting for %q", want)
			var head struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(payload, &head))
			if head.Type == want {
				return payload
			}
		case <-deadline:
			t.Fatalf("no %q frame within 3s", want)
		}
	}
}

func joinQueue(h *Hub, c *Client, name, leader string) {
	h.handleMessage(c, []byte(fmt.Sprintf(`{"type":"join_queue","name":%q,"leader":%q}`, name, leader)))
}

func TestQueuePairsTwoClients(t *testing.T) {
	h, eng, tokens := newTestHub(t)
	runHub(t, h)

	alice := newClient(h, nil)
	bob := newClient(h, nil)

	joinQueue(h, alice, "Alice", catalog.StarterLeaderCrimson)
	awaitFrame(t, alice, MsgQueued)
	joinQueue(h, bob, "Bob", catalog.StarterLeaderAzure)
	awaitFrame(t, bob, MsgQueued)

	var aFound, bFound MatchFoundMsg
	require.NoError(t, json.Unmarshal(awaitFrame(t, alice, MsgMatchFound), &aFound))
	require.NoError(t, json.Unmarshal(awaitFrame(t, bob, MsgMatchFound), &bFound))

	require.Equal(t, aFound.MatchID, bFound.MatchID)
	require.NotEqual(t, aFound.PlayerID, bFound.PlayerID)
	require.ElementsMatch(t, []int{0, 1}, []int{aFound.Seat, bFound.Seat})
	require.Equal(t, "Bob", aFound.OpponentName)
	require.Equal(t, "Alice", bFound.OpponentName)
	require.Contains(t, eng.MatchIDs(), aFound.MatchID)

	claims, err := tokens.VerifySeatToken(aFound.RejoinToken)
	require.NoError(t, err)
	require.Equal(t, aFound.MatchID, claims.MatchID)
	require.Equal(t, aFound.PlayerID, claims.PlayerID)

	matchID, playerID := alice.identity()
	require.Equal(t, aFound.MatchID, matchID)
	require.Equal(t, aFound.PlayerID, playerID)
}

func TestLeaveQueueSkipsClient(t *testing.T) {
	h, _, _ := newTestHub(t)
	runHub(t, h)

	quitter := newClient(h, nil)
	joinQueue(h, quitter, "Quitter", "")
	awaitFrame(t, quitter, MsgQueued)
	h.handleMessage(quitter, []byte(`{"type":"leave_queue"}`))
	awaitFrame(t, quitter, MsgLeftQueue)

	c1 := newClient(h, nil)
	c2 := newClient(h, nil)
	joinQueue(h, c1, "One", "")
	joinQueue(h, c2, "Two", "")

	var f1, f2 MatchFoundMsg
	require.NoError(t, json.Unmarshal(awaitFrame(t, c1, MsgMatchFound), &f1))
	require.NoError(t, json.Unmarshal(awaitFrame(t, c2, MsgMatchFound), &f2))
	require.Equal(t, f1.MatchID, f2.MatchID)
	require.Equal(t, "Two", f1.OpponentName)

	matchID, _ := quitter.identity()
	require.Empty(t, matchID, "quitter should not have been seated")
}

func TestPrivateRoomFlow(t *testing.T) {
	h, _, _ := newTestHub(t)
	runHub(t, h)

	host := newClient(h, nil)
	h.handleMessage(host, []byte(`{"type":"create_room","name":"Host"}`))

	var created RoomCreatedMsg
	require.NoError(t, json.Unmarshal(awaitFrame(t, host, MsgRoomCreated), &created))
	require.Len(t, created.Code, 6)

	stranger := newClient(h, nil)
	h.handleMessage(stranger, []byte(`{"type":"join_room","code":"NOPE99","name":"Lost"}`))
	awaitFrame(t, stranger, MsgError)

	guest := newClient(h, nil)
	h.handleMessage(guest, []byte(fmt.Sprintf(`{"type":"join_room","code":%q,"name":"Guest"}`, created.Code)))

	var hostFound, guestFound MatchFoundMsg
	require.NoError(t, json.Unmarshal(awaitFrame(t, host, MsgMatchFound), &hostFound))
	require.NoError(t, json.Unmarshal(awaitFrame(t, guest, MsgMatchFound), &guestFound))
	require.Equal(t, hostFound.MatchID, guestFound.MatchID)

	// The code is single use.
	late := newClient(h, nil)
	h.handleMessage(late, []byte(fmt.Sprintf(`{"type":"join_room","code":%q,"name":"Late"}`, created.Code)))
	awaitFrame(t, late, MsgError)
}

func TestActionRequiresSeat(t *testing.T) {
	h, _, _ := newTestHub(t)

	c := newClient(h, nil)
	h.handleMessage(c, []byte(`{"type":"action","action":{"type":"END_TURN"}}`))

	var errMsg ErrorMsg
	require.NoError(t, json.Unmarshal(awaitFrame(t, c, MsgError), &errMsg))
	require.Contains(t, errMsg.Message, "not in a match")
}

func TestMalformedFramesAreRejected(t *testing.T) {
	h, _, _ := newTestHub(t)

	c := newClient(h, nil)
	h.handleMessage(c, []byte(`{not json`))
	awaitFrame(t, c, MsgError)

	h.handleMessage(c, []byte(`{"type":"no_such_thing"}`))
	awaitFrame(t, c, MsgError)
}

func TestRejoinRestoresSeat(t *testing.T) {
	h, _, _ := newTestHub(t)
	runHub(t, h)

	alice := newClient(h, nil)
	bob := newClient(h, nil)
	h.Register <- alice
	h.Register <- bob

	joinQueue(h, alice, "Alice", "")
	joinQueue(h, bob, "Bob", "")

	var aFound MatchFoundMsg
	require.NoError(t, json.Unmarshal(awaitFrame(t, alice, MsgMatchFound), &aFound))
	awaitFrame(t, bob, MsgMatchFound)

	h.Unregister <- alice
	awaitFrame(t, bob, MsgOpponentDisconnected)

	replacement := newClient(h, nil)
	h.handleMessage(replacement, []byte(fmt.Sprintf(`{"type":"rejoin","token":%q}`, aFound.RejoinToken)))

	var rejoined RejoinedMsg
	require.NoError(t, json.Unmarshal(awaitFrame(t, replacement, MsgRejoined), &rejoined))
	require.Equal(t, aFound.MatchID, rejoined.MatchID)
	require.Equal(t, aFound.PlayerID, rejoined.PlayerID)
	awaitFrame(t, replacement, game.NotifyState)
	awaitFrame(t, bob, MsgOpponentRejoined)

	matchID, playerID := replacement.identity()
	require.Equal(t, aFound.MatchID, matchID)
	require.Equal(t, aFound.PlayerID, playerID)
}

func TestRejoinRejectsStaleToken(t *testing.T) {
	h, _, tokens := newTestHub(t)

	token, err := tokens.IssueSeatToken("long-gone", "nobody", 0)
	require.NoError(t, err)

	c := newClient(h, nil)
	h.handleMessage(c, []byte(fmt.Sprintf(`{"type":"rejoin","token":%q}`, token)))

	var errMsg ErrorMsg
	require.NoError(t, json.Unmarshal(awaitFrame(t, c, MsgError), &errMsg))
	require.Contains(t, errMsg.Message, "no longer active")
}
