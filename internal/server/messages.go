package server

import "encoding/json"

// Inbound message types.
const (
	MsgJoinQueue  = "join_queue"
	MsgLeaveQueue = "leave_queue"
	MsgPlayBot    = "play_bot"
	MsgCreateRoom = "create_room"
	MsgJoinRoom   = "join_room"
	MsgRejoin     = "rejoin"
	MsgAction     = "action"
)

// Outbound message types the gateway adds on top of the engine's
// notification stream.
const (
	MsgError                = "error"
	MsgQueued               = "queued"
	MsgLeftQueue            = "left_queue"
	MsgRoomCreated          = "room_created"
	MsgMatchFound           = "match_found"
	MsgRejoined             = "rejoined"
	MsgOpponentDisconnected = "opponent_disconnected"
	MsgOpponentRejoined     = "opponent_rejoined"
)

// InboundEnvelope peels the type tag off a client frame; the raw bytes
// re-parse into the concrete message once the type is known.
type InboundEnvelope struct {
	Type string
	Raw  json.RawMessage
}

func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	e.Type = head.Type
	e.Raw = append(e.Raw[:0], data...)
	return nil
}

// JoinQueueMsg enters the open matchmaking queue. Leader picks one of
// the starter decks; unknown values fall back to the default.
type JoinQueueMsg struct {
	Name   string `json:"name"`
	Leader string `json:"leader,omitempty"`
}

// PlayBotMsg starts a solo match against the built-in opponent.
type PlayBotMsg struct {
	Name   string `json:"name"`
	Leader string `json:"leader,omitempty"`
}

// CreateRoomMsg opens a private room and returns its code.
type CreateRoomMsg struct {
	Name   string `json:"name"`
	Leader string `json:"leader,omitempty"`
}

// JoinRoomMsg joins a private room by code.
type JoinRoomMsg struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Leader string `json:"leader,omitempty"`
}

// RejoinMsg reclaims a seat after a disconnect.
type RejoinMsg struct {
	Token string `json:"token"`
}

// ActionMsg submits one game action. The gateway stamps the player id;
// anything the client writes there is ignored.
type ActionMsg struct {
	Action struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data,omitempty"`
	} `json:"action"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type QueuedMsg struct {
	Type string `json:"type"`
}

type RoomCreatedMsg struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// MatchFoundMsg seats a client. The rejoin token is the only proof of
// seat ownership; clients must hold on to it.
type MatchFoundMsg struct {
	Type         string `json:"type"`
	MatchID      string `json:"match_id"`
	PlayerID     string `json:"player_id"`
	Seat         int    `json:"seat"`
	RejoinToken  string `json:"rejoin_token"`
	OpponentName string `json:"opponent_name"`
}

type RejoinedMsg struct {
	Type     string `json:"type"`
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id"`
}

type OpponentStatusMsg struct {
	Type string `json:"type"`
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// All outbound types marshal cleanly; this only trips on a
		// programming error.
		panic(err)
	}
	return data
}
