// Package message defines the wire envelope exchanged with game servers and
// the lobby client, plus the typed payload for every action. Inbound
// envelopes carry a raw payload that each handler decodes into its own type;
// outbound envelopes additionally carry a success/error status.
package message

import (
	"encoding/json"

	"github.com/bkohler93/ranked-backend/internal/shared/wserr"
	"github.com/bkohler93/ranked-backend/pkg/uuidstring"
)

type Action string

const (
	ActionHandshake          Action = "handshake"
	ActionHeartbeat          Action = "heartbeat"
	ActionMessage            Action = "message"
	ActionDisconnect         Action = "disconnect"
	ActionCommand            Action = "command"
	ActionGetPlayerData      Action = "get_player_data"
	ActionUpdatePlayerData   Action = "update_player_data"
	ActionPlayerInfo         Action = "player_info"
	ActionParty              Action = "party"
	ActionPartyDisbanded     Action = "party_disbanded"
	ActionQueue              Action = "queue"
	ActionQueueLeave         Action = "queue_leave"
	ActionQueueMatch         Action = "queue_match"
	ActionWhitelistChange    Action = "whitelist_change"
	ActionGameStatus         Action = "game_status"
	ActionMapChoose          Action = "map_choose"
	ActionKill               Action = "kill"
	ActionDamage             Action = "damage"
	ActionTransfer           Action = "transfer"
	ActionTeamJoin           Action = "team_join"
	ActionPlayerOnlineStatus Action = "player_online_status"
	ActionOutputWin          Action = "output_win"
)

type Status int

const (
	StatusError   Status = 0
	StatusSuccess Status = 1
)

type Envelope struct {
	Action    Action          `json:"action"`
	SessionID uuidstring.ID   `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type Outbound struct {
	Status    Status        `json:"status"`
	Action    Action        `json:"action"`
	SessionID uuidstring.ID `json:"sessionId,omitempty"`
	Payload   any           `json:"payload,omitempty"`
}

func NewSuccess(action Action, payload any) Outbound {
	return Outbound{
		Status:  StatusSuccess,
		Action:  action,
		Payload: payload,
	}
}

func NewError(action Action, msg string) Outbound {
	return Outbound{
		Status:  StatusError,
		Action:  action,
		Payload: MessagePayload{Message: msg},
	}
}

// DecodePayload unmarshals a raw payload into the handler's own type,
// reporting a missing or unparseable body as a decode error.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	if len(payload) == 0 {
		return nil, wserr.Validation("payload is required")
	}
	var msg T
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, wserr.Decode("invalid payload", err)
	}
	return &msg, nil
}
