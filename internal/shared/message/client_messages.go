package message

import (
	"github.com/bkohler93/ranked-backend/internal/shared/party"
	"github.com/bkohler93/ranked-backend/pkg/uuidstring"
)

// Payloads sent by game servers and the lobby client.

type HandshakePayload struct {
	Handshake HandshakeData `json:"handshake"`
}

type HandshakeData struct {
	SessionID  uuidstring.ID `json:"sessionId,omitempty"`
	ServerIP   string        `json:"serverIP"`
	ServerPort int           `json:"serverPort"`
	IsLobby    bool          `json:"isLobby"`
}

type QueuePayload struct {
	Queue QueueData `json:"queue"`
}

type QueueData struct {
	QueueName string `json:"queue_name"`
	UUID      string `json:"uuid,omitempty"`
}

type PartyPayload struct {
	Party party.Party `json:"party"`
}

// GameStatusPayload is a tagged union: a plain status change carries Status,
// a pre-game settings report carries Map and Ban instead.
type GameStatusPayload struct {
	Data GameStatusData `json:"data"`
}

type GameStatusData struct {
	Status *int  `json:"status,omitempty"`
	Map    *int  `json:"map,omitempty"`
	Ban    []int `json:"ban,omitempty"`
}

type MapChoosePayload struct {
	Data MapChooseData `json:"data"`
}

type MapChooseData struct {
	Map int `json:"map"`
}

type KillPayload struct {
	Data KillData `json:"data"`
}

type KillData struct {
	Target   string   `json:"target"`
	Attacker string   `json:"attacker"`
	Assists  []string `json:"assists,omitempty"`
	Type     string   `json:"type"`
}

type DamagePayload struct {
	Data DamageData `json:"data"`
}

type DamageData struct {
	Target   string  `json:"target"`
	Attacker string  `json:"attacker"`
	Damage   float64 `json:"damage"`
}

type PlayerOnlineStatusPayload struct {
	PlayerOnlineStatus PlayerOnlineStatusData `json:"playerOnlineStatus"`
}

type PlayerOnlineStatusData struct {
	UUIDs      []string `json:"uuids"`
	Connection string   `json:"connection"`
}

const (
	ConnectionConnected    = "CONNECTED"
	ConnectionDisconnected = "DISCONNECTED"
)

type OutputWinPayload struct {
	Data OutputWinData `json:"data"`
}

type OutputWinData struct {
	Win  []string `json:"win"`
	Lose []string `json:"lose"`
}

type PlayerDataPayload struct {
	Player PlayerData `json:"player"`
}

type PlayerData struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"displayName,omitempty"`
	KillCount   *int   `json:"killCount,omitempty"`
	DeathCount  *int   `json:"deathCount,omitempty"`
	GameCount   *int   `json:"gameCount,omitempty"`
}

type PlayerInfoPayload struct {
	Data PlayerInfoData `json:"data"`
}

// PlayerInfoData is a per-player end-of-round stat report.
type PlayerInfoData struct {
	UUID        string  `json:"uuid"`
	KillCount   int     `json:"elim"`
	DeathCount  int     `json:"death"`
	AssistCount int     `json:"assist"`
	DamageDealt float64 `json:"damagedealt"`
	DamageTaken float64 `json:"damagetaken"`
}
