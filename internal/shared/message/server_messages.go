package message

import (
	"github.com/bkohler93/ranked-backend/internal/shared/party"
	"github.com/bkohler93/ranked-backend/pkg/uuidstring"
)

// Payloads pushed by the backend.

type MessagePayload struct {
	Message string `json:"message"`
}

type CommandPayload struct {
	Command string `json:"command"`
}

type HandshakeAckPayload struct {
	SessionID uuidstring.ID `json:"sessionId"`
}

type WhitelistChangePayload struct {
	Whitelist []WhitelistEntry `json:"whitelist"`
}

type WhitelistEntry struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"displayName"`
}

type TeamJoinPayload struct {
	TeamData []TeamRoster `json:"teamData"`
}

type TeamRoster struct {
	Names []string `json:"names"`
	Team  int      `json:"team"`
}

type TransferPayload struct {
	TransferData TransferData `json:"transferData"`
}

type TransferData struct {
	TargetServer string   `json:"targetServer"`
	TargetPort   int      `json:"targetPort"`
	UUIDs        []string `json:"uuids"`
}

type QueueMatchPayload struct {
	Queue QueueMatchData `json:"queue"`
}

type QueueMatchData struct {
	QueueName string          `json:"queue_name"`
	Parties   [][]party.Party `json:"parties"`
}

type PlayerReplyPayload struct {
	Player PlayerReply `json:"player"`
}

type PlayerReply struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"displayName"`
	Rating      int    `json:"rating"`
	IsInParty   bool   `json:"isInParty"`
	PartyID     *int64 `json:"partyId,omitempty"`
	IsInQueue   bool   `json:"isInQueue"`
	Standing    int64  `json:"standing,omitempty"`
}
