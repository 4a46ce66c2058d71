package websocket

import (
	"time"

	"github.com/cristianortiz/nftAuction/internal/auction/application"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientGetAuction   MessageType = "client_get_auction"   // client msg asking for the current auction snapshot
	MessageTypeServerAuctionState MessageType = "server_auction_state" // server msg with the auction snapshot
	MessageTypeServerEvent        MessageType = "server_event"         // server msg relaying an engine event
	MessageTypeServerError        MessageType = "server_error"         // server msg indicating error
)

// BaseMessage is base struct for all the WS messages, includes a Type field for identify the message type
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ServerAuctionStateMessage carries an auction snapshot, sent on connect and on request.
type ServerAuctionStateMessage struct {
	BaseMessage
	Payload *application.AuctionDTO `json:"payload"`
}

// EventPayload is the wire form of a domain event. Amounts are base units.
type EventPayload struct {
	Event     string    `json:"event"`
	AuctionID uint64    `json:"auction_id"`
	Actor     string    `json:"actor"`
	Currency  string    `json:"currency,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	USDValue  string    `json:"usd_value,omitempty"`
	Fee       string    `json:"fee,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ServerEventMessage struct {
	BaseMessage
	Payload EventPayload `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
	} `json:"payload"`
}
