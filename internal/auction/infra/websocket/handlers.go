package websocket

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cristianortiz/nftAuction/internal/auction/application"
	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/shared/logger"
	"github.com/cristianortiz/nftAuction/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler handles the ws traffic of the auction module: it relays engine events to
// the subscribers of each auction and answers their snapshot requests.
type AuctionWSHandler struct {
	ctx            context.Context
	auctionService application.AuctionService // application layer dependency
	hub            *websocket.Hub             // shared hub dependency to send msgs
}

// NewAuctionWSHandler creates a new instance of AuctionWSHandler. ctx bounds the lifetime of
// every connection it serves.
func NewAuctionWSHandler(ctx context.Context, auctionService application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		ctx:            ctx,
		auctionService: auctionService,
		hub:            hub,
	}
}

// SetService binds the service once it is built, since the service publishes through h.
func (h *AuctionWSHandler) SetService(auctionService application.AuctionService) {
	h.auctionService = auctionService
}

func topic(auctionID uint64) string {
	return strconv.FormatUint(auctionID, 10)
}

// Publish implements domain.EventPublisher. Events that belong to no auction are not relayed.
func (h *AuctionWSHandler) Publish(ctx context.Context, ev domain.Event) {
	if ev.AuctionID == 0 {
		return
	}
	msg := ServerEventMessage{BaseMessage: BaseMessage{Type: MessageTypeServerEvent}, Payload: NewEventPayload(ev)}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal ServerEventMessage", zap.Error(err))
		return
	}
	h.hub.Broadcast(topic(ev.AuctionID), data)
}

func NewEventPayload(ev domain.Event) EventPayload {
	p := EventPayload{
		Event:     string(ev.Type),
		AuctionID: ev.AuctionID,
		Actor:     ev.Actor.Hex(),
		Timestamp: ev.Timestamp,
	}
	if ev.Amount != nil {
		p.Currency = ev.Currency.Hex()
		p.Amount = ev.Amount.String()
	}
	if ev.USDValue != nil {
		p.USDValue = domain.FormatUSD(ev.USDValue)
	}
	if ev.Fee != nil {
		p.Fee = ev.Fee.String()
	}
	return p
}

// Register mounts the websocket endpoint /ws/auctions/:id on router.
func (h *AuctionWSHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws/auctions/:id", fiberws.New(h.HandleConnection))
}

// HandleConnection serves one websocket subscribed to the auction named by the :id param.
func (h *AuctionWSHandler) HandleConnection(conn *fiberws.Conn) {
	id, err := strconv.ParseUint(conn.Params("id"), 10, 64)
	if err != nil {
		log.Warn("Rejected websocket connection with invalid auction id", zap.String("id", conn.Params("id")))
		_ = conn.Close()
		return
	}
	client := h.hub.NewClient(conn, topic(id))
	h.hub.RegisterClient(client)
	h.sendAuctionState(h.ctx, client, id)

	go client.WritePump(h.ctx)
	client.ReadPump(h.ctx)
}

// ListenForMessages starts a go routine that listen the Hub inbound channel for messages and proccess every one of them
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

// processMesssage dispatch the message by this type
func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, "invalid message format")
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientGetAuction:
		id, err := strconv.ParseUint(client.Topic, 10, 64)
		if err != nil {
			h.sendErrorToClient(client, "invalid auction id")
			return
		}
		h.sendAuctionState(ctx, client, id)
	default:
		h.sendErrorToClient(client, "unknown message type")
	}
}

func (h *AuctionWSHandler) sendAuctionState(ctx context.Context, client *websocket.Client, auctionID uint64) {
	auction, err := h.auctionService.GetAuction(ctx, auctionID)
	if err != nil {
		h.sendErrorToClient(client, err.Error())
		return
	}
	data, err := json.Marshal(ServerAuctionStateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerAuctionState},
		Payload:     application.NewAuctionDTO(auction),
	})
	if err != nil {
		log.Error("failed to marshal ServerAuctionStateMessage", zap.Error(err))
		return
	}
	h.send(client, data)
}

// sendErrorToClient serializes and sends an error msg to a specific client
func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, errorMessage string) {
	errMsg := ServerErrorMessage{
		BaseMessage: BaseMessage{MessageTypeServerError},
	}
	errMsg.Payload.Error = errorMessage
	data, err := json.Marshal(errMsg)
	if err != nil {
		log.Error("failed to marshal ServerErrorMessage", zap.Error(err))
		return
	}
	h.send(client, data)
}

func (h *AuctionWSHandler) send(client *websocket.Client, data []byte) {
	if !client.TrySend(data) {
		log.Warn("client send channel full or closed, could not send msg", zap.String("clientID", client.ID))
	}
}
