package application

import (
	"context"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"go.uber.org/zap"
)

// LogPublisher writes every event to the shared logger.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher { return &LogPublisher{} }

func (LogPublisher) Publish(ctx context.Context, ev domain.Event) {
	fields := []zap.Field{
		zap.String("type", string(ev.Type)),
		zap.Uint64("auctionID", ev.AuctionID),
		zap.String("actor", ev.Actor.Hex()),
		zap.Time("timestamp", ev.Timestamp),
	}
	if ev.Amount != nil {
		fields = append(fields,
			zap.String("currency", ev.Currency.Hex()),
			zap.Stringer("amount", ev.Amount),
		)
	}
	if ev.USDValue != nil {
		fields = append(fields, zap.String("usdValue", domain.FormatUSD(ev.USDValue)))
	}
	if ev.Fee != nil {
		fields = append(fields, zap.Stringer("fee", ev.Fee))
	}
	log.Info("Engine event", fields...)
}

// FanOut delivers each event to every publisher in order.
type FanOut []domain.EventPublisher

func (f FanOut) Publish(ctx context.Context, ev domain.Event) {
	for _, p := range f {
		p.Publish(ctx, ev)
	}
}
