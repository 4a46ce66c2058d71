// Package oracle maps settlement currencies to USD price sources.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Adapter is the PriceOracleAdapter: a currency -> feed registry that quotes on demand.
// It never caches answers.
type Adapter struct {
	feeds    domain.FeedRepository
	resolver domain.FeedResolver
	clock    clock.Clock
	maxAge   time.Duration
}

// NewAdapter creates an Adapter. A zero maxAge disables the age check.
func NewAdapter(feeds domain.FeedRepository, resolver domain.FeedResolver, clk clock.Clock, maxAge time.Duration) *Adapter {
	return &Adapter{
		feeds:    feeds,
		resolver: resolver,
		clock:    clk,
		maxAge:   maxAge,
	}
}

// RegisterFeed maps currency to source inside tx, replacing any previous mapping.
// The caller is responsible for the administrator check.
func (a *Adapter) RegisterFeed(ctx context.Context, tx domain.Tx, currency domain.Currency, source domain.Address) error {
	if source == (domain.Address{}) {
		return fmt.Errorf("oracle: register feed for %s: zero source address", currency.Hex())
	}
	if _, err := a.resolver.Resolve(ctx, source); err != nil {
		return fmt.Errorf("oracle: register feed for %s: %w", currency.Hex(), err)
	}
	if err := a.feeds.Put(ctx, tx, currency, source); err != nil {
		return fmt.Errorf("oracle: register feed for %s: %w", currency.Hex(), err)
	}
	log.Info("Price feed registered",
		zap.String("currency", currency.Hex()),
		zap.String("source", source.Hex()),
	)
	return nil
}

// Feeds lists the registered currency -> source pairs.
func (a *Adapter) Feeds(ctx context.Context) ([]domain.FeedRegistration, error) {
	return a.feeds.List(ctx)
}

// Quote reads the latest USD price of currency from its feed.
func (a *Adapter) Quote(ctx context.Context, currency domain.Currency) (domain.PriceQuote, error) {
	source, err := a.feeds.Get(ctx, currency)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	feed, err := a.resolver.Resolve(ctx, source)
	if err != nil {
		log.Error("Price feed source cannot be resolved",
			zap.String("currency", currency.Hex()),
			zap.String("source", source.Hex()),
			zap.Error(err),
		)
		return domain.PriceQuote{}, fmt.Errorf("%w: %v", domain.ErrPricingUnavailable, err)
	}

	round, err := feed.LatestRoundData(ctx)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("%w: latest round: %v", domain.ErrPricingUnavailable, err)
	}
	decimals, err := feed.Decimals(ctx)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("%w: decimals: %v", domain.ErrPricingUnavailable, err)
	}

	if err := a.checkFresh(round); err != nil {
		log.Warn("Price feed answer rejected",
			zap.String("currency", currency.Hex()),
			zap.String("source", source.Hex()),
			zap.Stringer("answer", round.Answer),
			zap.Time("updatedAt", round.UpdatedAt),
			zap.Error(err),
		)
		return domain.PriceQuote{}, err
	}

	return domain.PriceQuote{
		Currency:   currency,
		Price:      round.Answer,
		Decimals:   decimals,
		ObservedAt: round.UpdatedAt,
	}, nil
}

var (
	errNonPositive = errors.New("non-positive answer")
	errNoTimestamp = errors.New("round has no timestamp")
	errFuture      = errors.New("round timestamp is in the future")
	errTooOld      = errors.New("round is older than the allowed age")
)

// MaxClockSkew is how far ahead of the local clock a round may be stamped. Block timestamps
// routinely lead local time by a few seconds.
const MaxClockSkew = 30 * time.Second

func (a *Adapter) checkFresh(round domain.Round) error {
	now := a.clock.Now()
	switch {
	case round.Answer == nil || round.Answer.Sign() <= 0:
		return fmt.Errorf("%w: %v", domain.ErrStalePrice, errNonPositive)
	case round.UpdatedAt.IsZero():
		return fmt.Errorf("%w: %v", domain.ErrStalePrice, errNoTimestamp)
	case round.UpdatedAt.After(now.Add(MaxClockSkew)):
		return fmt.Errorf("%w: %v", domain.ErrStalePrice, errFuture)
	case a.maxAge > 0 && now.Sub(round.UpdatedAt) > a.maxAge:
		return fmt.Errorf("%w: %v", domain.ErrStalePrice, errTooOld)
	}
	return nil
}
