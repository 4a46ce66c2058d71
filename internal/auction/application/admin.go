package application

import (
	"context"
	"fmt"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"go.uber.org/zap"
)

// FeePolicyDTO is the read-only projection of the platform fee.
type FeePolicyDTO struct {
	Version      domain.StorageVersion
	Installed    bool
	FeeRateBps   uint16
	FeeRecipient domain.Address
	Admin        domain.Address
}

// AdminUseCase groups the administrator-only operations. Every mutator checks the
// administrator capability stored in the engine state before touching anything.
type AdminUseCase struct {
	*engine
}

func newAdminUseCase(e *engine) *AdminUseCase {
	return &AdminUseCase{engine: e}
}

// authorize loads the state and fails unless caller is the administrator.
func (uc *AdminUseCase) authorize(ctx context.Context, op string, caller domain.Address) (*domain.EngineState, error) {
	state, err := uc.loadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !state.IsAdmin(caller) {
		log.Warn("Unauthorized administrator call",
			zap.String("op", op),
			zap.String("caller", caller.Hex()),
		)
		return nil, domain.ErrUnauthorized
	}
	return state, nil
}

// RegisterPriceFeed maps currency to a price source, replacing any previous mapping.
func (uc *AdminUseCase) RegisterPriceFeed(ctx context.Context, caller domain.Address, currency domain.Currency, source domain.Address) error {
	err := uc.serialize(ctx, func(ctx context.Context) error {
		if _, err := uc.authorize(ctx, "register price feed", caller); err != nil {
			return err
		}
		return uc.inTransaction(ctx, "register price feed", func(tx domain.Tx, _ domain.ChainTx) error {
			return uc.Oracle.RegisterFeed(ctx, tx, currency, source)
		})
	})
	if err != nil {
		return err
	}
	uc.publish(ctx, domain.Event{
		Type:      domain.EventPriceFeedSet,
		Actor:     caller,
		Currency:  currency,
		Timestamp: uc.Clock.Now(),
	})
	return nil
}

// MigrateToV2 installs the fee policy extension. It succeeds once per deployment.
func (uc *AdminUseCase) MigrateToV2(ctx context.Context, caller domain.Address, rateBps uint16, recipient domain.Address) error {
	err := uc.serialize(ctx, func(ctx context.Context) error {
		state, err := uc.authorize(ctx, "migrate to v2", caller)
		if err != nil {
			return err
		}
		if err := state.MigrateToV2(rateBps, recipient); err != nil {
			log.Warn("Storage migration rejected",
				zap.Uint8("version", uint8(state.Version)),
				zap.Error(err),
			)
			return err
		}
		return uc.inTransaction(ctx, "migrate to v2", func(tx domain.Tx, _ domain.ChainTx) error {
			return uc.State.Save(ctx, tx, state)
		})
	})
	if err != nil {
		return err
	}
	log.Info("Engine storage migrated to v2",
		zap.Uint16("feeRateBps", rateBps),
		zap.String("feeRecipient", recipient.Hex()),
	)
	uc.publish(ctx, domain.Event{
		Type:      domain.EventStorageMigrated,
		Actor:     caller,
		Timestamp: uc.Clock.Now(),
	})
	return nil
}

// SetPlatformFee retunes the fee policy installed by MigrateToV2.
func (uc *AdminUseCase) SetPlatformFee(ctx context.Context, caller domain.Address, rateBps uint16, recipient domain.Address) error {
	err := uc.serialize(ctx, func(ctx context.Context) error {
		state, err := uc.authorize(ctx, "set platform fee", caller)
		if err != nil {
			return err
		}
		if err := state.SetFeePolicy(rateBps, recipient); err != nil {
			return err
		}
		return uc.inTransaction(ctx, "set platform fee", func(tx domain.Tx, _ domain.ChainTx) error {
			return uc.State.Save(ctx, tx, state)
		})
	})
	if err != nil {
		return err
	}
	log.Info("Platform fee updated",
		zap.Uint16("feeRateBps", rateBps),
		zap.String("feeRecipient", recipient.Hex()),
	)
	uc.publish(ctx, domain.Event{
		Type:      domain.EventFeePolicySet,
		Actor:     caller,
		Timestamp: uc.Clock.Now(),
	})
	return nil
}

// TransferAdmin hands the administrator capability to newAdmin.
func (uc *AdminUseCase) TransferAdmin(ctx context.Context, caller, newAdmin domain.Address) error {
	if newAdmin == (domain.Address{}) {
		return fmt.Errorf("transfer admin: %w", domain.ErrInvalidRecipient)
	}
	err := uc.serialize(ctx, func(ctx context.Context) error {
		state, err := uc.authorize(ctx, "transfer admin", caller)
		if err != nil {
			return err
		}
		state.Admin = newAdmin
		return uc.inTransaction(ctx, "transfer admin", func(tx domain.Tx, _ domain.ChainTx) error {
			return uc.State.Save(ctx, tx, state)
		})
	})
	if err != nil {
		return err
	}
	uc.publish(ctx, domain.Event{
		Type:      domain.EventAdminChanged,
		Actor:     newAdmin,
		Timestamp: uc.Clock.Now(),
	})
	return nil
}

// FeePolicy returns the current fee policy.
func (uc *AdminUseCase) FeePolicy(ctx context.Context) (*FeePolicyDTO, error) {
	state, err := uc.loadState(ctx)
	if err != nil {
		return nil, err
	}
	fee := state.EffectiveFee()
	return &FeePolicyDTO{
		Version:      state.Version,
		Installed:    state.Migrated(),
		FeeRateBps:   fee.FeeRateBps,
		FeeRecipient: fee.FeeRecipient,
		Admin:        state.Admin,
	}, nil
}
