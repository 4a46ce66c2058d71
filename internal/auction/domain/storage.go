package domain

// StorageVersion tracks which layout of the engine storage is live.
type StorageVersion uint8

const (
	StorageV1 StorageVersion = 1
	StorageV2 StorageVersion = 2
)

// StateV1 is the engine storage laid out by the first release.
// Auctions, bids and price feeds live in their own repositories.
type StateV1 struct {
	Version       StorageVersion
	Admin         Address
	NextAuctionID uint64
}

// FeePolicy is the platform fee appended by the v2 layout.
type FeePolicy struct {
	FeeRateBps   uint16
	FeeRecipient Address
}

// EngineState is the full storage: the v1 fields followed by the v2 extension.
// Fields are only ever appended.
type EngineState struct {
	StateV1
	FeePolicy
}

// NewEngineState returns the storage of a fresh v1 deployment.
func NewEngineState(admin Address) *EngineState {
	return &EngineState{
		StateV1: StateV1{
			Version:       StorageV1,
			Admin:         admin,
			NextAuctionID: 1,
		},
	}
}

// IsAdmin reports whether caller holds the administrator capability.
func (s *EngineState) IsAdmin(caller Address) bool {
	return caller == s.Admin && caller != (Address{})
}

// Migrated reports whether the v2 fee extension is installed.
func (s *EngineState) Migrated() bool {
	return s.Version >= StorageV2
}

// MigrateToV2 installs the fee policy. It can run once.
func (s *EngineState) MigrateToV2(rateBps uint16, recipient Address) error {
	if s.Migrated() {
		return ErrAlreadyMigrated
	}
	if err := validateFee(rateBps, recipient); err != nil {
		return err
	}
	s.Version = StorageV2
	s.FeePolicy = FeePolicy{FeeRateBps: rateBps, FeeRecipient: recipient}
	return nil
}

// SetFeePolicy retunes the installed fee policy.
func (s *EngineState) SetFeePolicy(rateBps uint16, recipient Address) error {
	if !s.Migrated() {
		return ErrNotMigrated
	}
	if err := validateFee(rateBps, recipient); err != nil {
		return err
	}
	s.FeePolicy = FeePolicy{FeeRateBps: rateBps, FeeRecipient: recipient}
	return nil
}

// EffectiveFee is the policy settlement applies: zero before the migration.
func (s *EngineState) EffectiveFee() FeePolicy {
	if !s.Migrated() {
		return FeePolicy{}
	}
	return s.FeePolicy
}

// TakeAuctionID reserves the next auction id.
func (s *EngineState) TakeAuctionID() uint64 {
	id := s.NextAuctionID
	s.NextAuctionID++
	return id
}

// Clone copies the state.
func (s *EngineState) Clone() *EngineState {
	c := *s
	return &c
}

func validateFee(rateBps uint16, recipient Address) error {
	if rateBps > BpsDenominator {
		return ErrInvalidFeeRate
	}
	if rateBps > 0 && recipient == (Address{}) {
		return ErrInvalidRecipient
	}
	return nil
}
