package application

import (
	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/chain/memchain"
)

func (s *serviceSuite) TestVerifyEscrowMatchesLedger() {
	a := s.create()
	_, err := s.bidETH(a.ID, alice, "0.5")
	s.Require().NoError(err)

	s.NoError(VerifyEscrow(s.ctx, s.auctions, s.chain, escrow))
}

func (s *serviceSuite) TestVerifyEscrowRejectsRebuiltChain() {
	a := s.create()
	_, err := s.bidETH(a.ID, alice, "0.5")
	s.Require().NoError(err)

	// a chain rebuilt from genesis: the asset is back with the seller
	rebuilt := memchain.New()
	rebuilt.MintAsset(s.asset, seller)
	s.ErrorIs(VerifyEscrow(s.ctx, s.auctions, rebuilt, escrow), domain.ErrEscrowMismatch)

	// asset in escrow but the leading bid is gone
	rebuilt = memchain.New()
	rebuilt.MintAsset(s.asset, escrow)
	s.ErrorIs(VerifyEscrow(s.ctx, s.auctions, rebuilt, escrow), domain.ErrEscrowMismatch)
}
