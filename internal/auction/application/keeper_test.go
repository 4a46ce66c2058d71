package application

import (
	"context"
	"math/big"
	"time"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/chain/memchain"
)

func (s *serviceSuite) TestKeeperSettlesDueAuctions() {
	keeper := NewKeeper(s.svc, s.auctions, s.clock, time.Minute)
	a := s.create()
	_, err := s.bidETH(a.ID, alice, "0.02")
	s.Require().NoError(err)

	n, err := keeper.SettleDue(s.ctx)
	s.Require().NoError(err)
	s.Zero(n, "nothing is due yet")

	s.clock.Add(time.Hour)
	n, err = keeper.SettleDue(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(alice, s.owner())

	n, err = keeper.SettleDue(s.ctx)
	s.Require().NoError(err)
	s.Zero(n, "closed auctions are skipped")
}

func (s *serviceSuite) TestKeeperRetriesFailedSettlement() {
	keeper := NewKeeper(s.svc, s.auctions, s.clock, time.Minute)
	a := s.create()
	_, err := s.bidETH(a.ID, alice, "0.1")
	s.Require().NoError(err)
	s.clock.Add(time.Hour)

	s.chain.SetReceiveHook(seller, func(ctx context.Context, t memchain.Transfer) error {
		return memchain.ErrTransferRejected
	})
	n, err := keeper.SettleDue(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	s.chain.SetReceiveHook(seller, nil)
	n, err = keeper.SettleDue(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(eth("0.1"), s.balance(domain.NativeCurrency, seller))
	s.Equal(0, s.balance(domain.NativeCurrency, escrow).Cmp(big.NewInt(0)))
}
