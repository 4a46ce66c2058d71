// Package memchain is an in-process ledger of native coin, fungible tokens and
// non-fungible assets. It backs the engine in development and in tests.
package memchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

var (
	ErrUnknownToken     = errors.New("memchain: unknown token")
	ErrUnknownAsset     = errors.New("memchain: unknown asset")
	ErrTransferRejected = errors.New("memchain: recipient rejected transfer")
	ErrTxDone           = errors.New("memchain: transaction already finished")
)

// Transfer describes one movement delivered to a receive hook.
// Asset is set for asset transfers, Currency and Amount for currency transfers.
type Transfer struct {
	Currency domain.Currency
	Amount   *big.Int
	Asset    *domain.Asset
	From     domain.Address
	To       domain.Address
}

// ReceiveHook runs after a transfer to the hooked account is applied. Returning an error
// rejects the transfer and it is undone. Hooks run without the chain lock held, so they may
// call back into the engine.
type ReceiveHook func(ctx context.Context, t Transfer) error

type token struct {
	symbol     string
	decimals   uint8
	balances   map[domain.Address]*big.Int
	allowances map[domain.Address]map[domain.Address]*big.Int
}

type item struct {
	owner    domain.Address
	approved domain.Address
}

// Chain is the in-memory ledger. It implements domain.Chain.
type Chain struct {
	mu        sync.Mutex
	native    map[domain.Address]*big.Int
	tokens    map[domain.Address]*token
	items     map[string]*item
	operators map[domain.Address]map[domain.Address]map[domain.Address]bool
	hooks     map[domain.Address]ReceiveHook
}

func New() *Chain {
	return &Chain{
		native:    make(map[domain.Address]*big.Int),
		tokens:    make(map[domain.Address]*token),
		items:     make(map[string]*item),
		operators: make(map[domain.Address]map[domain.Address]map[domain.Address]bool),
		hooks:     make(map[domain.Address]ReceiveHook),
	}
}

// DeployToken registers a fungible token contract.
func (c *Chain) DeployToken(address domain.Address, symbol string, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[address] = &token{
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[domain.Address]*big.Int),
		allowances: make(map[domain.Address]map[domain.Address]*big.Int),
	}
}

// Mint credits amount of currency to account.
func (c *Chain) Mint(currency domain.Currency, account domain.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bal, err := c.balanceRef(currency, account)
	if err != nil {
		return err
	}
	bal.Add(bal, amount)
	return nil
}

// Approve sets the token allowance owner grants spender.
func (c *Chain) Approve(currency domain.Currency, owner, spender domain.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[currency]
	if !ok {
		return ErrUnknownToken
	}
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[domain.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
	return nil
}

// MintAsset creates a non-fungible item owned by owner.
func (c *Chain) MintAsset(asset domain.Asset, owner domain.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[asset.Key()] = &item{owner: owner}
}

// ApproveAsset lets operator move a single asset.
func (c *Chain) ApproveAsset(asset domain.Asset, operator domain.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[asset.Key()]
	if !ok {
		return ErrUnknownAsset
	}
	it.approved = operator
	return nil
}

// SetApprovalForAll lets operator move every asset of owner in collection.
func (c *Chain) SetApprovalForAll(collection, owner, operator domain.Address, approved bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.operators[collection] == nil {
		c.operators[collection] = make(map[domain.Address]map[domain.Address]bool)
	}
	if c.operators[collection][owner] == nil {
		c.operators[collection][owner] = make(map[domain.Address]bool)
	}
	c.operators[collection][owner][operator] = approved
}

// SetReceiveHook installs (or, with nil, removes) the receive hook of account.
func (c *Chain) SetReceiveHook(account domain.Address, hook ReceiveHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hook == nil {
		delete(c.hooks, account)
		return
	}
	c.hooks[account] = hook
}

// RejectAll is a ReceiveHook for accounts that refuse every incoming transfer.
func RejectAll(ctx context.Context, t Transfer) error {
	return ErrTransferRejected
}

func (c *Chain) OwnerOf(ctx context.Context, asset domain.Asset) (domain.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[asset.Key()]
	if !ok {
		return domain.Address{}, ErrUnknownAsset
	}
	return it.owner, nil
}

func (c *Chain) IsApproved(ctx context.Context, asset domain.Asset, owner, operator domain.Address) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[asset.Key()]
	if !ok {
		return false, ErrUnknownAsset
	}
	return c.isApproved(asset, it, owner, operator), nil
}

func (c *Chain) isApproved(asset domain.Asset, it *item, owner, operator domain.Address) bool {
	if it.owner != owner {
		return false
	}
	if it.approved == operator {
		return true
	}
	return c.operators[asset.Collection][owner][operator]
}

func (c *Chain) Decimals(ctx context.Context, currency domain.Currency) (uint8, error) {
	if domain.IsNative(currency) {
		return domain.NativeDecimals, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[currency]
	if !ok {
		return 0, ErrUnknownToken
	}
	return t.decimals, nil
}

func (c *Chain) Allowance(ctx context.Context, currency domain.Currency, owner, spender domain.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[currency]
	if !ok {
		return nil, ErrUnknownToken
	}
	if a := t.allowances[owner][spender]; a != nil {
		return new(big.Int).Set(a), nil
	}
	return new(big.Int), nil
}

func (c *Chain) BalanceOf(ctx context.Context, currency domain.Currency, account domain.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bal, err := c.balanceRef(currency, account)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(bal), nil
}

// balanceRef returns the live balance of account, creating it when missing. Callers hold mu.
func (c *Chain) balanceRef(currency domain.Currency, account domain.Address) (*big.Int, error) {
	var balances map[domain.Address]*big.Int
	if domain.IsNative(currency) {
		balances = c.native
	} else {
		t, ok := c.tokens[currency]
		if !ok {
			return nil, ErrUnknownToken
		}
		balances = t.balances
	}
	bal, ok := balances[account]
	if !ok {
		bal = new(big.Int)
		balances[account] = bal
	}
	return bal, nil
}

// Begin implements domain.Chain.
func (c *Chain) Begin(ctx context.Context, operator domain.Address) (domain.ChainTx, error) {
	return &Tx{chain: c, operator: operator}, nil
}

// Tx applies transfers immediately and keeps an undo journal until Commit.
type Tx struct {
	chain    *Chain
	operator domain.Address
	undo     []func()
	done     bool
}

func (t *Tx) TransferCurrency(ctx context.Context, currency domain.Currency, from, to domain.Address, amount *big.Int) error {
	if t.done {
		return ErrTxDone
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("memchain: transfer of non-positive amount %s", amount)
	}

	undo, err := t.applyCurrency(currency, from, to, amount)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, undo)

	return t.notify(ctx, to, Transfer{Currency: currency, Amount: new(big.Int).Set(amount), From: from, To: to})
}

func (t *Tx) applyCurrency(currency domain.Currency, from, to domain.Address, amount *big.Int) (func(), error) {
	c := t.chain
	c.mu.Lock()
	defer c.mu.Unlock()

	fromBal, err := c.balanceRef(currency, from)
	if err != nil {
		return nil, err
	}
	toBal, err := c.balanceRef(currency, to)
	if err != nil {
		return nil, err
	}
	if fromBal.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: %s holds %s, needs %s", domain.ErrInsufficientBalance, from.Hex(), fromBal, amount)
	}

	var allowance *big.Int
	if from != t.operator && !domain.IsNative(currency) {
		allowance = c.tokens[currency].allowances[from][t.operator]
		if allowance == nil || allowance.Cmp(amount) < 0 {
			return nil, fmt.Errorf("%w: %s allows %s, needs %s", domain.ErrInsufficientAllowance, from.Hex(), allowance, amount)
		}
		allowance.Sub(allowance, amount)
	}

	fromBal.Sub(fromBal, amount)
	toBal.Add(toBal, amount)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		toBal.Sub(toBal, amount)
		fromBal.Add(fromBal, amount)
		if allowance != nil {
			allowance.Add(allowance, amount)
		}
	}, nil
}

func (t *Tx) TransferAsset(ctx context.Context, asset domain.Asset, from, to domain.Address) error {
	if t.done {
		return ErrTxDone
	}

	undo, err := t.applyAsset(asset, from, to)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, undo)

	a := domain.NewAsset(asset.Collection, asset.TokenID)
	return t.notify(ctx, to, Transfer{Asset: &a, From: from, To: to})
}

func (t *Tx) applyAsset(asset domain.Asset, from, to domain.Address) (func(), error) {
	c := t.chain
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[asset.Key()]
	if !ok {
		return nil, ErrUnknownAsset
	}
	if it.owner != from {
		return nil, fmt.Errorf("%w: %s is owned by %s", domain.ErrNotAssetOwner, asset, it.owner.Hex())
	}
	if from != t.operator && !c.isApproved(asset, it, from, t.operator) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotApproved, asset)
	}

	prevApproved := it.approved
	it.owner = to
	it.approved = domain.Address{}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		it.owner = from
		it.approved = prevApproved
	}, nil
}

// notify runs the receive hook of to, if any. A rejection is reported to the caller, the
// applied transfer stays in the journal and is undone by Rollback.
func (t *Tx) notify(ctx context.Context, to domain.Address, tr Transfer) error {
	t.chain.mu.Lock()
	hook := t.chain.hooks[to]
	t.chain.mu.Unlock()
	if hook == nil {
		return nil
	}
	if err := hook(ctx, tr); err != nil {
		log.Debug("Transfer rejected by recipient",
			zap.String("to", to.Hex()),
			zap.String("from", tr.From.Hex()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrTransferRejected, err)
	}
	return nil
}

func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.undo = nil
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}
