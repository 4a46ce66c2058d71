package memchain

import (
	"fmt"
	"math/big"
	"os"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Genesis is the initial content of a development chain. Amounts are human readable
// decimal strings in whole units of their currency.
type Genesis struct {
	Native map[string]string `yaml:"native"`
	Tokens []GenesisToken    `yaml:"tokens"`
	Assets []GenesisAsset    `yaml:"assets"`
	Feeds  []GenesisFeed     `yaml:"feeds"`
}

type GenesisToken struct {
	Address    string             `yaml:"address"`
	Symbol     string             `yaml:"symbol"`
	Decimals   uint8              `yaml:"decimals"`
	Balances   map[string]string  `yaml:"balances"`
	Allowances []GenesisAllowance `yaml:"allowances"`
}

type GenesisAllowance struct {
	Owner   string `yaml:"owner"`
	Spender string `yaml:"spender"`
	Amount  string `yaml:"amount"`
}

type GenesisAsset struct {
	Collection     string   `yaml:"collection"`
	TokenID        int64    `yaml:"token_id"`
	Owner          string   `yaml:"owner"`
	ApprovedForAll []string `yaml:"approved_for_all"`
}

// GenesisFeed declares a static price feed. Answer is the USD price of one whole unit.
type GenesisFeed struct {
	Address  string `yaml:"address"`
	Currency string `yaml:"currency"`
	Decimals uint8  `yaml:"decimals"`
	Answer   string `yaml:"answer"`
}

// LoadGenesis reads a YAML genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memchain: read genesis: %w", err)
	}
	return ParseGenesis(raw)
}

func ParseGenesis(raw []byte) (*Genesis, error) {
	var g Genesis
	if err := yaml.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("memchain: parse genesis: %w", err)
	}
	return &g, nil
}

func hexAddress(s string) (domain.Address, error) {
	if !common.IsHexAddress(s) {
		return domain.Address{}, fmt.Errorf("memchain: invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// Apply loads the genesis into c.
func (g *Genesis) Apply(c *Chain) error {
	for account, amount := range g.Native {
		if err := mintUnits(c, domain.NativeCurrency, domain.NativeDecimals, account, amount); err != nil {
			return err
		}
	}

	for _, t := range g.Tokens {
		addr, err := hexAddress(t.Address)
		if err != nil {
			return err
		}
		c.DeployToken(addr, t.Symbol, t.Decimals)
		for account, amount := range t.Balances {
			if err := mintUnits(c, addr, t.Decimals, account, amount); err != nil {
				return err
			}
		}
		for _, al := range t.Allowances {
			owner, err := hexAddress(al.Owner)
			if err != nil {
				return err
			}
			spender, err := hexAddress(al.Spender)
			if err != nil {
				return err
			}
			amount, err := domain.ParseUnits(al.Amount, t.Decimals)
			if err != nil {
				return err
			}
			if err := c.Approve(addr, owner, spender, amount); err != nil {
				return err
			}
		}
	}

	for _, a := range g.Assets {
		collection, err := hexAddress(a.Collection)
		if err != nil {
			return err
		}
		owner, err := hexAddress(a.Owner)
		if err != nil {
			return err
		}
		c.MintAsset(domain.NewAsset(collection, big.NewInt(a.TokenID)), owner)
		for _, op := range a.ApprovedForAll {
			operator, err := hexAddress(op)
			if err != nil {
				return err
			}
			c.SetApprovalForAll(collection, owner, operator, true)
		}
	}
	return nil
}

func mintUnits(c *Chain, currency domain.Currency, decimals uint8, account, amount string) error {
	to, err := hexAddress(account)
	if err != nil {
		return err
	}
	v, err := domain.ParseUnits(amount, decimals)
	if err != nil {
		return err
	}
	return c.Mint(currency, to, v)
}
