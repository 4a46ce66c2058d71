package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViper(values map[string]string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

var validEnv = map[string]string{
	"ADMIN_ADDRESS":  "0xad00000000000000000000000000000000000001",
	"ENGINE_ADDRESS": "0xe000000000000000000000000000000000000001",
	"JWT_SECRET":     "secret",
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(testViper(validEnv))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, time.Duration(0), cfg.OracleMaxPriceAge)
	assert.Equal(t, 30*time.Second, cfg.KeeperInterval)
	assert.Equal(t, common.HexToAddress("0xad00000000000000000000000000000000000001"), cfg.AdminAddress)
	assert.Equal(t, "postgres://:@localhost:5432/?sslmode=disable", cfg.DB.DSN())
}

func TestFromViper_Overrides(t *testing.T) {
	env := map[string]string{
		"STORE":                "POSTGRES",
		"ORACLE_MAX_PRICE_AGE": "1h",
		"DB_USER":              "auction",
		"DB_PASSWORD":          "pw",
		"DB_NAME":              "auctions",
		"KEEPER_INTERVAL":      "0s",
	}
	for k, v := range validEnv {
		env[k] = v
	}
	cfg, err := fromViper(testViper(env))
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, time.Hour, cfg.OracleMaxPriceAge)
	assert.Zero(t, cfg.KeeperInterval, "zero disables the keeper")
	assert.Equal(t, "postgres://auction:pw@localhost:5432/auctions?sslmode=disable", cfg.DB.DSN())
}

func TestFromViper_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad admin":     {"ADMIN_ADDRESS": "nope"},
		"zero engine":   {"ENGINE_ADDRESS": "0x0000000000000000000000000000000000000000"},
		"missing jwt":   {"JWT_SECRET": ""},
		"unknown store": {"STORE": "redis"},
		"negative keep": {"KEEPER_INTERVAL": "-1s"},
	}
	for name, override := range cases {
		t.Run(name, func(t *testing.T) {
			env := map[string]string{}
			for k, v := range validEnv {
				env[k] = v
			}
			for k, v := range override {
				env[k] = v
			}
			_, err := fromViper(testViper(env))
			assert.Error(t, err)
		})
	}
}
