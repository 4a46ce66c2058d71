package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// DBConfig holds the postgres connection settings.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the postgres connection url used by pgx and golang-migrate.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	Store          string
	DB             DBConfig
	MigrationsPath string

	AdminAddress  common.Address
	EngineAddress common.Address
	JWTSecret     string

	EthRPCURL         string
	OracleMaxPriceAge time.Duration
	ChainGenesis      string

	// KeeperInterval is how often due auctions are settled. Zero disables the keeper.
	KeeperInterval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("HTTP_ADDR", ":9000")
	v.SetDefault("STORE", StoreMemory)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("MIGRATIONS_PATH", "file://internal/shared/db/migrations/sql")
	v.SetDefault("ORACLE_MAX_PRICE_AGE", "0s")
	v.SetDefault("KEEPER_INTERVAL", "30s")
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppEnv:   v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		HTTPAddr: v.GetString("HTTP_ADDR"),
		Store:    strings.ToLower(v.GetString("STORE")),
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		MigrationsPath:    v.GetString("MIGRATIONS_PATH"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		EthRPCURL:         v.GetString("ETH_RPC_URL"),
		OracleMaxPriceAge: v.GetDuration("ORACLE_MAX_PRICE_AGE"),
		ChainGenesis:      v.GetString("CHAIN_GENESIS"),
		KeeperInterval:    v.GetDuration("KEEPER_INTERVAL"),
	}

	var err error
	if cfg.AdminAddress, err = parseAddress("ADMIN_ADDRESS", v.GetString("ADMIN_ADDRESS")); err != nil {
		return nil, err
	}
	if cfg.EngineAddress, err = parseAddress("ENGINE_ADDRESS", v.GetString("ENGINE_ADDRESS")); err != nil {
		return nil, err
	}

	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("config: unknown STORE %q", cfg.Store)
	}
	if cfg.KeeperInterval < 0 {
		return nil, fmt.Errorf("config: KEEPER_INTERVAL cannot be negative, got %s", cfg.KeeperInterval)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is required")
	}
	return cfg, nil
}

func parseAddress(key, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("config: %s must be a hex address, got %q", key, value)
	}
	addr := common.HexToAddress(value)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("config: %s cannot be the zero address", key)
	}
	return addr, nil
}
