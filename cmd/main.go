package main

import (
	"context"
	"errors"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cristianortiz/nftAuction/internal/auction/application"
	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/auction/infra/repository/memory"
	"github.com/cristianortiz/nftAuction/internal/auction/infra/repository/postgres"
	"github.com/cristianortiz/nftAuction/internal/auction/infra/rest"
	auctionws "github.com/cristianortiz/nftAuction/internal/auction/infra/websocket"
	"github.com/cristianortiz/nftAuction/internal/chain/memchain"
	"github.com/cristianortiz/nftAuction/internal/oracle"
	"github.com/cristianortiz/nftAuction/internal/shared/config"
	"github.com/cristianortiz/nftAuction/internal/shared/db"
	"github.com/cristianortiz/nftAuction/internal/shared/db/migrations"
	"github.com/cristianortiz/nftAuction/internal/shared/httpserver"
	"github.com/cristianortiz/nftAuction/internal/shared/logger"
	"github.com/cristianortiz/nftAuction/internal/shared/websocket"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ledger groups the repositories of the selected store.
type ledger struct {
	tx       domain.TxManager
	auctions domain.AuctionRepository
	bids     domain.BidRepository
	state    domain.StateRepository
	feeds    domain.FeedRepository
	close    func()
}

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Warn("Invalid LOG_LEVEL, keeping default", zap.String("level", cfg.LogLevel), zap.Error(err))
	}
	log.Info("Starting nftAuction server...",
		zap.String("env", cfg.AppEnv),
		zap.String("store", cfg.Store),
		zap.String("engine", cfg.EngineAddress.Hex()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openLedger(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open ledger", zap.Error(err))
	}
	defer store.close()

	clk := clock.New()
	chain := memchain.New()
	static := oracle.NewStaticResolver()
	var genesisFeeds []memchain.GenesisFeed
	if cfg.ChainGenesis != "" {
		genesis, err := memchain.LoadGenesis(cfg.ChainGenesis)
		if err != nil {
			log.Fatal("Failed to load chain genesis", zap.Error(err))
		}
		if err := genesis.Apply(chain); err != nil {
			log.Fatal("Failed to apply chain genesis", zap.Error(err))
		}
		if err := addStaticFeeds(static, genesis.Feeds, clk); err != nil {
			log.Fatal("Failed to load genesis price feeds", zap.Error(err))
		}
		genesisFeeds = genesis.Feeds
		log.Info("Chain genesis applied", zap.String("path", cfg.ChainGenesis), zap.Int("feeds", len(genesis.Feeds)))
	}

	// the in-process chain starts from genesis on every boot, a persistent ledger must agree with it
	if cfg.Store == config.StorePostgres {
		if err := application.VerifyEscrow(ctx, store.auctions, chain, cfg.EngineAddress); err != nil {
			log.Fatal("Persistent ledger does not match the in-process chain, use STORE=memory or reset the database", zap.Error(err))
		}
	}

	resolver := oracle.ChainResolver{static}
	if cfg.EthRPCURL != "" {
		client, err := ethclient.DialContext(ctx, cfg.EthRPCURL)
		if err != nil {
			log.Fatal("Failed to dial ethereum node", zap.Error(err))
		}
		defer client.Close()
		resolver = append(resolver, oracle.NewChainlinkResolver(client))
		log.Info("Chainlink price feeds enabled")
	}
	priceOracle := oracle.NewAdapter(store.feeds, resolver, clk, cfg.OracleMaxPriceAge)

	hub := websocket.NewHub()
	go hub.Run(ctx)
	wsHandler := auctionws.NewAuctionWSHandler(ctx, nil, hub)

	svc, err := application.NewAuctionService(ctx, application.Dependencies{
		TxManager: store.tx,
		Auctions:  store.auctions,
		Bids:      store.bids,
		State:     store.state,
		Oracle:    priceOracle,
		Chain:     chain,
		Events:    application.FanOut{application.NewLogPublisher(), wsHandler},
		Clock:     clk,
		Escrow:    cfg.EngineAddress,
	}, cfg.AdminAddress)
	if err != nil {
		log.Fatal("Failed to start auction service", zap.Error(err))
	}
	wsHandler.SetService(svc)
	go wsHandler.ListenForMessages(ctx)

	for _, f := range genesisFeeds {
		err := svc.RegisterPriceFeed(ctx, cfg.AdminAddress, common.HexToAddress(f.Currency), common.HexToAddress(f.Address))
		if err != nil {
			log.Warn("Could not register genesis price feed", zap.String("currency", f.Currency), zap.Error(err))
		}
	}

	if cfg.KeeperInterval > 0 {
		keeper := application.NewKeeper(svc, store.auctions, clk, cfg.KeeperInterval)
		go keeper.Run(ctx)
	}

	server := httpserver.NewServer()
	rest.NewAuctionHandler(svc, chain, httpserver.NewValidator()).
		Register(server.App(), httpserver.RequireAuth([]byte(cfg.JWTSecret)))
	wsHandler.Register(server.App())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	if err := server.Start(cfg.HTTPAddr); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
	log.Info("nftAuction server stopped")
}

func openLedger(ctx context.Context, cfg *config.Config) (*ledger, error) {
	log := logger.GetLogger()
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("Using in-memory ledger, state is lost on restart")
		s := memory.NewStore()
		return &ledger{
			tx:       s,
			auctions: memory.NewAuctionRepository(s),
			bids:     memory.NewBidRepository(s),
			state:    memory.NewStateRepository(s),
			feeds:    memory.NewFeedRepository(s),
			close:    func() {},
		}, nil
	case config.StorePostgres:
		log.Info("Running database migrations...")
		if err := migrations.RunMigrations(cfg.MigrationsPath, cfg.DB.DSN()); err != nil {
			return nil, err
		}
		pool, err := db.GetPostgresDBPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		return &ledger{
			tx:       postgres.NewTxManager(pool),
			auctions: postgres.NewAuctionRepository(pool),
			bids:     postgres.NewBidRepository(pool),
			state:    postgres.NewStateRepository(pool),
			feeds:    postgres.NewFeedRepository(pool),
			close:    pool.Close,
		}, nil
	}
	return nil, errors.New("unknown store " + cfg.Store)
}

// addStaticFeeds serves each genesis feed at its address with a constant answer.
func addStaticFeeds(r *oracle.StaticResolver, feeds []memchain.GenesisFeed, clk clock.Clock) error {
	for _, f := range feeds {
		answer, err := domain.ParseUnits(f.Answer, f.Decimals)
		if err != nil {
			return err
		}
		if !common.IsHexAddress(f.Address) || !common.IsHexAddress(f.Currency) {
			return errors.New("genesis feed with invalid address " + f.Address)
		}
		r.Add(common.HexToAddress(f.Address), oracle.NewStaticFeed(f.Decimals, new(big.Int).Set(answer), clk))
	}
	return nil
}
