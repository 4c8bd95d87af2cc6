package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hubfx/config"
	"hubfx/gateway"
	"hubfx/native/exchange"
	"hubfx/native/gov"
	"hubfx/native/oracle"
	"hubfx/native/registry"
	"hubfx/native/token"
	"hubfx/observability"
	"hubfx/observability/logging"
	"hubfx/storage"
)

// staticRoles grants capabilities from the startup configuration.
type staticRoles struct {
	grants map[string]map[[20]byte]bool
}

func newStaticRoles() *staticRoles {
	return &staticRoles{grants: make(map[string]map[[20]byte]bool)}
}

func (r *staticRoles) grant(role string, addr [20]byte) {
	if r.grants[role] == nil {
		r.grants[role] = make(map[[20]byte]bool)
	}
	r.grants[role][addr] = true
}

func (r *staticRoles) HasRole(role string, addr []byte) bool {
	var key [20]byte
	copy(key[:], addr)
	return r.grants[role][key]
}

func main() {
	configPath := flag.String("config", "/etc/hubfx/hubfx.toml", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "hubfxd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("hubfxd", cfg.Environment)

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	admin := config.Address(cfg.Timelock.Admin)
	roles := newStaticRoles()
	roles.grant(registry.RoleRegistryAdmin, admin)
	for _, feeder := range cfg.Oracle.Feeders {
		roles.grant(oracle.RoleOracleFeeder, config.Address(feeder))
	}

	reg := registry.New()
	reg.SetRoles(roles)
	if err := seedRegistry(reg, cfg, admin); err != nil {
		return fmt.Errorf("seed registry: %w", err)
	}

	prices := oracle.NewStore()
	prices.SetRoles(roles)
	prices.SetSkew(cfg.Oracle.MaxSkew.Duration)

	dir := token.NewDirectory()
	for _, tok := range cfg.Tokens {
		dir.Register(token.New(config.Address(tok.Address), tok.Symbol, tok.Decimals))
	}

	ledger := exchange.NewLedger(store, dir, config.Address(cfg.Custody))
	engine := exchange.NewEngine(reg, prices, ledger, dir)
	engine.SetTreasury(config.Address(cfg.Treasury))
	engine.SetMetrics(observability.Exchange())

	// Runtime registry changes go through the admin endpoints, which queue
	// every mutation on the timelock; only the startup seed applies directly.
	timelock := gov.NewTimelock(admin, cfg.Timelock.Delay.Duration)
	logger.Info("timelock configured", "delay", timelock.Delay().String())

	srv, err := gateway.New(gateway.Config{ListenAddress: cfg.ListenAddress}, engine, reg, ledger, prices, timelock, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting hubfxd",
		"environment", cfg.Environment,
		"database", cfg.DatabasePath,
		"tokens", len(cfg.Tokens),
		"pairs", len(cfg.Pairs),
	)
	return srv.Run(ctx)
}

func seedRegistry(reg *registry.Registry, cfg config.Config, admin [20]byte) error {
	hub := config.Address(cfg.HubToken)
	for _, tok := range cfg.Tokens {
		kind := registry.KindAsset
		if tok.Kind == "stable" {
			kind = registry.KindStable
		}
		addr := config.Address(tok.Address)
		if err := reg.AddToken(admin, addr, kind, config.Amount(tok.MinPrice), config.Amount(tok.MaxPrice)); err != nil {
			return fmt.Errorf("token %s: %w", tok.Address, err)
		}
	}
	if err := reg.SetHubToken(admin, hub); err != nil {
		return fmt.Errorf("hub token: %w", err)
	}
	for _, pair := range cfg.Pairs {
		err := reg.AddPair(admin, &registry.PairConfig{
			AnchorToken:               config.Address(pair.Anchor),
			QuoteToken:                config.Address(pair.Quote),
			BuyFee:                    config.Amount(pair.BuyFee),
			BuyReserveRatioThreshold:  config.Amount(pair.BuyThreshold),
			SellFee:                   config.Amount(pair.SellFee),
			SellReserveRatioThreshold: config.Amount(pair.SellThreshold),
		})
		if err != nil {
			return fmt.Errorf("pair %s/%s: %w", pair.Anchor, pair.Quote, err)
		}
	}
	return nil
}
