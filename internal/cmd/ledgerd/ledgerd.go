// Package ledgerd parses node flags and runs the ledger node: the badger
// backed runtime behind the websocket server.
package ledgerd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"okinoko-higher_lower/contract"
	"okinoko-higher_lower/internal/config"
	"okinoko-higher_lower/internal/host"
	"okinoko-higher_lower/internal/logging"
	"okinoko-higher_lower/internal/server"
	"okinoko-higher_lower/sdk"
)

// Config holds node configuration.
type Config struct {
	Addr      string `env:"LEDGERD_ADDR" envDefault:":8090"`
	DataDir   string `env:"LEDGERD_DATA_DIR" envDefault:"./data"`
	InMemory  bool   `env:"LEDGERD_IN_MEMORY" envDefault:"false"`
	LogLevel  string `env:"LEDGERD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LEDGERD_LOG_FORMAT" envDefault:"json"`

	// Deployer initializes a fresh store and owns the fee pool.
	Deployer   string `env:"LEDGERD_DEPLOYER" envDefault:"hive:deployer"`
	MinStake   string `env:"LEDGERD_MIN_STAKE"`
	MaxStake   string `env:"LEDGERD_MAX_STAKE"`
	FeePercent string `env:"LEDGERD_FEE_PERCENT"`
	Reserve    string `env:"LEDGERD_RESERVE"`
	Asset      string `env:"LEDGERD_ASSET" envDefault:"near"`
	// SeedLiquidity is deposited into the contract account on first start.
	SeedLiquidity string `env:"LEDGERD_SEED_LIQUIDITY"`

	Faucet          bool          `env:"LEDGERD_FAUCET" envDefault:"false"`
	AllowOrigins    []string      `env:"LEDGERD_ALLOW_ORIGINS" envSeparator:","`
	CallTimeout     time.Duration `env:"LEDGERD_CALL_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"LEDGERD_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Badger data directory")
	fs.BoolVar(&cfg.InMemory, "in-memory", cfg.InMemory, "Keep all state in memory")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json or console)")
	fs.StringVar(&cfg.Deployer, "deployer", cfg.Deployer, "Address that initializes a fresh ledger")
	fs.StringVar(&cfg.MinStake, "min-stake", cfg.MinStake, "Minimum stake in smallest units")
	fs.StringVar(&cfg.MaxStake, "max-stake", cfg.MaxStake, "Maximum stake in smallest units")
	fs.StringVar(&cfg.FeePercent, "fee-percent", cfg.FeePercent, "Platform fee percent (0-100)")
	fs.StringVar(&cfg.Reserve, "reserve", cfg.Reserve, "Balance kept back on fee withdrawal")
	fs.StringVar(&cfg.Asset, "asset", cfg.Asset, "Staking asset")
	fs.StringVar(&cfg.SeedLiquidity, "seed-liquidity", cfg.SeedLiquidity, "Contract liquidity deposited on first start")
	fs.BoolVar(&cfg.Faucet, "faucet", cfg.Faucet, "Enable the development deposit method")
	fs.DurationVar(&cfg.CallTimeout, "call-timeout", cfg.CallTimeout, "Per request timeout")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")

	if err := config.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Asset = strings.ToLower(cfg.Asset)
	return cfg, nil
}

// initPayload is the l_init payload; empty fields keep contract defaults.
func (c Config) initPayload() string {
	return strings.Join([]string{c.MinStake, c.MaxStake, c.FeePercent, c.Reserve, c.Asset}, "|")
}

// Run opens the store and serves on cfg.Addr until ctx is done.
func Run(ctx context.Context, cfg Config) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return Serve(ctx, cfg, ln)
}

// Serve runs the node on ln. It closes ln on return.
func Serve(ctx context.Context, cfg Config, ln net.Listener) error {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		ln.Close()
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := host.OpenStore(host.StoreOptions{Dir: cfg.DataDir, InMemory: cfg.InMemory}, log)
	if err != nil {
		ln.Close()
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt := host.NewRuntime(store, host.Options{
		Asset:   sdk.Asset(cfg.Asset),
		Logger:  log.Named("host"),
		Metrics: host.NewMetrics(reg),
	})
	if err := Bootstrap(ctx, rt, cfg, log); err != nil {
		ln.Close()
		return err
	}

	srv := server.New(rt, server.Options{
		AllowOrigins: cfg.AllowOrigins,
		Faucet:       cfg.Faucet,
		Logger:       log.Named("server"),
		Gatherer:     reg,
		CallTimeout:  cfg.CallTimeout,
	})
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("ledger node listening", zap.String("addr", ln.Addr().String()), zap.Bool("faucet", cfg.Faucet))
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return httpSrv.Shutdown(sctx)
	})
	return g.Wait()
}

// Bootstrap initializes a fresh ledger as the deployer. An initialized
// ledger is left alone, but its asset must match the runtime asset. The
// configured seed liquidity is deposited whenever the contract account is
// empty, so a seed lost to a failed start is retried on the next one.
func Bootstrap(ctx context.Context, rt *host.Runtime, cfg Config, log *zap.Logger) error {
	deployer := sdk.Address(cfg.Deployer)
	res, err := rt.Call(ctx, host.Call{Method: "cfg_get", Sender: deployer})
	var ce *host.CallError
	switch {
	case err == nil:
		log.Info("ledger already initialized")
	case errors.As(err, &ce) && ce.Kind == "NotInitialized":
		if _, err := rt.Call(ctx, host.Call{Method: "l_init", Payload: cfg.initPayload(), Sender: deployer}); err != nil {
			return fmt.Errorf("initialize ledger: %w", err)
		}
		if res, err = rt.Call(ctx, host.Call{Method: "cfg_get", Sender: deployer}); err != nil {
			return err
		}
		log.Info("ledger initialized", zap.String("owner", deployer.String()), zap.String("config", res.Output))
	default:
		return fmt.Errorf("read ledger config: %w", err)
	}

	var view contract.ConfigView
	if err := json.Unmarshal([]byte(res.Output), &view); err != nil {
		return fmt.Errorf("decode ledger config: %w", err)
	}
	if view.Asset != rt.Asset() {
		return fmt.Errorf("ledger stakes %s but the node is configured for %s", view.Asset, rt.Asset())
	}
	return seedLiquidity(ctx, rt, cfg, log)
}

func seedLiquidity(ctx context.Context, rt *host.Runtime, cfg Config, log *zap.Logger) error {
	if cfg.SeedLiquidity == "" {
		return nil
	}
	amount, err := sdk.ParseAmount(cfg.SeedLiquidity)
	if err != nil {
		return fmt.Errorf("seed liquidity: %w", err)
	}
	bal, err := rt.Balance(ctx, host.ContractAccount)
	if err != nil {
		return err
	}
	if !bal.IsZero() {
		return nil
	}
	if _, err := rt.Deposit(ctx, host.ContractAccount, amount); err != nil {
		return fmt.Errorf("seed liquidity: %w", err)
	}
	log.Info("contract account seeded", zap.String("amount", amount.String()))
	return nil
}
