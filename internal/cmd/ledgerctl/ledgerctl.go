// Package ledgerctl is the command line client of the ledger node.
package ledgerctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"okinoko-higher_lower/contract"
	"okinoko-higher_lower/internal/client"
	"okinoko-higher_lower/internal/config"
	"okinoko-higher_lower/internal/server"
	"okinoko-higher_lower/sdk"
)

// Config holds client configuration.
type Config struct {
	URL       string        `env:"LEDGERCTL_URL" envDefault:"ws://localhost:8090/ws"`
	Principal string        `env:"LEDGERCTL_PRINCIPAL"`
	Asset     string        `env:"LEDGERCTL_ASSET" envDefault:"near"`
	Timeout   time.Duration `env:"LEDGERCTL_TIMEOUT" envDefault:"10s"`

	// Args is the command and its arguments.
	Args []string
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.URL, "url", cfg.URL, "Ledger node websocket URL")
	fs.StringVar(&cfg.Principal, "as", cfg.Principal, "Caller address")
	fs.StringVar(&cfg.Asset, "asset", cfg.Asset, "Staking asset")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Command timeout")
	fs.Usage = func() {
		pterm.Println("usage: ledgerctl [flags] <command> [args]")
		pterm.Println()
		pterm.Println(usage)
		fs.PrintDefaults()
	}
	if err := config.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Args = fs.Args()
	if len(cfg.Args) == 0 {
		return Config{}, errors.New("missing command")
	}
	if cfg.Principal == "" {
		return Config{}, errors.New("missing caller address: set -as or LEDGERCTL_PRINCIPAL")
	}
	return cfg, nil
}

const usage = `commands:
  open <stake> [session-id]   escrow a stake and start a session
  progress <session-id> [n]   record n correct answers (default 1)
  close <session-id>          settle a session
  withdraw                    move the fee pool to the owner
  session <session-id>        show a session
  stats [player]              show player stats (default: caller)
  leaderboard                 show the top players
  config                      show the ledger configuration
  deposit <amount>            faucet deposit (development nodes)
  balance [address]           show an account balance (default: caller)`

type command struct {
	min, max int
	run      func(ctx context.Context, r *runner, args []string) error
}

// runner carries one command invocation: the connection, the caller config
// and the printers bound to the output writer.
type runner struct {
	c   *client.Client
	cfg Config

	success, info, warning *pterm.PrefixPrinter
	table                  *pterm.TablePrinter
}

func newRunner(c *client.Client, cfg Config, w io.Writer) *runner {
	return &runner{
		c:       c,
		cfg:     cfg,
		success: pterm.Success.WithWriter(w),
		info:    pterm.Info.WithWriter(w),
		warning: pterm.Warning.WithWriter(w),
		table:   pterm.DefaultTable.WithWriter(w),
	}
}

var commands = map[string]command{
	"open":        {1, 2, runOpen},
	"progress":    {1, 2, runProgress},
	"close":       {1, 1, runClose},
	"withdraw":    {0, 0, runWithdraw},
	"session":     {1, 1, runSession},
	"stats":       {0, 1, runStats},
	"leaderboard": {0, 0, runLeaderboard},
	"config":      {0, 0, runConfig},
	"deposit":     {1, 1, runDeposit},
	"balance":     {0, 1, runBalance},
}

// Run connects to the node and executes the command in cfg.Args, printing
// to stdout.
func Run(ctx context.Context, cfg Config) error {
	return run(ctx, cfg, os.Stdout)
}

func run(ctx context.Context, cfg Config, w io.Writer) error {
	name, args := cfg.Args[0], cfg.Args[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	if len(args) < cmd.min || len(args) > cmd.max {
		return fmt.Errorf("%s: expected %d to %d arguments, got %d", name, cmd.min, cmd.max, len(args))
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	c, err := client.Dial(ctx, cfg.URL, sdk.Address(cfg.Principal))
	if err != nil {
		return err
	}
	defer c.Close()
	return cmd.run(ctx, newRunner(c, cfg, w), args)
}

func runOpen(ctx context.Context, r *runner, args []string) error {
	stake, err := sdk.ParseAmount(args[0])
	if err != nil {
		return fmt.Errorf("stake: %w", err)
	}
	id := uuid.NewString()
	if len(args) == 2 {
		id = args[1]
	}
	resp, err := r.c.Call(ctx, "s_open", id, client.Stake(stake, sdk.Asset(r.cfg.Asset)))
	if err != nil {
		return err
	}
	r.success.Printfln("session %s opened with %s %s (tx %s)", resp.Result, stake, r.cfg.Asset, resp.TxID)
	return nil
}

func runProgress(ctx context.Context, r *runner, args []string) error {
	n := 1
	if len(args) == 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 1 {
			return fmt.Errorf("progress count %q must be a positive integer", args[1])
		}
		n = v
	}
	var score string
	for i := 0; i < n; i++ {
		resp, err := r.c.Call(ctx, "s_progress", args[0], nil)
		if err != nil {
			return err
		}
		score = resp.Result
	}
	r.info.Printfln("session %s score %s", args[0], score)
	return nil
}

func runClose(ctx context.Context, r *runner, args []string) error {
	resp, err := r.c.Call(ctx, "s_close", args[0], nil)
	if err != nil {
		return err
	}
	var res contract.CloseResult
	if err := json.Unmarshal([]byte(resp.Result), &res); err != nil {
		return fmt.Errorf("decode close result: %w", err)
	}
	if res.Reward.IsZero() {
		r.warning.Printfln("session %s closed with score 0, stake of %s %s forfeited", args[0], res.FinalStake, r.cfg.Asset)
		return nil
	}
	r.success.Printfln("session %s closed with score %d, paid %s %s", args[0], res.Score, res.Reward, r.cfg.Asset)
	return nil
}

func runWithdraw(ctx context.Context, r *runner, _ []string) error {
	resp, err := r.c.Call(ctx, "f_withdraw", "", nil)
	if err != nil {
		return err
	}
	if resp.Result == "0" {
		r.info.Println("nothing above the reserve to withdraw")
		return nil
	}
	r.success.Printfln("withdrew %s %s", resp.Result, r.cfg.Asset)
	return nil
}

func runSession(ctx context.Context, r *runner, args []string) error {
	var s contract.Session
	if err := query(ctx, r, "s_get", args[0], &s); err != nil {
		return err
	}
	closedAt := "-"
	if s.ClosedAt != 0 {
		closedAt = unixTime(s.ClosedAt)
	}
	return r.table.WithHasHeader().WithData(pterm.TableData{
		{"Session", "Owner", "Status", "Stake", "Score", "Round", "Opened", "Closed", "Reward"},
		{s.ID, s.Owner.String(), s.Status.String(), s.Stake.String() + " " + s.Asset.String(),
			strconv.FormatUint(s.Score, 10), strconv.FormatUint(s.Round, 10),
			unixTime(s.OpenedAt), closedAt, s.Reward.String()},
	}).Render()
}

func runStats(ctx context.Context, r *runner, args []string) error {
	player := r.cfg.Principal
	if len(args) == 1 {
		player = args[0]
	}
	var p contract.PlayerStats
	if err := query(ctx, r, "p_stats", player, &p); err != nil {
		return err
	}
	return r.table.WithHasHeader().WithData(pterm.TableData{
		{"Player", "Games", "Total score", "Best", "Earnings"},
		{player, strconv.FormatUint(p.GamesPlayed, 10), strconv.FormatUint(p.TotalScore, 10),
			strconv.FormatUint(p.HighestScore, 10), p.TotalEarnings.String()},
	}).Render()
}

func runLeaderboard(ctx context.Context, r *runner, _ []string) error {
	var board []contract.LeaderboardEntry
	if err := query(ctx, r, "lb_get", "", &board); err != nil {
		return err
	}
	if len(board) == 0 {
		r.info.Println("no closed sessions yet")
		return nil
	}
	data := pterm.TableData{{"#", "Player", "Best", "Earnings"}}
	for i, e := range board {
		data = append(data, []string{strconv.Itoa(i + 1), e.Player.String(), strconv.FormatUint(e.HighestScore, 10), e.TotalEarnings.String()})
	}
	return r.table.WithHasHeader().WithData(data).Render()
}

func runConfig(ctx context.Context, r *runner, _ []string) error {
	var v contract.ConfigView
	if err := query(ctx, r, "cfg_get", "", &v); err != nil {
		return err
	}
	return r.table.WithData(pterm.TableData{
		{"Owner", v.Owner.String()},
		{"Asset", v.Asset.String()},
		{"Min stake", v.MinStake.String()},
		{"Max stake", v.MaxStake.String()},
		{"Fee percent", strconv.Itoa(int(v.FeePercent))},
		{"Reserve", v.Reserve.String()},
		{"Max score", strconv.FormatUint(v.MaxScore, 10)},
	}).Render()
}

func runDeposit(ctx context.Context, r *runner, args []string) error {
	resp, err := r.c.Call(ctx, server.MethodDeposit, args[0], nil)
	if err != nil {
		return err
	}
	r.success.Printfln("balance of %s is now %s %s", r.cfg.Principal, resp.Result, r.cfg.Asset)
	return nil
}

func runBalance(ctx context.Context, r *runner, args []string) error {
	addr := r.cfg.Principal
	if len(args) == 1 {
		addr = args[0]
	}
	resp, err := r.c.Call(ctx, server.MethodBalance, addr, nil)
	if err != nil {
		return err
	}
	r.info.Printfln("%s holds %s %s", addr, resp.Result, r.cfg.Asset)
	return nil
}

func query(ctx context.Context, r *runner, method, payload string, out any) error {
	resp, err := r.c.Call(ctx, method, payload, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(resp.Result), out); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	return nil
}

func unixTime(sec uint64) string {
	return time.Unix(int64(sec), 0).UTC().Format(time.RFC3339)
}
