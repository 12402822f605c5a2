// Package main is the ledger command line client.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"

	ledgerctlcmd "okinoko-higher_lower/internal/cmd/ledgerctl"
)

func main() {
	cfg, err := ledgerctlcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		pterm.Error.Println(err)
		flag.Usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ledgerctlcmd.Run(ctx, cfg); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
