package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/instalatrack/internal/cli"
	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/config"
	"github.com/dmitrijs2005/instalatrack/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log := logging.New(cfg.Logging())

	if err := cli.Execute(ctx, cfg, log, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Erro:", err)
		if errors.Is(err, common.ErrUnauthorized) || errors.Is(err, common.ErrSessionExpired) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}
