package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/genesis-map/genesis"
	"github.com/RyanBlaney/genesis-map/server"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
	}

	opts := genesis.DefaultOptions()
	opts.Stems = cfg.Stems.Enabled
	opts.MaxEffects = cfg.Output.MaxEffects

	srv := server.New(cfg.Server, newAnalyzer(cfg), opts, cfg.Pipeline.Compose.Firmware)
	fmt.Fprintf(cmd.ErrOrStderr(), "\n  genesis-map job server listening on %s\n\n", cfg.Server.Addr)
	return srv.Run(cmd.Context())
}
