/*
main.go - Application entry point

PURPOSE:
  Starts the carepoints server and hosts the maintenance subcommands.
  Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  serve     Run the HTTP API (default when no command is given)
  export    Print every stored key as one JSON object
  history   Print superseded values of a key (sqlite driver only)

STARTUP SEQUENCE (serve):
  1. Load config: defaults, TOML file, .env, environment
  2. Build the zap logger
  3. Open the configured store
  4. Open the session (loads and normalises state)
  5. Configure HTTP router and websocket hub
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (shutdown-timeout)
  3. Drain queued state writes
  4. Close the store
  5. Exit

EXAMPLES:
  # Run with defaults (sqlite at ./data/carepoints.db)
  ./server serve

  # Run with an explicit config file
  ./server --config=/etc/carepoints.toml serve

  # Run in memory on a different port
  CAREPOINTS_STORAGE_DRIVER=memory CAREPOINTS_HTTP_PORT=3000 ./server

SEE ALSO:
  - config/config.go: Settings and environment variables
  - api/server.go: Router configuration
  - session/session.go: State and commands
*/
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/carepoints/config"
	"github.com/warp/carepoints/logging"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "carepoints",
	Short:        "Caregiving activity tracker with a points economy",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "carepoints.toml", "Path to TOML config file (optional)")
	rootCmd.AddCommand(serveCmd, exportCmd, historyCmd)
}

// setup loads config and builds the logger every command shares.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

var errNoHistory = errors.New("history is only kept by the sqlite driver")
