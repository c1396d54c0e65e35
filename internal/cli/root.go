// Package cli wires the assistant's commands: sizing, validation, target
// planning, order submission, order management and the API server.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alexms1504/trade-assistant/account"
	"github.com/alexms1504/trade-assistant/broker/sim"
	"github.com/alexms1504/trade-assistant/config"
	"github.com/alexms1504/trade-assistant/engine"
)

const version = "0.1.0"

// rootConfig carries the persistent flags and the state resolved from them
// in PersistentPreRunE, shared by every subcommand.
type rootConfig struct {
	ConfigPath string
	LogLevel   string
	EnvFile    string

	cfg *config.Config
	log zerolog.Logger
}

func NewRootCmd() *cobra.Command {
	rc := &rootConfig{}

	cmd := &cobra.Command{
		Use:           "assistant",
		Short:         "Trading assistant — risk-based sizing, validation and bracket orders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", "", "Path to .env file (optional)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.setup()
	}

	cmd.AddCommand(
		newSizeCmd(rc),
		newValidateCmd(rc),
		newTargetsCmd(rc),
		newSubmitCmd(rc),
		newOrdersCmd(rc),
		newCheckCmd(rc),
		newServeCmd(rc),
		newConfigCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("assistant %s\n", version)
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup resolves env, config and logging once for the whole command tree.
func (rc *rootConfig) setup() error {
	if rc.EnvFile != "" {
		if err := godotenv.Load(rc.EnvFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		// A local .env is optional.
		_ = godotenv.Load()
	}

	path := rc.ConfigPath
	if path == "" {
		path = os.Getenv("ASSISTANT_CONFIG")
	}

	if path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return err
		}
		rc.cfg = cfg
	} else {
		rc.cfg = config.Default()
	}

	level, err := zerolog.ParseLevel(rc.LogLevel)
	if err != nil {
		return fmt.Errorf("bad log level %q: %w", rc.LogLevel, err)
	}

	var log zerolog.Logger
	if rc.cfg.Log.Console {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		log = zerolog.New(output)
	} else {
		log = zerolog.New(os.Stderr)
	}
	rc.log = log.Level(level).With().Timestamp().Logger()

	return nil
}

// buildEngine wires a full engine against the in-process gateway, seeded
// from the configured account snapshot.
//
// The gateway and the order ledger live in this process only: orders
// list/history/cancel see submissions from the same invocation (the serve
// command), not from earlier runs. Nothing is persisted across processes.
func (rc *rootConfig) buildEngine() *engine.Engine {
	acct := &account.Snapshot{
		ID:                rc.cfg.Account.ID,
		NetLiquidationVal: rc.cfg.Account.NetLiquidation,
		BuyingPowerVal:    rc.cfg.Account.BuyingPower,
		DayTrader:         rc.cfg.Account.DayTrader,
		MarginBuffer:      rc.cfg.Account.MarginBuffer,
	}
	return engine.New(acct, sim.NewGateway(), rc.cfg, rc.log)
}
