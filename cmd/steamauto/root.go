package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vuquang23/steamauto/internal/app"
	"github.com/vuquang23/steamauto/internal/config"
	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/totp"
)

var (
	cfgFile string
	debug   bool
	noColor bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "steamauto",
	Short: "Keep Steam web sessions alive and confirm trades automatically",
	Long: `steamauto keeps the web sessions of several Steam accounts valid,
accepts incoming trade offers that match the configured policy and approves
the resulting mobile confirmations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setColors(!noColor)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.steamauto.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging and raw dumps")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(initCmd, runCmd, refreshCmd, confirmationsCmd, offersCmd, codeCmd, statusCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// openApp loads the configuration and wires every account.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger.New(cfg.Log))
}

func account(ctx context.Context, name string) (*app.App, *app.Account, error) {
	a, err := openApp(ctx)
	if err != nil {
		return nil, nil, err
	}
	acc, err := a.Account(name)
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return a, acc, nil
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return err
			}
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		printSuccess("Configuration written to %s", path)
		return nil
	},
}

var codeCmd = &cobra.Command{
	Use:   "code <account>",
	Short: "Print the current Steam Guard code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, acc, err := account(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		if err := acc.Clock.Sync(ctx, acc.Client); err != nil {
			printWarning("Using local time, server time sync failed: %v", err)
		}
		code, err := totp.Generate(acc.Guard.SharedSecret, acc.Clock.Now())
		if err != nil {
			return err
		}
		fmt.Printf("%s  (valid for %ds)\n", code.Value, int(code.Remaining.Seconds()))
		return nil
	},
}
