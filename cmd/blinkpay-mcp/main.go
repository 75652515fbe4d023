// ABOUTME: Entry point for the BlinkPay MCP server
// ABOUTME: Cobra commands to serve over stdio, check credentials and write a config template

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/blinkpay-mcp/pkg/client"
	"github.com/harper/blinkpay-mcp/pkg/config"
	"github.com/harper/blinkpay-mcp/pkg/logging"
	"github.com/harper/blinkpay-mcp/pkg/server"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "blinkpay-mcp",
		Short:         "MCP server for the BlinkPay Debit API",
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Config file (default: "+config.DefaultConfigPath()+")")

	root.AddCommand(serveCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(initCmd())
	root.AddCommand(versionCmd())

	return root
}

// loadConfig reads and validates configuration and installs the global logger
func loadConfig(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewZapLogger(logging.Config{
		Level: logging.ParseLevel(cfg.LogLevel),
		Name:  "blinkpay-mcp",
	})
	logging.SetGlobalLogger(logger)

	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.NewServer(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info("BlinkPay MCP server starting",
				logging.String("version", server.Version),
				logging.String("debit_url", cfg.DebitURL))
			return srv.Serve(ctx)
		},
	}
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Obtain an access token and print its (masked) details",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			_, cache := client.FromConfig(cfg, logger)
			if _, err := cache.GetValidToken(cmd.Context()); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cache.Info())
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file template",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.DefaultConfigPath()
			}

			if err := config.WriteTemplate(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote config template to %s\n", path)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "blinkpay-mcp %s\n", server.Version)
		},
	}
}
