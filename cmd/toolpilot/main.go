// Command toolpilot lets a chat model operate network diagnostic tools on
// this host.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "toolpilot",
	Short: "Model-driven network diagnostics",
	Long: `toolpilot turns natural-language instructions into runs of host
network tools (ping, dig, nmap, ...) and asks the model to analyze the output.

Configuration is read from --config, ./toolpilot.toml or
~/.config/toolpilot/toolpilot.toml, then from TOOLPILOT_* environment
variables. DEEPSEEK_API_KEY, DEEPSEEK_API_URL and DEEPSEEK_MODEL are also
honored.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(capabilitiesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
