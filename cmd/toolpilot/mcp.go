package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolpilot/gateway"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the Model Context Protocol on stdin/stdout",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// stdout carries the protocol
		a, err := loadApp(os.Stderr, "", nil)
		if err != nil {
			return err
		}

		srv, err := gateway.New(gateway.Config{
			Sessions: a.sessions,
			Settings: a.cfg.Redacted(),
			Version:  version,
			Logger:   &a.logger,
		})
		if err != nil {
			return err
		}
		return srv.Run(cmd.Context())
	},
}
