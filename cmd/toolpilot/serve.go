package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolpilot/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(os.Stderr, "", nil)
		if err != nil {
			return err
		}
		if serveAddr != "" {
			a.cfg.HTTP.Addr = serveAddr
		}

		gin.SetMode(gin.ReleaseMode)
		srv, err := httpapi.New(httpapi.Config{
			Sessions: a.sessions,
			Metrics:  a.metrics,
			Logger:   &a.logger,
		})
		if err != nil {
			return err
		}
		return srv.ListenAndServe(cmd.Context(), a.cfg.HTTP.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}
