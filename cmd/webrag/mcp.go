package main

import (
	"fmt"
	"os"

	"github.com/hyperjump/webrag/internal/client"
	"github.com/hyperjump/webrag/internal/mcptool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the web_rag tool over MCP stdio",
		Long: `Serve the web_rag tool to MCP clients over stdio. Each call is forwarded to a
running WebRAG service (--server, client.service_url or RAG_SERVICE_URL).

Example client configuration:
  {
    "mcpServers": {
      "webrag": {
        "command": "/path/to/webrag",
        "args": ["mcp"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries the protocol, so logs go to stderr.
			level := zapcore.WarnLevel
			if opts.debug {
				level = zapcore.DebugLevel
			}
			logger := zap.New(zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.Lock(os.Stderr),
				level,
			))
			defer logger.Sync()

			c, _, err := newClient(opts, client.WithLogger(logger))
			if err != nil {
				return err
			}
			logger.Info("mcp server starting", zap.String("service_url", c.BaseURL()))
			if err := mcptool.Run(cmd.Context(), mcptool.New(c, logger), version); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}
}
