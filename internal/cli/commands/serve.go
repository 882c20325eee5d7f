package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatwrap/internal/server"
	"github.com/ccollicutt/chatwrap/pkg/config"
)

// ServeOptions holds command-line options for the serve command.
type ServeOptions struct {
	Addr      string
	MaxUpload int64
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chat analysis over HTTP",
		Long: `Start an HTTP server that analyzes uploaded chat exports.

Endpoints:
  POST /api/v1/analyze   body is the export (.txt, or a zip with
                         Content-Type: application/zip); returns the report
  GET  /healthz          liveness check

Query parameters for analyze:
  format=text|json       report format (default json)
  quiet=true             summary only
  name=<file>            file name used to pick the container format

Example:
  chatwrap serve --addr :8080
  curl --data-binary @chat.txt localhost:8080/api/v1/analyze`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default from config, else :8080)")
	cmd.Flags().Int64Var(&opts.MaxUpload, "max-upload", 0, "Maximum upload size in bytes (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.MaxUpload > 0 {
		cfg.Server.MaxUploadBytes = opts.MaxUpload
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger.Info().
		Str("timezone", cfg.Location().String()).
		Int("webhooks", len(cfg.Webhooks)).
		Msg("starting chatwrap server")

	return server.New(cfg, logger).ListenAndServe(ctx)
}
