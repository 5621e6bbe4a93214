package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bsdetector/internal/server"
	"github.com/ppiankov/bsdetector/internal/worker"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analyze proxy server",
	Long: `Serve runs the HTTP analyze endpoint. Clients post a claim together with
their own provider settings and key; the server performs the provider call
and returns the normalized result or a classified error.

Endpoints:
  POST /api/analyze   {claim, provider, modelId, apiKey, baseUrl, persona, mode}
  GET  /api/models    known models
  GET  /healthz       liveness

Requests are rate limited per client IP (429 with Retry-After).

Example:
  bsdetector serve --addr :8787`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		addr := serveAddr
		if addr == "" {
			addr = a.cfg.Server.Addr
		}

		srv := server.New(server.Options{
			Analyzer:   a.client,
			Normalizer: a.normalizer,
			Limiter:    worker.NewLimiter(a.cfg.Server.RequestsPerSecond, a.cfg.Server.Burst),
			Version:    Version,
			Logger:     a.logger.WithPrefix("server"),
		})
		return srv.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8787)")
}
