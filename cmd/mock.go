package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/phynance/phyn/mock"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func mockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run a local stand-in for the Phynance API",
	}
	cmd.AddCommand(mockServeCmd())
	return cmd
}

// mockServeCmd serves the mock API until interrupted.
func mockServeCmd() *cobra.Command {
	var addr string
	var tokenTTL, refreshDelay time.Duration
	var rateLimit int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mock API with demo users and fixture data",
		Args:  cobra.NoArgs,
		// The mock needs neither the database nor stored credentials.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Mock.Addr
			}
			if !cmd.Flags().Changed("token-ttl") {
				tokenTTL = cfg.Mock.TokenTTL
			}

			srv := mock.NewServer(mock.Options{
				Secret:       cfg.Mock.Secret,
				AccessTTL:    tokenTTL,
				RefreshDelay: refreshDelay,
				RateLimit:    rateLimit,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			cmd.Printf("Mock Phynance API listening on http://%s%s\n", addr, mock.APIPrefix)
			cmd.Println("Demo users: viewer/viewer123, trader/trader123, analyst/analyst123, admin/admin123")
			log.Info().Str("addr", addr).Dur("token_ttl", tokenTTL).Msg("Starting mock server")
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				return clierr.New(clierr.Internal, "Mock server failed: "+err.Error(), err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:8080", "Address to listen on")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 15*time.Minute, "Lifetime of issued access tokens")
	cmd.Flags().DurationVar(&refreshDelay, "refresh-delay", 0, "Artificial latency of the refresh endpoint")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "Requests per hour per user on data endpoints; 0 disables")
	return cmd
}
