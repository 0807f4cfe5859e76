package studygraph

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/studygraph/pkg/config"
	"github.com/soundprediction/studygraph/pkg/server"
	"github.com/soundprediction/studygraph/pkg/utils"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the studygraph HTTP server",
	Long: `Start the studygraph HTTP server to provide REST access to the graph.

The server provides endpoints for:
- Loading curricula, questions, chunks and concepts
- Vector, graph and hybrid search
- Recording attempts and reporting learner progress
- Health checks and Prometheus metrics`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")
	serverCmd.Flags().String("telemetry-parquet-path", "", "Directory for error telemetry Parquet files")
}

func runServer(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	overrideServerFlags(cmd, s.cfg)
	if err := validateServerConfig(s.cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	srv := server.New(s.cfg, s.client, s.logger)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	utils.SafeGo(func() {
		serverErrChan <- srv.Start()
	}, func(err error) {
		serverErrChan <- err
	})

	select {
	case err := <-serverErrChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		s.logger.Info("Received signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		s.logger.Info("Server stopped gracefully")
		return nil
	}
}

// overrideServerFlags applies the listener flags. The telemetry path is
// handled by loadConfig since the logger needs it first.
func overrideServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "memory" && cfg.Database.URI == "" {
		return fmt.Errorf("database URI is required")
	}
	return nil
}
