// Package studygraph implements the studygraph command line.
package studygraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundprediction/studygraph"
	"github.com/soundprediction/studygraph/pkg/config"
	"github.com/soundprediction/studygraph/pkg/logger"
	"github.com/soundprediction/studygraph/pkg/telemetry"
	"github.com/soundprediction/studygraph/pkg/types"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "studygraph",
		Short: "Studygraph: exam preparation knowledge graph",
		Long: `Studygraph builds a knowledge graph of subjects, topics, past exam
questions, study material chunks and concepts, and answers vector, graph
and hybrid queries over it. Learner attempts are recorded per user so
accuracy and weak topics can be reported.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.studygraph.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db-driver", "neo4j", "Database driver (neo4j, ladybug, memory)")
	rootCmd.PersistentFlags().String("db-uri", "neo4j://localhost:7687", "Database URI or ladybug path")
	rootCmd.PersistentFlags().String("user", types.DefaultUserID, "Learner the progress commands act for")

	// Bind flags to viper
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".studygraph")
	}

	viper.SetEnvPrefix("STUDYGRAPH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and applies the global flags the user
// set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db-driver") {
		cfg.Database.Driver, _ = flags.GetString("db-driver")
	}
	if flags.Changed("db-uri") {
		cfg.Database.URI, _ = flags.GetString("db-uri")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = flags.GetString("telemetry-parquet-path")
	}
	return cfg, nil
}

// newLogger builds the process logger. When a telemetry path is configured
// error records are also kept in Parquet files; the returned closer flushes
// them.
func newLogger(cfg *config.Config) (*slog.Logger, func()) {
	base := logger.NewLogger(os.Stderr, logger.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	if cfg.Telemetry.ParquetPath == "" {
		return base, func() {}
	}

	ph, err := telemetry.NewParquetHandler(base.Handler(), cfg.Telemetry.ParquetPath, 0)
	if err != nil {
		base.Warn("Error tracking disabled", "error", err)
		return base, func() {}
	}
	return slog.New(ph), func() {
		if err := ph.Close(); err != nil {
			base.Warn("Failed to flush error telemetry", "error", err)
		}
	}
}

// session is what every data command needs: config, logger and an open
// client. Close releases all of them.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	client *studygraph.Client
	flush  func()
}

func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, flush := newLogger(cfg)
	slog.SetDefault(log)

	client, err := studygraph.NewFromConfig(ctx, cfg, log)
	if err != nil {
		flush()
		return nil, fmt.Errorf("failed to initialize studygraph: %w", err)
	}
	log.Debug("Studygraph initialized", "driver", cfg.Database.Driver, "embedding_provider", cfg.Embedding.Provider)
	return &session{cfg: cfg, logger: log, client: client, flush: flush}, nil
}

func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("Failed to close client", "error", err)
	}
	s.flush()
}

// userContext returns ctx carrying the learner named by --user.
func userContext(ctx context.Context, cmd *cobra.Command) context.Context {
	user, _ := cmd.Flags().GetString("user")
	return types.WithUserID(ctx, user)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
