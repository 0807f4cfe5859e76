package studygraph

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soundprediction/studygraph/pkg/alert"
	"github.com/soundprediction/studygraph/pkg/checkpoint"
	"github.com/soundprediction/studygraph/pkg/config"
	"github.com/soundprediction/studygraph/pkg/ingest"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load curriculum, question or chunk files into the graph",
	Long: `Load records from JSON, JSONL, YAML or Parquet files.

Question and chunk loads are checkpointed after every batch. Running the
same command again after an interruption resumes after the last saved
batch.`,
}

func init() {
	loadCmd.PersistentFlags().Int("batch-size", 0, "Records per batch (default from config)")
	loadCmd.PersistentFlags().Bool("no-checkpoint", false, "Disable resumable checkpoints")
	loadCmd.PersistentFlags().String("checkpoint-dir", "", "Checkpoint directory (default from config)")

	loadStatusCmd.Flags().Duration("stalled", 0, "Only show loads not updated for this long")
	loadCleanCmd.Flags().Duration("older-than", checkpoint.DefaultMaxAge, "Remove checkpoints not updated for this long")

	loadCmd.AddCommand(
		loadSubcommand("curriculum <file>", "Load subjects and topics", runLoadCurriculum),
		loadSubcommand("questions <file>", "Load past exam questions", runLoadQuestions),
		loadSubcommand("chunks <file>", "Load study material chunks", runLoadChunks),
		loadStatusCmd,
		loadCleanCmd,
	)
	rootCmd.AddCommand(loadCmd)
}

type loadFunc func(ctx context.Context, l *ingest.Loader, path string) (any, error)

func loadSubcommand(use, short string, fn loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			loader, err := newLoader(cmd, s)
			if err != nil {
				return err
			}
			result, err := fn(ctx, loader, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

// newLoader wires a loader to the client's builder. Going through the
// builder rather than the client keeps per-batch metrics counted once.
func newLoader(cmd *cobra.Command, s *session) (*ingest.Loader, error) {
	opts := &ingest.LoaderOptions{
		Logger:      s.logger,
		Embedder:    s.client.GetEmbedder(),
		Alerter:     alert.New(s.cfg.Alert),
		BatchSize:   s.cfg.Ingest.BatchSize,
		Concurrency: s.cfg.Ingest.Concurrency,
	}
	if cmd.Flags().Changed("batch-size") {
		opts.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	}

	if noCheckpoint, _ := cmd.Flags().GetBool("no-checkpoint"); !noCheckpoint {
		manager, err := checkpointManager(cmd, s.cfg)
		if err != nil {
			return nil, err
		}
		opts.Checkpoints = manager
	}

	return ingest.NewLoader(s.client.GetBuilder(), opts), nil
}

func checkpointManager(cmd *cobra.Command, cfg *config.Config) (*checkpoint.CheckpointManager, error) {
	dir := cfg.Ingest.CheckpointDir
	if cmd.Flags().Changed("checkpoint-dir") {
		dir, _ = cmd.Flags().GetString("checkpoint-dir")
	}
	manager, err := checkpoint.NewCheckpointManager(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint directory: %w", err)
	}
	return manager, nil
}

var loadStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show unfinished checkpointed loads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		manager, err := checkpointManager(cmd, cfg)
		if err != nil {
			return err
		}

		var checkpoints []*checkpoint.LoadCheckpoint
		if stalled, _ := cmd.Flags().GetDuration("stalled"); stalled > 0 {
			checkpoints, err = manager.FindStalled(cmd.Context(), stalled)
		} else {
			checkpoints, err = manager.List(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Checkpoints in %s\n", manager.GetCheckpointDir())
		if len(checkpoints) == 0 {
			fmt.Fprintln(out, "No unfinished loads")
			return nil
		}
		for _, cp := range checkpoints {
			fmt.Fprintf(out, "\n%s", cp.Summary())
		}
		return nil
	},
}

var loadCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old load checkpoints",
	Long: `Remove checkpoints that have not been updated within --older-than.
A load whose checkpoint has used up its retries must be cleaned before it
can run again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		manager, err := checkpointManager(cmd, cfg)
		if err != nil {
			return err
		}

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		removed, err := manager.CleanOld(cmd.Context(), olderThan)
		if err != nil {
			return fmt.Errorf("failed to clean checkpoints: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d checkpoint(s) from %s\n", removed, manager.GetCheckpointDir())
		return nil
	},
}

func runLoadCurriculum(ctx context.Context, l *ingest.Loader, path string) (any, error) {
	return l.LoadCurriculum(ctx, path)
}

func runLoadQuestions(ctx context.Context, l *ingest.Loader, path string) (any, error) {
	return l.LoadQuestions(ctx, path)
}

func runLoadChunks(ctx context.Context, l *ingest.Loader, path string) (any, error) {
	return l.LoadChunks(ctx, path)
}
