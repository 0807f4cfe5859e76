package studygraph

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create indexes, constraints and the chunk vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.client.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}
		if err := s.client.CreateIndices(ctx); err != nil {
			return fmt.Errorf("failed to create indices: %w", err)
		}
		s.logger.Info("Schema ready", "driver", s.cfg.Database.Driver)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every node and edge in the graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to clear the graph without --yes")
		}

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.client.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear graph: %w", err)
		}
		s.logger.Info("Graph cleared")
		return nil
	},
}

func init() {
	clearCmd.Flags().Bool("yes", false, "Confirm deletion of all data")
	rootCmd.AddCommand(setupCmd, clearCmd)
}
