package studygraph

import (
	"github.com/spf13/cobra"

	"github.com/soundprediction/studygraph/pkg/types"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Record attempts and report progress for --user",
}

var attemptCmd = &cobra.Command{
	Use:   "attempt <subject> <topic> <question-text>",
	Short: "Record an answer to a question",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		correct, _ := cmd.Flags().GetBool("correct")
		questionID, _ := cmd.Flags().GetString("question-id")

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		attempt, err := s.client.RecordAttempt(userContext(ctx, cmd), types.AttemptRecord{
			QuestionID:   questionID,
			QuestionText: args[2],
			Subject:      args[0],
			Topic:        args[1],
			Correct:      correct,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), attempt)
	},
}

var userStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print attempt counts and accuracy",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		topic, _ := cmd.Flags().GetString("topic")

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.client.UserStats(userContext(ctx, cmd), subject, topic)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

var topicProgressCmd = &cobra.Command{
	Use:   "topics <subject>",
	Short: "Print per-topic progress for a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		progress, err := s.client.TopicProgress(userContext(ctx, cmd), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), progress)
	},
}

var weakTopicsCmd = &cobra.Command{
	Use:   "weak",
	Short: "List topics below the accuracy threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		weak, err := s.client.WeakTopics(userContext(ctx, cmd), subject, threshold)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), weak)
	},
}

func init() {
	attemptCmd.Flags().Bool("correct", false, "The answer was correct")
	attemptCmd.Flags().String("question-id", "", "Question UUID, when known")

	userStatsCmd.Flags().String("subject", "", "Restrict to a subject")
	userStatsCmd.Flags().String("topic", "", "Restrict to a topic")

	weakTopicsCmd.Flags().String("subject", "", "Restrict to a subject")
	weakTopicsCmd.Flags().Float64("threshold", 0, "Accuracy percentage below which a topic is weak (default from config)")

	progressCmd.AddCommand(attemptCmd, userStatsCmd, topicProgressCmd, weakTopicsCmd)
	rootCmd.AddCommand(progressCmd)
}
