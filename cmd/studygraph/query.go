package studygraph

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprediction/studygraph/pkg/retriever"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print node counts per label",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.client.Statistics(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find study material similar to a query",
	Long: `Search chunks by embedding similarity. With --hybrid and a subject and
topic the structural topic context is returned alongside the chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		topic, _ := cmd.Flags().GetString("topic")
		k, _ := cmd.Flags().GetInt("k")
		hybrid, _ := cmd.Flags().GetBool("hybrid")
		if hybrid && (subject == "" || topic == "") {
			return errors.New("--hybrid requires --subject and --topic")
		}

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if k <= 0 {
			k = s.cfg.Ingest.DefaultResults
		}
		if hybrid {
			result, err := s.client.HybridSearch(ctx, args[0], subject, topic, k)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		}
		chunks, err := s.client.VectorSearch(ctx, args[0], k, subject, topic)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), chunks)
	},
}

var subjectsCmd = &cobra.Command{
	Use:   "subjects [subject]",
	Short: "List subjects, or the topics of one subject",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if len(args) == 0 {
			subjects, err := s.client.ListSubjects(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), subjects)
		}
		topics, err := s.client.TopicsForSubject(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), topics)
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions <subject> <topic>",
	Short: "List the past questions of a topic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, _ := cmd.Flags().GetInt("year")
		limit, _ := cmd.Flags().GetInt("limit")
		order, _ := cmd.Flags().GetString("order")

		filter := retriever.QuestionFilter{Year: year, Limit: limit}
		if cmd.Flags().Changed("difficulty") {
			d, _ := cmd.Flags().GetInt("difficulty")
			filter.Difficulty = &d
		}

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		subject, topic := args[0], args[1]
		switch order {
		case "", "year":
			qs, err := s.client.QuestionsByTopic(ctx, subject, topic, filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), qs)
		case "difficulty_asc", "difficulty_desc":
			qs, err := s.client.QuestionsByDifficulty(ctx, subject, topic, order == "difficulty_asc")
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), qs)
		default:
			return fmt.Errorf("unknown order %q (year, difficulty_asc, difficulty_desc)", order)
		}
	},
}

func init() {
	searchCmd.Flags().String("subject", "", "Restrict to a subject")
	searchCmd.Flags().String("topic", "", "Restrict to a topic")
	searchCmd.Flags().Int("k", 0, "Number of chunks to return (default from config)")
	searchCmd.Flags().Bool("hybrid", false, "Include the topic context")

	questionsCmd.Flags().Int("year", 0, "Only questions from this year")
	questionsCmd.Flags().Int("difficulty", 0, "Only questions of this difficulty")
	questionsCmd.Flags().Int("limit", 0, "Maximum questions (default 10)")
	questionsCmd.Flags().String("order", "year", "year, difficulty_asc or difficulty_desc")

	rootCmd.AddCommand(statsCmd, searchCmd, subjectsCmd, questionsCmd)
}
