package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"checkout-trainer/internal/darts"
)

// NewCheckoutCmd prints the ways to finish a score.
func NewCheckoutCmd() *cobra.Command {
	var (
		maxDarts int
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "checkout <score>",
		Short: "Show the recommended checkout for a score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("score must be a number: %q", args[0])
			}
			if maxDarts < 1 || maxDarts > darts.MaxDarts {
				return fmt.Errorf("--darts must be between 1 and %d", darts.MaxDarts)
			}

			out := cmd.OutOrStdout()
			sequences := darts.Generate(score, maxDarts)
			if len(sequences) == 0 {
				fmt.Fprintf(out, "%d: no outshot in %d darts\n", score, maxDarts)
				return nil
			}
			recommended := sequences[0]
			if rec, ok := darts.Recommended(score); ok && len(rec) <= maxDarts {
				recommended = rec
			}
			fmt.Fprintf(out, "%d: %s\n", score, formatSequence(recommended))
			if !all {
				return nil
			}
			fmt.Fprintf(out, "%d checkouts in %d darts or fewer:\n", len(sequences), maxDarts)
			for _, seq := range sequences {
				fmt.Fprintf(out, "  %s\n", formatSequence(seq))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDarts, "darts", darts.MaxDarts, "maximum darts to use")
	cmd.Flags().BoolVar(&all, "all", false, "list every legal checkout")
	return cmd
}

// NewValidateCmd checks a checkout attempt such as "100 T20 D20".
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <score> <throw>...",
		Short: "Check whether darts finish a score",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("score must be a number: %q", args[0])
			}
			throws, err := darts.ParseNotations(args[1:])
			if err != nil {
				return err
			}
			result := darts.Validate(score, throws)
			if !result.Valid {
				return fmt.Errorf("%s does not check out %d: %s", formatSequence(throws), score, result.Reason)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s checks out %d\n", formatSequence(throws), score)
			return nil
		},
	}
}

func formatSequence(throws []darts.Throw) string {
	labels := make([]string, len(throws))
	for i, t := range throws {
		labels[i] = t.Display()
	}
	return strings.Join(darts.Notations(throws), " ") + " (" + strings.Join(labels, ", ") + ")"
}
