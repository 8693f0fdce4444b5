package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mitherapy/internal/usecase"
)

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <transcript>",
		Short: "Score a transcript against the target phrase",
		Long:  `Apply the same check a live attempt gets: the transcript matches when it contains the target phrase, ignoring case and extra spaces.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := opts.loadExercise()
			if err != nil {
				return err
			}

			evaluator := usecase.NewEvaluator(ex.TargetPhrase, ex.Feedback.SuccessPattern, ex.Feedback.FailurePattern)
			result := evaluator.Evaluate(strings.Join(args, " "))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", result.Color)
			fmt.Fprintf(out, "haptic: %s\n", formatPattern(result.Haptic))
			return nil
		},
	}
}
