package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mitherapy/internal/domain"
	"mitherapy/internal/exercise"
)

func newExerciseCmd(opts *rootOptions) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Show the configured exercise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ex, err := opts.loadExercise()
			if err != nil {
				return err
			}
			if asYAML {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(ex); err != nil {
					return fmt.Errorf("encoding exercise: %w", err)
				}
				return enc.Close()
			}
			printExercise(cmd.OutOrStdout(), ex)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the exercise as YAML")
	return cmd
}

func printExercise(w io.Writer, ex exercise.Exercise) {
	fmt.Fprintf(w, "Phrase:    %s\n", ex.DisplayPhrase)
	fmt.Fprintf(w, "Locale:    %s\n", ex.Locale)
	fmt.Fprintf(w, "Tempo:     one note every %s, notes last %s\n", ex.StepInterval(), ex.NoteLength())
	fmt.Fprintf(w, "Melody:    %s\n", formatSteps(ex.Melody))
	fmt.Fprintf(w, "Sing-along: %s\n", formatSteps(ex.SingAlong))
	fmt.Fprintf(w, "Success:   %s\n", formatPattern(ex.Feedback.SuccessPattern))
	fmt.Fprintf(w, "Failure:   %s\n", formatPattern(ex.Feedback.FailurePattern))
}

func formatSteps(steps []domain.MelodyStep) string {
	if len(steps) == 0 {
		return "(none)"
	}
	return strings.Join(lo.Map(steps, func(step domain.MelodyStep, _ int) string {
		label := step.Pitch + "/" + string(step.Label)
		if step.Syllable != "" {
			label = step.Syllable + " " + label
		}
		if step.DurationMs > 0 {
			label += fmt.Sprintf(" %dms", step.DurationMs)
		}
		return label
	}), ", ")
}

func formatPattern(pattern domain.HapticPattern) string {
	return strings.Join(lo.Map(pattern, func(ms int, _ int) string {
		return fmt.Sprintf("%dms", ms)
	}), " ")
}
