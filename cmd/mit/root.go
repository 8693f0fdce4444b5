package main

import (
	"github.com/spf13/cobra"

	"mitherapy/internal/config"
	"mitherapy/internal/exercise"
)

type rootOptions struct {
	exercisePath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "mit",
		Short: "Melodic Intonation Therapy from the terminal",
		Long: `Practice a target phrase with Melodic Intonation Therapy: hear the two-pitch
melody, sing along, then say the phrase and get immediate feedback.

Configuration comes from MIT_* and DEEPGRAM_* environment variables or the
YAML file named by MIT_CONFIG_FILE.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.exercisePath, "exercise", "", "path to an exercise YAML file (overrides MIT_EXERCISE_FILE)")

	root.AddCommand(
		newExerciseCmd(opts),
		newEvaluateCmd(opts),
		newPlayCmd(opts),
		newSessionCmd(opts),
	)
	return root
}

// loadConfig resolves configuration and applies command line overrides.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if o.exercisePath != "" {
		cfg.Exercise.Path = o.exercisePath
	}
	return cfg, nil
}

func (o *rootOptions) loadExercise() (exercise.Exercise, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return exercise.Exercise{}, err
	}
	ex, err := exercise.Load(cfg.Exercise.Path)
	if err != nil {
		return exercise.Exercise{}, err
	}
	if cfg.Exercise.Locale != "" {
		ex.Locale = cfg.Exercise.Locale
	}
	return ex, nil
}
