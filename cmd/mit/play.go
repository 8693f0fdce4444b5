package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"mitherapy/internal/bootstrap"
	"mitherapy/internal/domain"
	"mitherapy/internal/observability"
)

func newPlayCmd(opts *rootOptions) *cobra.Command {
	var sing bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the reference melody",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			kind := domain.MelodyKindMelody
			if sing {
				kind = domain.MelodyKindSingAlong
			}

			rt, err := opts.startRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.services.Session.Close()

			if err := rt.services.Session.RequestAccess(ctx); err != nil {
				return err
			}
			return rt.play(ctx, kind)
		},
	}
	cmd.Flags().BoolVar(&sing, "sing", false, "play the sing-along sequence instead of the melody")
	return cmd
}

// cliRuntime is a session wired to the terminal.
type cliRuntime struct {
	services bootstrap.Services
	sink     *consoleSink
}

func (o *rootOptions) startRuntime(cmd *cobra.Command) (*cliRuntime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger := observability.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	observability.SetDefault(logger)

	sink := newConsoleSink(cmd.OutOrStdout())
	services, err := bootstrap.BuildWithConfig(cfg, sink, nil, logger)
	if err != nil {
		return nil, err
	}
	sink.setExercise(services.Exercise)
	return &cliRuntime{services: services, sink: sink}, nil
}

// play runs one sequence and waits for it to finish.
func (r *cliRuntime) play(ctx context.Context, kind domain.MelodyKind) error {
	ex := r.services.Exercise
	steps := ex.Sequence(kind)
	if len(steps) == 0 {
		return fmt.Errorf("exercise has no %s sequence", kind)
	}

	session := r.services.Session
	var err error
	if kind == domain.MelodyKindSingAlong {
		_, err = session.SingWithHaptics()
	} else {
		_, err = session.PlayMelody()
	}
	if err != nil {
		return err
	}

	// The last note still rings after the final cue.
	total := time.Duration(len(steps))*ex.StepInterval() + ex.NoteLength() + time.Second
	select {
	case <-r.sink.idle:
		return nil
	case <-time.After(total):
		return errors.New("playback did not finish")
	case <-ctx.Done():
		return ctx.Err()
	}
}
