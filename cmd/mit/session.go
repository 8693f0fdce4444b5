package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"mitherapy/internal/domain"
)

func newSessionCmd(opts *rootOptions) *cobra.Command {
	var attempts int

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run a practice session: melody, then say the phrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rt, err := opts.startRuntime(cmd)
			if err != nil {
				return err
			}
			session := rt.services.Session
			defer session.Close()

			caps := session.Capabilities()
			if !caps.Speech.Available {
				return fmt.Errorf("speech recognition not supported: %s", caps.Speech.Reason)
			}
			if err := session.RequestAccess(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ex := rt.services.Exercise
			maxWait := rt.services.Config.Audio.MaxUtterance + rt.services.Config.Audio.StreamingGrace + 5*time.Second

			for attempt := 1; attempt <= attempts; attempt++ {
				fmt.Fprintf(out, "Listen: %s\n", ex.DisplayPhrase)
				if err := rt.play(ctx, domain.MelodyKindMelody); err != nil {
					return err
				}

				fmt.Fprintf(out, "Now say: %s\n", ex.DisplayPhrase)
				if err := session.StartListening(ctx); err != nil {
					return err
				}

				var (
					result domain.FeedbackResult
					heard  bool
				)
				select {
				case result = <-rt.sink.feedback:
					heard = true
				case <-waitIdle(session.State, maxWait):
					select {
					case result = <-rt.sink.feedback:
						heard = true
					default:
					}
				case <-ctx.Done():
					return ctx.Err()
				}

				switch {
				case !heard:
					fmt.Fprintln(out, "Didn't catch that.")
				case result.Matched:
					fmt.Fprintf(out, "Great! You said %q\n", result.Transcript)
					return nil
				default:
					fmt.Fprintf(out, "Heard %q. Let's try again.\n", result.Transcript)
				}
			}
			return errors.New("no matching attempt")
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 3, "number of attempts before giving up")
	return cmd
}

// waitIdle closes the returned channel once listening has ended without
// feedback, or after limit.
func waitIdle(state func() domain.SessionState, limit time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(limit)
		for time.Now().Before(deadline) {
			if !state().IsListening {
				// Feedback, when any, is sent right after the flag drops.
				time.Sleep(50 * time.Millisecond)
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}()
	return done
}
