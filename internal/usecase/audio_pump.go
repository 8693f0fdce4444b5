package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"mitherapy/internal/domain"
	"mitherapy/internal/ports"
)

type errorReporter func(code domain.ErrorCode, detail string)

// pumpAudioChunks forwards microphone audio to the provider until either side
// stops. Errors after ctx is done are expected teardown noise and not reported.
func pumpAudioChunks(
	ctx context.Context,
	audio ports.AudioSession,
	stream ports.StreamingSession,
	chunkSize int,
	report errorReporter,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}
	if report == nil {
		report = func(domain.ErrorCode, string) {}
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				if ctx.Err() == nil {
					report(domain.ErrorCodeAudioStream, fmt.Sprintf("failed to stream audio: %v", sendErr))
				}
				return
			}
		}
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				report(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

func waitForStream(session ports.StreamingSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
