package drivers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"nami/config"
	"nami/events"
)

// Replayer plays back a session recorded by the Recorder.
type Replayer struct {
	*config.ReplayFlags
	eventHub *events.EventHub
	logger   *slog.Logger
}

func NewReplayer(replayFlags *config.ReplayFlags, eventHub *events.EventHub, logger *slog.Logger) *Replayer {
	replayer := &Replayer{
		replayFlags,
		eventHub,
		logger,
	}
	return replayer
}

func (r *Replayer) Init() error {
	if r.Path == "" {
		return errors.New("replay path is empty")
	}
	if _, err := os.Stat(r.Path); err != nil {
		return fmt.Errorf("replay file: %w", err)
	}
	return nil
}

func (r *Replayer) Run(ctx context.Context) error {
	for {
		if err := r.playOnce(ctx); err != nil {
			return err
		}
		if !r.Loop {
			break
		}
	}
	return nil
}

func (r *Replayer) playOnce(ctx context.Context) error {
	file, err := os.Open(r.Path)
	if err != nil {
		return err
	}
	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			r.logger.Warn("couldn't close replay file", "error", err)
		}
	}(file)

	var (
		first  = true
		prevMS int
	)

	frameIndex := 0
	err = readFrames(ctx, file, r.logger, func(event *events.Event) error {
		if frameIndex < r.SkipFrames {
			frameIndex++
			return nil
		}

		if first {
			first = false
			prevMS = event.Timestamp
		}

		if r.Speed > 0 {
			delta := time.Duration(event.Timestamp - prevMS)
			if delta > 0 {
				wait := time.Duration(float64(delta) * float64(time.Millisecond) / r.Speed)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
			prevMS = event.Timestamp
		}

		r.eventHub.Broadcast(event)
		frameIndex++
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("end of replay", "frames", frameIndex)
	return nil
}
