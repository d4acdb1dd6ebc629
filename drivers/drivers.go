package drivers

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"nami/events"
)

const (
	LOG_DIR              = "logs"
	LOG_NAME             = "SESSION"
	LOG_EXT              = ".jsonl"
	WRITE_EVERY_N_FRAMES = 100
	MAX_FRAME_BYTES      = 1 << 20
)

var (
	ErrReadOnlyTransport = errors.New("transport cannot send")
	ErrNotConnected      = errors.New("transport not connected")
)

// Driver is a source of director events. Init prepares the transport, Run delivers events into the hub until ctx is
// done or the source is exhausted.
type Driver interface {
	Init() error
	Run(ctx context.Context) error
}

// Sender is implemented by drivers that can carry operator control frames back to the director.
type Sender interface {
	Send(ctx context.Context, event *events.Event) error
}

// readFrames reads newline-delimited json frames and hands each well-formed one to fn. Malformed lines are logged and
// skipped so one bad frame never stalls the stream.
func readFrames(ctx context.Context, reader io.Reader, logger *slog.Logger, fn func(*events.Event) error) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), MAX_FRAME_BYTES)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		event, err := events.ParseFrame(line)
		if err != nil {
			logger.Warn("skip frame", "error", err)
			continue
		}
		if err := fn(event); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read frames: %w", err)
	}
	return nil
}
