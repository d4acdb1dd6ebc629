package drivers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"nami/events"
	"nami/utils"
)

// Recorder writes every event seen on the hub to a jsonl session file that the Replayer can play back.
type Recorder struct {
	path      string
	file      *os.File
	logWriter *bufio.Writer
	events    <-chan *events.Event
	cancel    func()
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecorder opens the next free session file in dir and subscribes to the hub straight away, so nothing broadcast
// after it returns is missed.
func NewRecorder(dir string, eventHub *events.EventHub, logger *slog.Logger) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	filePath := utils.NextAvailableFilename(dir, LOG_NAME, LOG_EXT)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	_, ch, cancel := eventHub.Subscribe(256)
	return &Recorder{
		path:      filePath,
		file:      file,
		logWriter: bufio.NewWriterSize(file, 1<<20),
		events:    ch,
		cancel:    cancel,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (r *Recorder) Path() string {
	return r.path
}

// Run records until ctx is done, then flushes whatever is already buffered and closes the file.
func (r *Recorder) Run(ctx context.Context) error {
	defer func() { _ = r.file.Close() }()
	defer func() { _ = r.logWriter.Flush() }()
	defer r.cancel()

	r.logger.Info("recording session", "path", r.path)

	encoder := json.NewEncoder(r.logWriter)
	frames := 0
	write := func(event *events.Event) {
		// Stamp on receipt so replay reproduces the live pacing.
		event.Timestamp = int(r.now().UnixMilli())
		if err := encoder.Encode(event); err != nil {
			r.logger.Warn("session write", "error", err)
			return
		}
		frames++
		if (frames % WRITE_EVERY_N_FRAMES) == 0 {
			_ = r.logWriter.Flush()
		}
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case event, ok := <-r.events:
					if !ok {
						return nil
					}
					write(event)
				default:
					return nil
				}
			}
		case event, ok := <-r.events:
			if !ok {
				return nil
			}
			write(event)
		}
	}
}
