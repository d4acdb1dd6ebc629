// Command sniffily cuts a recorded session down to the events you care about, for building replay fixtures.
//
//	sniffily -in logs/SESSION.jsonl -events audio_context,event_scored
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"nami/drivers"
	"nami/events"
	"nami/logs"
)

const (
	sniffLocation = "logs/SESSION.jsonl"
	outSuffix     = "_filtered"
)

func main() {
	in := flag.String("in", sniffLocation, "recorded session to read")
	out := flag.String("out", "", "where to write the filtered session (default: <in>_filtered.jsonl)")
	names := flag.String("events", "", "comma separated event names to keep (default: all valid events)")
	flag.Parse()

	logger := logs.New(os.Stderr, slog.LevelInfo)

	outPath := *out
	if outPath == "" {
		outPath = strings.TrimSuffix(*in, drivers.LOG_EXT) + outSuffix + drivers.LOG_EXT
	}

	file, err := os.Open(*in)
	if err != nil {
		logger.Error("open session", "error", err)
		os.Exit(1)
	}
	defer file.Close()

	outFile, err := os.Create(outPath)
	if err != nil {
		logger.Error("create output", "error", err)
		os.Exit(1)
	}
	defer outFile.Close()

	kept, skipped, err := filterSession(file, outFile, parseNames(*names))
	if err != nil {
		logger.Error("filter session", "error", err)
		os.Exit(1)
	}

	// Flush to disk
	if err := outFile.Sync(); err != nil {
		logger.Error("sync output", "error", err)
		os.Exit(1)
	}
	logger.Info("filtered session", "out", outPath, "kept", kept, "skipped", skipped)
}

func parseNames(s string) map[string]bool {
	keep := make(map[string]bool)
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			keep[name] = true
		}
	}
	return keep
}

// filterSession copies frames that decode cleanly and, when keep is non-empty, are named in keep. Lines are copied
// verbatim so timestamps survive.
func filterSession(r io.Reader, w io.Writer, keep map[string]bool) (kept, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), drivers.MAX_FRAME_BYTES)
	writer := bufio.NewWriter(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		event, err := events.ParseFrame(line)
		if err != nil {
			skipped++
			continue
		}
		if len(keep) > 0 && !keep[event.Name] {
			skipped++
			continue
		}
		if _, err := events.Decode(event); err != nil {
			skipped++
			continue
		}
		if _, err := writer.Write(line); err != nil {
			return kept, skipped, err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return kept, skipped, err
		}
		kept++
	}
	if err := scanner.Err(); err != nil {
		return kept, skipped, fmt.Errorf("read session: %w", err)
	}
	return kept, skipped, writer.Flush()
}
