package config

import (
	"flag"
	"os"
)

type DriverType string

const (
	Replay    DriverType = "replay"
	Serial    DriverType = "serial"
	Websocket DriverType = "websocket"
)

type Flags struct {
	Driver       DriverType
	Addr         string
	ConfigPath   string
	DirectorURL  string
	FragmentsDir string
	Record       bool
	LogLevel     string
}

type WebsocketFlags struct {
	// EventsURL overrides the events url from the config file when set.
	EventsURL string
	Origin    string
}

type SerialFlags struct {
	SerialPort string
	BaudRate   int
}

type ReplayFlags struct {
	Path       string
	Speed      float64
	Loop       bool
	SkipFrames int
}

const DEFAULT_BAUD_RATE = 115200

func GetFlags() (*Flags, *WebsocketFlags, *SerialFlags, *ReplayFlags, error) {
	return ParseFlags(os.Args[1:])
}

func ParseFlags(args []string) (*Flags, *WebsocketFlags, *SerialFlags, *ReplayFlags, error) {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)

	flags := &Flags{}
	var driverStr string
	fs.StringVar(&driverStr, "driver", string(Websocket), "transport used to receive director events (websocket, serial, replay)")
	fs.StringVar(&flags.Addr, "addr", ":8080", "http listen address")
	fs.StringVar(&flags.ConfigPath, "config", "", "path to a yaml config file")
	fs.StringVar(&flags.DirectorURL, "director-url", "", "director http base url, overrides the config file")
	fs.StringVar(&flags.FragmentsDir, "fragments-dir", "", "load drawer fragments from this directory instead of the built-in set")
	fs.BoolVar(&flags.Record, "record", false, "record received events to logs/ for replay")
	fs.StringVar(&flags.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	ws := &WebsocketFlags{}
	fs.StringVar(&ws.EventsURL, "events-url", "", "director event socket url, overrides the config file")
	fs.StringVar(&ws.Origin, "origin", "http://localhost/", "origin header sent when dialing the event socket")

	serial := &SerialFlags{}
	fs.StringVar(&serial.SerialPort, "serial-port", "auto", "serial device path or 'auto'")
	fs.IntVar(&serial.BaudRate, "baud", DEFAULT_BAUD_RATE, "baud rate")

	replay := &ReplayFlags{}
	fs.StringVar(&replay.Path, "replay", "", "Path to .jsonl session to replay")
	fs.Float64Var(&replay.Speed, "replay-speed", 1.0, "Replay speed multiplier (0 = as fast as possible)")
	fs.BoolVar(&replay.Loop, "replay-loop", false, "Loop replay at EOF")
	fs.IntVar(&replay.SkipFrames, "replay-skip-frames", 0, "Skips X amount of frames from start")

	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, nil, err
	}

	flags.Driver = DriverType(driverStr)

	// -replay on its own is enough to pick the replay driver.
	driverSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "driver" {
			driverSet = true
		}
	})
	if replay.Path != "" && !driverSet {
		flags.Driver = Replay
	}

	return flags, ws, serial, replay, nil
}
