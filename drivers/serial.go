package drivers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"nami/config"
	"nami/events"
)

// Serial reads newline-delimited json frames from a serial-attached bridge.
type Serial struct {
	*config.SerialFlags
	eventHub *events.EventHub
	logger   *slog.Logger
	port     serial.Port
}

// Arduino & clones common VIDs
var preferredVIDs = map[string]bool{
	"2341": true, // Arduino
	"2A03": true, // Arduino (older)
	"1A86": true, // CH340
	"10C4": true, // CP210x
	"0403": true, // FTDI
}

func NewSerial(serialFlags *config.SerialFlags, eventHub *events.EventHub, logger *slog.Logger) *Serial {
	driver := &Serial{
		serialFlags,
		eventHub,
		logger,
		nil,
	}
	return driver
}

func (s *Serial) Init() error {
	port, err := s.openPort(s.SerialPort, s.BaudRate)
	if err != nil {
		return err
	}
	s.port = port
	return nil
}

func (s *Serial) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.port.Close() })
	defer stop()

	err := readFrames(ctx, s.port, s.logger, func(event *events.Event) error {
		s.eventHub.Broadcast(event)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Serial) openPort(port string, baud int) (serial.Port, error) {
	// auto-select a usb serial port if requested
	if port == "auto" {
		ports, err := enumerator.GetDetailedPortsList()
		if err != nil {
			return nil, fmt.Errorf("enumerate ports: %w", err)
		}
		name, err := selectPort(ports)
		if err != nil {
			return nil, fmt.Errorf("auto-select: %w", err)
		}
		port = name
	}
	mode := &serial.Mode{BaudRate: baud}
	serialPort, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("couldn't open serial %s: %w", port, err)
	}
	s.logger.Info("connected to serial bridge", "port", port, "baud", baud)

	return serialPort, nil
}

// selectPort picks the first usb port whose vendor id looks like a microcontroller bridge.
func selectPort(ports []*enumerator.PortDetails) (string, error) {
	for _, p := range ports {
		if p.IsUSB && preferredVIDs[strings.ToUpper(p.VID)] {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("no usb serial bridge found")
}
