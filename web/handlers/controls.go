package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	ds "github.com/starfederation/datastar-go/datastar"

	"nami/drivers"
	"nami/events"
)

const CONTROL_SEND_TIMEOUT = 3 * time.Second

// controlSignals mirrors the operator inputs bound on the page.
type controlSignals struct {
	Streamer       string `json:"streamer"`
	ManualContext  string `json:"manualContext"`
	StreamerLocked bool   `json:"streamerLocked"`
	ContextLocked  bool   `json:"contextLocked"`
}

func (d *Dashboard) SetStreamerHandler(w http.ResponseWriter, r *http.Request) {
	d.control(w, r, func(sig controlSignals) (*events.Event, error) {
		return events.SetStreamer(sig.Streamer)
	})
}

func (d *Dashboard) SetContextHandler(w http.ResponseWriter, r *http.Request) {
	d.control(w, r, func(sig controlSignals) (*events.Event, error) {
		return events.SetManualContext(sig.ManualContext)
	})
}

func (d *Dashboard) StreamerLockHandler(w http.ResponseWriter, r *http.Request) {
	d.control(w, r, func(sig controlSignals) (*events.Event, error) {
		return events.SetStreamerLock(sig.StreamerLocked)
	})
}

func (d *Dashboard) ContextLockHandler(w http.ResponseWriter, r *http.Request) {
	d.control(w, r, func(sig controlSignals) (*events.Event, error) {
		return events.SetContextLock(sig.ContextLocked)
	})
}

// control reads the page signals, builds one control frame and forwards it to the director.
func (d *Dashboard) control(w http.ResponseWriter, r *http.Request, build func(controlSignals) (*events.Event, error)) {
	var sig controlSignals
	if err := ds.ReadSignals(r, &sig); err != nil {
		d.logger.Warn("error reading signals", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := build(sig)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), CONTROL_SEND_TIMEOUT)
	defer cancel()
	if err := d.sender.Send(ctx, event); err != nil {
		d.logger.Warn("control not delivered", "event", event.Name, "error", err)
		switch {
		case errors.Is(err, drivers.ErrReadOnlyTransport), errors.Is(err, drivers.ErrNotConnected):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
		return
	}

	d.logger.Info("control sent", "event", event.Name)
	w.WriteHeader(http.StatusNoContent)
}
