package web

import (
	"encoding/json"
	"io"
	"net/http"

	"nami/drivers"
	"nami/events"
	"nami/store"
)

type snapshotResponse struct {
	store.DashboardSnapshot
	Stats struct {
		Applied  uint64 `json:"applied"`
		Rejected uint64 `json:"rejected"`
		Dropped  uint64 `json:"dropped"`
	} `json:"stats"`
}

// SnapshotHandler returns the whole dashboard as json.
func (d *Dashboard) SnapshotHandler(w http.ResponseWriter, _ *http.Request) {
	resp := snapshotResponse{DashboardSnapshot: d.registry.Snapshot()}
	resp.Stats.Applied = d.dispatcher.Applied()
	resp.Stats.Rejected = d.dispatcher.Rejected()
	resp.Stats.Dropped = d.eventHub.Dropped()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		d.logger.Warn("encode snapshot", "error", err)
	}
}

// InjectEventHandler accepts one transport frame and broadcasts it as if the transport had delivered it.
func (d *Dashboard) InjectEventHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, drivers.MAX_FRAME_BYTES))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	event, err := events.ParseFrame(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := events.Decode(event); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d.eventHub.Broadcast(event)
	w.WriteHeader(http.StatusAccepted)
}
