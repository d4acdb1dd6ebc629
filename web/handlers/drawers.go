package web

import (
	"errors"
	"net/http"

	"nami/drawers"
)

// OpenDrawerHandler starts a drawer for the calling client. Its output arrives on the client's update stream.
func (d *Dashboard) OpenDrawerHandler(w http.ResponseWriter, r *http.Request) {
	clientID := getClientID(w, r)
	id := r.PathValue("id")

	if !d.sessions.Attached(clientID) {
		http.Error(w, "no live update stream for this client", http.StatusConflict)
		return
	}

	opened, err := d.drawers.Open(d.drawerCtx, clientID, id, d.sessions.Sink(clientID))
	if err != nil {
		d.drawerError(w, id, err)
		return
	}
	if opened {
		d.logger.Info("drawer opened", "drawer", id, "client", clientID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Dashboard) CloseDrawerHandler(w http.ResponseWriter, r *http.Request) {
	clientID := getClientID(w, r)
	id := r.PathValue("id")

	closed, err := d.drawers.Close(clientID, id)
	if err != nil {
		d.drawerError(w, id, err)
		return
	}
	if closed {
		d.sessions.Push(clientID, drawers.Placeholder(id))
		d.logger.Info("drawer closed", "drawer", id, "client", clientID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Dashboard) drawerError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, drawers.ErrUnknownDrawer) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	d.logger.Error("drawer", "drawer", id, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
