package web

import (
	"html/template"
	"net/http"

	ds "github.com/starfederation/datastar-go/datastar"
)

type Renderer interface {
	Templates() *template.Template
	Handlers() map[string]func(w http.ResponseWriter, r *http.Request)
	Data() map[string]interface{}
	// OnTick patches whatever changed since the versions in rendered, then records the versions it sent.
	OnTick(sse *ds.ServerSentEventGenerator, rendered map[string]uint64) error
}
