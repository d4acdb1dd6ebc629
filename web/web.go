// Package web holds the dashboard's embedded templates and static assets.
package web

import "embed"

//go:embed static
var Static embed.FS

//go:embed templates
var Templates embed.FS
