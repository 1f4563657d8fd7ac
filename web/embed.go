// Package web embeds the templates and static assets of the view host.
package web

import "embed"

//go:embed templates/*.html static/*
var FS embed.FS
