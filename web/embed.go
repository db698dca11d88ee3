// Package web holds the HTML templates and static assets served by docchat.
package web

import "embed"

// FS contains templates/*.html and static/*.
//
//go:embed templates static
var FS embed.FS
