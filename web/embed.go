package web

import "embed"

// TemplatesFS holds the page and its htmx partials.
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the browser script and stylesheet.
//go:embed static/*
var StaticFS embed.FS
