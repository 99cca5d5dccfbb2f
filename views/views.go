package views

import "embed"

//go:embed layouts messages pages partials
var FS embed.FS
