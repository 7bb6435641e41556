package healthdash

import "embed"

// WebFS holds the dashboard shell served at the root path.
//
//go:embed web
var WebFS embed.FS
