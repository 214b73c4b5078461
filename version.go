package hexcast

import _ "embed"

// Version is the release version of hexcast.
//
//go:embed VERSION
var Version string
