package aethel

import _ "embed"

// Version is the release of the aethel module and CLI.
//
//go:embed VERSION
var Version string
