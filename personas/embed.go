// Package personas provides embedded copies of the shipped persona
// prompt files. They seed the agent store on first run and serve as the
// fallback set when the store cannot be loaded. This package exists
// solely to satisfy go:embed's requirement that embedded files reside
// in or below the embedding package directory.
//
// The runtime registry lives in internal/agents.
package personas

import "embed"

// FS contains the shipped persona markdown files, one per agent key.
//
//go:embed *.md
var FS embed.FS
