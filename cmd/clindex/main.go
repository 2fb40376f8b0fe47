// Command clindex manages a perceptual-hash similarity index from the shell.
//
// Usage:
//
//	clindex [flags] <command> [args]
//
// Commands:
//
//	add      - add fingerprints by id
//	replace  - replace the fingerprint stored under an id
//	remove   - remove ids
//	query    - find the nearest fingerprints
//	stats    - show index statistics
//	compact  - drop tombstoned slots
//	backup   - copy the index file to the configured mirrors
//	restore  - restore the index file from a mirror
//
// Configuration:
//
//	Settings are read from the YAML file given by --config. Flags override it.
package main

import (
	"fmt"
	"os"

	"github.com/asarangaram/clmediakit/cmd/clindex/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
