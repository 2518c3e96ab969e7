// Command gh-extract exports GitHub repository data as CSV.
//
// Usage:
//
//	GITHUB_API_TOKEN=... gh-extract issues rust-lang/rust --days-ago 30 > issues.csv
//
// Every resource kind is a subcommand. Repository kinds take owner/repo (or
// owner and repo as two arguments); users and users-detailed take none.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Export failed")
		os.Exit(1)
	}
}
