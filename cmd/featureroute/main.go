/*
This command runs the feature toggle router with the built-in toggle
predicates, serving the routes of a route file.

For the list of command line options, run:

	featureroute -help

The options can be loaded from a YAML file too, with -config-file. Flags
on the command line override the values of the file.
*/
package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/featureroute"
	"github.com/zalando/featureroute/config"
)

var (
	version string
	commit  string
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.Parse(); err != nil {
		log.Fatalf("Error processing config: %s", err)
	}

	if cfg.PrintVersion {
		fmt.Printf(
			"featureroute version %s (commit: %s)\n",
			version, commit,
		)

		return
	}

	log.SetLevel(cfg.ApplicationLogLevel)
	log.Fatal(featureroute.Run(cfg.ToOptions()))
}
