// Command gatekeep serves password plus second factor logins over HTTP.
// All settings come from the environment; see app.Config.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/app"
)

func main() {
	showVersion := flag.Bool("version", false, "print the build version and exit")
	checkOnly := flag.Bool("check-config", false, "validate the environment and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.BuildVersion)
		return
	}

	if err := run(*checkOnly); err != nil {
		log.Fatalf("gatekeep: %v", err)
	}
}

func run(checkOnly bool) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if checkOnly {
		fmt.Fprintf(os.Stderr, "configuration ok (backend=%s, smtp=%t)\n", cfg.ChallengeBackend, cfg.SMTP.Enabled())
		return nil
	}

	gate, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	return gate.Run()
}
