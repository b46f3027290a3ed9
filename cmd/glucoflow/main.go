// Package main provides glucoflow, a CGM export analyzer producing
// per-meal glycemic response reports and summary statistics.
package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"glucoflow/internal/cli"
)

func main() {
	// Optional .env carrying GLUCOFLOW_* defaults; absence is fine.
	_ = godotenv.Load()

	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env))
}
