package main

import (
	"os"

	"github.com/wonny/optacq/cmd/optacq/commands"
)

// main is the entry point for the optacq CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/optacq [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
