package main

import (
	"os"

	"github.com/bluboy-rewards/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.StdLogger().Printf("seed failed: %v", err)
		os.Exit(1)
	}
}
