package main

import (
	"log/slog"

	"github.com/brk3/habitlog/cmd"
	"github.com/brk3/habitlog/internal/logger"
)

func main() {
	// replaced once the config is loaded
	logger.Init(slog.LevelInfo)
	cmd.Execute()
}
