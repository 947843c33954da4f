package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/downscaler/internal/cmd"
)

func main() {
	// Context & signals: in-flight files finish their current pass, nothing new starts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger.
	zlog.Init()

	if err := fang.Execute(ctx, cmd.NewRootCmd(zlog.Logger)); err != nil {
		stop()
		os.Exit(1)
	}
}
