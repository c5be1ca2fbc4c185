package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/xai-decision-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start()
	err = a.Run(ctx, ":"+a.Cfg.Port)
	if err != nil {
		a.Log.Error("server exited", "error", err)
	}
	a.Close()
	if err != nil {
		os.Exit(1)
	}
}
