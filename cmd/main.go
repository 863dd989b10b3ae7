package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fanlume/fanlume-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		a.Log.Error("background startup failed", "error", err)
		os.Exit(1)
	}

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		a.Log.Info("shutdown signal received")
		a.Close()
		os.Exit(0)
	}()

	if err := a.Run(); err != nil {
		a.Log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
