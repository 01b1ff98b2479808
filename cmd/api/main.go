package main

import (
	"log/slog"
	"os"

	"github.com/cinetix/booking-engine/internal/app"
)

func main() {
	err := app.Run()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error(err.Error())
		os.Exit(1)
	}
}
