package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"labreport/internal/config"
	"labreport/ui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := ui.NewApp(ui.Config{
		Port:       cfg.Server.PreviewPort,
		ReportsDir: cfg.Server.ReportsDir,
	})
	if err != nil {
		log.Fatal("Failed to create preview app:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Report preview on http://localhost:%s", cfg.Server.PreviewPort)
	if err := app.Start(ctx); err != nil {
		log.Fatal(err)
	}
}
