package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"docdeck/internal/api"
	"docdeck/internal/chat"
	"docdeck/internal/config"
	"docdeck/internal/export"
	"docdeck/internal/ingest"
	"docdeck/internal/logging"
	"docdeck/internal/ui"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docdeck: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogPath)
	defer log.Sync()

	exporter, err := export.New(cfg.ExportDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docdeck: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.BaseURL, cfg.RequestTimeout)
	store := chat.NewStore()
	tracker := ingest.NewTracker(ingest.Delays{
		Headers:    cfg.HeaderDelay,
		Embeddings: cfg.EmbedDelay,
		Reset:      cfg.ResetDelay,
	})

	log.Info("starting docdeck", zap.String("base_url", cfg.BaseURL))

	model := ui.NewModel(cfg, client, store, tracker, exporter, log)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error("program exited with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "docdeck: %v\n", err)
		os.Exit(1)
	}
}
