package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"episode-mapper/internal/config"
	"episode-mapper/internal/jobs"
	"episode-mapper/internal/mapping"
	"episode-mapper/internal/remote"
	"episode-mapper/internal/transcript"
	"episode-mapper/internal/tui"
)

func main() {
	cfg, err := config.Load(config.NewYAMLStore(config.DefaultSettingsPath()), ".env")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var logOut io.Writer = io.Discard
	if path := os.Getenv("DEBUG_LOG"); path != "" {
		f, err := tea.LogToFile(path, "episode-mapper")
		if err != nil {
			log.Fatalf("open debug log: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client := remote.NewClient(cfg)
	bus := jobs.NewEventBus(200)
	ctrl := jobs.NewController(cfg, client, bus, jobs.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := ctrl.Run(ctx); err != nil {
			logger.Error("job controller stopped", "error", err)
		}
	}()

	model := tui.New(ctrl, bus, cfg, transcript.NewViewer(client), mapping.NewViewer(client))
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("run tui: %v", err)
	}
}
