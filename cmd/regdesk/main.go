package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/regdesk/regdesk/internal/api"
	"github.com/regdesk/regdesk/internal/config"
	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/notify"
	"github.com/regdesk/regdesk/internal/service"
	"github.com/regdesk/regdesk/internal/ui"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	logPath    = flag.String("log", "regdesk.log", "Path to log file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger. Logs go to a file so they do not fight the
	// terminal UI for the screen.
	logger, err := buildLogger(cfg.Log.Level, *logPath)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize API client
	client := api.New(cfg.API.BaseURL, cfg.API.Timeout, logger)

	// Initialize services
	notices := notify.NewCenter()
	feedService := service.NewFeedService(client, notices, logger)
	chatService := service.NewChatService(client, notices, logger, cfg.User.ID)
	selectionService := service.NewSelectionService(client, notices, logger)
	workflowService := service.NewWorkflowService(
		client,
		notices,
		logger,
		selectionService,
		cfg.User.ID,
		cfg.Feed.HistoryLimit,
	)
	uploadService := service.NewUploadService(client, notices, logger)

	// A committed selection announces itself in the transcript.
	selectionService.OnCommit(func(item domain.FeedItem) {
		chatService.SystemNote(fmt.Sprintf("Now chatting about: %s", item.Title))
	})

	model := ui.New(cfg, logger, ui.Services{
		Feed:      feedService,
		Chat:      chatService,
		Selection: selectionService,
		Workflow:  workflowService,
		Upload:    uploadService,
		Notices:   notices,
	})

	logger.Info("Starting RegDesk",
		zap.String("base_url", cfg.API.BaseURL),
		zap.String("user_id", cfg.User.ID),
	)

	program := tea.NewProgram(model, tea.WithAltScreen())

	// Background feed polling; each completed refresh nudges the UI to
	// re-read the snapshot.
	pollCtx, cancelPolling := context.WithCancel(context.Background())
	defer cancelPolling()
	for _, kind := range []domain.DocType{domain.DocTypePressRelease, domain.DocTypeCircular} {
		stop := feedService.StartPolling(pollCtx, kind, cfg.Feed.PollInterval, func(err error) {
			program.Send(ui.FeedRefreshed(kind, err))
		})
		defer stop()
	}

	if _, err := program.Run(); err != nil {
		logger.Error("UI exited with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "regdesk: %v\n", err)
		os.Exit(1)
	}
}

func buildLogger(level, path string) (*zap.Logger, error) {
	zapLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zapLevel
	zapCfg.OutputPaths = []string{path}
	zapCfg.ErrorOutputPaths = []string{path}
	return zapCfg.Build()
}
