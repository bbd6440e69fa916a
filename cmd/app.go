package cmd

import (
	"fmt"
	"strings"
	"time"

	"TrackVault/config"
	"TrackVault/core/acquire"
	"TrackVault/core/dedup"
	"TrackVault/core/fetch"
	"TrackVault/core/media"
	"TrackVault/core/placer"
	"TrackVault/core/provider"
	"TrackVault/db"
	"TrackVault/logger"
	"TrackVault/model"
	"TrackVault/repository"
)

// app bundles the wired components shared by the serve and run commands.
type app struct {
	cfg       *config.Config
	manager   *acquire.Manager
	scheduler *acquire.Scheduler
	janitor   *placer.Janitor
}

// buildApp connects the datastores and assembles the acquisition engine.
func buildApp() (*app, error) {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	if err := db.ConnectGormDB(cfg); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.AutoMigrateModels(&model.DownloadTask{}, &model.TaskEvent{}, &model.Song{}); err != nil {
		return nil, fmt.Errorf("migrate models: %w", err)
	}
	if err := db.ConnectRedis(cfg); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	tasks := repository.NewTaskRepository()
	events := repository.NewEventRepository()
	songs := repository.NewSongRepository()

	fetcher := fetch.NewClient()

	registry := provider.NewRegistry()
	if cfg.DabAPIURL != "" {
		registry.Register(provider.NewDabProvider(cfg.DabAPIURL, fetcher))
	}
	if mirrors := splitCSV(cfg.TidalAPIURLs); len(mirrors) > 0 {
		registry.Register(provider.NewTidalProvider(mirrors, fetcher))
	}
	var fallback *provider.SonglinkResolver
	if cfg.SonglinkAPIURL != "" {
		fallback = provider.NewSonglinkResolver(cfg.SonglinkAPIURL, fetcher)
	}
	resolver := provider.NewResolver(registry, fallback)

	pathResolver := &dedup.FSPathResolver{AllowedRoots: []string{cfg.StorageRoot}}
	engine := dedup.NewEngine(songs, pathResolver, cfg.StorageRoot)

	filer, err := placer.NewPlacer(cfg.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("init placer: %w", err)
	}
	janitor := placer.NewJanitor(cfg.StagingDir, time.Hour)
	if err := janitor.Start(); err != nil {
		logger.Warn("staging janitor disabled", logger.ErrorField(err))
		janitor = nil
	}

	manager := acquire.NewManager(acquire.ManagerParams{
		Cfg:        cfg,
		Tasks:      tasks,
		Events:     events,
		Songs:      songs,
		Dedup:      engine,
		Resolver:   resolver,
		Extractor:  media.NewProcessExtractor(cfg.ExtractorPath),
		Transcoder: media.NewFFmpegTranscoder(cfg.FFmpegPath),
		Placer:     filer,
		Janitor:    janitor,
		Fetcher:    fetcher,
	})

	scheduler := acquire.NewScheduler(db.RedisClient, tasks, cfg.MaxWorkers)
	scheduler.SetRunner(manager.RunTask)
	manager.SetDrainHook(scheduler.Drain)

	return &app{cfg: cfg, manager: manager, scheduler: scheduler, janitor: janitor}, nil
}

func (a *app) close() {
	if a.janitor != nil {
		a.janitor.Stop()
	}
	if err := db.CloseRedis(); err != nil {
		logger.Warn("close redis", logger.ErrorField(err))
	}
	if err := db.CloseGormDB(); err != nil {
		logger.Warn("close database", logger.ErrorField(err))
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
