package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/config"
	"reelvault/internal/history"
	"reelvault/internal/jobs"
	"reelvault/internal/logging"
	"reelvault/internal/media"
	"reelvault/internal/pipeline"
	"reelvault/internal/prompts"
	"reelvault/internal/services/llm"
	"reelvault/internal/services/sheets"
	"reelvault/internal/services/stt"
	"reelvault/internal/services/telegram"
)

// categoryNames is the fixed scan order.
var categoryNames = []string{
	config.CategoryTestimony,
	config.CategoryMissionNews,
	config.CategoryOther,
}

// runtime bundles the collaborators a command needs to process videos.
type runtime struct {
	executor *pipeline.Executor
	store    *sheets.Client
}

func buildRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	toolkit := media.NewToolkit(cfg.FFmpegBinary(), cfg.FFprobeBinary(), cfg.Paths.TempDir)
	if err := toolkit.EnsureTempDir(); err != nil {
		return nil, err
	}

	store := buildStoreClient(cfg, logger)

	notifier := telegram.New(telegram.Config{
		BotToken:        cfg.Telegram.BotToken,
		ChatID:          cfg.Telegram.ChatID,
		MessageTimeout:  time.Duration(cfg.Telegram.MessageTimeout) * time.Second,
		DocumentTimeout: time.Duration(cfg.Telegram.DocumentTimeout) * time.Second,
	}, logging.NewComponentLogger(logger, "telegram"))

	executor := pipeline.New(cfg, pipeline.Deps{
		Toolkit: toolkit,
		STT: stt.NewClient(stt.Options{
			APIURL:       cfg.STT.APIURL,
			APIKey:       cfg.STT.APIKey,
			PollInterval: time.Duration(cfg.STT.PollInterval) * time.Second,
			MaxPolls:     cfg.STT.MaxPolls,
		}, logging.NewComponentLogger(logger, "stt")),
		LLM: llm.NewClient(llm.Options{
			APIURL:         cfg.LLM.APIURL,
			APIKey:         cfg.LLM.APIKey,
			Model:          cfg.LLM.Model,
			MaxInputChars:  cfg.LLM.MaxInputChars,
			Temperature:    cfg.LLM.Temperature,
			ConnectTimeout: time.Duration(cfg.LLM.ConnectTimeout) * time.Second,
			ReadTimeout:    time.Duration(cfg.LLM.ReadTimeout) * time.Second,
		}, logging.NewComponentLogger(logger, "llm")),
		Notifier: notifier,
		Store:    store,
		Prompts:  prompts.NewLoader(cfg.Paths.PromptsDir),
		Archiver: archive.New(
			cfg.Paths.ArchiveDir,
			uint64(cfg.Archive.MinFreeGiB),
			time.Duration(cfg.Archive.SettleDelay)*time.Second,
			logging.NewComponentLogger(logger, "archive"),
		),
		Logger: logger,
	})

	return &runtime{
		executor: executor,
		store:    store,
	}, nil
}

func buildStoreClient(cfg *config.Config, logger *slog.Logger) *sheets.Client {
	return sheets.NewClient(sheets.Options{
		BaseURL:        cfg.Sheets.BaseURL,
		APIKey:         cfg.Sheets.APIKey,
		RequestTimeout: time.Duration(cfg.Sheets.RequestTimeout) * time.Second,
		SummaryTab:     cfg.Sheets.SummaryTab,
		Markers: sheets.Markers{
			Pending: cfg.Sheets.PendingMarker,
			Error:   cfg.Sheets.ErrorMarker,
			Done:    cfg.Sheets.DoneMarker,
		},
	}, logger)
}

func payloadFromRow(category string, row sheets.Row) pipeline.Payload {
	return pipeline.Payload{
		Category:    category,
		RowIndex:    row.Index,
		RawFilename: row.File,
		Date:        row.Date,
		Region:      row.Region,
		Country:     row.Country,
		Name:        row.Name,
	}
}

// historyRecorder adapts the SQLite ledger to the worker's outcome hook.
type historyRecorder struct {
	store *history.Store
}

func (r *historyRecorder) RecordOutcome(ctx context.Context, snap jobs.Snapshot) error {
	entry := history.Entry{
		JobID:        snap.ID,
		Category:     snap.Kind,
		SourceFile:   snap.Title,
		Status:       string(snap.Status),
		ErrorMessage: snap.Error,
		Artifacts:    snap.Result,
		SubmittedAt:  snap.SubmittedAt,
		CompletedAt:  snap.CompletedAt,
	}
	if video, ok := snap.Result[pipeline.ArtifactVideo]; ok {
		entry.FinalFile = filepath.Base(video)
	}
	return r.store.Record(ctx, entry)
}

// inflightSet tracks which metadata rows already have a queued or running
// job, so repeated scans do not submit the same row twice.
type inflightSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInflightSet() *inflightSet {
	return &inflightSet{keys: make(map[string]struct{})}
}

// claim marks the key as in flight. It returns false when the key is already
// claimed.
func (s *inflightSet) claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *inflightSet) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}
