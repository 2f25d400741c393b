// Package pipeline orchestrates the fixed stage sequence that takes one
// intake video from its metadata row to the archive tree: rename, audio
// extraction, transcription, summarization, artifact materialization,
// notification, thumbnail, archival, cleanup, and the closing metadata
// update.
package pipeline

import (
	"context"
	"log/slog"

	"reelvault/internal/archive"
	"reelvault/internal/config"
	"reelvault/internal/jobs"
	"reelvault/internal/logging"
	"reelvault/internal/services/sheets"
	"reelvault/internal/services/stt"
	"reelvault/internal/services/telegram"
)

// Artifact kinds used as keys in the result map.
const (
	ArtifactVideo     = "video"
	ArtifactAudio     = "audio"
	ArtifactThumbnail = "thumbnail"
	ArtifactText      = "text"
	ArtifactSubtitle  = "subtitle"
)

// Payload is one unit of work, built from a metadata-store row.
type Payload struct {
	Category    string
	RowIndex    int
	RawFilename string
	Date        string
	Region      string
	Country     string
	Name        string
}

// MediaToolkit is the subprocess-backed media surface the stages use.
type MediaToolkit interface {
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
	CaptureFrame(ctx context.Context, videoPath string, seconds float64) (string, error)
	CropToAspect(ctx context.Context, imagePath, outPath string) error
	ProbeDuration(ctx context.Context, videoPath string) float64
}

// Transcriber converts an audio artifact to text with aligned segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) stt.Result
}

// Summarizer turns transcript text into a summary under a system instruction.
type Summarizer interface {
	Summarize(ctx context.Context, systemInstruction, transcript string) (string, error)
}

// PromptSource loads per-category instruction documents.
type PromptSource interface {
	Load(filename string) (string, error)
}

// MetadataStore receives row status updates.
type MetadataStore interface {
	UpdateStatus(ctx context.Context, category string, rowIndex int, status string, opts sheets.UpdateOptions) error
	Markers() sheets.Markers
}

// Archiver places finished artifacts into the dated archive tree.
type Archiver interface {
	Store(ctx context.Context, dateToken string, art archive.Artifacts) (archive.Result, error)
}

// Executor runs the stage sequence for single jobs and batches.
type Executor struct {
	cfg      *config.Config
	toolkit  MediaToolkit
	stt      Transcriber
	llm      Summarizer
	notifier telegram.Service
	store    MetadataStore
	prompts  PromptSource
	archiver Archiver
	logger   *slog.Logger
}

// Deps bundles the collaborators an Executor needs.
type Deps struct {
	Toolkit  MediaToolkit
	STT      Transcriber
	LLM      Summarizer
	Notifier telegram.Service
	Store    MetadataStore
	Prompts  PromptSource
	Archiver Archiver
	Logger   *slog.Logger
}

// New builds an Executor.
func New(cfg *config.Config, deps Deps) *Executor {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		cfg:      cfg,
		toolkit:  deps.Toolkit,
		stt:      deps.STT,
		llm:      deps.LLM,
		notifier: deps.Notifier,
		store:    deps.Store,
		prompts:  deps.Prompts,
		archiver: deps.Archiver,
		logger:   logger,
	}
}

// PipelineFor wraps Execute as a queue-runnable function. Failures mark the
// originating metadata row errored before surfacing to the job record.
func (e *Executor) PipelineFor(ctx context.Context, payload Payload) jobs.PipelineFunc {
	return func(cb jobs.Callbacks) (map[string]string, error) {
		artifacts, err := e.Execute(ctx, payload, cb)
		if err != nil {
			e.markErrored(ctx, payload, err)
			return nil, err
		}
		return artifacts, nil
	}
}
