package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reelvault/internal/archive"
	"reelvault/internal/config"
	"reelvault/internal/fileutil"
	"reelvault/internal/jobs"
	"reelvault/internal/logging"
	"reelvault/internal/naming"
	"reelvault/internal/services"
	"reelvault/internal/services/sheets"
	"reelvault/internal/services/telegram"
	"reelvault/internal/subtitles"
)

// thumbnailCaptureSecond is where the automatic frame grab happens; second
// zero is routinely a black lead-in.
const thumbnailCaptureSecond = 2.0

// jobContext carries per-stage state through one Execute run.
type jobContext struct {
	payload  Payload
	category config.Category
	cb       jobs.Callbacks

	dateToken string
	region    string
	canonical string

	inboxDir    string
	videoPath   string
	audioPath   string
	textPath    string
	srtPath     string
	thumbPath   string
	summary     string
	fullText    string
	srtSegments []subtitles.Segment
}

// Execute runs the stage sequence for one payload. The first stage that
// cannot complete fails the job; degraded stages (subtitles, notification,
// thumbnail, cleanup) log and continue. On success the returned map holds
// the final archive path per artifact kind.
func (e *Executor) Execute(ctx context.Context, payload Payload, cb jobs.Callbacks) (map[string]string, error) {
	cb = ensureCallbacks(cb)
	ctx = services.WithCategory(ctx, payload.Category)
	jc := &jobContext{payload: payload, category: e.cfg.CategoryFor(payload.Category), cb: cb}

	if err := e.resolvePaths(jc); err != nil {
		return nil, err
	}
	if err := e.normalizeFilename(jc); err != nil {
		return nil, err
	}
	if err := e.extractAudio(ctx, jc); err != nil {
		return nil, err
	}
	e.transcribe(ctx, jc)
	if err := e.summarize(ctx, jc); err != nil {
		return nil, err
	}
	if err := e.materializeText(jc); err != nil {
		return nil, err
	}
	e.renderSubtitles(jc)
	e.notify(ctx, jc)
	e.resolveThumbnail(ctx, jc)

	result, err := e.archiveArtifacts(ctx, jc)
	if err != nil {
		return nil, err
	}
	e.cleanup(jc)
	if err := e.recordOutcome(ctx, jc); err != nil {
		return nil, err
	}

	cb.Log(fmt.Sprintf("%s 처리 완료", jc.payload.Name))
	return result, nil
}

func ensureCallbacks(cb jobs.Callbacks) jobs.Callbacks {
	if cb.Progress == nil {
		cb.Progress = func(int, int) {}
	}
	if cb.Log == nil {
		cb.Log = func(string) {}
	}
	if cb.Status == nil {
		cb.Status = func(string) {}
	}
	return cb
}

// resolvePaths locates the category intake subfolder. A missing subfolder is
// operator misconfiguration, not a per-job condition.
func (e *Executor) resolvePaths(jc *jobContext) error {
	jc.inboxDir = filepath.Join(e.cfg.Paths.InboxDir, jc.category.Subfolder)
	if !fileutil.Exists(jc.inboxDir) {
		return services.Wrap(services.ErrConfiguration, "resolve", "intake folder",
			fmt.Sprintf("intake subfolder missing: %s", jc.inboxDir), nil)
	}
	return nil
}

// normalizeFilename derives the canonical name and renames the intake file
// to it. A file already carrying the canonical name is a resumed partial run
// and is picked up where it left off.
func (e *Executor) normalizeFilename(jc *jobContext) error {
	p := jc.payload
	jc.dateToken = naming.DateToken(p.Date)

	jc.region = strings.TrimSpace(p.Region)
	if jc.region == "" {
		jc.region = p.Country
	}
	if p.Category == config.CategoryMissionNews {
		if override, ok := naming.SpeakerRegion(e.cfg.SpeakerMap, p.Name); ok {
			jc.region = override
			jc.cb.Log(fmt.Sprintf("지역 자동 매핑: %s -> %s", p.Name, override))
		}
	}

	templateRegion := jc.region
	if p.Category != config.CategoryTestimony && p.Category != config.CategoryMissionNews {
		templateRegion = p.Country
	}
	jc.canonical = naming.Canonical(p.Category, jc.category.Tag, templateRegion, jc.dateToken, p.Name)

	originalPath := filepath.Join(jc.inboxDir, p.RawFilename)
	canonicalPath := filepath.Join(jc.inboxDir, jc.canonical)

	switch {
	case fileutil.Exists(originalPath):
		if originalPath != canonicalPath {
			if err := os.Rename(originalPath, canonicalPath); err != nil {
				return services.Wrap(services.ErrExternalTool, "rename", "normalize filename", "rename intake file", err)
			}
			jc.cb.Log(fmt.Sprintf("파일명 변경: %s", jc.canonical))
		}
		jc.videoPath = canonicalPath
	case fileutil.Exists(canonicalPath):
		jc.cb.Log(fmt.Sprintf("이미 변경된 파일 발견: %s", jc.canonical))
		jc.videoPath = canonicalPath
	default:
		return services.Wrap(services.ErrNotFound, "rename", "locate source", "File Not Found", nil)
	}
	return nil
}

func (e *Executor) extractAudio(ctx context.Context, jc *jobContext) error {
	jc.cb.Status("오디오 추출 중")
	audioPath, err := e.toolkit.ExtractAudio(ctx, jc.videoPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "extract", "audio extraction failed", err)
	}
	jc.audioPath = audioPath
	return nil
}

// transcribe fetches the transcript. A degraded result carries a notice
// string in place of real text; that anomalous shape is logged and the run
// continues with it.
func (e *Executor) transcribe(ctx context.Context, jc *jobContext) {
	jc.cb.Status("음성 인식 중")
	result := e.stt.Transcribe(ctx, jc.audioPath)
	jc.fullText = result.Text
	if result.Degraded {
		jc.cb.Log(fmt.Sprintf("STT 결과 형식이 예외적임: %s", truncateForLog(result.Text, 50)))
		stageCtx := services.WithStage(ctx, "transcribe")
		logging.WithContext(stageCtx, e.logger).Warn("transcription degraded",
			logging.String("notice", result.Text))
		return
	}
	jc.srtSegments = result.Segments
}

func (e *Executor) summarize(ctx context.Context, jc *jobContext) error {
	jc.cb.Status("요약 생성 중")
	instruction, err := e.prompts.Load(jc.category.PromptFile)
	if err != nil {
		return err
	}
	summary, err := e.llm.Summarize(ctx, instruction, jc.fullText)
	if err != nil {
		return services.Wrap(services.ErrTransient, "summarize", "request", "summary request could not be built", err)
	}
	jc.summary = summary
	return nil
}

// materializeText writes the combined summary-plus-transcript document the
// archive and the notification attachment both use.
func (e *Executor) materializeText(jc *jobContext) error {
	divider := strings.Repeat("-", 20)
	var b strings.Builder
	fmt.Fprintf(&b, "방송일자: %s\n", jc.dateToken)
	fmt.Fprintf(&b, "제목: %s\n", jc.canonical)
	b.WriteString(divider + "\n")
	b.WriteString(jc.summary + "\n")
	b.WriteString(divider + "\n\n")
	b.WriteString("[전체 자막]\n")
	b.WriteString(jc.fullText)

	jc.textPath = filepath.Join(e.cfg.Paths.TempDir, naming.WithExt(jc.canonical, ".txt"))
	if err := os.WriteFile(jc.textPath, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, "materialize", "write text", "write transcript document", err)
	}
	return nil
}

func (e *Executor) renderSubtitles(jc *jobContext) {
	if len(jc.srtSegments) == 0 {
		return
	}
	srtPath := filepath.Join(e.cfg.Paths.TempDir, naming.WithExt(jc.canonical, ".srt"))
	if err := os.WriteFile(srtPath, []byte(subtitles.RenderSRT(jc.srtSegments)), 0o644); err != nil {
		jc.cb.Log(fmt.Sprintf("SRT 생성 실패 (무시됨): %v", err))
		return
	}
	jc.srtPath = srtPath
	jc.cb.Log("자막(SRT) 생성 완료")
}

// notify sends the category header plus summary, then the text document.
// Header fields are escaped for legacy Markdown; the summary body passes
// through because the model already emits intended markup.
func (e *Executor) notify(ctx context.Context, jc *jobContext) {
	header := notificationHeader(jc.payload.Category, jc.dateToken, jc.region, jc.payload.Name)
	message := header + "\n\n" + jc.summary

	if err := e.notifier.SendMessage(ctx, message); err != nil {
		jc.cb.Log(fmt.Sprintf("알림 전송 실패 (무시됨): %v", err))
	}
	if err := e.notifier.SendDocument(ctx, jc.textPath, ""); err != nil {
		jc.cb.Log(fmt.Sprintf("문서 전송 실패 (무시됨): %v", err))
	}
}

func notificationHeader(category, dateToken, region, name string) string {
	safeRegion := telegram.EscapeMarkdown(region)
	safeName := telegram.EscapeMarkdown(name)
	switch category {
	case config.CategoryTestimony:
		return fmt.Sprintf("🕊️ *[간증] %s %s - %s*", dateToken, safeRegion, safeName)
	case config.CategoryMissionNews:
		return fmt.Sprintf("🌍 *[선교소식] %s %s - %s*", dateToken, safeRegion, safeName)
	default:
		return fmt.Sprintf("📢 *[%s %s - %s]*", dateToken, safeRegion, safeName)
	}
}

// resolveThumbnail reuses a manually selected marker image next to the video
// when one exists; otherwise it captures a frame and crops it to the archive
// aspect. Either path failing only costs the thumbnail.
func (e *Executor) resolveThumbnail(ctx context.Context, jc *jobContext) {
	jc.cb.Status("썸네일 준비 중")
	destPath := filepath.Join(e.cfg.Paths.TempDir, naming.WithExt(jc.canonical, ".jpg"))

	marker := fileutil.TrimExt(jc.videoPath) + ".jpg"
	if fileutil.Exists(marker) {
		if err := fileutil.CopyFile(marker, destPath); err != nil {
			jc.cb.Log(fmt.Sprintf("썸네일 복사 실패 (무시됨): %v", err))
			return
		}
		jc.cb.Log("사용자 선택 썸네일 사용")
		jc.thumbPath = destPath
		return
	}

	frame, err := e.toolkit.CaptureFrame(ctx, jc.videoPath, thumbnailCaptureSecond)
	if err != nil {
		jc.cb.Log(fmt.Sprintf("썸네일 캡처 실패 (무시됨): %v", err))
		return
	}
	if err := e.toolkit.CropToAspect(ctx, frame, destPath); err != nil {
		jc.cb.Log(fmt.Sprintf("썸네일 크롭 실패, 원본 프레임 사용: %v", err))
		if copyErr := fileutil.CopyFile(frame, destPath); copyErr != nil {
			jc.cb.Log(fmt.Sprintf("썸네일 복사 실패 (무시됨): %v", copyErr))
			_ = fileutil.RemoveIfExists(frame)
			return
		}
	}
	_ = fileutil.RemoveIfExists(frame)
	jc.thumbPath = destPath
	jc.cb.Log("썸네일 준비 완료")
}

func (e *Executor) archiveArtifacts(ctx context.Context, jc *jobContext) (map[string]string, error) {
	jc.cb.Status("아카이브 저장 중")
	res, err := e.archiver.Store(ctx, jc.dateToken, archive.Artifacts{
		Video:     jc.videoPath,
		Audio:     jc.audioPath,
		Text:      jc.textPath,
		Subtitle:  jc.srtPath,
		Thumbnail: jc.thumbPath,
	})
	if err != nil {
		return nil, err
	}
	jc.cb.Log(fmt.Sprintf("영상 이동 완료: Inbox -> Archive (%s)", jc.canonical))

	artifacts := map[string]string{
		ArtifactVideo: res.Video,
		ArtifactText:  filepath.Join(res.Dir, filepath.Base(jc.textPath)),
	}
	if jc.audioPath != "" {
		artifacts[ArtifactAudio] = filepath.Join(res.Dir, filepath.Base(jc.audioPath))
	}
	if jc.srtPath != "" {
		artifacts[ArtifactSubtitle] = filepath.Join(res.Dir, filepath.Base(jc.srtPath))
	}
	if jc.thumbPath != "" {
		artifacts[ArtifactThumbnail] = filepath.Join(res.Dir, filepath.Base(jc.thumbPath))
	}
	return artifacts, nil
}

// cleanup removes the temp copies and the intake thumbnail marker. Failures
// are logged and swallowed: a successful archival stays successful.
func (e *Executor) cleanup(jc *jobContext) {
	targets := []string{jc.thumbPath, jc.textPath, jc.srtPath, fileutil.TrimExt(jc.videoPath) + ".jpg"}
	for _, target := range targets {
		if target == "" {
			continue
		}
		if err := fileutil.RemoveIfExists(target); err != nil {
			jc.cb.Log(fmt.Sprintf("임시 파일 삭제 중 오류 (무시): %v", err))
		}
	}
}

func (e *Executor) recordOutcome(ctx context.Context, jc *jobContext) error {
	markers := e.store.Markers()
	err := e.store.UpdateStatus(ctx, jc.payload.Category, jc.payload.RowIndex, markers.Done, sheets.UpdateOptions{
		FinalFilename: jc.canonical,
		Summary:       jc.summary,
	})
	if err != nil {
		return err
	}
	return nil
}

func (e *Executor) markErrored(ctx context.Context, payload Payload, jobErr error) {
	markers := e.store.Markers()
	err := e.store.UpdateStatus(ctx, payload.Category, payload.RowIndex, markers.Error, sheets.UpdateOptions{
		ErrorMessage: services.Message(jobErr),
	})
	if err != nil {
		stageCtx := services.WithStage(services.WithCategory(ctx, payload.Category), "record")
		logging.WithContext(stageCtx, e.logger).Warn("row error marker not written",
			logging.Int("row", payload.RowIndex),
			logging.Error(err))
	}
}

func truncateForLog(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
