package config

// Category names recognized by the pipeline. CategoryOther is the catch-all
// applied when a sheet names a category with no dedicated configuration.
const (
	CategoryTestimony   = "testimony"
	CategoryMissionNews = "mission_news"
	CategoryOther       = "other"
)

const (
	defaultInboxDir   = "~/reelvault/inbox"
	defaultTempDir    = "~/.local/share/reelvault/temp"
	defaultArchiveDir = "~/reelvault/archive"
	defaultLogDir     = "~/.local/share/reelvault/logs"
	defaultPromptsDir = "~/.config/reelvault/prompts"

	defaultSheetsRequestTimeout = 30
	defaultPendingMarker        = "대기"
	defaultErrorMarker          = "에러"
	defaultDoneMarker           = "완료"

	defaultSTTPollInterval = 2
	defaultSTTMaxPolls     = 900

	defaultLLMConnectTimeout = 10
	defaultLLMReadTimeout    = 1800
	defaultLLMMaxInputChars  = 40000
	defaultLLMTemperature    = 0.7

	defaultMessageTimeout  = 10
	defaultDocumentTimeout = 30

	defaultWorkerPollInterval = 1
	defaultWorkerScanInterval = 60

	defaultArchiveMinFreeGiB  = 1
	defaultArchiveSettleDelay = 1

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultMissionNewsTag = "해외선교소식"
	defaultOtherTag       = "기타"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InboxDir:   defaultInboxDir,
			TempDir:    defaultTempDir,
			ArchiveDir: defaultArchiveDir,
			LogDir:     defaultLogDir,
			PromptsDir: defaultPromptsDir,
		},
		Sheets: Sheets{
			RequestTimeout: defaultSheetsRequestTimeout,
			PendingMarker:  defaultPendingMarker,
			ErrorMarker:    defaultErrorMarker,
			DoneMarker:     defaultDoneMarker,
		},
		STT: STT{
			PollInterval: defaultSTTPollInterval,
			MaxPolls:     defaultSTTMaxPolls,
		},
		LLM: LLM{
			ConnectTimeout: defaultLLMConnectTimeout,
			ReadTimeout:    defaultLLMReadTimeout,
			MaxInputChars:  defaultLLMMaxInputChars,
			Temperature:    defaultLLMTemperature,
		},
		Telegram: Telegram{
			MessageTimeout:  defaultMessageTimeout,
			DocumentTimeout: defaultDocumentTimeout,
		},
		Categories: map[string]Category{
			CategoryTestimony: {
				Subfolder:  "testimony",
				PromptFile: "System_Prompt_Testimony.md",
			},
			CategoryMissionNews: {
				Subfolder:  "mission_news",
				Tag:        defaultMissionNewsTag,
				PromptFile: "System_Prompt_Mission.md",
			},
			CategoryOther: {
				Tag: defaultOtherTag,
			},
		},
		SpeakerMap: map[string]string{},
		Worker: Worker{
			PollInterval: defaultWorkerPollInterval,
			ScanInterval: defaultWorkerScanInterval,
		},
		Archive: Archive{
			MinFreeGiB:  defaultArchiveMinFreeGiB,
			SettleDelay: defaultArchiveSettleDelay,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
