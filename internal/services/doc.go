// Package services defines shared utilities consumed by the pipeline stages
// and the external integrations beneath it: context helpers that stamp job
// IDs, stage names, and categories for logging, plus the structured error
// markers that classify stage failures. Subpackages hold the narrow clients
// for the spreadsheet metadata store, the transcription server, the
// summarization endpoint, and the Telegram notifier.
package services
