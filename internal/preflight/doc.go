// Package preflight provides readiness checks for the directories, binaries,
// and external services the worker depends on.
//
// These checks run in two contexts:
//   - The daemon runs them once at startup and logs any failures, so a
//     missing ffmpeg or an unreachable STT server is visible before the
//     first job degrades.
//   - The CLI "reelvault status" command renders them so an operator can
//     see service health at a glance.
//
// A failed check never blocks startup; the pipeline's own error handling
// decides what is fatal per job.
package preflight
