// Command reelvault is the CLI for the video archiving service: a background
// daemon that drains the intake queue, plus one-shot commands for scanning,
// inspection, and configuration.
package main
