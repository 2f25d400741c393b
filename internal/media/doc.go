// Package media shells out to ffmpeg and ffprobe for the audio extraction,
// frame capture, and duration probing the processing stages rely on.
package media
