package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"reelvault/internal/fileutil"
)

func writeFixture(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDestinationDir(t *testing.T) {
	root := t.TempDir()
	a := New(root, 0, 0, nil)

	dir, err := a.DestinationDir("250315")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "2025", "03"); dir != want {
		t.Fatalf("DestinationDir = %q, want %q", dir, want)
	}
	if !fileutil.Exists(dir) {
		t.Fatal("destination directory was not created")
	}
}

func TestDestinationDirMalformedToken(t *testing.T) {
	root := t.TempDir()
	a := New(root, 0, 0, nil)

	dir, err := a.DestinationDir("bad")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "Unknown", "Unknown"); dir != want {
		t.Fatalf("DestinationDir = %q, want %q", dir, want)
	}
}

func TestStore(t *testing.T) {
	work := t.TempDir()
	root := t.TempDir()
	a := New(root, 0, 0, nil)

	art := Artifacts{
		Video:     writeFixture(t, work, "Kenya_250101_Mary.mp4"),
		Audio:     writeFixture(t, work, "Kenya_250101_Mary.mp3"),
		Text:      writeFixture(t, work, "Kenya_250101_Mary.txt"),
		Subtitle:  writeFixture(t, work, "Kenya_250101_Mary.srt"),
		Thumbnail: writeFixture(t, work, "Kenya_250101_Mary.jpg"),
	}

	res, err := a.Store(context.Background(), "250101", art)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	wantDir := filepath.Join(root, "2025", "01")
	if res.Dir != wantDir {
		t.Fatalf("result dir = %q, want %q", res.Dir, wantDir)
	}
	for _, name := range []string{
		"Kenya_250101_Mary.mp4",
		"Kenya_250101_Mary.mp3",
		"Kenya_250101_Mary.txt",
		"Kenya_250101_Mary.srt",
		"Kenya_250101_Mary.jpg",
	} {
		if !fileutil.Exists(filepath.Join(wantDir, name)) {
			t.Errorf("missing archived artifact %s", name)
		}
	}
	if fileutil.Exists(art.Video) {
		t.Fatal("video should be moved, not copied")
	}
	if !fileutil.Exists(art.Audio) {
		t.Fatal("audio should be copied, source must remain for cleanup stage")
	}
}

func TestStoreRequiresVideo(t *testing.T) {
	a := New(t.TempDir(), 0, 0, nil)
	if _, err := a.Store(context.Background(), "250101", Artifacts{}); err == nil {
		t.Fatal("expected error when no video is present")
	}
}

func TestStoreSkipsMissingCompanions(t *testing.T) {
	work := t.TempDir()
	root := t.TempDir()
	a := New(root, 0, 0, nil)

	art := Artifacts{Video: writeFixture(t, work, "clip.mp4")}
	res, err := a.Store(context.Background(), "250101", art)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !fileutil.Exists(res.Video) {
		t.Fatal("archived video missing")
	}
}
