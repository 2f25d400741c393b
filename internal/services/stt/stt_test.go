package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("mp3 bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribe(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			t.Errorf("missing api key header on %s", r.URL.Path)
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/transcribe":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Error(err)
			}
			if len(r.MultipartForm.File["file"]) != 1 {
				t.Error("expected file part")
			}
			json.NewEncoder(w).Encode(map[string]any{"job_id": "abc", "queue_position": 1})
		case r.URL.Path == "/transcribe/job/abc":
			status := "processing"
			if polls.Add(1) >= 2 {
				status = "completed"
			}
			json.NewEncoder(w).Encode(map[string]string{"status": status})
		case r.URL.Path == "/transcribe/job/abc/result":
			json.NewEncoder(w).Encode(map[string]any{
				"text": "full transcript",
				"segments": []map[string]any{
					{"start": 0.0, "end": 2.5, "text": "full transcript"},
				},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(Options{
		APIURL:       server.URL,
		APIKey:       "secret",
		PollInterval: 5 * time.Millisecond,
	}, nil)
	res := client.Transcribe(context.Background(), writeAudio(t))
	if res.Degraded {
		t.Fatalf("unexpected degraded result: %q", res.Text)
	}
	if res.Text != "full transcript" || len(res.Segments) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestTranscribeServerFailureDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/transcribe":
			json.NewEncoder(w).Encode(map[string]string{"job_id": "abc"})
		default:
			json.NewEncoder(w).Encode(map[string]string{"status": "failed", "error": "corrupt audio"})
		}
	}))
	defer server.Close()

	client := NewClient(Options{APIURL: server.URL, APIKey: "k", PollInterval: time.Millisecond}, nil)
	res := client.Transcribe(context.Background(), writeAudio(t))
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if !strings.Contains(res.Text, "corrupt audio") {
		t.Fatalf("notice should carry server error: %q", res.Text)
	}
	if len(res.Segments) != 0 {
		t.Fatal("degraded result must not carry segments")
	}
}

func TestTranscribeMissingAudioDegrades(t *testing.T) {
	client := NewClient(Options{APIURL: "http://localhost:1", APIKey: "k"}, nil)
	res := client.Transcribe(context.Background(), "/does/not/exist.mp3")
	if !res.Degraded || res.Text != "Error: Audio file not found." {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestTranscribeUnconfiguredDegrades(t *testing.T) {
	client := NewClient(Options{}, nil)
	res := client.Transcribe(context.Background(), "/any.mp3")
	if !res.Degraded || !strings.Contains(res.Text, "Configuration Missing") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestTranscribePollBudgetExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/transcribe" {
			json.NewEncoder(w).Encode(map[string]string{"job_id": "abc"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "processing"})
	}))
	defer server.Close()

	client := NewClient(Options{
		APIURL:       server.URL,
		APIKey:       "k",
		PollInterval: time.Millisecond,
		MaxPolls:     3,
	}, nil)
	res := client.Transcribe(context.Background(), writeAudio(t))
	if !res.Degraded || !strings.Contains(res.Text, "timed out") {
		t.Fatalf("unexpected result %+v", res)
	}
}
