package whisper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// writeTestAudio drops a small fake WAV file into a temp dir and returns its path.
func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("RIFF fake audio payload"), 0o644); err != nil {
		t.Fatalf("write test audio: %v", err)
	}
	return path
}

func TestNew_RequiresServerURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") must fail")
	}
}

func TestProvider_Transcribe(t *testing.T) {
	gotFields := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q, want /inference", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		for _, k := range []string{"language", "temperature", "no_speech_thold", "entropy_thold", "logprob_thold", "word_thold"} {
			gotFields[k] = r.FormValue(k)
		}

		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		f.Close()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "  hello from whisper  "}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Transcribe(context.Background(), writeTestAudio(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello from whisper" {
		t.Errorf("Text = %q, want trimmed transcription", res.Text)
	}
	want := map[string]string{
		"language":        "en",
		"temperature":     "0",
		"no_speech_thold": "0.6",
		"entropy_thold":   "2.4",
		"logprob_thold":   "-1",
		// word_thold tunes word timestamps, which are disabled; it must not
		// carry the log-probability gate.
		"word_thold": "",
	}
	for k, w := range want {
		if gotFields[k] != w {
			t.Errorf("%s field = %q, want %q", k, gotFields[k], w)
		}
	}
}

func TestProvider_TranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Transcribe(context.Background(), writeTestAudio(t)); err == nil {
		t.Fatal("Transcribe must fail on HTTP 500")
	}
}

func TestProvider_TranscribeMissingFile(t *testing.T) {
	p, err := New("http://localhost:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), "/nonexistent/audio.wav"); err == nil {
		t.Fatal("Transcribe must fail when the audio file does not exist")
	}
}

func TestProvider_TranscribeBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), writeTestAudio(t)); err == nil {
		t.Fatal("Transcribe must fail on malformed JSON")
	}
}
