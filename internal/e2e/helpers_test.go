package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"llmeval/internal/catalog"
	"llmeval/internal/engine"
	"llmeval/internal/evaluator"
	"llmeval/internal/httpapi"
	"llmeval/pkg/types"
)

// fakeLlamaServer speaks the subset of the llama-server OpenAI API the
// server backend uses: /v1/models for health and streamed /v1/completions.
type fakeLlamaServer struct {
	*httptest.Server
	pieces []string

	mu      sync.Mutex
	prompts []string
	seeds   []int
}

func newFakeLlamaServer(t *testing.T, pieces ...string) *fakeLlamaServer {
	t.Helper()
	f := &fakeLlamaServer{pieces: pieces}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"id":"fake"}]}`)
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
			Seed   int    `json:"seed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.prompts = append(f.prompts, req.Prompt)
		f.seeds = append(f.seeds, req.Seed)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		fl, _ := w.(http.Flusher)
		for _, p := range f.pieces {
			b, _ := json.Marshal(map[string]any{"choices": []map[string]any{{"text": p}}})
			if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
				return
			}
			if fl != nil {
				fl.Flush()
			}
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeLlamaServer) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fakeLlamaServer) Seeds() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.seeds...)
}

// createTempModelsDir creates a temporary directory populated with small
// .gguf files and returns the directory path.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("gguf"), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

type stack struct {
	srv *httptest.Server
	ev  *evaluator.Evaluator
}

// newStack wires catalog, server backend, evaluator and HTTP API the way
// `llmeval serve` does, against a llama-server at serverURL.
func newStack(t *testing.T, modelsDir, serverURL string, maxTokens int) *stack {
	t.Helper()
	store, err := catalog.NewStore(modelsDir, "http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	local, err := catalog.LoadDir(store.Dir)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	cat, err := catalog.New("", local)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	loader := engine.NewServerLoader(store, engine.ServerOptions{URL: serverURL, Logger: zerolog.Nop()})
	events := evaluator.NewBroadcaster()
	ev, err := evaluator.New(evaluator.Config{
		Catalog:   cat,
		Loader:    loader,
		Publisher: events,
		Logger:    zerolog.Nop(),
		MaxTokens: maxTokens,
	})
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(ev, events))
	t.Cleanup(func() {
		srv.Close()
		_ = ev.Close()
		loader.StopAll()
		events.Close()
	})
	return &stack{srv: srv, ev: ev}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// generateLines posts a prompt and decodes the NDJSON stream.
func generateLines(t *testing.T, base, prompt string) []types.GenerateLine {
	t.Helper()
	b, _ := json.Marshal(types.GenerateRequest{Prompt: prompt})
	resp, body := httpPostJSON(t, base+"/generate", b)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status %d: %s", resp.StatusCode, body)
	}
	var lines []types.GenerateLine
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var l types.GenerateLine
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			t.Fatalf("bad ndjson line %q: %v", sc.Text(), err)
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 || !lines[len(lines)-1].Done {
		t.Fatalf("stream did not end with a done line: %s", body)
	}
	return lines
}
