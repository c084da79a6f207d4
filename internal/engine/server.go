package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"llmeval/internal/catalog"
	"llmeval/internal/common/fsutil"
)

// ServerOptions configure the llama-server backend. When URL is set the
// backend talks to that server and never spawns; otherwise Bin is started
// once per loaded model on a free port.
type ServerOptions struct {
	URL          string
	Bin          string
	Host         string
	CtxSize      int
	Threads      int
	GPULayers    int
	ExtraArgs    []string
	ReadyTimeout time.Duration
	Logger       zerolog.Logger
}

// ServerLoader loads models into llama-server processes.
type ServerLoader struct {
	store  *catalog.Store
	opts   ServerOptions
	client *http.Client

	mu    sync.Mutex
	procs map[string]*procInfo // key: model path
}

// NewServerLoader constructs a llama-server backed Loader.
func NewServerLoader(store *catalog.Store, opts ServerOptions) *ServerLoader {
	if strings.TrimSpace(opts.Host) == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 60 * time.Second
	}
	return &ServerLoader{
		store: store,
		opts:  opts,
		// Timeout=0: every request carries a context deadline or runs for a whole generation.
		client: &http.Client{Timeout: 0},
		procs:  make(map[string]*procInfo),
	}
}

func (l *ServerLoader) Load(ctx context.Context, cfg catalog.Configuration, progress ProgressFunc) (*Container, error) {
	report := func(f float64) {
		if progress != nil {
			progress(f)
		}
	}
	mc := ModelContext{
		Configuration: cfg,
		Tokenizer:     PieceTokenizer{},
		Processor:     TemplateProcessor{Template: cfg.Template},
	}

	if u := strings.TrimRight(strings.TrimSpace(l.opts.URL), "/"); u != "" {
		if !l.isHealthy(ctx, u, 2*time.Second) {
			return nil, ErrDependencyUnavailable("llama-server not reachable at " + u)
		}
		l.opts.Logger.Info().Str("event", "server_attach").Str("model", cfg.ID).Str("url", u).Msg("using running llama-server")
		report(1)
		mc.Model = &serverModel{client: l.client, baseURL: u}
		return NewContainer(mc, nil), nil
	}

	if strings.TrimSpace(l.opts.Bin) == "" {
		return nil, ErrDependencyUnavailable("no llama-server configured (set server_url or llama_bin)")
	}
	path, err := l.store.Ensure(ctx, cfg, func(p catalog.Progress) { report(p.Fraction() * 0.9) })
	if err != nil {
		return nil, err
	}
	base, err := l.ensureProcess(ctx, path)
	if err != nil {
		return nil, err
	}
	report(1)
	mc.Model = &serverModel{client: l.client, baseURL: base}
	mc.WeightsBytes = fsutil.FileSize(path)
	return NewContainer(mc, func() error { return l.Stop(path) }), nil
}

// isHealthy checks if the llama-server at baseURL responds OK to /v1/models.
func (l *ServerLoader) isHealthy(ctx context.Context, baseURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// serverModel streams completions from one llama-server.
type serverModel struct {
	client  *http.Client
	baseURL string
}

type completionRequest struct {
	Prompt        string   `json:"prompt"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	Temperature   float32  `json:"temperature"`
	TopP          float32  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Seed          int      `json:"seed,omitempty"`
	RepeatPenalty float32  `json:"repeat_penalty,omitempty"`
	Stream        bool     `json:"stream"`
}

type completionChunk struct {
	Choices []struct {
		Text  string `json:"text"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (s *serverModel) Stream(ctx context.Context, in Input, p GenerateParameters, emit func(Token) bool) error {
	body, err := json.Marshal(completionRequest{
		Prompt:        in.Text,
		MaxTokens:     p.MaxTokens,
		Temperature:   p.Temperature,
		TopP:          p.TopP,
		TopK:          p.TopK,
		Stop:          in.Stop,
		Seed:          p.Seed,
		RepeatPenalty: p.RepeatPenalty,
		Stream:        true,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if l := strings.TrimSpace(line); strings.HasPrefix(strings.ToLower(l), "data:") {
			data := strings.TrimSpace(l[len("data:"):])
			if data == "[DONE]" {
				return nil
			}
			var chunk completionChunk
			if e := json.Unmarshal([]byte(data), &chunk); e == nil && len(chunk.Choices) > 0 {
				frag := chunk.Choices[0].Text
				if frag == "" {
					frag = chunk.Choices[0].Delta.Content
				}
				if frag != "" && !emit(Token{Piece: frag}) {
					return nil
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}
