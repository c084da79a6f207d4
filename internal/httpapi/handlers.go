package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"llmeval/internal/catalog"
	"llmeval/internal/evaluator"
	"llmeval/internal/render"
	"llmeval/pkg/types"
)

func modelInfo(c catalog.Configuration, selected string) types.ModelInfo {
	return types.ModelInfo{
		ID:            c.ID,
		Name:          c.Name,
		Family:        c.Family,
		Quant:         c.Quant,
		Template:      string(c.Template),
		SizeMB:        c.SizeMB,
		Local:         c.Local(),
		DefaultPrompt: c.DefaultPrompt,
		Selected:      c.ID == selected,
	}
}

func loadResponse(s evaluator.Snapshot) types.LoadResponse {
	return types.LoadResponse{Model: s.Model.ID, Phase: string(s.Phase), ModelInfo: s.ModelInfo}
}

// models godoc
// @Summary      List models
// @Description  Returns the model catalog and the selected model.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	selected := h.svc.Snapshot().Model.ID
	list := h.svc.Models()
	out := types.ModelsResponse{Models: make([]types.ModelInfo, 0, len(list)), Selected: selected}
	for _, c := range list {
		out.Models = append(out.Models, modelInfo(c, selected))
	}
	writeJSON(w, out)
}

// decodeJSON enforces content type and body limits. An empty body is
// accepted when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" && allowEmpty && r.ContentLength == 0 {
		return true
	}
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		// Size overruns also land here; report 400 without details.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// selectModel godoc
// @Summary      Select model
// @Description  Makes a model current. The previous model is unloaded.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        body  body      types.SelectRequest  true  "Model to select"
// @Success      200   {object}  types.LoadResponse
// @Failure      404   {object}  types.ErrorResponse
// @Failure      409   {object}  types.ErrorResponse
// @Router       /select [post]
func (h *handlers) selectModel(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	if err := h.svc.Select(req.Model); err != nil {
		h.fail(w, r, "select", err)
		return
	}
	writeJSON(w, loadResponse(h.svc.Snapshot()))
}

// load godoc
// @Summary      Load model
// @Description  Loads the selected model, downloading it if needed. Idempotent.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.LoadResponse
// @Failure      409  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /load [post]
func (h *handlers) load(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := workContext(r)
	defer cancel()
	start := time.Now()
	if _, err := h.svc.Load(ctx); err != nil {
		h.fail(w, r, "load", err)
		return
	}
	snap := h.svc.Snapshot()
	logEnd(r, requestLogLevel(r), "load end", http.StatusOK, nil, map[string]any{"model": snap.Model.ID, "dur": time.Since(start).String()})
	writeJSON(w, loadResponse(snap))
}

// generate godoc
// @Summary      Generate
// @Description  Runs one generation and streams NDJSON lines with the full output so far. The last line has done=true.
// @Tags         generate
// @Accept       json
// @Produce      application/x-ndjson
// @Param        body  body      types.GenerateRequest  false  "Prompt; empty uses the model's default prompt"
// @Success      200   {object}  types.GenerateLine
// @Failure      409   {object}  types.ErrorResponse
// @Failure      503   {object}  types.ErrorResponse
// @Router       /generate [post]
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = h.svc.Snapshot().Model.DefaultPrompt
	}
	if strings.TrimSpace(prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	lvl := requestLogLevel(r)
	rid := middleware.GetReqID(r.Context())
	if lvl >= LevelInfo {
		zlog.Info().Str("path", r.URL.Path).Str("request_id", rid).Msg("generate start")
	}

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := workContext(r)
	defer cancel()

	// Surface load failures as status codes before streaming starts.
	if _, err := h.svc.Load(ctx); err != nil {
		h.fail(w, r, "generate", err)
		return
	}

	var writer io.Writer = w
	if lvl >= LevelDebug {
		writer = io.MultiWriter(w, &loggingLineWriter{rid: rid})
	}
	enc := json.NewEncoder(writer)
	flusher, _ := w.(http.Flusher)
	started := false
	start := time.Now()
	sess, err := h.svc.Generate(ctx, prompt, evaluator.OnOutput(func(text string) {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		_ = enc.Encode(types.GenerateLine{Output: text})
		if flusher != nil {
			flusher.Flush()
		}
	}))
	if !started {
		if err == nil {
			err = errors.New("generation produced no output")
		}
		h.fail(w, r, "generate", err)
		return
	}
	final := types.GenerateLine{
		Session:         sess.ID,
		Output:          sess.Output,
		Done:            true,
		Tokens:          sess.Tokens,
		TokensPerSecond: sess.TokensPerSecond,
	}
	if err != nil {
		final.Error = err.Error()
	} else {
		final.Stat = h.svc.Snapshot().Stat
	}
	_ = enc.Encode(final)
	if flusher != nil {
		flusher.Flush()
	}
	logEnd(r, lvl, "generate end", http.StatusOK, err, map[string]any{
		"session": sess.ID,
		"tokens":  sess.Tokens,
		"dur":     time.Since(start).String(),
	})
}

// output godoc
// @Summary      Current output
// @Description  Returns the current output, rendered for the requested display style.
// @Tags         generate
// @Produce      json
// @Param        style  query     string  false  "plain or markdown"
// @Success      200    {object}  types.OutputResponse
// @Failure      400    {object}  types.ErrorResponse
// @Router       /output [get]
func (h *handlers) output(w http.ResponseWriter, r *http.Request) {
	style, err := render.ParseStyle(r.URL.Query().Get("style"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	width := 0
	if style == render.Markdown {
		width = 100
	}
	snap := h.svc.Snapshot()
	writeJSON(w, types.OutputResponse{
		Session:  snap.Session.ID,
		Output:   snap.Session.Output,
		Rendered: render.Render(snap.Session.Output, style, width),
		Style:    style.String(),
		Running:  snap.Running,
	})
}

// status godoc
// @Summary      Status
// @Description  Returns load state, the last generation stat and memory usage.
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Snapshot()
	mem := h.svc.Memory()
	writeJSON(w, types.StatusResponse{
		Model:     snap.Model.ID,
		Phase:     string(snap.Phase),
		ModelInfo: snap.ModelInfo,
		Running:   snap.Running,
		Session:   snap.Session.ID,
		Stat:      snap.Stat,
		Memory: types.MemoryInfo{
			Active:     mem.Active,
			Cache:      mem.Cache,
			Peak:       mem.Peak,
			CacheLimit: mem.CacheLimit,
		},
	})
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, route string, err error) {
	status := statusFor(err)
	if status == http.StatusConflict {
		incrementConflict(route)
	}
	// Client went away or server is shutting down: nothing useful to write.
	if r.Context().Err() != nil || shuttingDown() {
		return
	}
	writeJSONError(w, status, err.Error())
	logEnd(r, requestLogLevel(r), route+" end", status, err, nil)
}
