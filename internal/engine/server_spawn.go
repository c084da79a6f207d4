package engine

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"
)

type procInfo struct {
	cmd     *exec.Cmd
	baseURL string
	pid     int
	exited  chan struct{}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

func pickFreePort(host string) (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}

// ensureProcess starts (or reuses) a llama-server for modelPath and waits
// until it answers /v1/models.
func (l *ServerLoader) ensureProcess(ctx context.Context, modelPath string) (string, error) {
	l.mu.Lock()
	p := l.procs[modelPath]
	l.mu.Unlock()
	if p != nil {
		if l.isHealthy(ctx, p.baseURL, time.Second) {
			return p.baseURL, nil
		}
		_ = l.Stop(modelPath)
	}

	host := l.opts.Host
	port, err := pickFreePort(host)
	if err != nil {
		return "", err
	}
	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(port)))
	args := []string{"-m", modelPath, "--host", host, "--port", strconv.Itoa(port)}
	if l.opts.CtxSize > 0 {
		args = append(args, "-c", strconv.Itoa(l.opts.CtxSize))
	}
	if l.opts.GPULayers > 0 {
		args = append(args, "-ngl", strconv.Itoa(l.opts.GPULayers))
	}
	if l.opts.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(l.opts.Threads))
	}
	args = append(args, l.opts.ExtraArgs...)

	cmd := exec.Command(l.opts.Bin, args...)
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start llama-server: %w", err)
	}
	pid := cmd.Process.Pid
	log := l.opts.Logger.With().Str("model_path", modelPath).Int("pid", pid).Logger()
	log.Info().Str("event", "spawn_start").Str("url", baseURL).Msg("llama-server starting")

	info := &procInfo{cmd: cmd, baseURL: baseURL, pid: pid, exited: make(chan struct{})}
	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		close(info.exited)
		waitErr <- err
	}()
	l.mu.Lock()
	l.procs[modelPath] = info
	l.mu.Unlock()

	fail := func(err error) (string, error) {
		_ = l.Stop(modelPath)
		return "", err
	}
	deadline := time.NewTimer(l.opts.ReadyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case werr := <-waitErr:
			log.Warn().Str("event", "spawn_exit").AnErr("error", werr).Msg("llama-server exited before ready")
			l.mu.Lock()
			delete(l.procs, modelPath)
			l.mu.Unlock()
			return "", fmt.Errorf("llama-server exited before ready: %v; stderr tail: %s", werr, stderr.String())
		case <-deadline.C:
			log.Warn().Str("event", "spawn_timeout").Msg("llama-server not ready in time")
			return fail(fmt.Errorf("llama-server not ready in time: %s", baseURL))
		case <-ctx.Done():
			return fail(ctx.Err())
		case <-tick.C:
			if l.isHealthy(ctx, baseURL, time.Second) {
				log.Info().Str("event", "spawn_ready").Str("url", baseURL).Msg("llama-server ready")
				return baseURL, nil
			}
		}
	}
}

// Stop terminates the llama-server for modelPath, if one is running.
func (l *ServerLoader) Stop(modelPath string) error {
	l.mu.Lock()
	p := l.procs[modelPath]
	delete(l.procs, modelPath)
	l.mu.Unlock()
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.exited:
	case <-time.After(2 * time.Second):
		_ = p.cmd.Process.Kill()
		<-p.exited
	}
	l.opts.Logger.Info().Str("event", "spawn_stop").Str("model_path", modelPath).Int("pid", p.pid).Msg("llama-server stopped")
	return nil
}

// StopAll terminates every spawned server. Best effort.
func (l *ServerLoader) StopAll() {
	l.mu.Lock()
	paths := make([]string, 0, len(l.procs))
	for k := range l.procs {
		paths = append(paths, k)
	}
	l.mu.Unlock()
	for _, p := range paths {
		_ = l.Stop(p)
	}
}
