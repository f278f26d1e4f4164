// Package daemon implements the persistent JSON-line REPL that eliminates
// Nexus's cold-start penalty: read one JSON request from stdin, dispatch it
// through the command registry, write one JSON response to stdout, loop.
// Mirrors serve.py's state machine (initializing -> loading -> ready ->
// stopped) and built-in command set.
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/nexusdaemon/nexus/internal/batch"
	"github.com/nexusdaemon/nexus/internal/cache"
	"github.com/nexusdaemon/nexus/internal/common/logger"
	"github.com/nexusdaemon/nexus/internal/format"
	"github.com/nexusdaemon/nexus/internal/memory"
	"github.com/nexusdaemon/nexus/internal/pruning"
	"github.com/nexusdaemon/nexus/internal/registry"
	"github.com/nexusdaemon/nexus/internal/telemetry"
	"github.com/nexusdaemon/nexus/internal/trajectory"
	"github.com/nexusdaemon/nexus/internal/watcher"
)

// DefaultTimeout is the per-command budget applied when a request doesn't
// specify its own "timeout" field.
const DefaultTimeout = 30 * time.Second

// defaultCacheTTL matches CacheConfig's own default (config.go) and is used
// when a Server is built with CacheTTL unset.
const defaultCacheTTL = 5 * time.Second

// defaultMaxConcurrentRequests bounds in-flight command dispatch when a
// Server is built with MaxConcurrentRequests unset.
const defaultMaxConcurrentRequests = 8

// cacheableCommands are read-only awareness commands safe to memoize for a
// short TTL, ported from serve.py's CACHEABLE_COMMANDS (trimmed to the
// commands this registry actually implements).
var cacheableCommands = map[string]bool{
	"describe": true, "windows": true, "web-describe": true,
	"web-ax": true, "web-links": true,
}

// cacheInvalidatingEvents are watcher event types that make the awareness
// cache stale, ported from _CACHE_INVALIDATING_EVENTS.
var cacheInvalidatingEvents = map[string]bool{
	"focus_changed": true, "window_opened": true, "window_closed": true,
	"structure_changed": true, "property_changed": true,
}

var reservedRequestKeys = map[string]bool{
	"command": true, "_id": true, "timeout": true, "format": true,
	"force": true, "summary": true, "diff": true, "auto": true, "action": true,
}

// Capabilities reports which backend subsystems responded to a probe at
// startup, surfaced in the "ready" status line.
type Capabilities struct {
	UIA    bool `json:"uia"`
	CDP    bool `json:"cdp"`
	Vision bool `json:"vision"`
	Screen bool `json:"screen"`
}

// ProbeCapabilities checks reachability of the out-of-process backends
// (Chrome DevTools on cdpPort, a vision microservice at visionURL). The
// in-process UIA/Screen abstractions are always available since they route
// through the provider interfaces rather than a real OS binding.
func ProbeCapabilities(cdpPort int, visionURL string) Capabilities {
	caps := Capabilities{UIA: true, Screen: true}

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", cdpPort), 300*time.Millisecond)
	if err == nil {
		caps.CDP = true
		conn.Close()
	}

	if visionURL != "" {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(visionURL + "/health")
		if err == nil {
			caps.Vision = resp.StatusCode == http.StatusOK
			resp.Body.Close()
		}
	}

	return caps
}

// Server holds every subsystem the daemon loop dispatches into. Trajectory,
// Memory, and Watcher are optional — a nil value disables the corresponding
// built-in (task/recall/watch respond with an error instead of panicking).
type Server struct {
	Registry       *registry.Registry
	Cache          *cache.MemoryCache
	Trajectory     *trajectory.Recorder
	Memory         *memory.Store
	Watcher        *watcher.Watcher
	Log            *logger.Logger
	DefaultTimeout time.Duration
	Capabilities   Capabilities

	// CacheTTL is how long a cacheable command's result is served from
	// Cache before it's considered stale. Defaults to defaultCacheTTL.
	CacheTTL time.Duration

	// MaxConcurrentRequests bounds how many command dispatches may hold the
	// registry at once. The stdin/stdout loop itself is single-threaded, so
	// this only bites when handleRequest is driven concurrently by more
	// than one caller (e.g. a future transport sitting alongside Serve);
	// it still costs a real Acquire/Release on every dispatch.
	MaxConcurrentRequests int

	startTime time.Time

	writeMu sync.Mutex
	out     io.Writer

	streamerMu     sync.Mutex
	streamerCancel context.CancelFunc
	streamerDone   chan struct{}

	sem *semaphore.Weighted
}

// New constructs a Server with its default timeout and concurrency bound
// filled in if unset.
func New(s Server) *Server {
	if s.DefaultTimeout == 0 {
		s.DefaultTimeout = DefaultTimeout
	}
	if s.CacheTTL == 0 {
		s.CacheTTL = defaultCacheTTL
	}
	if s.Log == nil {
		s.Log = logger.Default()
	}
	if s.MaxConcurrentRequests <= 0 {
		s.MaxConcurrentRequests = defaultMaxConcurrentRequests
	}
	s.sem = semaphore.NewWeighted(int64(s.MaxConcurrentRequests))
	return &s
}

func (s *Server) emitStatus(status string, fields ...zap.Field) {
	s.Log.Info("daemon status: "+status, append([]zap.Field{zap.String("status", status)}, fields...)...)
}

// Serve runs the request/response loop until stdin is exhausted, a "quit"
// command is received, or ctx is canceled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out
	s.startTime = time.Now()
	s.emitStatus("initializing")

	s.emitStatus("loading")
	builtins := []string{"ping", "quit", "commands", "task", "watch", "recall", "batch"}
	s.emitStatus("ready",
		zap.Int("tools", len(s.Registry.List())),
		zap.Strings("builtin", builtins),
		zap.Bool("uia", s.Capabilities.UIA), zap.Bool("cdp", s.Capabilities.CDP),
		zap.Bool("vision", s.Capabilities.Vision), zap.Bool("screen", s.Capabilities.Screen),
	)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

loop:
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		var req map[string]any
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.writeLine(errorResponse(fmt.Sprintf("Invalid JSON: %s", err.Error()), nil))
			continue
		}

		if s.handleRequest(ctx, req) {
			break loop
		}
	}

	s.stopEventStreamer()
	if s.Watcher != nil {
		s.Watcher.Stop()
	}
	s.emitStatus("stopped", zap.Float64("uptime_sec", time.Since(s.startTime).Seconds()))
	return scanner.Err()
}

// handleRequest dispatches one request. It returns true if the loop should
// stop (a "quit" command was processed).
func (s *Server) handleRequest(ctx context.Context, req map[string]any) bool {
	cmdName, _ := req["command"].(string)
	requestID := req["_id"]
	timeout := s.DefaultTimeout
	if t, ok := numOf(req["timeout"]); ok {
		timeout = time.Duration(t * float64(time.Second))
	}
	fmt_, _ := req["format"].(string)
	if fmt_ == "" {
		fmt_ = "json"
	}

	switch cmdName {
	case "ping":
		s.writeLine(response(map[string]any{
			"ok": true, "uptime": round1(time.Since(s.startTime).Seconds()),
		}, requestID))
		return false

	case "quit":
		s.writeLine(response(map[string]any{"ok": true, "message": "Nexus daemon shutting down"}, requestID))
		return true

	case "commands":
		names := make([]string, 0, len(s.Registry.List()))
		for _, c := range s.Registry.List() {
			names = append(names, c.Name)
		}
		sort.Strings(names)
		names = append(names, "ping", "quit", "commands", "task", "watch", "recall", "batch")
		s.writeLine(response(map[string]any{"ok": true, "commands": names}, requestID))
		return false

	case "task":
		s.writeLine(response(s.handleTask(req), requestID))
		return false

	case "recall":
		s.writeLine(response(s.handleRecall(req), requestID))
		return false

	case "watch":
		s.writeLine(response(s.handleWatch(req), requestID))
		return false

	case "batch":
		steps, _ := req["steps"].(string)
		if steps == "" {
			s.writeLine(errorResponse("batch requires 'steps' field", requestID))
			return false
		}
		verbose, _ := req["verbose"].(bool)
		continueOnError, _ := req["continue_on_error"].(bool)
		var diffCache batch.DiffCache
		if s.Cache != nil {
			diffCache = s.Cache
		}
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.writeLine(errorResponse(err.Error(), requestID))
			return false
		}
		result, err := runWithTimeout(func() (map[string]any, error) {
			defer s.sem.Release(1)
			return batch.ExecuteBatch(steps, s.Registry, batch.Options{
				Verbose: verbose, ContinueOnError: continueOnError, Diff: diffCache,
			}), nil
		}, timeout)
		if err != nil {
			s.writeLine(errorResponse(err.Error(), requestID))
			return false
		}
		s.writeLine(response(result, requestID))
		return false
	}

	if !s.Registry.Known(cmdName) {
		s.writeLine(errorResponse(fmt.Sprintf("Unknown command: '%s'", cmdName), requestID))
		return false
	}

	kwargs := make(map[string]any, len(req))
	for k, v := range req {
		if !reservedRequestKeys[k] {
			kwargs[k] = v
		}
	}

	force, _ := req["force"].(bool)
	if !force && cacheableCommands[cmdName] && s.Cache != nil {
		if hit, ok := s.Cache.Get(cmdName, kwargs, s.CacheTTL); ok {
			s.writeLine(response(map[string]any{
				"command": cmdName, "ok": true, "cached": true,
				"cache_hash": hit.Hash, "cache_age_sec": hit.Age,
			}, requestID))
			return false
		}
	}

	_, span := telemetry.StartCommandSpan(ctx, cmdName)
	if err := s.sem.Acquire(ctx, 1); err != nil {
		span.End()
		s.writeLine(errorResponse(err.Error(), requestID))
		return false
	}
	t0 := time.Now()
	result, err := runWithTimeout(func() (map[string]any, error) {
		defer s.sem.Release(1)
		return s.Registry.Execute(cmdName, kwargs)
	}, timeout)
	durationMS := time.Since(t0).Milliseconds()
	telemetry.RecordOutcome(span, err == nil, errString(err))
	span.End()

	if err != nil {
		s.writeLine(errorResponse(err.Error(), requestID))
		return false
	}

	if s.Trajectory != nil {
		s.Trajectory.Record(cmdName, kwargs, result, durationMS)
	}

	if cacheableCommands[cmdName] && s.Cache != nil {
		s.Cache.Put(cmdName, kwargs, result)
	}

	wantSummary, _ := req["summary"].(bool)
	wantDiff, _ := req["diff"].(bool)
	autoPrune := true
	if v, ok := req["auto"].(bool); ok {
		autoPrune = v
	}
	if !wantSummary && !wantDiff && autoPrune {
		var diffCache pruning.DiffCache
		if s.Cache != nil {
			diffCache = s.Cache
		}
		result = pruning.ApplyPolicy(diffCache, cmdName, result, kwargs)
		if suggested, ok := result["_suggested_format"].(string); ok {
			delete(result, "_suggested_format")
			if fmt_ == "json" {
				fmt_ = suggested
			}
		}
	}

	if fmt_ != "json" {
		text := s.renderFormat(fmt_, result)
		if text != "" {
			s.writeLine(response(map[string]any{"ok": true, "text": text}, requestID))
			return false
		}
	}

	s.writeLine(response(result, requestID))
	return false
}

func (s *Server) renderFormat(fmt_ string, result map[string]any) string {
	switch fmt_ {
	case "minimal":
		return format.FormatMinimal(result)
	default:
		return format.FormatCompact(result)
	}
}

func (s *Server) handleTask(req map[string]any) map[string]any {
	if s.Trajectory == nil {
		return errorResult("task recording is not configured")
	}
	action, _ := req["action"].(string)
	switch action {
	case "start":
		name, _ := req["name"].(string)
		if name == "" {
			name = "unnamed"
		}
		return s.Trajectory.TaskStart(name)
	case "end":
		outcome, _ := req["outcome"].(string)
		if outcome == "" {
			outcome = "partial"
		}
		notes, _ := req["notes"].(string)
		return s.Trajectory.TaskEnd(outcome, notes)
	case "note":
		text, _ := req["text"].(string)
		return s.Trajectory.TaskNote(text)
	case "status":
		return s.Trajectory.TaskStatus()
	default:
		return errorResult("task action must be: start, end, note, status")
	}
}

func (s *Server) handleRecall(req map[string]any) map[string]any {
	if s.Memory == nil {
		return errorResult("memory recall is not configured")
	}
	if stats, _ := req["stats"].(bool); stats {
		st, err := s.Memory.RecallStats()
		if err != nil {
			return errorResult(err.Error())
		}
		return map[string]any{
			"ok": true, "total": st.Total, "success_rate_pct": st.SuccessRatePct,
			"outcomes": st.Outcomes, "top_apps": st.TopApps, "top_tags": st.TopTags,
			"avg_duration_sec": st.AvgDurationSec, "avg_steps": st.AvgSteps,
		}
	}
	query, _ := req["query"].(string)
	app, _ := req["app"].(string)
	tag, _ := req["tag"].(string)
	limit := 10
	if n, ok := numOf(req["limit"]); ok {
		limit = int(n)
	}
	entries, err := s.Memory.Recall(query, app, tag, limit)
	if err != nil {
		return errorResult(err.Error())
	}
	return map[string]any{"ok": true, "memories": entries, "count": len(entries)}
}

func (s *Server) handleWatch(req map[string]any) map[string]any {
	if s.Watcher == nil {
		return errorResult("watcher is not configured")
	}
	action, _ := req["action"].(string)
	if action == "" {
		action = "start"
	}
	switch action {
	case "start":
		var kinds []string
		if raw, ok := req["events"].([]any); ok {
			for _, v := range raw {
				if str, ok := v.(string); ok {
					kinds = append(kinds, str)
				}
			}
		}
		result, err := s.Watcher.Start(kinds)
		if err != nil {
			return errorResult(err.Error())
		}
		if ok, _ := result["ok"].(bool); ok {
			s.startEventStreamer()
		}
		return result
	case "stop":
		s.stopEventStreamer()
		return s.Watcher.Stop()
	case "poll":
		maxEvents := 50
		if n, ok := numOf(req["max"]); ok {
			maxEvents = int(n)
		}
		var timeout time.Duration
		if n, ok := numOf(req["timeout"]); ok {
			timeout = time.Duration(n * float64(time.Second))
		}
		events := s.Watcher.PollEvents(maxEvents, timeout)
		return map[string]any{"command": "watch-poll", "ok": true, "events": events, "count": len(events)}
	case "status":
		return s.Watcher.Status()
	default:
		return errorResult("watch action must be: start, stop, poll, status")
	}
}

// startEventStreamer runs a background loop pushing watcher events to
// stdout as they arrive, invalidating the awareness cache on structural
// changes, mirroring serve.py's event streamer thread.
func (s *Server) startEventStreamer() {
	s.streamerMu.Lock()
	defer s.streamerMu.Unlock()
	if s.streamerCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.streamerCancel = cancel
	s.streamerDone = make(chan struct{})

	go func() {
		defer close(s.streamerDone)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			events := s.Watcher.PollEvents(20, 500*time.Millisecond)
			for _, evt := range events {
				if cacheInvalidatingEvents[evt.Type] && s.Cache != nil {
					s.Cache.Clear("")
				}
				payload := map[string]any{
					"_event": true, "event": evt.Type, "element": evt.Element,
					"timestamp": evt.Timestamp,
				}
				s.writeLine(payload)
			}
			status := s.Watcher.Status()
			if running, _ := status["running"].(bool); !running {
				return
			}
		}
	}()
}

func (s *Server) stopEventStreamer() {
	s.streamerMu.Lock()
	cancel := s.streamerCancel
	done := s.streamerDone
	s.streamerCancel = nil
	s.streamerDone = nil
	s.streamerMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
	}
}

func (s *Server) writeLine(data map[string]any) {
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	fmt.Fprintln(s.out, string(b))
	if f, ok := s.out.(interface{ Sync() error }); ok {
		_ = f.Sync()
	} else if f, ok := s.out.(*os.File); ok {
		_ = f.Sync()
	}
}

// runWithTimeout runs fn on its own goroutine and returns a timeout error if
// it doesn't finish within timeout. The goroutine is abandoned (not
// canceled) if it times out, matching the original's thread-leak tradeoff
// for a process that's about to report a hung command anyway.
func runWithTimeout(fn func() (map[string]any, error), timeout time.Duration) (map[string]any, error) {
	type res struct {
		result map[string]any
		err    error
	}
	ch := make(chan res, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- res{nil, fmt.Errorf("panic: %v", r)}
			}
		}()
		result, err := fn()
		ch <- res{result, err}
	}()

	select {
	case r := <-ch:
		return r.result, r.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("command timed out after %s", timeout)
	}
}

func response(data map[string]any, requestID any) map[string]any {
	if requestID != nil {
		data["_id"] = requestID
	}
	return data
}

func errorResponse(msg string, requestID any) map[string]any {
	return response(map[string]any{"ok": false, "error": msg}, requestID)
}

func errorResult(msg string) map[string]any {
	return map[string]any{"ok": false, "error": msg}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func numOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
