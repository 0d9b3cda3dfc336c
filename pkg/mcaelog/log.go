// Package mcaelog provides structured, domain-filtered debug logging for
// the MCAE subsystems, in the idiom of the teacher's pkg/logx/logx.go:
// env-var-gated debug output, a package-level convenience API, and an
// in-memory ring buffer for a host UI to introspect.
package mcaelog

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Level mirrors the teacher's logx.Level enum.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// DebugConfig controls env-var-driven debug gating, matching logx's
// MCAE_DEBUG / MCAE_DEBUG_DOMAINS convention.
type DebugConfig struct {
	Enabled bool
	Domains map[string]bool // empty means "all domains"
}

var (
	debugConfig   DebugConfig
	debugConfigMu sync.RWMutex
	buffer        = newRingBuffer(1000)
)

func init() {
	loadDebugConfigFromEnv()
}

func loadDebugConfigFromEnv() {
	debugConfigMu.Lock()
	defer debugConfigMu.Unlock()

	debugConfig.Enabled = os.Getenv("MCAE_DEBUG") != ""
	debugConfig.Domains = map[string]bool{}
	if raw := os.Getenv("MCAE_DEBUG_DOMAINS"); raw != "" {
		for _, d := range strings.Split(raw, ",") {
			d = strings.TrimSpace(d)
			if d != "" {
				debugConfig.Domains[d] = true
			}
		}
	}
}

func domainEnabled(domain string) bool {
	debugConfigMu.RLock()
	defer debugConfigMu.RUnlock()
	if !debugConfig.Enabled {
		return false
	}
	if len(debugConfig.Domains) == 0 {
		return true
	}
	return debugConfig.Domains[domain]
}

// ringBuffer is a fixed-capacity ring buffer of formatted log lines,
// mirroring logx's InMemoryLogBuffer.
type ringBuffer struct {
	mu       sync.Mutex
	entries  []string
	capacity int
	next     int
	full     bool
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{entries: make([]string, capacity), capacity: capacity}
}

func (b *ringBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = line
	b.next = (b.next + 1) % b.capacity
	if b.next == 0 {
		b.full = true
	}
}

// Recent returns up to n most recent buffered log lines, oldest first.
func Recent(n int) []string {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()

	var ordered []string
	if buffer.full {
		ordered = append(ordered, buffer.entries[buffer.next:]...)
		ordered = append(ordered, buffer.entries[:buffer.next]...)
	} else {
		ordered = append(ordered, buffer.entries[:buffer.next]...)
	}
	if n > 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

func record(level Level, domain, msg string) {
	line := fmt.Sprintf("[%s] %s: %s", level, domain, msg)
	buffer.add(line)
	log.Print(line)
}

// Debug logs a domain-filtered debug message; a no-op unless MCAE_DEBUG
// is set and domain is enabled (or no domain filter is configured).
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !domainEnabled(domain) {
		return
	}
	record(LevelDebug, domain, fmt.Sprintf(format, args...))
}

func Infof(ctx context.Context, domain, format string, args ...any) {
	record(LevelInfo, domain, fmt.Sprintf(format, args...))
}

func Warnf(ctx context.Context, domain, format string, args ...any) {
	record(LevelWarn, domain, fmt.Sprintf(format, args...))
}

// Errorf logs and returns the formatted error, matching logx.Wrap so
// call sites can `return mcaelog.Errorf(...)` directly.
func Errorf(ctx context.Context, domain, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	record(LevelError, domain, err.Error())
	return err
}

// Wrap logs and wraps cause with context, matching logx.Wrap.
func Wrap(ctx context.Context, domain string, cause error, format string, args ...any) error {
	wrapped := fmt.Errorf(format+": %w", append(args, cause)...)
	record(LevelError, domain, wrapped.Error())
	return wrapped
}
