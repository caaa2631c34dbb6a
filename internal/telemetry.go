package internal

import (
	"context"
	"strconv"
	"sync"
)

// Telemetry hooks for resolution and row reading. A real meter can be plugged in through
// RegisterTelemetryEmitter; the default emitter drops everything.

type TelemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl TelemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {}
)

// RegisterTelemetryEmitter installs fn; nil restores the no-op emitter.
func RegisterTelemetryEmitter(fn TelemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emitter() TelemetryEmitter {
	teleMu.Lock()
	defer teleMu.Unlock()
	return teleImpl
}

// EmitResolutionLatency records how long resolving a mapping took, in microseconds.
// name: "resultmap_resolution_latency_us" with labels {"mapping", "outcome": "ok"|"error"}
func EmitResolutionLatency(ctx context.Context, mapping string, micros int64, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	emitter()(ctx, "resultmap_resolution_latency_us",
		map[string]string{"mapping": mapping, "outcome": outcome}, micros)
}

// EmitCacheLookup records a resolution cache hit or miss.
// name: "resultmap_cache_lookup" with labels {"mapping", "hit"}
func EmitCacheLookup(ctx context.Context, mapping string, hit bool) {
	emitter()(ctx, "resultmap_cache_lookup",
		map[string]string{"mapping": mapping, "hit": strconv.FormatBool(hit)}, 1)
}

// EmitRowCount records the number of rows read for a named query.
// name: "resultmap_row_count" with label {"query"}
func EmitRowCount(ctx context.Context, query string, rows int64) {
	emitter()(ctx, "resultmap_row_count", map[string]string{"query": query}, rows)
}
