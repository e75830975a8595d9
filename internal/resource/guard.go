package resource

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/adred-codev/gatecodec/internal/config"
)

// Guard enforces the edge process's static resource limits: a hard
// connection cap, container-aware CPU and memory emergency brakes, a
// goroutine ceiling, and a rate limit on outbound broadcast fan-out. It
// does not calculate or auto-adjust limits; all thresholds come from
// config.Config.
type Guard struct {
	cfg    *config.Config
	logger zerolog.Logger

	broadcastLimiter *rate.Limiter
	goroutines       *GoroutineLimiter
	cpu              *CPUMonitor

	currentCPU    atomic.Value // float64
	currentMemory atomic.Value // int64
	currentConns  *int64       // points at the edge server's live connection counter
}

// GoroutineLimiter bounds concurrent goroutines with a buffered-channel
// semaphore.
type GoroutineLimiter struct {
	sem chan struct{}
	max int
}

// NewGoroutineLimiter builds a limiter that allows at most max concurrent
// holders.
func NewGoroutineLimiter(max int) *GoroutineLimiter {
	return &GoroutineLimiter{sem: make(chan struct{}, max), max: max}
}

// Acquire attempts to take a slot, returning false if the limiter is full.
func (gl *GoroutineLimiter) Acquire() bool {
	select {
	case gl.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release gives back a slot acquired with Acquire.
func (gl *GoroutineLimiter) Release() { <-gl.sem }

// Current returns the number of slots currently held.
func (gl *GoroutineLimiter) Current() int { return len(gl.sem) }

// Max returns the limiter's capacity.
func (gl *GoroutineLimiter) Max() int { return gl.max }

// NewGuard builds a Guard. currentConns must point at the same counter the
// edge server increments and decrements as clients connect and disconnect.
func NewGuard(cfg *config.Config, logger zerolog.Logger, currentConns *int64) *Guard {
	broadcastLimiter := rate.NewLimiter(rate.Limit(cfg.MaxBroadcastRate), cfg.MaxBroadcastRate*2)
	goroutines := NewGoroutineLimiter(cfg.MaxGoroutines)
	cpuMonitor := NewCPUMonitor(logger)

	g := &Guard{
		cfg:              cfg,
		logger:           logger,
		broadcastLimiter: broadcastLimiter,
		goroutines:       goroutines,
		cpu:              cpuMonitor,
		currentConns:     currentConns,
	}
	g.currentCPU.Store(0.0)
	g.currentMemory.Store(int64(0))

	logger.Info().
		Str("cpu_mode", cpuMonitor.Mode()).
		Float64("cpu_allocation", cpuMonitor.GetAllocation()).
		Int("max_connections", cfg.MaxConnections).
		Int("max_broadcast_rate", cfg.MaxBroadcastRate).
		Int("max_goroutines", cfg.MaxGoroutines).
		Msgf("resource guard initialized: will reject connections at %.0f%% CPU", cfg.CPURejectThreshold)

	return g
}

// ShouldAcceptConnection runs the admission checks, in order: hard
// connection cap, CPU brake, memory brake, goroutine cap.
func (g *Guard) ShouldAcceptConnection() (accept bool, reason string) {
	currentConns := atomic.LoadInt64(g.currentConns)
	currentCPU := g.currentCPU.Load().(float64)
	currentMemory := g.currentMemory.Load().(int64)
	currentGoros := runtime.NumGoroutine()

	if currentConns >= int64(g.cfg.MaxConnections) {
		return false, fmt.Sprintf("at max connections (%d)", g.cfg.MaxConnections)
	}
	if currentCPU > g.cfg.CPURejectThreshold {
		return false, fmt.Sprintf("CPU %.1f%% > %.1f%%", currentCPU, g.cfg.CPURejectThreshold)
	}
	if currentMemory > g.cfg.MemoryLimit {
		return false, "memory limit exceeded"
	}
	if currentGoros > g.cfg.MaxGoroutines {
		return false, fmt.Sprintf("goroutine limit exceeded (%d > %d)", currentGoros, g.cfg.MaxGoroutines)
	}
	return true, "OK"
}

// ShouldPauseBroadcast reports whether the last sampled CPU usage is above
// CPUPauseThreshold. The broadcast subscriber drops incoming messages while
// it is; bus consumption itself is not paused.
func (g *Guard) ShouldPauseBroadcast() bool {
	return g.currentCPU.Load().(float64) > g.cfg.CPUPauseThreshold
}

// AllowBroadcast rate-limits outbound broadcast fan-out.
func (g *Guard) AllowBroadcast() bool {
	return g.broadcastLimiter.Allow()
}

// AcquireGoroutine attempts to reserve a slot for a new goroutine. The
// caller must call ReleaseGoroutine when it exits.
func (g *Guard) AcquireGoroutine() bool {
	return g.goroutines.Acquire()
}

// ReleaseGoroutine frees a slot reserved with AcquireGoroutine.
func (g *Guard) ReleaseGoroutine() { g.goroutines.Release() }

// UpdateResources samples CPU and memory and stores the results for the
// admission checks to read. Call periodically (config.MetricsInterval).
func (g *Guard) UpdateResources() {
	cpuPercent, throttle, err := g.cpu.GetPercent()
	if err != nil {
		g.logger.Debug().Err(err).Msg("failed to sample CPU usage")
		cpuPercent = 0
	}
	g.currentCPU.Store(cpuPercent)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	g.currentMemory.Store(int64(mem.Alloc))

	g.logger.Debug().
		Float64("cpu_percent", cpuPercent).
		Uint64("cpu_throttled_events", throttle.NrThrottled).
		Float64("cpu_throttled_sec", throttle.ThrottledSec).
		Int64("memory_bytes", g.currentMemory.Load().(int64)).
		Int64("connections", atomic.LoadInt64(g.currentConns)).
		Int("goroutines", runtime.NumGoroutine()).
		Msg("resource state updated")
}

// CPUPercent returns the most recently sampled CPU usage.
func (g *Guard) CPUPercent() float64 { return g.currentCPU.Load().(float64) }

// MemoryBytes returns the most recently sampled memory usage.
func (g *Guard) MemoryBytes() int64 { return g.currentMemory.Load().(int64) }

// HostCPUPercent reports host-wide CPU usage for reference metrics.
func (g *Guard) HostCPUPercent() (float64, error) { return g.cpu.GetHostPercent() }

// AllocatedCPUs reports how many CPUs this process is entitled to.
func (g *Guard) AllocatedCPUs() float64 { return g.cpu.GetAllocation() }

// Stats returns a snapshot of the guard's current state, for diagnostics
// and metrics.
func (g *Guard) Stats() map[string]any {
	return map[string]any{
		"max_connections":      g.cfg.MaxConnections,
		"current_connections":  atomic.LoadInt64(g.currentConns),
		"cpu_percent":          g.currentCPU.Load().(float64),
		"cpu_reject_threshold": g.cfg.CPURejectThreshold,
		"cpu_pause_threshold":  g.cfg.CPUPauseThreshold,
		"memory_bytes":         g.currentMemory.Load().(int64),
		"memory_limit_bytes":   g.cfg.MemoryLimit,
		"goroutines_current":   runtime.NumGoroutine(),
		"goroutines_limit":     g.cfg.MaxGoroutines,
		"broadcast_rate_limit": g.cfg.MaxBroadcastRate,
	}
}
