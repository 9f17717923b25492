package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/logging"
)

// Summary is the profile of one reporting interval. Stage durations are per-frame
// averages over the interval.
type Summary struct {
	Frames       int
	FPS          float64
	Lights       int
	AvgSurvivors float64
	Cull         time.Duration
	Sort         time.Duration
	Fill         time.Duration
	Bin          time.Duration
	Total        time.Duration
	MaxTotal     time.Duration

	// Memory fields are zero when memory stats are disabled.
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	MaxPauseUs  uint64
}

// Profiler accumulates clustering stage timings and memory statistics and logs a
// Summary at a configurable interval. Safe for concurrent use.
type Profiler struct {
	mu             sync.Mutex
	logger         logging.Logger
	now            func() time.Time
	updateInterval time.Duration
	readMem        bool

	frameCount int
	lastTime   time.Time
	survivors  int
	lights     int
	stages     [5]time.Duration
	maxTotal   time.Duration
	last       Summary

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with the provided options applied.
// Update interval defaults to 1 second and memory stats are enabled.
//
// Parameters:
//   - opts: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		now:            time.Now,
		updateInterval: time.Second,
		readMem:        true,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrNop(p.logger)
	p.lastTime = p.now()
	if p.readMem {
		runtime.ReadMemStats(&p.memStats)
		p.lastGCCount = p.memStats.NumGC
		p.lastTotalAlloc = p.memStats.TotalAlloc
	}
	return p
}

// Record should be called once per clustered frame with the frame's stats.
// Logs a Summary when the update interval has elapsed.
//
// Parameters:
//   - stats: the frame's stage timings and sizes
//
// Returns:
//   - Summary: the interval summary, valid when the bool is true
//   - bool: true if a summary was produced this call, false otherwise
func (p *Profiler) Record(stats cluster.FrameStats) (Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	p.survivors += stats.Survivors
	p.lights = stats.Lights
	for i, d := range [...]time.Duration{stats.Cull, stats.Sort, stats.Fill, stats.Bin, stats.Total} {
		p.stages[i] += d
	}
	p.maxTotal = max(p.maxTotal, stats.Total)

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Summary{}, false
	}

	n := time.Duration(p.frameCount)
	s := Summary{
		Frames:       p.frameCount,
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		Lights:       p.lights,
		AvgSurvivors: float64(p.survivors) / float64(p.frameCount),
		Cull:         p.stages[0] / n,
		Sort:         p.stages[1] / n,
		Fill:         p.stages[2] / n,
		Bin:          p.stages[3] / n,
		Total:        p.stages[4] / n,
		MaxTotal:     p.maxTotal,
	}
	if p.readMem {
		p.sampleMemory(&s, elapsed)
	}

	p.logger.Infof("FPS: %.2f | Lights: %d | Survivors: %.1f | Cull: %s | Sort: %s | Fill: %s | Bin: %s | Frame: %s (max %s) | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (max: %d µs)",
		s.FPS, s.Lights, s.AvgSurvivors, s.Cull, s.Sort, s.Fill, s.Bin, s.Total, s.MaxTotal, s.HeapMB, s.AllocRateMB, s.GCCount, s.MaxPauseUs)

	p.frameCount = 0
	p.survivors = 0
	p.stages = [5]time.Duration{}
	p.maxTotal = 0
	p.lastTime = currentTime
	p.last = s
	return s, true
}

// sampleMemory fills the memory fields of s and advances the GC baseline.
func (p *Profiler) sampleMemory(s *Summary, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	s.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	s.GCCount = gcCount
	// PauseNs is a circular buffer of the last 256 GC pauses.
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}

// Last returns the most recent interval summary.
func (p *Profiler) Last() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
