package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/studygraph"
	"github.com/soundprediction/studygraph/pkg/types"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const serviceName = "studygraph"

// componentCheck is the outcome of probing one dependency.
type componentCheck struct {
	Status     string            `json:"status"`
	DurationMS int64             `json:"duration_ms"`
	Error      string            `json:"error,omitempty"`
	Counts     *types.Statistics `json:"counts,omitempty"`
}

func (c componentCheck) healthy() bool { return c.Status == "healthy" }

// runtimeInfo is a snapshot of the Go runtime.
type runtimeInfo struct {
	GoVersion   string  `json:"go_version"`
	Goroutines  int     `json:"goroutines"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	GCCycles    uint32  `json:"gc_cycles"`
}

// healthReport is the body of every health endpoint.
type healthReport struct {
	Status    string                    `json:"status"`
	Service   string                    `json:"service"`
	Version   string                    `json:"version,omitempty"`
	Timestamp string                    `json:"timestamp"`
	Uptime    string                    `json:"uptime,omitempty"`
	Checks    map[string]componentCheck `json:"checks,omitempty"`
	Runtime   *runtimeInfo              `json:"runtime,omitempty"`
	Build     map[string]string         `json:"build,omitempty"`
}

// HealthHandler serves liveness, readiness and detailed health reports.
type HealthHandler struct {
	client    studygraph.GraphAdmin
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. A nil client is reported
// as an unhealthy database.
func NewHealthHandler(client studygraph.GraphAdmin) *HealthHandler {
	return &HealthHandler{client: client, startedAt: time.Now()}
}

func (h *HealthHandler) report(status string) healthReport {
	return healthReport{
		Status:    status,
		Service:   serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// HealthCheck handles GET /health. It never touches the database.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	r := h.report("healthy")
	r.Version = Version
	c.JSON(http.StatusOK, r)
}

// LivenessCheck handles GET /live.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, h.report("alive"))
}

// ReadinessCheck handles GET /ready. The service is ready when the graph
// store answers a connectivity check within five seconds.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	db := h.checkDatabase(ctx)
	r := h.report("ready")
	r.Uptime = time.Since(h.startedAt).Round(time.Second).String()
	r.Checks = map[string]componentCheck{"database": db}

	if !db.healthy() {
		r.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, r)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DetailedHealthCheck handles GET /health/detailed. Besides connectivity it
// runs Statistics so a store that accepts connections but cannot answer
// queries is reported.
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	r := h.report("healthy")
	r.Version = Version
	r.Uptime = time.Since(h.startedAt).Round(time.Second).String()
	r.Build = map[string]string{"git_commit": GitCommit, "build_time": BuildTime}
	r.Runtime = readRuntime()
	r.Checks = map[string]componentCheck{"database": h.checkDatabase(ctx)}

	if r.Checks["database"].healthy() {
		r.Checks["statistics"] = h.checkStatistics(ctx)
	}
	for _, check := range r.Checks {
		if !check.healthy() {
			r.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, r)
			return
		}
	}
	c.JSON(http.StatusOK, r)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) componentCheck {
	if h.client == nil {
		return componentCheck{Status: "unhealthy", Error: "studygraph client not initialized"}
	}
	start := time.Now()
	err := h.client.VerifyConnectivity(ctx)
	return finish(componentCheck{}, start, err)
}

func (h *HealthHandler) checkStatistics(ctx context.Context) componentCheck {
	start := time.Now()
	stats, err := h.client.Statistics(ctx)
	return finish(componentCheck{Counts: stats}, start, err)
}

func finish(check componentCheck, start time.Time, err error) componentCheck {
	check.DurationMS = time.Since(start).Milliseconds()
	check.Status = "healthy"
	if err != nil {
		check.Status = "unhealthy"
		check.Error = err.Error()
	}
	return check
}

func readRuntime() *runtimeInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &runtimeInfo{
		GoVersion:   runtime.Version(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(m.HeapAlloc) / (1024 * 1024),
		GCCycles:    m.NumGC,
	}
}
