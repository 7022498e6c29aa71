package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	extractionStartedTotal   atomic.Uint64
	extractionCompletedTotal atomic.Uint64
	extractionFailedTotal    atomic.Uint64

	tailoringStartedTotal   atomic.Uint64
	tailoringCompletedTotal atomic.Uint64
	tailoringFailedTotal    atomic.Uint64
	tailoredJobsTotal       atomic.Uint64
	tailoredJobsFailedTotal atomic.Uint64

	extractionDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
	tailoringDuration  = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncExtractionStarted increments the extraction started counter.
func IncExtractionStarted() { extractionStartedTotal.Add(1) }

// IncExtractionCompleted increments the extraction completed counter.
func IncExtractionCompleted() { extractionCompletedTotal.Add(1) }

// IncExtractionFailed increments the extraction failed counter.
func IncExtractionFailed() { extractionFailedTotal.Add(1) }

// IncTailoringStarted increments the tailoring-batch started counter.
func IncTailoringStarted() { tailoringStartedTotal.Add(1) }

// IncTailoringCompleted increments the tailoring-batch completed counter.
func IncTailoringCompleted() { tailoringCompletedTotal.Add(1) }

// IncTailoringFailed increments the tailoring-batch failed counter.
func IncTailoringFailed() { tailoringFailedTotal.Add(1) }

// IncTailoredJob increments the per-job success counter.
func IncTailoredJob() { tailoredJobsTotal.Add(1) }

// IncTailoredJobFailed increments the per-job failure counter.
func IncTailoredJobFailed() { tailoredJobsFailedTotal.Add(1) }

// ObserveExtractionDurationMs records an extraction duration in milliseconds.
func ObserveExtractionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractionDuration.Observe(value)
}

// ObserveTailoringDurationMs records a tailoring-batch duration in milliseconds.
func ObserveTailoringDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	tailoringDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "extraction_started_total", "Total extractions started", extractionStartedTotal.Load())
	writeCounter(&buf, "extraction_completed_total", "Total extractions completed", extractionCompletedTotal.Load())
	writeCounter(&buf, "extraction_failed_total", "Total extractions failed", extractionFailedTotal.Load())
	writeCounter(&buf, "tailoring_started_total", "Total tailoring batches started", tailoringStartedTotal.Load())
	writeCounter(&buf, "tailoring_completed_total", "Total tailoring batches completed", tailoringCompletedTotal.Load())
	writeCounter(&buf, "tailoring_failed_total", "Total tailoring batches failed", tailoringFailedTotal.Load())
	writeCounter(&buf, "tailored_jobs_total", "Total per-job tailoring successes", tailoredJobsTotal.Load())
	writeCounter(&buf, "tailored_jobs_failed_total", "Total per-job tailoring failures", tailoredJobsFailedTotal.Load())
	writeHistogram(&buf, "extraction_duration_ms", "Extraction duration in milliseconds", extractionDuration.Snapshot())
	writeHistogram(&buf, "tailoring_duration_ms", "Tailoring batch duration in milliseconds", tailoringDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
