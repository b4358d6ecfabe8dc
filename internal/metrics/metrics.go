package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Metrics holds the counters of one omlplot run for Prometheus export
type Metrics struct {
	startTime time.Time

	// Load metrics
	filesLoadedTotal  atomic.Int64
	loadErrorsTotal   atomic.Int64
	linesKeptTotal    atomic.Int64
	linesDroppedTotal atomic.Int64
	loadLatencySum    atomic.Int64 // microseconds
	loadLatencyCount  atomic.Int64

	// Figure metrics
	figuresWrittenTotal atomic.Int64
	figureBytesTotal    atomic.Int64

	// Export metrics
	exportsTotal      atomic.Int64
	exportErrorsTotal atomic.Int64
	exportBytesTotal  atomic.Int64

	// Storage metrics
	storageReadsTotal      atomic.Int64
	storageWritesTotal     atomic.Int64
	storageWriteBytesTotal atomic.Int64
	storageErrorsTotal     atomic.Int64

	logger zerolog.Logger
}

var (
	instance *Metrics
	once     sync.Once
)

// New returns an independent metrics set.
func New() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		logger:    zerolog.Nop(),
	}
}

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// Init initializes the metrics with a logger
func Init(logger zerolog.Logger) *Metrics {
	m := Get()
	m.logger = logger.With().Str("component", "metrics").Logger()
	return m
}

// RecordLoad records one load attempt. kept and dropped are line counts.
func (m *Metrics) RecordLoad(kept, dropped int, d time.Duration, err error) {
	if err != nil {
		m.loadErrorsTotal.Add(1)
	} else {
		m.filesLoadedTotal.Add(1)
	}
	m.linesKeptTotal.Add(int64(kept))
	m.linesDroppedTotal.Add(int64(dropped))
	m.loadLatencySum.Add(d.Microseconds())
	m.loadLatencyCount.Add(1)
}

// Figure metrics
func (m *Metrics) IncFiguresWritten()         { m.figuresWrittenTotal.Add(1) }
func (m *Metrics) IncFigureBytes(bytes int64) { m.figureBytesTotal.Add(bytes) }

// Export metrics
func (m *Metrics) IncExports()                { m.exportsTotal.Add(1) }
func (m *Metrics) IncExportErrors()           { m.exportErrorsTotal.Add(1) }
func (m *Metrics) IncExportBytes(bytes int64) { m.exportBytesTotal.Add(bytes) }

// Storage metrics
func (m *Metrics) IncStorageReads()                 { m.storageReadsTotal.Add(1) }
func (m *Metrics) IncStorageWrites()                { m.storageWritesTotal.Add(1) }
func (m *Metrics) IncStorageWriteBytes(bytes int64) { m.storageWriteBytesTotal.Add(bytes) }
func (m *Metrics) IncStorageErrors()                { m.storageErrorsTotal.Add(1) }

// Snapshot returns the current values keyed by metric name, without the
// omlplot_ prefix.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"files_loaded_total":        m.filesLoadedTotal.Load(),
		"load_errors_total":         m.loadErrorsTotal.Load(),
		"lines_kept_total":          m.linesKeptTotal.Load(),
		"lines_dropped_total":       m.linesDroppedTotal.Load(),
		"figures_written_total":     m.figuresWrittenTotal.Load(),
		"figure_bytes_total":        m.figureBytesTotal.Load(),
		"exports_total":             m.exportsTotal.Load(),
		"export_errors_total":       m.exportErrorsTotal.Load(),
		"export_bytes_total":        m.exportBytesTotal.Load(),
		"storage_reads_total":       m.storageReadsTotal.Load(),
		"storage_writes_total":      m.storageWritesTotal.Load(),
		"storage_write_bytes_total": m.storageWriteBytesTotal.Load(),
		"storage_errors_total":      m.storageErrorsTotal.Load(),
	}
}

// LogSummary logs the counters of the run at debug level.
func (m *Metrics) LogSummary() {
	ev := m.logger.Debug().Dur("elapsed", time.Since(m.startTime))
	for name, v := range m.Snapshot() {
		ev = ev.Int64(name, v)
	}
	ev.Msg("Run metrics")
}

// PrometheusFormat returns metrics in Prometheus text exposition format
func (m *Metrics) PrometheusFormat() string {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var b []byte
	b = appendHeader(b, "omlplot_run_seconds", "gauge", "Time since the run started")
	b = appendMetric(b, "omlplot_run_seconds", time.Since(m.startTime).Seconds())

	b = appendHeader(b, "omlplot_memory_alloc_bytes", "gauge", "Current allocated memory")
	b = appendMetric(b, "omlplot_memory_alloc_bytes", float64(memStats.Alloc))

	// Loads
	b = appendCounter(b, "omlplot_files_loaded_total", "OML files loaded", m.filesLoadedTotal.Load())
	b = appendCounter(b, "omlplot_load_errors_total", "OML files that failed to load", m.loadErrorsTotal.Load())
	b = appendCounter(b, "omlplot_lines_kept_total", "Data lines kept", m.linesKeptTotal.Load())
	b = appendCounter(b, "omlplot_lines_dropped_total", "Malformed data lines dropped", m.linesDroppedTotal.Load())

	b = appendHeader(b, "omlplot_load_duration_seconds", "summary", "Time spent loading OML files")
	b = appendMetric(b, "omlplot_load_duration_seconds_sum", float64(m.loadLatencySum.Load())/1e6)
	b = appendMetric(b, "omlplot_load_duration_seconds_count", float64(m.loadLatencyCount.Load()))

	// Figures
	b = appendCounter(b, "omlplot_figures_written_total", "Figure files written", m.figuresWrittenTotal.Load())
	b = appendCounter(b, "omlplot_figure_bytes_total", "Bytes of figure files written", m.figureBytesTotal.Load())

	// Exports
	b = appendCounter(b, "omlplot_exports_total", "Files exported", m.exportsTotal.Load())
	b = appendCounter(b, "omlplot_export_errors_total", "Files that failed to export", m.exportErrorsTotal.Load())
	b = appendCounter(b, "omlplot_export_bytes_total", "Bytes of exported files", m.exportBytesTotal.Load())

	// Storage
	b = appendCounter(b, "omlplot_storage_reads_total", "Objects opened for reading", m.storageReadsTotal.Load())
	b = appendCounter(b, "omlplot_storage_writes_total", "Objects written", m.storageWritesTotal.Load())
	b = appendCounter(b, "omlplot_storage_write_bytes_total", "Bytes written to storage", m.storageWriteBytesTotal.Load())
	b = appendCounter(b, "omlplot_storage_errors_total", "Failed storage operations", m.storageErrorsTotal.Load())

	return string(b)
}

// WriteTextfile writes the Prometheus format to path, for the node exporter
// textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".omlplot-metrics-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(m.PrometheusFormat()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	m.logger.Debug().Str("path", path).Msg("Wrote metrics")
	return nil
}

// Helper functions for Prometheus format
func appendHeader(b []byte, name, typ, help string) []byte {
	b = append(b, "# HELP "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = append(b, help...)
	b = append(b, "\n# TYPE "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = append(b, typ...)
	return append(b, '\n')
}

func appendCounter(b []byte, name, help string, v int64) []byte {
	b = appendHeader(b, name, "counter", help)
	return appendMetric(b, name, float64(v))
}

func appendMetric(b []byte, name string, value float64) []byte {
	b = append(b, name...)
	b = append(b, ' ')
	b = strconv.AppendFloat(b, value, 'g', -1, 64)
	return append(b, '\n')
}
