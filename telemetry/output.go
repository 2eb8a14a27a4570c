package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/segregation/config"
)

// Output file names inside the output directory.
const (
	TelemetryFile    = "telemetry.csv"
	PerfFile         = "perf.csv"
	BookmarksFile    = "bookmarks.csv"
	SweepRunsFile    = "sweep_runs.csv"
	SweepSummaryFile = "sweep_summary.csv"
	ConfigFile       = "config.yaml"
)

// csvStream is an append-only CSV file whose header is written once.
type csvStream struct {
	file          *os.File
	headerWritten bool
}

// OutputManager handles structured experiment output with CSV logging.
// Files are created on first write.
type OutputManager struct {
	dir     string
	streams map[string]*csvStream
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &OutputManager{
		dir:     dir,
		streams: make(map[string]*csvStream),
	}, nil
}

// appendCSV writes records to the named file, with headers on the first write.
func (om *OutputManager) appendCSV(name string, records any) error {
	s, ok := om.streams[name]
	if !ok {
		f, err := os.Create(filepath.Join(om.dir, name))
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		s = &csvStream{file: f}
		om.streams[name] = s
	}

	if !s.headerWritten {
		if err := gocsv.Marshal(records, s.file); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		s.headerWritten = true
		return nil
	}

	if err := gocsv.MarshalWithoutHeaders(records, s.file); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// WriteRecords appends a slice of csv-tagged structs to the named file.
// Nil-safe: returns nil if om is nil.
func (om *OutputManager) WriteRecords(name string, records any) error {
	if om == nil {
		return nil
	}
	return om.appendCSV(name, records)
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, ConfigFile))
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.appendCSV(TelemetryFile, []WindowStats{stats})
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	return om.appendCSV(PerfFile, []PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return om.appendCSV(BookmarksFile, []Bookmark{b})
}

// WriteSweep writes per-run sweep results and their per-threshold summary.
func (om *OutputManager) WriteSweep(runs []SweepRun, summaries []SweepSummary) error {
	if om == nil {
		return nil
	}
	if len(runs) > 0 {
		if err := om.appendCSV(SweepRunsFile, runs); err != nil {
			return err
		}
	}
	if len(summaries) > 0 {
		if err := om.appendCSV(SweepSummaryFile, summaries); err != nil {
			return err
		}
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for name, s := range om.streams {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s: %w", name, err)
		}
	}
	om.streams = make(map[string]*csvStream)
	return firstErr
}
