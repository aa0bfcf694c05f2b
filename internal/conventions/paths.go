package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default stagetrack data directory name (relative to home).
	DefaultDataDir = ".stagetrack"
	// DBFile is the filename of the run archive SQLite database.
	DBFile = "stagetrack.db"
	// MetricsFile is the default filename for replay metrics in Prometheus text format.
	MetricsFile = "replay.prom"
)

// DBPath returns the run archive database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// MetricsPath returns the default replay metrics file path inside a data directory.
func MetricsPath(dataDir string) string {
	return filepath.Join(dataDir, MetricsFile)
}
