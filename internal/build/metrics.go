package build

import (
	"sync/atomic"
	"time"
)

// BuildMetrics tracks build progress. All counters are updated atomically
// from walker goroutines.
type BuildMetrics struct {
	packagesBuilt    atomic.Int64
	packagesFailed   atomic.Int64
	filesCompiled    atomic.Int64
	filesFailed      atomic.Int64
	filesSkipped     atomic.Int64
	dirsCreated      atomic.Int64
	artifactsWritten atomic.Int64
	compileNanos     atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of BuildMetrics.
type MetricsSnapshot struct {
	PackagesBuilt    int64         `json:"packages_built"`
	PackagesFailed   int64         `json:"packages_failed"`
	FilesCompiled    int64         `json:"files_compiled"`
	FilesFailed      int64         `json:"files_failed"`
	FilesSkipped     int64         `json:"files_skipped"`
	DirsCreated      int64         `json:"dirs_created"`
	ArtifactsWritten int64         `json:"artifacts_written"`
	CompileTime      time.Duration `json:"compile_time"`
}

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordPackage records a package that was walked, or one that could not
// be set up.
func (bm *BuildMetrics) RecordPackage(ok bool) {
	if ok {
		bm.packagesBuilt.Add(1)
	} else {
		bm.packagesFailed.Add(1)
	}
}

// RecordCompile records one compiled file.
func (bm *BuildMetrics) RecordCompile(d time.Duration, ok bool) {
	bm.compileNanos.Add(int64(d))
	if ok {
		bm.filesCompiled.Add(1)
	} else {
		bm.filesFailed.Add(1)
	}
}

// RecordFailure records a file that failed before reaching the compiler.
func (bm *BuildMetrics) RecordFailure() {
	bm.filesFailed.Add(1)
}

// RecordSkip records a file that is not a compilable source.
func (bm *BuildMetrics) RecordSkip() {
	bm.filesSkipped.Add(1)
}

// RecordDir records a mirrored output directory.
func (bm *BuildMetrics) RecordDir() {
	bm.dirsCreated.Add(1)
}

// RecordArtifact records a written output file.
func (bm *BuildMetrics) RecordArtifact() {
	bm.artifactsWritten.Add(1)
}

// GetSnapshot returns a snapshot of current metrics
func (bm *BuildMetrics) GetSnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		PackagesBuilt:    bm.packagesBuilt.Load(),
		PackagesFailed:   bm.packagesFailed.Load(),
		FilesCompiled:    bm.filesCompiled.Load(),
		FilesFailed:      bm.filesFailed.Load(),
		FilesSkipped:     bm.filesSkipped.Load(),
		DirsCreated:      bm.dirsCreated.Load(),
		ArtifactsWritten: bm.artifactsWritten.Load(),
		CompileTime:      time.Duration(bm.compileNanos.Load()),
	}
}

// GetSuccessRate returns the share of attempted files that compiled, as a
// percentage.
func (bm *BuildMetrics) GetSuccessRate() float64 {
	ok := bm.filesCompiled.Load()
	total := ok + bm.filesFailed.Load()
	if total == 0 {
		return 0.0
	}
	return float64(ok) / float64(total) * 100.0
}

// Reset resets all metrics
func (bm *BuildMetrics) Reset() {
	bm.packagesBuilt.Store(0)
	bm.packagesFailed.Store(0)
	bm.filesCompiled.Store(0)
	bm.filesFailed.Store(0)
	bm.filesSkipped.Store(0)
	bm.dirsCreated.Store(0)
	bm.artifactsWritten.Store(0)
	bm.compileNanos.Store(0)
}
