package build

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildMetrics(t *testing.T) {
	metrics := NewBuildMetrics()
	assert.Equal(t, 0.0, metrics.GetSuccessRate())

	metrics.RecordCompile(10*time.Millisecond, true)
	metrics.RecordCompile(5*time.Millisecond, true)
	metrics.RecordCompile(5*time.Millisecond, false)
	metrics.RecordFailure()
	metrics.RecordSkip()
	metrics.RecordDir()
	metrics.RecordArtifact()
	metrics.RecordPackage(true)
	metrics.RecordPackage(false)

	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(2), snap.FilesCompiled)
	assert.Equal(t, int64(2), snap.FilesFailed)
	assert.Equal(t, int64(1), snap.FilesSkipped)
	assert.Equal(t, int64(1), snap.DirsCreated)
	assert.Equal(t, int64(1), snap.ArtifactsWritten)
	assert.Equal(t, int64(1), snap.PackagesBuilt)
	assert.Equal(t, int64(1), snap.PackagesFailed)
	assert.Equal(t, 20*time.Millisecond, snap.CompileTime)
	assert.Equal(t, 50.0, metrics.GetSuccessRate())

	metrics.Reset()
	assert.Equal(t, MetricsSnapshot{}, metrics.GetSnapshot())
}

func TestBuildMetricsConcurrent(t *testing.T) {
	metrics := NewBuildMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				metrics.RecordCompile(time.Microsecond, j%2 == 0)
				metrics.RecordArtifact()
			}
		}()
	}
	wg.Wait()

	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(2500), snap.FilesCompiled)
	assert.Equal(t, int64(2500), snap.FilesFailed)
	assert.Equal(t, int64(5000), snap.ArtifactsWritten)
}
