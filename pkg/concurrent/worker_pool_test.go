package concurrent

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPoolRunsEveryJob(t *testing.T) {
	workers := NewWorkerPool[InterpolateStationJobItem, int32](4, 100)
	for i := int32(0); i < 100; i++ {
		workers.AddJob(NewInterpolateStationJobItem(i))
	}
	workers.Close()
	workers.Start(func(job InterpolateStationJobItem) int32 {
		return job.StationNode * 2
	})
	workers.Wait()

	got := make([]int, 0, 100)
	for r := range workers.CollectResults() {
		got = append(got, int(r))
	}
	sort.Ints(got)
	assert.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i*2, v)
	}
}
