package paygate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/web3pay/paygate/schema"
)

func TestPendingMonitorJobPool(t *testing.T) {
	s, err := NewBoltStore(t.TempDir())
	assert.NoError(t, err)
	defer s.Close()

	job := schema.MonitorJob{
		OrderId:         "order-1",
		ChainId:         1,
		Status:          schema.MonitorScheduled,
		Attempt:         7,
		MaxAttempts:     240,
		PollingInterval: 5000,
		NextRunAt:       1700000000000,
	}
	assert.NoError(t, s.SavePendingMonitorJob(job))

	jobs, err := s.LoadPendingMonitorJobs()
	assert.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, job, jobs[0])

	// overwrite keeps one entry per order
	job.Attempt = 8
	assert.NoError(t, s.SavePendingMonitorJob(job))
	jobs, err = s.LoadPendingMonitorJobs()
	assert.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, 8, jobs[0].Attempt)

	assert.NoError(t, s.DelPendingMonitorJob("order-1"))
	jobs, err = s.LoadPendingMonitorJobs()
	assert.NoError(t, err)
	assert.Len(t, jobs, 0)
}

func TestMonitorResultArchive(t *testing.T) {
	s, err := NewBoltStore(t.TempDir())
	assert.NoError(t, err)
	defer s.Close()

	_, err = s.LoadMonitorResult("order-1")
	assert.Error(t, err)

	job := schema.MonitorJob{
		OrderId: "order-1",
		Status:  schema.MonitorTimeout,
		Attempt: 240,
		Close:   true,
		Message: "payment monitoring timeout",
	}
	assert.NoError(t, s.SaveMonitorResult(job))

	got, err := s.LoadMonitorResult("order-1")
	assert.NoError(t, err)
	assert.Equal(t, job, got)
}
