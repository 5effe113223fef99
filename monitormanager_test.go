package paygate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/web3pay/paygate/schema"
)

func testJob(orderId string) schema.MonitorJob {
	return schema.MonitorJob{
		OrderId:         orderId,
		ChainId:         1,
		Status:          schema.MonitorScheduled,
		MaxAttempts:     3,
		PollingInterval: 10,
		NextRunAt:       time.Now().UnixMilli(),
	}
}

func TestRegisterJobDedup(t *testing.T) {
	mg := NewMonitorMg()
	job, created := mg.RegisterJob(testJob("order-1"))
	assert.True(t, created)

	// second registration returns the live job untouched
	again, created := mg.RegisterJob(testJob("order-1"))
	assert.False(t, created)
	assert.Equal(t, job, again)

	// a terminal job can be replaced
	_, err := mg.FinishJob("order-1", schema.MonitorSucceeded, "done")
	assert.NoError(t, err)
	mg.DelJob("order-1")
	_, created = mg.RegisterJob(testJob("order-1"))
	assert.True(t, created)
}

func TestJobBeginSetAndClose(t *testing.T) {
	mg := NewMonitorMg()
	mg.RegisterJob(testJob("order-1"))

	assert.NoError(t, mg.JobBeginSet("order-1"))
	jb := mg.GetJob("order-1")
	assert.Equal(t, schema.MonitorRunning, jb.Status)
	assert.True(t, jb.StartedAt > 0)

	assert.NoError(t, mg.CloseJob("order-1"))
	assert.True(t, mg.IsClosed("order-1"))
	assert.Equal(t, schema.ErrJobClosed, mg.JobBeginSet("order-1"))

	assert.Equal(t, schema.ErrNotFound, mg.JobBeginSet("order-unknown"))
}

func TestAdvanceAttempt(t *testing.T) {
	mg := NewMonitorMg()
	mg.RegisterJob(testJob("order-1"))
	assert.NoError(t, mg.JobBeginSet("order-1"))

	next := time.Now().UnixMilli() + 500
	jb, err := mg.AdvanceAttempt("order-1", next)
	assert.NoError(t, err)
	assert.Equal(t, 1, jb.Attempt)
	assert.Equal(t, next, jb.NextRunAt)
	assert.Equal(t, schema.MonitorScheduled, jb.Status)
}

func TestDueJobs(t *testing.T) {
	mg := NewMonitorMg()
	now := time.Now().UnixMilli()

	due := testJob("order-due")
	due.NextRunAt = now - 1
	mg.RegisterJob(due)

	future := testJob("order-future")
	future.NextRunAt = now + 60_000
	mg.RegisterJob(future)

	running := testJob("order-running")
	running.NextRunAt = now - 1
	mg.RegisterJob(running)
	assert.NoError(t, mg.JobBeginSet("order-running"))

	closed := testJob("order-closed")
	closed.NextRunAt = now - 1
	mg.RegisterJob(closed)
	assert.NoError(t, mg.CloseJob("order-closed"))

	ids := mg.DueJobs(now)
	assert.Equal(t, []string{"order-due"}, ids)
}
