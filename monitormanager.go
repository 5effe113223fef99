package paygate

import (
	"sync"
	"time"

	"github.com/web3pay/paygate/schema"
)

// MonitorManager holds the live monitor jobs, one per orderId. Registration
// deduplicates: asking to monitor an order that already has a non-terminal
// job returns the existing job untouched.
type MonitorManager struct {
	jobMap map[string]*schema.MonitorJob // key: orderId
	locker sync.RWMutex
}

func NewMonitorMg() *MonitorManager {
	return &MonitorManager{
		jobMap: make(map[string]*schema.MonitorJob),
		locker: sync.RWMutex{},
	}
}

func (m *MonitorManager) RegisterJob(job schema.MonitorJob) (schema.MonitorJob, bool) {
	m.locker.Lock()
	defer m.locker.Unlock()

	if existing, ok := m.jobMap[job.OrderId]; ok && !existing.IsTerminal() {
		return *existing, false
	}
	jb := job
	m.jobMap[job.OrderId] = &jb
	return jb, true
}

func (m *MonitorManager) GetJob(orderId string) *schema.MonitorJob {
	m.locker.RLock()
	defer m.locker.RUnlock()
	jb, ok := m.jobMap[orderId]
	if !ok {
		return nil
	}
	job := *jb
	return &job
}

func (m *MonitorManager) DelJob(orderId string) {
	m.locker.Lock()
	defer m.locker.Unlock()
	delete(m.jobMap, orderId)
}

func (m *MonitorManager) SetStatus(orderId, status string) {
	m.locker.Lock()
	defer m.locker.Unlock()
	if jb, ok := m.jobMap[orderId]; ok {
		jb.Status = status
	}
}

func (m *MonitorManager) JobBeginSet(orderId string) error {
	m.locker.Lock()
	defer m.locker.Unlock()
	jb, ok := m.jobMap[orderId]
	if !ok {
		return schema.ErrNotFound
	}
	if jb.Close {
		return schema.ErrJobClosed
	}
	jb.Status = schema.MonitorRunning
	if jb.StartedAt == 0 {
		jb.StartedAt = time.Now().UnixMilli()
	}
	return nil
}

// AdvanceAttempt bumps the attempt counter and schedules the next run. The
// returned copy carries the persisted state.
func (m *MonitorManager) AdvanceAttempt(orderId string, nextRunAt int64) (schema.MonitorJob, error) {
	m.locker.Lock()
	defer m.locker.Unlock()
	jb, ok := m.jobMap[orderId]
	if !ok {
		return schema.MonitorJob{}, schema.ErrNotFound
	}
	jb.Attempt += 1
	jb.NextRunAt = nextRunAt
	jb.Status = schema.MonitorScheduled
	return *jb, nil
}

func (m *MonitorManager) FinishJob(orderId, status, message string) (schema.MonitorJob, error) {
	m.locker.Lock()
	defer m.locker.Unlock()
	jb, ok := m.jobMap[orderId]
	if !ok {
		return schema.MonitorJob{}, schema.ErrNotFound
	}
	jb.Status = status
	jb.Message = message
	jb.Close = true
	return *jb, nil
}

func (m *MonitorManager) CloseJob(orderId string) error {
	m.locker.Lock()
	defer m.locker.Unlock()
	jb, ok := m.jobMap[orderId]
	if !ok {
		return schema.ErrNotFound
	}
	jb.Close = true
	return nil
}

func (m *MonitorManager) IsClosed(orderId string) bool {
	m.locker.RLock()
	defer m.locker.RUnlock()
	jb, ok := m.jobMap[orderId]
	if !ok {
		return false
	}
	return jb.Close
}

func (m *MonitorManager) GetJobs() (jobs map[string]schema.MonitorJob) {
	m.locker.RLock()
	defer m.locker.RUnlock()

	jobs = make(map[string]schema.MonitorJob, len(m.jobMap))
	for id, jb := range m.jobMap {
		jobs[id] = *jb
	}
	return
}

// DueJobs returns the orderIds whose next run is at or before now. Closed
// jobs are always due so the next pump cycle can reap them.
func (m *MonitorManager) DueJobs(now int64) []string {
	m.locker.RLock()
	defer m.locker.RUnlock()

	due := make([]string, 0, len(m.jobMap))
	for id, jb := range m.jobMap {
		if jb.IsTerminal() {
			continue
		}
		if jb.Status == schema.MonitorRunning {
			continue
		}
		if jb.Close || jb.NextRunAt <= now {
			due = append(due, id)
		}
	}
	return due
}
