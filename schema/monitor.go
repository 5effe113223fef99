package schema

const (
	// monitor job status
	MonitorScheduled = "scheduled"
	MonitorRunning   = "running"
	MonitorSucceeded = "succeeded"
	MonitorTimeout   = "expired_timeout"
	MonitorOrderGone = "order_gone"

	DefaultMonitorDelayMs    = 2000
	DefaultMonitorIntervalMs = 5000
	DefaultMonitorAttempts   = 240 // 20 min at the default interval
	DefaultMonitorLookback   = 300 // blocks scanned per attempt
	DefaultDetectLookback    = 20
)

// MonitorJob is one order's recurring payment watch. OrderId doubles as the
// job id, so at most one live job per order exists. Attempt is persisted with
// the payload and survives restarts.
type MonitorJob struct {
	OrderId         string `json:"orderId"`
	ChainId         int64  `json:"chainId"`
	Status          string `json:"status"`
	Attempt         int    `json:"attempt"`
	MaxAttempts     int    `json:"maxAttempts"`
	PollingInterval int64  `json:"pollingInterval"` // ms
	NextRunAt       int64  `json:"nextRunAt"`       // unix ms
	StartedAt       int64  `json:"startedAt"`       // unix ms, 0 until first run
	Close           bool   `json:"close"`
	Message         string `json:"message,omitempty"`
}

func (j *MonitorJob) IsTerminal() bool {
	switch j.Status {
	case MonitorSucceeded, MonitorTimeout, MonitorOrderGone:
		return true
	}
	return false
}
