package schema

var (
	// bucket
	MonitorPendingBucket = "monitor-pending-pool-bucket" // key: orderId, val: json(MonitorJob)
	MonitorStatusBucket  = "monitor-status-bucket"       // key: orderId, val: json(MonitorJob) terminal state
	ConstantsBucket      = "constants-bucket"
)
