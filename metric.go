package paygate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/web3pay/paygate/schema"
)

const (
	MetricNameSpace = "paygate"
)

var (
	verifyResultCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "verify_result_total",
			Help:      "payment verification outcomes",
		},
		[]string{"result", "code"},
	)

	monitorFinishCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "monitor_finish_total",
			Help:      "terminal monitor job states",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		verifyResultCounter,
		monitorFinishCounter,
	)
}

func countVerifyResult(result *schema.VerificationResult) {
	if result.IsValid {
		verifyResultCounter.WithLabelValues("valid", "").Inc()
		return
	}
	code := ""
	if len(result.Errors) > 0 {
		code = result.Errors[0]
	}
	verifyResultCounter.WithLabelValues("invalid", code).Inc()
}

func countMonitorFinish(status string) {
	monitorFinishCounter.WithLabelValues(status).Inc()
}
