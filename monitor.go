package paygate

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/web3pay/paygate/schema"
)

const (
	monitorPoolSize       = 20
	monitorAttemptTimeout = 30 * time.Second
	monitorStalledMs      = 5 * 60 * 1000
)

func (s *Paygate) runJobs() {
	s.scheduler.Every(2).Seconds().SingletonMode().Do(s.pumpMonitorJobs)
	s.scheduler.Every(30).Seconds().SingletonMode().Do(s.watcherStalledJobs)
	s.scheduler.Every(1).Minute().SingletonMode().Do(s.sweepExpiredOrders)

	s.scheduler.StartAsync()
}

// StartMonitoring enqueues the recurring payment watch for an order. The
// order id doubles as the job id; a second request while a job is live is a
// no-op returning the existing job.
func (s *Paygate) StartMonitoring(orderId string, opts schema.MonitorReq) (schema.MonitorJob, error) {
	ord, err := s.wdb.GetOrder(orderId)
	if err != nil {
		return schema.MonitorJob{}, err
	}
	if !ord.CanVerify() {
		return schema.MonitorJob{}, ErrOrderNotOpen
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.monitorMaxAttempts
	}
	interval := opts.PollingInterval
	if interval <= 0 {
		interval = s.monitorInterval.Milliseconds()
	}

	job := schema.MonitorJob{
		OrderId:         orderId,
		ChainId:         ord.ChainId,
		Status:          schema.MonitorScheduled,
		MaxAttempts:     maxAttempts,
		PollingInterval: interval,
		NextRunAt:       time.Now().UnixMilli() + schema.DefaultMonitorDelayMs,
	}
	registered, created := s.monitorMg.RegisterJob(job)
	if !created {
		return registered, nil
	}

	if err := s.store.SavePendingMonitorJob(registered); err != nil {
		log.Error("persist monitor job failed", "err", err, "orderId", orderId)
	}
	log.Info("monitor job registered", "orderId", orderId, "maxAttempts", maxAttempts, "intervalMs", interval)
	return registered, nil
}

// resumeMonitorJobs reloads the pending pool after a restart; persisted
// attempt counters carry on where they stopped.
func (s *Paygate) resumeMonitorJobs() error {
	jobs, err := s.store.LoadPendingMonitorJobs()
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	for _, job := range jobs {
		job.Status = schema.MonitorScheduled
		job.NextRunAt = now + schema.DefaultMonitorDelayMs
		s.monitorMg.RegisterJob(job)
	}
	if len(jobs) > 0 {
		log.Info("resumed monitor jobs", "number", len(jobs))
	}
	return nil
}

func (s *Paygate) pumpMonitorJobs() {
	due := s.monitorMg.DueJobs(time.Now().UnixMilli())
	if len(due) == 0 {
		return
	}

	var wg sync.WaitGroup
	p, _ := ants.NewPoolWithFunc(monitorPoolSize, func(i interface{}) {
		defer wg.Done()
		s.processMonitorAttempt(i.(string))
	})
	defer p.Release()

	for _, orderId := range due {
		wg.Add(1)
		_ = p.Invoke(orderId)
	}
	wg.Wait()
}

func (s *Paygate) processMonitorAttempt(orderId string) {
	defer func() {
		if r := recover(); r != nil {
			// a blown attempt must not take the scheduler down; it still
			// counts as one attempt for the job
			log.Error("monitor attempt panic", "orderId", orderId, "recover", r)
			s.delayNextAttempt(orderId, schema.DefaultMonitorIntervalMs/2)
		}
	}()

	if s.monitorMg.IsClosed(orderId) {
		s.finishMonitorJob(orderId, schema.MonitorSucceeded, "monitor closed by activation")
		return
	}
	if err := s.monitorMg.JobBeginSet(orderId); err != nil {
		return
	}
	job := s.monitorMg.GetJob(orderId)
	if job == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), monitorAttemptTimeout)
	defer cancel()

	ord, err := s.wdb.GetOrder(orderId)
	if err == schema.ErrOrderNotFound {
		s.finishMonitorJob(orderId, schema.MonitorOrderGone, "order not found")
		return
	}
	if err != nil {
		log.Error("load monitored order failed", "err", err, "orderId", orderId)
		s.delayNextAttempt(orderId, job.PollingInterval/2)
		return
	}

	if ord.Status == schema.OrderPaid || ord.Status == schema.OrderActivated {
		s.finishMonitorJob(orderId, schema.MonitorSucceeded, "order already activated")
		return
	}
	if ord.IsTerminal() {
		s.finishMonitorJob(orderId, schema.MonitorOrderGone, "order in terminal state: "+ord.Status)
		return
	}

	detect, err := s.detectOrderPayment(ctx, &ord, s.monitorLookback)
	if err != nil {
		// one RPC hiccup must not fail the order; shorter backoff, next try
		log.Warn("monitor detect failed", "err", err, "orderId", orderId, "attempt", job.Attempt+1)
		s.delayNextAttempt(orderId, job.PollingInterval/2)
		return
	}

	if detect.Found {
		if detect.TokenTransfer {
			// coarse selector match only; the full verifier decides
			result, err := s.VerifyPayment(ctx, orderId, detect.TransactionHash, ord.UserId)
			if err == nil && result.IsValid {
				s.finishMonitorJob(orderId, schema.MonitorSucceeded, "payment detected: "+detect.TransactionHash)
				return
			}
			log.Debug("token candidate rejected by verifier", "orderId", orderId, "txHash", detect.TransactionHash)
		} else if s.claimDetectedPayment(&ord, detect) {
			s.finishMonitorJob(orderId, schema.MonitorSucceeded, "payment detected: "+detect.TransactionHash)
			return
		}
	}

	s.delayNextAttempt(orderId, job.PollingInterval)
}

// claimDetectedPayment settles a native-asset match found by the detector.
// The detector already checked recipient and amount; the ledger insert is the
// deciding claim on the hash.
func (s *Paygate) claimDetectedPayment(ord *schema.Order, detect *schema.DetectResult) bool {
	txHash := strings.ToLower(detect.TransactionHash)
	inserted, err := s.wdb.InsertHashRecordIfAbsent(&schema.HashRecord{
		TransactionHash: txHash,
		OrderId:         ord.ID,
		UserId:          ord.UserId,
	})
	if err != nil {
		log.Error("insert detected hash failed", "err", err, "orderId", ord.ID, "txHash", txHash)
		return false
	}
	if !inserted {
		// another order claimed the hash between scan and now
		return false
	}

	now := time.Now()
	result := &schema.VerificationResult{
		IsValid:         true,
		OrderId:         ord.ID,
		TransactionHash: txHash,
		Confirmations:   detect.Confirmations,
		Errors:          []string{},
		Details: schema.VerificationDetails{
			VerifiedAt: &now,
			Message:    "auto-detected direct payment",
		},
	}
	if by, err := json.Marshal(result); err == nil {
		if err := s.wdb.UpdateHashVerification(txHash, true, by); err != nil {
			log.Error("update detected hash verification failed", "err", err, "txHash", txHash)
		}
	}
	countVerifyResult(result)
	s.activateOrder(ord, txHash, schema.ReasonAutoDetected)
	return true
}

func (s *Paygate) delayNextAttempt(orderId string, delayMs int64) {
	job, err := s.monitorMg.AdvanceAttempt(orderId, time.Now().UnixMilli()+delayMs)
	if err != nil {
		return
	}
	if job.Attempt >= job.MaxAttempts {
		s.expireMonitoredOrder(orderId)
		return
	}
	if err := s.store.SavePendingMonitorJob(job); err != nil {
		log.Error("persist monitor job failed", "err", err, "orderId", orderId)
	}
}

func (s *Paygate) expireMonitoredOrder(orderId string) {
	err := s.wdb.UpdateOrderStatus(orderId, schema.OrderPending, schema.OrderExpired, schema.ReasonMonitorTimeout)
	if err == nil {
		if ord, err2 := s.wdb.GetOrder(orderId); err2 == nil {
			s.publishOrderEvent(ord, schema.ReasonMonitorTimeout, "")
		}
	} else if err != schema.ErrStatusConflict {
		log.Error("expire monitored order failed", "err", err, "orderId", orderId)
	}
	s.finishMonitorJob(orderId, schema.MonitorTimeout, "payment monitoring timeout")
}

func (s *Paygate) finishMonitorJob(orderId, status, message string) {
	job, err := s.monitorMg.FinishJob(orderId, status, message)
	if err != nil {
		return
	}
	if err := s.store.SaveMonitorResult(job); err != nil {
		log.Error("save monitor result failed", "err", err, "orderId", orderId)
	}
	if err := s.store.DelPendingMonitorJob(orderId); err != nil {
		log.Error("remove pending monitor job failed", "err", err, "orderId", orderId)
	}
	s.monitorMg.DelJob(orderId)
	countMonitorFinish(status)
	log.Info("monitor job finished", "orderId", orderId, "status", status, "msg", message)
}

// watcherStalledJobs reschedules jobs left RUNNING by a dead worker; the
// lost attempt still counts toward maxAttempts.
func (s *Paygate) watcherStalledJobs() {
	jobs := s.monitorMg.GetJobs()
	now := time.Now().UnixMilli()
	for id, jb := range jobs {
		if jb.Status != schema.MonitorRunning {
			continue
		}
		if now-jb.NextRunAt <= monitorStalledMs {
			continue
		}
		if jb.Close {
			s.finishMonitorJob(id, schema.MonitorSucceeded, "monitor closed by activation")
			continue
		}
		log.Warn("monitor job stalled, rescheduling", "orderId", id)
		s.delayNextAttempt(id, jb.PollingInterval)
	}
}

func (s *Paygate) sweepExpiredOrders() {
	ords, err := s.wdb.GetPastDuePendingOrders(time.Now(), 200)
	if err != nil {
		log.Error("load past-due orders failed", "err", err)
		return
	}
	for _, ord := range ords {
		if err := s.wdb.UpdateOrderStatus(ord.ID, schema.OrderPending, schema.OrderExpired, schema.ReasonOrderExpired); err != nil {
			if err != schema.ErrStatusConflict {
				log.Error("expire order failed", "err", err, "orderId", ord.ID)
			}
			continue
		}
		ord.Status = schema.OrderExpired
		s.publishOrderEvent(ord, schema.ReasonOrderExpired, "")
	}
}
