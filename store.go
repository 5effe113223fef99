package paygate

import (
	"context"
	"encoding/json"

	"github.com/web3pay/paygate/rawdb"
	"github.com/web3pay/paygate/schema"
)

// Store persists monitor jobs so the attempt index survives a restart. The
// pending pool holds live jobs keyed by orderId; finished jobs move to the
// status bucket for later inspection.
type Store struct {
	KVDb rawdb.KeyValueDB
}

func NewBoltStore(boltDirPath string) (*Store, error) {
	boltDb, err := rawdb.NewBoltDB(boltDirPath)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: boltDb}, nil
}

func NewMongoStore(ctx context.Context, uri string) (*Store, error) {
	mongoDb, err := rawdb.NewMongoDB(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: mongoDb}, nil
}

func (s *Store) SavePendingMonitorJob(job schema.MonitorJob) error {
	by, err := json.Marshal(&job)
	if err != nil {
		return err
	}
	return s.KVDb.Put(schema.MonitorPendingBucket, job.OrderId, by)
}

func (s *Store) LoadPendingMonitorJobs() ([]schema.MonitorJob, error) {
	keys, err := s.KVDb.GetAllKey(schema.MonitorPendingBucket)
	if err != nil {
		return nil, err
	}
	jobs := make([]schema.MonitorJob, 0, len(keys))
	for _, key := range keys {
		by, err := s.KVDb.Get(schema.MonitorPendingBucket, key)
		if err != nil {
			return nil, err
		}
		job := schema.MonitorJob{}
		if err := json.Unmarshal(by, &job); err != nil {
			log.Error("unmarshal pending monitor job failed", "orderId", key, "err", err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Store) DelPendingMonitorJob(orderId string) error {
	return s.KVDb.Delete(schema.MonitorPendingBucket, orderId)
}

func (s *Store) SaveMonitorResult(job schema.MonitorJob) error {
	by, err := json.Marshal(&job)
	if err != nil {
		return err
	}
	return s.KVDb.Put(schema.MonitorStatusBucket, job.OrderId, by)
}

func (s *Store) LoadMonitorResult(orderId string) (schema.MonitorJob, error) {
	job := schema.MonitorJob{}
	by, err := s.KVDb.Get(schema.MonitorStatusBucket, orderId)
	if err != nil {
		return job, err
	}
	err = json.Unmarshal(by, &job)
	return job, err
}

func (s *Store) Close() error {
	return s.KVDb.Close()
}
