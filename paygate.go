package paygate

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/web3pay/paygate/cache"
	"github.com/web3pay/paygate/config"
	"github.com/web3pay/paygate/schema"
)

const blockCacheExpTime = 5 * time.Minute

type Paygate struct {
	store  *Store
	engine *gin.Engine

	config     *config.Config
	wdb        *Wdb
	registry   *ChainRegistry
	monitorMg  *MonitorManager
	scheduler  *gocron.Scheduler
	blockCache *cache.BigCache
	kWriter    *KWriter

	paidGraceWindow    time.Duration
	orderExpiredRange  time.Duration
	monitorInterval    time.Duration
	monitorMaxAttempts int
	monitorLookback    uint64
	detectLookback     uint64

	onActivate func(schema.Order) // optional fulfillment hook
}

func New(
	boltDirPath, mySqlDsn string, sqliteDir string, useSqlite bool,
	useMongoDb bool, mongoUri string,
	cfgOverridePath string, kafkaUri string, useKafka bool,
) *Paygate {
	var err error
	KVDb := &Store{}
	if useMongoDb {
		KVDb, err = NewMongoStore(context.Background(), mongoUri)
	} else {
		KVDb, err = NewBoltStore(boltDirPath)
	}
	if err != nil {
		panic(err)
	}

	wdb := &Wdb{}
	if useSqlite {
		wdb = NewSqliteDb(sqliteDir)
	} else {
		wdb = NewMysqlDb(mySqlDsn)
	}
	if err = wdb.Migrate(); err != nil {
		panic(err)
	}

	cfg := config.New(mySqlDsn, sqliteDir, useSqlite, cfgOverridePath)

	registry, err := NewChainRegistry(cfg.Networks(), cfg.Tokens())
	if err != nil {
		panic(err)
	}
	if err = registry.Connect(context.Background()); err != nil {
		panic(err)
	}

	blockCache, err := cache.NewBigCache(blockCacheExpTime)
	if err != nil {
		panic(err)
	}

	var kWriter *KWriter
	if useKafka {
		kWriter, err = NewKWriter(OrderTopic, kafkaUri)
		if err != nil {
			panic(err)
		}
	}

	return &Paygate{
		store:              KVDb,
		engine:             gin.Default(),
		config:             cfg,
		wdb:                wdb,
		registry:           registry,
		monitorMg:          NewMonitorMg(),
		scheduler:          gocron.NewScheduler(time.UTC),
		blockCache:         blockCache,
		kWriter:            kWriter,
		paidGraceWindow:    schema.DefaultPaidGraceWindow,
		orderExpiredRange:  schema.DefaultOrderExpiredRange,
		monitorInterval:    schema.DefaultMonitorIntervalMs * time.Millisecond,
		monitorMaxAttempts: schema.DefaultMonitorAttempts,
		monitorLookback:    schema.DefaultMonitorLookback,
		detectLookback:     schema.DefaultDetectLookback,
	}
}

func (s *Paygate) Run(port string) {
	s.config.Run()
	if err := s.resumeMonitorJobs(); err != nil {
		log.Error("resume monitor jobs failed", "err", err)
	}
	go s.runAPI(port)
	go s.runJobs()
}

// SetActivationHook installs a callback fired once per order activation, after
// the status transition is committed. Must be set before Run.
func (s *Paygate) SetActivationHook(fn func(schema.Order)) {
	s.onActivate = fn
}

func (s *Paygate) Close() {
	s.scheduler.Stop()
	s.config.Close()
	if s.kWriter != nil {
		s.kWriter.Close()
	}
	if err := s.store.Close(); err != nil {
		log.Error("close kv store failed", "err", err)
	}
	s.wdb.Close()
	log.Info("paygate closed")
}

// CreateOrder registers a payment order in pending status with a fresh id and
// the default expiry window.
func (s *Paygate) CreateOrder(req schema.CreateOrderReq) (schema.Order, error) {
	if req.UserId == "" {
		return schema.Order{}, ErrNullUserId
	}
	if !common.IsHexAddress(req.RecipientAddress) {
		return schema.Order{}, ErrInvalidAddress
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return schema.Order{}, ErrInvalidAmount
	}
	token, err := s.registry.Token(req.TokenSymbol)
	if err != nil {
		return schema.Order{}, err
	}
	if _, err = s.registry.Network(req.ChainId); err != nil {
		return schema.Order{}, err
	}
	// reject amounts finer than the token can represent on chain
	if _, err = parseUnits(req.Amount, token.Decimals); err != nil {
		return schema.Order{}, err
	}

	method := req.PaymentMethod
	if method == "" {
		method = schema.PayMethodQr
	}
	if method != schema.PayMethodQr && method != schema.PayMethodDirect {
		return schema.Order{}, ErrInvalidPayMethod
	}

	ord := schema.Order{
		ID:               uuid.NewString(),
		UserId:           req.UserId,
		RecipientAddress: req.RecipientAddress,
		Amount:           amount.String(),
		TokenSymbol:      strings.ToUpper(req.TokenSymbol),
		ChainId:          req.ChainId,
		Status:           schema.OrderPending,
		PaymentMethod:    method,
		ExpiresAt:        time.Now().Add(s.orderExpiredRange),
	}
	if err = s.wdb.InsertOrder(&ord); err != nil {
		return schema.Order{}, err
	}
	log.Info("order created", "orderId", ord.ID, "token", ord.TokenSymbol, "chainId", ord.ChainId, "amount", ord.Amount)
	return ord, nil
}

func (s *Paygate) GetOrder(orderId string) (schema.Order, error) {
	return s.wdb.GetOrder(orderId)
}

func (s *Paygate) GetOrdersByUser(userId string, page, size int) ([]schema.Order, error) {
	return s.wdb.GetOrdersByUser(userId, page, size)
}

// OrderPaymentURI renders the EIP-681 request URI wallets scan from the
// order's QR code.
func (s *Paygate) OrderPaymentURI(orderId string) (schema.RespPaymentURI, error) {
	ord, err := s.wdb.GetOrder(orderId)
	if err != nil {
		return schema.RespPaymentURI{}, err
	}
	token, err := s.registry.Token(ord.TokenSymbol)
	if err != nil {
		return schema.RespPaymentURI{}, err
	}
	uri, err := PaymentURI(ord, token)
	if err != nil {
		return schema.RespPaymentURI{}, err
	}
	return schema.RespPaymentURI{OrderId: ord.ID, PaymentURI: uri}, nil
}

func (s *Paygate) VerificationHistory(orderId string) ([]schema.HashRecord, error) {
	return s.wdb.GetHashRecordsByOrder(orderId)
}

func (s *Paygate) GetMonitorJob(orderId string) (schema.MonitorJob, error) {
	if job := s.monitorMg.GetJob(orderId); job != nil {
		return *job, nil
	}
	// fall back to the archived result of a finished job
	return s.store.LoadMonitorResult(orderId)
}

// KillMonitor stops a live job by operator request; the order itself is left
// untouched.
func (s *Paygate) KillMonitor(orderId string) error {
	if err := s.monitorMg.CloseJob(orderId); err != nil {
		return err
	}
	s.finishMonitorJob(orderId, schema.MonitorOrderGone, "closed by operator")
	return nil
}

func (s *Paygate) MonitorCounts() schema.RespMonitorCounts {
	counts := schema.RespMonitorCounts{}
	for _, job := range s.monitorMg.GetJobs() {
		switch job.Status {
		case schema.MonitorScheduled:
			counts.Scheduled++
		case schema.MonitorRunning:
			counts.Running++
		}
	}
	return counts
}
