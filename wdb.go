package paygate

import (
	"path"
	"time"

	"github.com/web3pay/paygate/schema"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const sqliteName = "paygate.sqlite"

type Wdb struct {
	Db *gorm.DB
}

func NewMysqlDb(dsn string) *Wdb {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect mysql db success")
	return &Wdb{Db: db}
}

func NewSqliteDb(dbDir string) *Wdb {
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.Order{}, &schema.HashRecord{})
}

func (w *Wdb) InsertOrder(order *schema.Order) error {
	return w.Db.Create(order).Error
}

func (w *Wdb) GetOrder(id string) (schema.Order, error) {
	res := schema.Order{}
	err := w.Db.Where("id = ?", id).First(&res).Error
	if err == gorm.ErrRecordNotFound {
		return res, schema.ErrOrderNotFound
	}
	return res, err
}

func (w *Wdb) GetOrdersByUser(userId string, page, size int) ([]schema.Order, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 20
	}
	res := make([]schema.Order, 0, size)
	err := w.Db.Where("user_id = ?", userId).
		Order("created_at desc").
		Offset((page - 1) * size).Limit(size).
		Find(&res).Error
	return res, err
}

// UpdateOrderStatus transitions an order from one status to another with a
// compare-and-set on the prior status, so concurrent verify and monitor paths
// cannot both move an order past pending.
func (w *Wdb) UpdateOrderStatus(id, fromStatus, toStatus, reason string) error {
	res := w.Db.Model(&schema.Order{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{"status": toStatus, "status_reason": reason})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return schema.ErrStatusConflict
	}
	return nil
}

// SettleOrder is UpdateOrderStatus plus recording the settling tx hash.
func (w *Wdb) SettleOrder(id, fromStatus, toStatus, reason, txHash string) error {
	res := w.Db.Model(&schema.Order{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{"status": toStatus, "status_reason": reason, "payment_id": txHash})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return schema.ErrStatusConflict
	}
	return nil
}

func (w *Wdb) GetPastDuePendingOrders(now time.Time, limit int) ([]schema.Order, error) {
	res := make([]schema.Order, 0, limit)
	err := w.Db.Where("status = ? AND expires_at < ?", schema.OrderPending, now).
		Limit(limit).Find(&res).Error
	return res, err
}

// InsertHashRecordIfAbsent is the ledger gate. The unique constraint on
// transaction_hash is the final authority; OnConflict DoNothing turns a
// concurrent duplicate into RowsAffected == 0 instead of an error.
func (w *Wdb) InsertHashRecordIfAbsent(rec *schema.HashRecord) (bool, error) {
	res := w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_hash"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (w *Wdb) GetHashRecord(txHash string) (schema.HashRecord, error) {
	res := schema.HashRecord{}
	err := w.Db.Where("transaction_hash = ?", txHash).First(&res).Error
	if err == gorm.ErrRecordNotFound {
		return res, schema.ErrNotExist
	}
	return res, err
}

func (w *Wdb) IsHashUsed(txHash string) bool {
	_, err := w.GetHashRecord(txHash)
	return err == nil
}

func (w *Wdb) UpdateHashVerification(txHash string, isVerified bool, result datatypes.JSON) error {
	return w.Db.Model(&schema.HashRecord{}).
		Where("transaction_hash = ?", txHash).
		Updates(map[string]interface{}{"is_verified": isVerified, "verification_result": result}).Error
}

func (w *Wdb) GetHashRecordsByOrder(orderId string) ([]schema.HashRecord, error) {
	res := make([]schema.HashRecord, 0, 10)
	err := w.Db.Where("order_id = ?", orderId).Order("created_at desc").Find(&res).Error
	return res, err
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}
