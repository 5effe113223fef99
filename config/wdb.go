package config

import (
	"encoding/json"
	"path"

	"github.com/web3pay/paygate/config/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteName = "config.sqlite"

type Wdb struct {
	Db *gorm.DB
}

func NewWdb(dsn string) *Wdb {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 10,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect config db success")
	return &Wdb{Db: db}
}

func NewSqliteWdb(dbDir string) *Wdb {
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 10,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect config sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.NetworkConfig{}, &schema.TokenConfig{})
}

func (w *Wdb) GetNetworks() ([]schema.NetworkConfig, error) {
	res := make([]schema.NetworkConfig, 0, 10)
	err := w.Db.Find(&res).Error
	return res, err
}

func (w *Wdb) GetTokens() ([]schema.TokenConfig, error) {
	res := make([]schema.TokenConfig, 0, 10)
	err := w.Db.Find(&res).Error
	return res, err
}

func (w *Wdb) SeedDefaults() error {
	var count int64
	if err := w.Db.Model(&schema.NetworkConfig{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		if err := w.Db.Create(defaultNetworks()).Error; err != nil {
			return err
		}
	}
	if err := w.Db.Model(&schema.TokenConfig{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		if err := w.Db.Create(defaultTokens()).Error; err != nil {
			return err
		}
	}
	return nil
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

func mustUrls(urls ...string) []byte {
	by, err := json.Marshal(urls)
	if err != nil {
		panic(err)
	}
	return by
}

func defaultNetworks() []schema.NetworkConfig {
	return []schema.NetworkConfig{
		{
			ChainId: 1, Name: "Ethereum", NativeSymbol: "ETH", RequiredConfirmations: 3,
			RpcUrls: mustUrls("https://eth.llamarpc.com", "https://rpc.ankr.com/eth"),
		},
		{
			ChainId: 8453, Name: "Base", NativeSymbol: "ETH", RequiredConfirmations: 1,
			RpcUrls: mustUrls("https://mainnet.base.org", "https://base.publicnode.com"),
		},
		{
			ChainId: 42161, Name: "Arbitrum", NativeSymbol: "ETH", RequiredConfirmations: 1,
			RpcUrls: mustUrls("https://arb1.arbitrum.io/rpc", "https://rpc.ankr.com/arbitrum"),
		},
		{
			ChainId: 11155111, Name: "Sepolia", NativeSymbol: "ETH", RequiredConfirmations: 1,
			RpcUrls: mustUrls("https://rpc.sepolia.org", "https://ethereum-sepolia.publicnode.com"),
		},
	}
}

func defaultTokens() []schema.TokenConfig {
	return []schema.TokenConfig{
		{Symbol: "ETH", Decimals: 18, IsNative: true, Tolerance: "0.0001"},
		{Symbol: "USDT", Decimals: 6, ContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Tolerance: "0.1"},
		{Symbol: "USDC", Decimals: 6, ContractAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Tolerance: "0.1"},
		{Symbol: "DAI", Decimals: 18, ContractAddress: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Tolerance: "0.1"},
	}
}
