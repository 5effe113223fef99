package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/inconshreveable/log15"
	"github.com/tidwall/gjson"
	"github.com/web3pay/paygate/config/schema"
)

var log = log15.New("module", "paygate-config")

// Config owns the network and token tables. Rows live in the config DB,
// seeded on first run; an optional JSON file overrides endpoint and tolerance
// values per deployment. Tables are validated before the engine may run and
// reloaded periodically.
type Config struct {
	wdb          *Wdb
	overridePath string
	scheduler    *gocron.Scheduler

	locker   sync.RWMutex
	networks map[int64]schema.NetworkConfig
	tokens   map[string]schema.TokenConfig
}

func New(configDSN string, sqliteDir string, useSqlite bool, overridePath string) *Config {
	wdb := &Wdb{}
	if useSqlite {
		wdb = NewSqliteWdb(sqliteDir)
	} else {
		wdb = NewWdb(configDSN)
	}
	if err := wdb.Migrate(); err != nil {
		panic(err)
	}
	if err := wdb.SeedDefaults(); err != nil {
		panic(err)
	}
	c := &Config{
		wdb:          wdb,
		overridePath: overridePath,
		scheduler:    gocron.NewScheduler(time.UTC),
		networks:     make(map[int64]schema.NetworkConfig),
		tokens:       make(map[string]schema.TokenConfig),
	}
	if err := c.reload(); err != nil {
		panic(err)
	}
	return c
}

func (c *Config) Run() {
	c.scheduler.Every(5).Minute().SingletonMode().Do(func() {
		if err := c.reload(); err != nil {
			log.Error("reload config failed", "err", err)
		}
	})
	c.scheduler.StartAsync()
}

func (c *Config) Close() {
	c.scheduler.Stop()
	c.wdb.Close()
}

func (c *Config) Networks() []schema.NetworkConfig {
	c.locker.RLock()
	defer c.locker.RUnlock()
	res := make([]schema.NetworkConfig, 0, len(c.networks))
	for _, n := range c.networks {
		res = append(res, n)
	}
	return res
}

func (c *Config) Tokens() []schema.TokenConfig {
	c.locker.RLock()
	defer c.locker.RUnlock()
	res := make([]schema.TokenConfig, 0, len(c.tokens))
	for _, t := range c.tokens {
		res = append(res, t)
	}
	return res
}

func (c *Config) GetNetwork(chainId int64) (schema.NetworkConfig, bool) {
	c.locker.RLock()
	defer c.locker.RUnlock()
	n, ok := c.networks[chainId]
	return n, ok
}

func (c *Config) GetToken(symbol string) (schema.TokenConfig, bool) {
	c.locker.RLock()
	defer c.locker.RUnlock()
	t, ok := c.tokens[strings.ToUpper(symbol)]
	return t, ok
}

func (c *Config) reload() error {
	networks, err := c.wdb.GetNetworks()
	if err != nil {
		return err
	}
	tokens, err := c.wdb.GetTokens()
	if err != nil {
		return err
	}

	if c.overridePath != "" {
		raw, err := os.ReadFile(c.overridePath)
		if err != nil {
			return err
		}
		networks = applyNetworkOverrides(networks, raw)
		tokens = applyTokenOverrides(tokens, raw)
	}

	if err := Validate(networks, tokens); err != nil {
		return err
	}

	c.locker.Lock()
	defer c.locker.Unlock()
	c.networks = make(map[int64]schema.NetworkConfig, len(networks))
	for _, n := range networks {
		c.networks[n.ChainId] = n
	}
	c.tokens = make(map[string]schema.TokenConfig, len(tokens))
	for _, t := range tokens {
		c.tokens[strings.ToUpper(t.Symbol)] = t
	}
	return nil
}

// Validate rejects unknown or inconsistent network and token rows at the
// boundary, before any verification logic can see them.
func Validate(networks []schema.NetworkConfig, tokens []schema.TokenConfig) error {
	if len(networks) == 0 {
		return fmt.Errorf("no networks configured")
	}
	seenChain := make(map[int64]struct{}, len(networks))
	for _, n := range networks {
		if _, ok := seenChain[n.ChainId]; ok {
			return fmt.Errorf("duplicate network chainId: %d", n.ChainId)
		}
		seenChain[n.ChainId] = struct{}{}
		if n.RequiredConfirmations < 1 {
			return fmt.Errorf("network %d requiredConfirmations must be >= 1", n.ChainId)
		}
		urls := make([]string, 0, 3)
		if err := json.Unmarshal(n.RpcUrls, &urls); err != nil || len(urls) == 0 {
			return fmt.Errorf("network %d has no rpc urls", n.ChainId)
		}
	}
	seenTok := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		sym := strings.ToUpper(t.Symbol)
		if _, ok := seenTok[sym]; ok {
			return fmt.Errorf("duplicate token symbol: %s", sym)
		}
		seenTok[sym] = struct{}{}
		if t.Decimals < 0 || t.Decimals > 36 {
			return fmt.Errorf("token %s decimals out of range: %d", sym, t.Decimals)
		}
		if !t.IsNative && t.ContractAddress == "" {
			return fmt.Errorf("token %s missing contract address", sym)
		}
		if t.IsNative && t.ContractAddress != "" {
			return fmt.Errorf("native token %s must not carry a contract address", sym)
		}
	}
	return nil
}

func applyNetworkOverrides(networks []schema.NetworkConfig, raw []byte) []schema.NetworkConfig {
	res := make([]schema.NetworkConfig, len(networks))
	copy(res, networks)
	gjson.GetBytes(raw, "networks").ForEach(func(_, ov gjson.Result) bool {
		chainId := ov.Get("chainId").Int()
		for i := range res {
			if res[i].ChainId != chainId {
				continue
			}
			if urls := ov.Get("rpcUrls"); urls.Exists() {
				res[i].RpcUrls = []byte(urls.Raw)
			}
			if conf := ov.Get("requiredConfirmations"); conf.Exists() {
				res[i].RequiredConfirmations = conf.Uint()
			}
		}
		return true
	})
	return res
}

func applyTokenOverrides(tokens []schema.TokenConfig, raw []byte) []schema.TokenConfig {
	res := make([]schema.TokenConfig, len(tokens))
	copy(res, tokens)
	gjson.GetBytes(raw, "tokens").ForEach(func(_, ov gjson.Result) bool {
		sym := strings.ToUpper(ov.Get("symbol").String())
		for i := range res {
			if strings.ToUpper(res[i].Symbol) != sym {
				continue
			}
			if addr := ov.Get("contractAddress"); addr.Exists() {
				res[i].ContractAddress = addr.String()
			}
			if tol := ov.Get("tolerance"); tol.Exists() {
				res[i].Tolerance = tol.String()
			}
		}
		return true
	})
	return res
}
