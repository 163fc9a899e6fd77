package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
)

type Config struct {
	Horizon struct {
		Network              string  `yaml:"network"` // "public" or "testnet"
		PublicURL            string  `yaml:"public_url"`
		TestnetURL           string  `yaml:"testnet_url"`
		TimeoutSeconds       int     `yaml:"timeout_seconds"`
		MaxRequestsPerSecond float64 `yaml:"max_requests_per_second"`
		Burst                int     `yaml:"burst"`
	} `yaml:"horizon"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Server struct {
		Addr                string   `yaml:"addr"`
		Pprof               bool     `yaml:"pprof"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
	} `yaml:"server"`
	Trading struct {
		BaseAsset              string `yaml:"base_asset"`
		DefaultAmount          string `yaml:"default_amount"`
		SlippageFactor         string `yaml:"slippage_factor"`
		DestMinTolerance       string `yaml:"dest_min_tolerance"`
		RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
		QuoteConcurrency       int    `yaml:"quote_concurrency"`
		Account                string `yaml:"account"`
		SigningSeed            string `yaml:"-"` // env only, never from file
	} `yaml:"trading"`
	Assets []asset.Asset `yaml:"assets"`
}

func defaultConfig() Config {
	var c Config
	c.Horizon.Network = "testnet"
	c.Horizon.PublicURL = "https://horizon.stellar.org"
	c.Horizon.TestnetURL = "https://horizon-testnet.stellar.org"
	c.Horizon.TimeoutSeconds = 10
	c.Horizon.MaxRequestsPerSecond = 10
	c.Horizon.Burst = 20
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Server.Addr = ":9090"
	c.Server.Pprof = false
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128"}
	c.Trading.BaseAsset = "XLM"
	c.Trading.DefaultAmount = "100"
	c.Trading.SlippageFactor = "0.999"
	c.Trading.DestMinTolerance = "0.005"
	c.Trading.RefreshIntervalSeconds = 15
	c.Trading.QuoteConcurrency = 8
	c.Assets = asset.Default()
	return c
}

// Load builds the configuration from defaults, an optional yaml file pointed
// at by ARB_CONFIG, and individual ARB_* environment overrides. Secrets come
// from the environment only.
func Load() Config {
	c := defaultConfig()
	if path := os.Getenv("ARB_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	if v := os.Getenv("ARB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ARB_LOG_PRETTY"); v == "1" || v == "true" {
		c.Logging.Pretty = true
	}
	if v := os.Getenv("ARB_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ARB_PPROF"); v == "1" || v == "true" {
		c.Server.Pprof = true
	}
	if v := os.Getenv("ARB_ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("ARB_NETWORK"); v == "public" || v == "testnet" {
		c.Horizon.Network = v
	}
	if v := os.Getenv("ARB_HORIZON_URL"); v != "" {
		// overrides whichever endpoint the selected network resolves to
		if c.Horizon.Network == "public" {
			c.Horizon.PublicURL = v
		} else {
			c.Horizon.TestnetURL = v
		}
	}
	if v := os.Getenv("ARB_BASE_ASSET"); v != "" {
		c.Trading.BaseAsset = v
	}
	if v := os.Getenv("ARB_DEFAULT_AMOUNT"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			c.Trading.DefaultAmount = v
		}
	}
	if v := os.Getenv("ARB_REFRESH_SECONDS"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Trading.RefreshIntervalSeconds = n
		}
	}
	if v := os.Getenv("ARB_QUOTE_CONCURRENCY"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Trading.QuoteConcurrency = n
		}
	}
	if v := os.Getenv("ARB_ACCOUNT"); v != "" {
		c.Trading.Account = v
	}
	if v := os.Getenv("ARB_SIGNING_SEED"); v != "" {
		c.Trading.SigningSeed = v
	}
	return c
}

// HorizonURL resolves the active Horizon endpoint for the selected network.
func (c Config) HorizonURL() string {
	if c.Horizon.Network == "public" {
		return c.Horizon.PublicURL
	}
	return c.Horizon.TestnetURL
}

func (c Config) HorizonTimeout() time.Duration {
	return time.Duration(c.Horizon.TimeoutSeconds) * time.Second
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Trading.RefreshIntervalSeconds) * time.Second
}

// SlippageFactor is the fee/execution-risk margin applied to the final leg,
// a fraction strictly below 1. Falls back to the default on a bad value.
func (c Config) SlippageFactor() decimal.Decimal {
	return parseFraction(c.Trading.SlippageFactor, "0.999")
}

// DestMinTolerance is the fractional discount applied to each leg's expected
// output when deriving its minimum acceptable output.
func (c Config) DestMinTolerance() decimal.Decimal {
	return parseFraction(c.Trading.DestMinTolerance, "0.005")
}

func (c Config) DefaultAmount() decimal.Decimal {
	d, err := decimal.NewFromString(c.Trading.DefaultAmount)
	if err != nil || !d.IsPositive() {
		return decimal.NewFromInt(100)
	}
	return d
}

func parseFraction(s, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.RequireFromString(fallback)
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
