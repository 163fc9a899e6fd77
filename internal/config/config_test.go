package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaults(t *testing.T) {
	c := Load()
	if c.Horizon.Network != "testnet" {
		t.Fatalf("default network must be testnet, got %s", c.Horizon.Network)
	}
	if c.HorizonURL() != "https://horizon-testnet.stellar.org" {
		t.Fatalf("unexpected default horizon url %s", c.HorizonURL())
	}
	if c.Server.Addr != ":9090" {
		t.Fatalf("unexpected default addr %s", c.Server.Addr)
	}
	if c.Trading.BaseAsset != "XLM" {
		t.Fatalf("unexpected default base asset %s", c.Trading.BaseAsset)
	}
	if !c.DefaultAmount().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected default amount %s", c.DefaultAmount())
	}
	if !c.SlippageFactor().Equal(decimal.RequireFromString("0.999")) {
		t.Fatalf("unexpected default slippage %s", c.SlippageFactor())
	}
	if len(c.Assets) == 0 {
		t.Fatalf("default asset catalog must not be empty")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARB_NETWORK", "public")
	t.Setenv("ARB_HTTP_ADDR", ":8123")
	t.Setenv("ARB_BASE_ASSET", "USDC")
	t.Setenv("ARB_DEFAULT_AMOUNT", "250.5")
	t.Setenv("ARB_REFRESH_SECONDS", "30")
	t.Setenv("ARB_QUOTE_CONCURRENCY", "3")
	t.Setenv("ARB_ACCOUNT", "GBOVERRIDE")
	t.Setenv("ARB_ADMIN_ALLOW_CIDRS", "10.0.0.0/8, 192.168.0.0/16")

	c := Load()
	if c.Horizon.Network != "public" {
		t.Fatalf("network override ignored")
	}
	if c.HorizonURL() != "https://horizon.stellar.org" {
		t.Fatalf("public network must resolve the public endpoint, got %s", c.HorizonURL())
	}
	if c.Server.Addr != ":8123" {
		t.Fatalf("addr override ignored")
	}
	if c.Trading.BaseAsset != "USDC" {
		t.Fatalf("base asset override ignored")
	}
	if !c.DefaultAmount().Equal(decimal.RequireFromString("250.5")) {
		t.Fatalf("amount override ignored: %s", c.DefaultAmount())
	}
	if c.Trading.RefreshIntervalSeconds != 30 || c.Trading.QuoteConcurrency != 3 {
		t.Fatalf("numeric overrides ignored: %+v", c.Trading)
	}
	if c.Trading.Account != "GBOVERRIDE" {
		t.Fatalf("account override ignored")
	}
	if len(c.Server.AdminAllowCIDRs) != 2 || c.Server.AdminAllowCIDRs[1] != "192.168.0.0/16" {
		t.Fatalf("cidr override parsed wrong: %v", c.Server.AdminAllowCIDRs)
	}
}

func TestHorizonURLOverrideTracksNetwork(t *testing.T) {
	t.Setenv("ARB_NETWORK", "testnet")
	t.Setenv("ARB_HORIZON_URL", "http://localhost:8000")
	c := Load()
	if c.HorizonURL() != "http://localhost:8000" {
		t.Fatalf("horizon url override ignored: %s", c.HorizonURL())
	}
	if c.Horizon.PublicURL != "https://horizon.stellar.org" {
		t.Fatalf("override must not touch the inactive endpoint")
	}
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("ARB_DEFAULT_AMOUNT", "-5")
	t.Setenv("ARB_REFRESH_SECONDS", "zero")
	c := Load()
	if !c.DefaultAmount().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("negative amount must fall back to the default, got %s", c.DefaultAmount())
	}
	if c.Trading.RefreshIntervalSeconds != 15 {
		t.Fatalf("unparsable refresh seconds must keep the default, got %d", c.Trading.RefreshIntervalSeconds)
	}
}

func TestYamlFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
horizon:
  network: public
trading:
  base_asset: AQUA
  slippage_factor: "0.995"
assets:
  - code: XLM
    issuer: native
    name: Lumen
  - code: AQUA
    issuer: GBNZILSTVQZ4R7IKQDPVEYD4BFCTPOZ6EFKZEV3V25BEGPONUO52OJMJ
    name: Aquarius
  - code: USDC
    issuer: GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN
    name: USD Coin
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ARB_CONFIG", path)

	c := Load()
	if c.Horizon.Network != "public" {
		t.Fatalf("yaml network ignored")
	}
	if c.Trading.BaseAsset != "AQUA" {
		t.Fatalf("yaml base asset ignored")
	}
	if !c.SlippageFactor().Equal(decimal.RequireFromString("0.995")) {
		t.Fatalf("yaml slippage ignored: %s", c.SlippageFactor())
	}
	if len(c.Assets) != 3 || c.Assets[1].Code != "AQUA" {
		t.Fatalf("yaml asset list ignored: %+v", c.Assets)
	}
}

func TestSigningSeedNeverFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("trading:\n  signing_seed: SSHOULDBEIGNORED\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ARB_CONFIG", path)

	if c := Load(); c.Trading.SigningSeed != "" {
		t.Fatalf("signing seed must not be readable from a config file")
	}
	t.Setenv("ARB_SIGNING_SEED", "SFROMENV")
	if c := Load(); c.Trading.SigningSeed != "SFROMENV" {
		t.Fatalf("signing seed env override ignored")
	}
}

func TestParseFractionBounds(t *testing.T) {
	for _, bad := range []string{"", "abc", "0", "1", "1.5", "-0.1"} {
		if got := parseFraction(bad, "0.5"); !got.Equal(decimal.RequireFromString("0.5")) {
			t.Fatalf("%q: expected fallback, got %s", bad, got)
		}
	}
	if got := parseFraction("0.25", "0.5"); !got.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("valid fraction rejected: %s", got)
	}
}
