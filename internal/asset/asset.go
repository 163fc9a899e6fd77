package asset

import "fmt"

// NativeIssuer marks the network's native asset (XLM) in the catalog.
const NativeIssuer = "native"

// Asset identifies a tradable instrument on the network.
type Asset struct {
	Code   string `yaml:"code" json:"code"`
	Issuer string `yaml:"issuer" json:"issuer"`
	Name   string `yaml:"name" json:"name"`
}

// IsNative reports whether the asset is the network's native asset.
func (a Asset) IsNative() bool { return a.Issuer == NativeIssuer }

func (a Asset) String() string { return a.Code }

// Catalog is the curated, read-only set of tradable assets. It is loaded
// once at startup and never mutated afterwards.
type Catalog struct {
	assets []Asset
	byCode map[string]Asset
}

// NewCatalog builds a catalog from a curated list. Codes must be unique.
func NewCatalog(assets []Asset) (*Catalog, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("asset catalog is empty")
	}
	byCode := make(map[string]Asset, len(assets))
	for _, a := range assets {
		if a.Code == "" {
			return nil, fmt.Errorf("asset with empty code in catalog")
		}
		if a.Issuer == "" {
			return nil, fmt.Errorf("asset %s has no issuer", a.Code)
		}
		if _, dup := byCode[a.Code]; dup {
			return nil, fmt.Errorf("duplicate asset code %s in catalog", a.Code)
		}
		byCode[a.Code] = a
	}
	cp := make([]Asset, len(assets))
	copy(cp, assets)
	return &Catalog{assets: cp, byCode: byCode}, nil
}

// All returns the catalog assets in their curated order.
func (c *Catalog) All() []Asset {
	out := make([]Asset, len(c.assets))
	copy(out, c.assets)
	return out
}

// ByCode looks an asset up by its symbolic code.
func (c *Catalog) ByCode(code string) (Asset, bool) {
	a, ok := c.byCode[code]
	return a, ok
}

func (c *Catalog) Len() int { return len(c.assets) }

// Default is the curated discovery list shipped with the service. The
// issuers are well-known anchors on the public network.
func Default() []Asset {
	return []Asset{
		{Code: "XLM", Issuer: NativeIssuer, Name: "Lumen"},
		{Code: "USDC", Issuer: "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN", Name: "USD Coin"},
		{Code: "yXLM", Issuer: "GARDNV3Q7YGT4AKSDF25LT32YSCCW4EV22Y2TV3I2PU22MRDB28JCVMA", Name: "yXLM"},
		{Code: "BTC", Issuer: "GDPJALI4AZKUU2W426U5WKMAT6CN3AJRPIJMX55S43MXSICNEPXMMAOI", Name: "BTC"},
		{Code: "ETH", Issuer: "GBFX36K6YIPK42N6SBCM3T3D4G2T6N4B2QY4S2Y6M3A24O3S3M27T5F5", Name: "ETH"},
		{Code: "AQUA", Issuer: "GBNZILSTVQZ4R7IKQDPVEYD4BFCTPOZ6EFKZEV3V25BEGPONUO52OJMJ", Name: "Aquarius"},
		{Code: "yUSDC", Issuer: "GBCFCR2RO3SS2SP65Z32MTEBIYJPPYRO324T32YI3G4C22M3Y32K4TND", Name: "yUSDC"},
	}
}
