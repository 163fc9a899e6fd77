package arbitrage

import (
	"strings"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
)

// Cycle is an ordered round trip base -> mid1 -> mid2 -> base. The two
// intermediate assets are distinct and neither equals the base.
type Cycle struct {
	Base asset.Asset
	Mid1 asset.Asset
	Mid2 asset.Asset
}

// Key is the cycle's identity: the ordered code sequence of its assets.
// Two opportunities refer to the same path iff their keys are equal.
func (c Cycle) Key() string {
	return strings.Join([]string{c.Base.Code, c.Mid1.Code, c.Mid2.Code}, ">")
}

// Path returns the assets in trade order.
func (c Cycle) Path() [3]asset.Asset {
	return [3]asset.Asset{c.Base, c.Mid1, c.Mid2}
}

// Cycles enumerates every candidate cycle starting and ending at base with
// two distinct, non-base intermediates drawn from the universe, in catalog
// order. For a universe of n assets including the base the result has
// (n-1)(n-2) entries. Fewer than three assets yields an empty result.
func Cycles(base asset.Asset, universe []asset.Asset) []Cycle {
	others := make([]asset.Asset, 0, len(universe))
	for _, a := range universe {
		if a.Code != base.Code {
			others = append(others, a)
		}
	}
	if len(others) < 2 {
		return nil
	}
	out := make([]Cycle, 0, len(others)*(len(others)-1))
	for _, m1 := range others {
		for _, m2 := range others {
			if m1.Code == m2.Code {
				continue
			}
			out = append(out, Cycle{Base: base, Mid1: m1, Mid2: m2})
		}
	}
	return out
}
