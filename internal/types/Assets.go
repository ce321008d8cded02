/*

Asset registry types. Every coin the bot can touch is declared here with its
on-chain struct tag, symbol and base-unit decimals. The stable set drives
hedge classification.

*/

package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAsset     = errors.New("asset not present in registry")
	ErrDuplicateAsset   = errors.New("asset registered twice")
	ErrInvalidDecimals  = errors.New("asset decimals out of range")
	ErrEmptyStableSet   = errors.New("registry has no stable assets")
	ErrInvalidCoinType  = errors.New("coin type tag is malformed")
)

// Asset describes a single coin supported by the bot.
type Asset struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	CoinType string `yaml:"coin_type" json:"coin_type"`
	Decimals int    `yaml:"decimals" json:"decimals"`
	Stable   bool   `yaml:"stable" json:"stable"`
}

// AssetRegistry maps coin types to assets. Immutable after construction.
type AssetRegistry struct {
	byType   map[string]Asset
	bySymbol map[string]Asset
}

// NewAssetRegistry validates and indexes the given assets.
func NewAssetRegistry(assets []Asset) (*AssetRegistry, error) {
	r := &AssetRegistry{
		byType:   make(map[string]Asset, len(assets)),
		bySymbol: make(map[string]Asset, len(assets)),
	}
	stables := 0
	for _, a := range assets {
		if a.Decimals < 0 || a.Decimals > 18 {
			return nil, fmt.Errorf("%w: %s has %d decimals", ErrInvalidDecimals, a.Symbol, a.Decimals)
		}
		if !strings.Contains(a.CoinType, "::") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCoinType, a.CoinType)
		}
		if _, ok := r.byType[a.CoinType]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAsset, a.CoinType)
		}
		r.byType[a.CoinType] = a
		r.bySymbol[a.Symbol] = a
		if a.Stable {
			stables++
		}
	}
	if stables == 0 {
		return nil, ErrEmptyStableSet
	}
	return r, nil
}

// ByCoinType returns the asset registered for the given coin type.
func (r *AssetRegistry) ByCoinType(coinType string) (Asset, error) {
	a, ok := r.byType[coinType]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, coinType)
	}
	return a, nil
}

// BySymbol returns the asset registered under the given symbol.
func (r *AssetRegistry) BySymbol(symbol string) (Asset, error) {
	a, ok := r.bySymbol[symbol]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return a, nil
}

// IsStable reports whether the coin type is a registered stable asset.
// Unknown coin types are not stable.
func (r *AssetRegistry) IsStable(coinType string) bool {
	a, ok := r.byType[coinType]
	return ok && a.Stable
}

// Decimals returns the base-unit decimals for the coin type.
func (r *AssetRegistry) Decimals(coinType string) (int, error) {
	a, err := r.ByCoinType(coinType)
	if err != nil {
		return 0, err
	}
	return a.Decimals, nil
}
