/*

Asset registry loading. The registry ships with a built-in mainnet set and
can be overridden with a YAML file via ASSET_REGISTRY_PATH:

  assets:
    - symbol: USDC
      coin_type: "0xdba3...::usdc::USDC"
      decimals: 6
      stable: true

*/

package config

import (
	"fmt"
	"os"

	"github.com/Jarekkkkk/sui-bot/internal/types"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// registryFile is the YAML document shape for an asset registry override.
type registryFile struct {
	Assets []types.Asset `yaml:"assets"`
}

// mainnetAssets is the default registry. Symbols follow the upstream
// listings; the stable flag drives hedge classification.
var mainnetAssets = []types.Asset{
	{Symbol: "SUI", CoinType: "0x2::sui::SUI", Decimals: 9, Stable: false},
	{Symbol: "afSUI", CoinType: "0xf325ce7b3f1f965f3d2a521ff58a0f3f7046fb04552c4d2a60b7566cbcf1feb4::afsui::AFSUI", Decimals: 9, Stable: false},
	{Symbol: "haSUI", CoinType: "0xbde4ba4c2e274a60ce15c1cfff9e5c42e41654ac8b6d906a57efa4bd3c29f47d::hasui::HASUI", Decimals: 9, Stable: false},
	{Symbol: "vSUI", CoinType: "0x549e8b69270defbfafd4f94e17ec44cdbdd99820b33bda2278dea3b9a32d3f55::cert::CERT", Decimals: 9, Stable: false},
	{Symbol: "sSUI", CoinType: "0x83556891f4a0f233ce7b05cfe7f957d4020492a34f5405b2cb9377d060bef4bf::spring_sui::SPRING_SUI", Decimals: 9, Stable: false},
	{Symbol: "ETH", CoinType: "0xd0e89b2af5e4910726fbcd8b8dd37bb79b29e5f83f7491bca830e94f7f226d29::eth::ETH", Decimals: 8, Stable: false},
	{Symbol: "USDC", CoinType: "0xdba34672e30cb065b1f93e3ab55318768fd6fef66c15942c9f7cb846e2f900e7::usdc::USDC", Decimals: 6, Stable: true},
	{Symbol: "wUSDT", CoinType: "0xc060006111016b8a020ad5b33834984a437aaa7d3c74c18e09a95d48aceab08c::coin::COIN", Decimals: 6, Stable: true},
	{Symbol: "USDY", CoinType: "0x960b531667636f39e85867775f52f6b1f220a058c4de786905bdf761e06a56bb::usdy::USDY", Decimals: 6, Stable: true},
	{Symbol: "AUSD", CoinType: "0x2053d08c1e2bd02791056171aab0fd12bd7cd7efad2ab8f6b9c8902f14df2ff2::ausd::AUSD", Decimals: 6, Stable: true},
	{Symbol: "FDUSD", CoinType: "0xf16e6b723f242ec745dfd7634ad072c42d5c1d9ac9d62a39c381303eaa57693a::fdusd::FDUSD", Decimals: 6, Stable: true},
	{Symbol: "BUCK", CoinType: "0xce7ff77a83ea0cb6fd39bd8748e2ec89a3f41e8efdc3f4eb123e0ca37b184db2::buck::BUCK", Decimals: 9, Stable: true},
}

// LoadAssetRegistry returns the asset registry, preferring a YAML override
// when ASSET_REGISTRY_PATH is set.
func LoadAssetRegistry() (*types.AssetRegistry, error) {
	path := os.Getenv("ASSET_REGISTRY_PATH")
	if path == "" {
		log.Debug().Int("assets", len(mainnetAssets)).Msg("Using built-in mainnet asset registry")
		return types.NewAssetRegistry(mainnetAssets)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset registry %s: %w", path, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse asset registry %s: %w", path, err)
	}
	if len(file.Assets) == 0 {
		return nil, fmt.Errorf("asset registry %s declares no assets", path)
	}

	log.Info().Str("path", path).Int("assets", len(file.Assets)).Msg("Loaded asset registry override")
	return types.NewAssetRegistry(file.Assets)
}
