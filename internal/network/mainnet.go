package network

import "github.com/shopspring/decimal"

const (
	mainnetWETH    = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	mainnetDAI     = "0x6b175474e89094c44da98b954eedeac495271d0f"
	mainnetUSDC    = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	mainnetUSDT    = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	mainnetTUSD    = "0x0000000000085d4780b73119b644ae5ecd22b376"
	mainnetWBTC    = "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"
	mainnetFactory = "0x1f98431c8ad98523631ae4a59f267346ea31f984"
	// USDC/WETH 0.05%
	mainnetUSDCWETHPool = "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640"
)

// MinimumNativeLocked is the default liquidity floor for price discovery.
var MinimumNativeLocked = decimal.NewFromInt(60)

// Mainnet returns the Ethereum mainnet configuration.
func Mainnet() Config {
	return Config{
		ChainID:              1,
		FactoryAddress:       mainnetFactory,
		WrappedNativeAddress: mainnetWETH,
		StablecoinAddresses: []string{
			mainnetDAI,
			mainnetUSDC,
			mainnetUSDT,
			mainnetTUSD,
			"0x956f47f50a910163d8bf957cf5846d573e7f87ca",
			"0x4dd28568d05f09b02220b09c2cb307bfd837cb95",
		},
		WhitelistTokens: []string{
			mainnetWETH,
			mainnetDAI,
			mainnetUSDC,
			mainnetUSDT,
			mainnetTUSD,
			mainnetWBTC,
		},
		MinimumNativeLocked:                MinimumNativeLocked,
		StablecoinWrappedNativePoolAddress: mainnetUSDCWETHPool,
		StablecoinIsToken0:                 true,
	}
}

// Defaults returns the built-in registry.
func Defaults() Registry {
	return Registry{1: Mainnet()}
}
