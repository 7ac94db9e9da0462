package aave

// Asset is a reserve tracked on one chain.
type Asset struct {
	Symbol  string
	Address string
}

// Chain describes where the Aave v3 pool of a network lives.
type Chain struct {
	Name        string
	PoolAddress string
	Assets      []Asset
}

const (
	Ethereum = "ETHEREUM"
	Polygon  = "POLYGON"
	Optimism = "OPTIMISM"
	Arbitrum = "ARBITRUM"
)

const l2Pool = "0x794a61358D6845594F94dc1DB02A252b5b4814aD"

// ChainNames lists the supported networks in indexing order.
var ChainNames = []string{Ethereum, Polygon, Optimism, Arbitrum}

var defaultChains = map[string]Chain{
	Ethereum: {
		Name:        Ethereum,
		PoolAddress: "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2",
		Assets: []Asset{
			{"USDC", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
			{"USDT", "0xdAC17F958D2ee523a2206206994597C13D831ec7"},
			{"USDE", "0x4c9EDD5852cd905f086C759E8383e09bff1E68B3"},
			{"crvUSD", "0xf939E0A03FB07F59A73314E73794Be0E57ac1b4E"},
		},
	},
	Polygon: {
		Name:        Polygon,
		PoolAddress: l2Pool,
		Assets: []Asset{
			{"USDC", "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"},
			{"USDT", "0xc2132D05D31c914a87C6611C10748AEb04B58e8F"},
		},
	},
	Optimism: {
		Name:        Optimism,
		PoolAddress: l2Pool,
		Assets: []Asset{
			{"USDC", "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"},
			{"USDT", "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58"},
		},
	},
	Arbitrum: {
		Name:        Arbitrum,
		PoolAddress: l2Pool,
		Assets: []Asset{
			{"USDC", "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"},
			{"USDT", "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"},
		},
	},
}

// DefaultChain returns the built-in table for name. poolOverride replaces
// the pool address when set.
func DefaultChain(name, poolOverride string) (Chain, bool) {
	c, ok := defaultChains[name]
	if !ok {
		return Chain{}, false
	}
	c.Assets = append([]Asset(nil), c.Assets...)
	if poolOverride != "" {
		c.PoolAddress = poolOverride
	}
	return c, true
}
