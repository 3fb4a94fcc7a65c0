package model

// TokenMeta captures ERC20 metadata. Decimals is nil when it could not be read.
type TokenMeta struct {
	Address     string `json:"address"`
	Decimals    *uint8 `json:"decimals,omitempty"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	TotalSupply string `json:"total_supply,omitempty"`
}
