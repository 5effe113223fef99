package schema

import (
	"gorm.io/datatypes"
)

type NetworkConfig struct {
	ChainId               int64          `gorm:"primarykey" json:"chainId"`
	Name                  string         `json:"name"`
	RpcUrls               datatypes.JSON `json:"rpcUrls"` // json array, first healthy used
	RequiredConfirmations uint64         `json:"requiredConfirmations"`
	NativeSymbol          string         `json:"nativeSymbol"`
}

type TokenConfig struct {
	Symbol          string `gorm:"primarykey" json:"symbol"`
	Decimals        int    `json:"decimals"`
	IsNative        bool   `json:"isNative"`
	ContractAddress string `json:"contractAddress"` // present iff !IsNative
	Tolerance       string `json:"tolerance"`       // decimal string, human units; "" means exact match
}
