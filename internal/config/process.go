package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

// Mainnet addresses used as defaults.
const (
	MainnetVault = "0xBA12222222228d8Ba445958a75a0704d566BF2C8"

	mainnetWETH = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	mainnetWBTC = "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"
	mainnetUSDC = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	mainnetDAI  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	mainnetUSDT = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	mainnetBAL  = "0xba100000625a3754423978a60c9317c58a424e3D"
)

var defaultFactories = []string{
	"0x8E9aa87E45e92bad84D5F8DD1bff34Fb92637dE9=Weighted",
	"0xA5bf2ddF098bb0Ef6d120C98217dD6B141c74EE0=Weighted",
	"0xc66Ba2B6595D3613CCab350C886aCE23866EDe24=Stable",
	"0x67d27634E44793fE63c467035E31ea8635117cd4=MetaStable",
	"0x751A0bC0e3f75b38e01Cf25bFCE7fF36DE1C87DE=LiquidityBootstrapping",
	"0x48767F9F868a4A7b86A90736632F6E44C2df7fa9=Investment",
}

// ProcessConfig holds configuration for the process command.
type ProcessConfig struct {
	RPCURL              string
	Input               string
	PGDSN               string
	Cursor              string
	VaultID             string
	PricingAssets       []common.Address
	USDStables          []common.Address
	Factories           map[common.Address]string
	VariableWeightTypes []string
	MetricsAddr         string
	LogLevel            string
}

// LoadProcess merges config file, environment variables, and flags into ProcessConfig.
// Address lists keep their configured order.
func LoadProcess(cfgFile string, flags *pflag.FlagSet) (ProcessConfig, error) {
	v := newViper()

	v.SetDefault("pricing-assets", []string{mainnetWETH, mainnetWBTC, mainnetUSDC, mainnetDAI, mainnetUSDT, mainnetBAL})
	v.SetDefault("usd-stables", []string{mainnetUSDC, mainnetDAI, mainnetUSDT})
	v.SetDefault("factories", defaultFactories)
	v.SetDefault("variable-weight-types", []string{"LiquidityBootstrapping", "Investment"})
	v.SetDefault("vault-id", "2")
	v.SetDefault("cursor", "process")
	v.SetDefault("log-level", "info")

	if err := readInto(v, cfgFile, flags); err != nil {
		return ProcessConfig{}, err
	}

	pricingAssets, err := parseAddressList("pricing-assets", getStringSlice(v, "pricing-assets"))
	if err != nil {
		return ProcessConfig{}, err
	}
	stables, err := parseAddressList("usd-stables", getStringSlice(v, "usd-stables"))
	if err != nil {
		return ProcessConfig{}, err
	}
	if len(stables) == 0 {
		return ProcessConfig{}, fmt.Errorf("usd-stables must not be empty")
	}
	factories, err := parseFactories(getStringMap(v, "factories"))
	if err != nil {
		return ProcessConfig{}, err
	}

	cfg := ProcessConfig{
		RPCURL:              v.GetString("rpc"),
		Input:               v.GetString("in"),
		PGDSN:               v.GetString("pg-dsn"),
		Cursor:              v.GetString("cursor"),
		VaultID:             v.GetString("vault-id"),
		PricingAssets:       pricingAssets,
		USDStables:          stables,
		Factories:           factories,
		VariableWeightTypes: getStringSlice(v, "variable-weight-types"),
		MetricsAddr:         v.GetString("metrics-addr"),
		LogLevel:            v.GetString("log-level"),
	}

	return cfg, nil
}

func parseAddressList(key string, inputs []string) ([]common.Address, error) {
	out, err := ParseAddresses(inputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}

func parseFactories(raw map[string]string) (map[common.Address]string, error) {
	out := make(map[common.Address]string, len(raw))
	for addr, poolType := range raw {
		addr = strings.TrimSpace(addr)
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("factories: invalid address %q", addr)
		}
		out[common.HexToAddress(addr)] = strings.TrimSpace(poolType)
	}
	return out, nil
}
