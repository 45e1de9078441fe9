package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// VaultDeployBlock is the mainnet block the vault was deployed in. Earlier
// blocks hold no vault events.
const VaultDeployBlock uint64 = 12272146

// Config holds the settings of the run command, loaded from flags, env, or
// config file.
type Config struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	Addresses         []common.Address
	Topic0            []common.Hash
	BatchSize         uint64
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	ResolveSenders    bool
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
// An empty Topic0 means no topic filter was configured.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()

	v.SetDefault("from", VaultDeployBlock)
	v.SetDefault("address", []string{MainnetVault})
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("out", "./data/logs.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("resolve-senders", true)
	v.SetDefault("log-level", "info")

	if err := readInto(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	addresses, err := ParseAddresses(getStringSlice(v, "address"))
	if err != nil {
		return Config{}, fmt.Errorf("address: %w", err)
	}
	topic0, err := ParseTopic0(getStringSlice(v, "topic0"))
	if err != nil {
		return Config{}, fmt.Errorf("topic0: %w", err)
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Addresses:         addresses,
		Topic0:            topic0,
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		ResolveSenders:    v.GetBool("resolve-senders"),
		LogLevel:          v.GetString("log-level"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(c.Addresses) == 0 {
		return fmt.Errorf("address list is required")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("batch-size must be greater than zero")
	}
	if c.ToBlock != 0 && c.ToBlock < c.FromBlock {
		return fmt.Errorf("to block %d is before from block %d", c.ToBlock, c.FromBlock)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// readInto binds flags and reads the config file, if any. Without an
// explicit path a missing ./config.yaml is not an error.
func readInto(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
