package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	In       string
	Out      string
	Errors   string
	LogLevel string
	// Topic0Map maps lowercase topic0 hex to an event name.
	Topic0Map map[string]string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v := newViper()

	v.SetDefault("out", "./data/typed_events.jsonl")
	v.SetDefault("errors", "./data/decode_errors.jsonl")
	v.SetDefault("log-level", "info")

	if err := readInto(v, cfgFile, flags); err != nil {
		return DecodeConfig{}, err
	}

	aliases, err := parseTopicAliases(getStringMap(v, "topic0-map"))
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		In:        v.GetString("in"),
		Out:       v.GetString("out"),
		Errors:    v.GetString("errors"),
		LogLevel:  v.GetString("log-level"),
		Topic0Map: aliases,
	}
	switch {
	case cfg.In == "":
		return DecodeConfig{}, fmt.Errorf("input path is required")
	case cfg.Out == "":
		return DecodeConfig{}, fmt.Errorf("output path is required")
	case cfg.Errors == "":
		return DecodeConfig{}, fmt.Errorf("errors path is required")
	case cfg.In == cfg.Out:
		return DecodeConfig{}, fmt.Errorf("input and output must differ")
	}

	return cfg, nil
}

func parseTopicAliases(raw map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for key, name := range raw {
		topic, err := parseTopicHex(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("topic0-map: %w", err)
		}
		out[strings.ToLower(topic.Hex())] = name
	}
	return out, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
