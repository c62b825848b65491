package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"metachain-devtest/chain"
	"metachain-devtest/node"
)

const (
	EnvPrefix         = "DEVNODE"
	DefaultBinaryPath = "../target/release/frontier-template-node"
)

type Config struct {
	BinaryPath   string        `mapstructure:"binary_path" yaml:"binary_path"`
	NodeName     string        `mapstructure:"node_name" yaml:"node_name"`
	Wasm         bool          `mapstructure:"wasm" yaml:"wasm"`
	RPCPort      int           `mapstructure:"rpc_port" yaml:"rpc_port"`
	WSPort       int           `mapstructure:"ws_port" yaml:"ws_port"`
	P2PPort      int           `mapstructure:"p2p_port" yaml:"p2p_port"`
	SpawningTime time.Duration `mapstructure:"spawning_time" yaml:"spawning_time"`
	DisplayLog   bool          `mapstructure:"display_log" yaml:"display_log"`
	FrontierLog  string        `mapstructure:"frontier_log" yaml:"frontier_log"`

	Docker      bool   `mapstructure:"docker" yaml:"docker"`
	DockerImage string `mapstructure:"docker_image" yaml:"docker_image"`
	Network     string `mapstructure:"network" yaml:"network"`

	EthTxType string `mapstructure:"eth_tx_type" yaml:"eth_tx_type"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
}

var defaults = map[string]interface{}{
	"binary_path":   DefaultBinaryPath,
	"node_name":     node.DefaultName,
	"wasm":          false,
	"rpc_port":      node.DefaultRPCPort,
	"ws_port":       node.DefaultWSPort,
	"p2p_port":      node.DefaultP2PPort,
	"spawning_time": node.DefaultSpawningTime,
	"display_log":   false,
	"frontier_log":  "",
	"docker":        false,
	"docker_image":  node.DefaultImage,
	"network":       string(node.Testnet),
	"eth_tx_type":   string(chain.TxLegacy),
	"log_level":     "info",
}

// legacy environment variable names accepted next to DEVNODE_*
var aliases = map[string]string{
	"binary_path":  "BINARY_PATH",
	"frontier_log": "FRONTIER_LOG",
	"docker_image": "METACHAIN_DOCKER_IMAGE",
}

// Load layers defaults, the optional yaml file at path, environment variables and flags
// (flag "rpc-port" sets key "rpc_port"), later layers winning.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for key, alias := range aliases {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), alias); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := defaults[key]; ok && bindErr == nil {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if cfg.FrontierLog != "" {
		cfg.DisplayLog = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := chain.ParseEthTransactionType(c.EthTxType); err != nil {
		return err
	}
	switch node.Network(c.Network) {
	case node.Mainnet, node.Testnet:
	default:
		return errors.Errorf("unknown network %q", c.Network)
	}
	if !c.Docker && c.BinaryPath == "" {
		return errors.New("binary_path is required unless docker is set")
	}
	if c.SpawningTime <= 0 {
		return errors.Errorf("spawning_time must be positive, got %s", c.SpawningTime)
	}
	return nil
}

func (c *Config) NodeOptions() node.Options {
	opts := node.Options{
		BinaryPath:   c.BinaryPath,
		Name:         c.NodeName,
		Wasm:         c.Wasm,
		RPCPort:      c.RPCPort,
		WSPort:       c.WSPort,
		P2PPort:      c.P2PPort,
		SpawningTime: c.SpawningTime,
		DisplayLog:   c.DisplayLog,
	}
	if c.FrontierLog != "" && c.FrontierLog != "true" && c.FrontierLog != "1" {
		opts.ExtraArgs = append(opts.ExtraArgs, "-l"+c.FrontierLog)
	}
	return opts
}

func (c *Config) ContainerOptions() node.ContainerOptions {
	return node.ContainerOptions{
		Image:          c.DockerImage,
		Network:        node.Network(c.Network),
		StartupTimeout: c.SpawningTime,
	}
}

// Launcher picks the container or the local binary.
func (c *Config) Launcher() node.Launcher {
	if c.Docker {
		return c.ContainerOptions()
	}
	return c.NodeOptions()
}

func (c *Config) TxType() chain.EthTransactionType {
	t, _ := chain.ParseEthTransactionType(c.EthTxType)
	return t
}
