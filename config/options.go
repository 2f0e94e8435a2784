package config

import (
	"strings"

	flags "github.com/jessevdk/go-flags"
)

// Options параметры командной строки, самый высокий приоритет
type Options struct {
	ConfigFile   string   `short:"c" long:"config" description:"Path to config file (.yaml or .toml)" default:"config.yaml"`
	EnvFile      string   `long:"envfile" description:"Path to .env file" default:".env"`
	Env          string   `long:"env" description:"Environment {production, debug}"`
	LogFile      string   `long:"logfile" description:"Log file path"`
	TCPPort      int      `long:"tcpport" description:"Plain TCP listening port, 0 disables" default:"-1"`
	TLSPort      int      `long:"tlsport" description:"TLS listening port, 0 disables" default:"-1"`
	EncryptPort  int      `long:"encryptport" description:"Encrypted listening port, 0 disables" default:"-1"`
	Pools        []string `long:"pool" description:"Upstream pool address (tcp://host:port or tls://host:port), may be repeated"`
	Socks5       string   `long:"socks5" description:"SOCKS5 proxy for upstream connections"`
	FeeRate      float64  `long:"feerate" description:"Proxy fee rate in [0,1]" default:"-1"`
	FeeAlgorithm string   `long:"feealgorithm" description:"Proxy fee algorithm {deterministic, probabilistic}"`
	ShowVersion  bool     `short:"V" long:"version" description:"Display version information and exit"`
}

// ParseOptions разбор аргументов командной строки
func ParseOptions(args []string) (Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// ApplyOptions переопределение значений конфига заданными параметрами командной строки.
// Отрицательные порт и ставка означают, что параметр не задан.
func (c *Config) ApplyOptions(opts Options) error {
	if opts.Env != "" {
		c.App.Env = opts.Env
	}
	if opts.LogFile != "" {
		c.Log.File = opts.LogFile
	}
	if opts.TCPPort >= 0 {
		c.Proxy.TCPPort = opts.TCPPort
	}
	if opts.TLSPort >= 0 {
		c.Proxy.TLSPort = opts.TLSPort
	}
	if opts.EncryptPort >= 0 {
		c.Proxy.EncryptPort = opts.EncryptPort
	}
	if len(opts.Pools) > 0 {
		pools := make([]string, 0, len(opts.Pools))
		for _, p := range opts.Pools {
			pools = append(pools, strings.Split(p, ",")...)
		}
		c.Pool.Addresses = pools
	}
	if opts.Socks5 != "" {
		c.Pool.Socks5 = opts.Socks5
	}
	if opts.FeeRate >= 0 {
		c.Fee.Rate = opts.FeeRate
	}
	if opts.FeeAlgorithm != "" {
		c.Fee.Algorithm = opts.FeeAlgorithm
	}

	return c.Validate()
}
