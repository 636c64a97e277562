// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/redgold-io/redgold-core/internal/cfgutil"
	"github.com/redgold-io/redgold-core/peerstore"
	"github.com/redgold-io/redgold-core/schema"
)

const (
	defaultConfigFilename = "redgoldd.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultDBFilename     = "peers.db"
	defaultPollInterval   = time.Minute

	// defaultPeerPort is the default port appended to seed addresses
	// given without one.
	defaultPeerPort = "16180"
)

var (
	defaultHomeDir    = appDataDir("redgold")
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = defaultHomeDir
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// Config holds the daemon's runtime options, populated from defaults,
// then the config file, then command line flags, in increasing
// precedence.
type Config struct {
	// General application behavior
	ConfigFile  *cfgutil.ExplicitString `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion bool                    `short:"V" long:"version" description:"Display version information and exit"`
	DataDir     string                  `short:"b" long:"datadir" description:"Directory to store the peer database"`
	TestNet     bool                    `long:"testnet" description:"Use the test network (default mainnet)"`
	DevNet      bool                    `long:"devnet" description:"Use the development network (default mainnet)"`
	LocalNet    bool                    `long:"localnet" description:"Use the local simulation network (default mainnet)"`
	DebugLevel  string                  `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	LogDir      string                  `long:"logdir" description:"Directory to log output"`

	// Peer store options
	DBPath         string        `long:"dbpath" description:"SQLite database path for the peer store"`
	PostgresDSN    string        `long:"postgresdsn" default-mask:"-" description:"Back the peer store with PostgreSQL instead of SQLite"`
	LivenessWindow time.Duration `long:"livenesswindow" description:"How long a node stays active without being seen"`
	Seeds          []string      `long:"seed" description:"Seed node address (host or host:port); may be specified multiple times"`

	// Market options
	PriceFeedURL  string        `long:"pricefeed" description:"Base URL of the spot price oracle"`
	PollInterval  time.Duration `long:"pollinterval" description:"Interval between oracle polls and price recalculations"`
	PriceFloorUsd float64       `long:"pricefloorusd" description:"Floor for the implied USD base price used in quoting (0 uses the built-in default)"`
	BidSpread     float64       `long:"bidspread" description:"Bid scale factor over the minimum ask (0 uses the built-in default)"`
}

// Network returns the network environment selected by the config
// flags.
func (c *Config) Network() schema.Network {
	switch {
	case c.TestNet:
		return schema.NetworkTest
	case c.DevNet:
		return schema.NetworkDev
	case c.LocalNet:
		return schema.NetworkLocal
	default:
		return schema.NetworkMain
	}
}

// appDataDir returns a per-user application directory for the given
// app name.
func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

// cleanAndExpandPath expands environment variables and leading ~ in
// the passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		path = strings.Replace(path, "~", filepath.Dir(defaultHomeDir), 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// ValidLogLevel returns whether or not logLevel is a valid debug log
// level.
func ValidLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}

// Load initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func Load(appName, version string) (*Config, []string, error) {
	cfg := Config{
		ConfigFile:     cfgutil.NewExplicitString(defaultConfigFile),
		DataDir:        defaultDataDir,
		DebugLevel:     defaultLogLevel,
		LogDir:         defaultLogDir,
		LivenessWindow: peerstore.DefaultLivenessWindow,
		PollInterval:   defaultPollInterval,
	}

	// A config file in the current directory takes precedence.
	exists, err := cfgutil.FileExists(defaultConfigFilename)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if exists {
		cfg.ConfigFile.Value = defaultConfigFilename
	}

	// Pre-parse the command line options to see if an alternative
	// config file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err = preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default)
	configFilePath := cleanAndExpandPath(preCfg.ConfigFile.Value)
	err = flags.NewIniParser(parser).ParseFile(configFilePath)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
		// Only error out when an explicitly provided config file
		// cannot be read.
		if preCfg.ConfigFile.ExplicitlySet() {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take
	// precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}
	if configFileError != nil {
		fmt.Fprintf(os.Stderr, "%v\n", configFileError)
	}

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	for _, set := range []bool{cfg.TestNet, cfg.DevNet, cfg.LocalNet} {
		if set {
			numNets++
		}
	}
	if numNets > 1 {
		err := fmt.Errorf("%s: the testnet, devnet, and localnet "+
			"params can't be used together -- choose one", "Load")
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Namespace data and logs per network.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.DataDir = filepath.Join(cfg.DataDir, cfg.Network().String())
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, cfg.Network().String())

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, defaultDBFilename)
	} else {
		cfg.DBPath = cleanAndExpandPath(cfg.DBPath)
	}

	if cfg.LivenessWindow <= 0 {
		err := fmt.Errorf("%s: livenesswindow must be positive", "Load")
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if cfg.PollInterval <= 0 {
		err := fmt.Errorf("%s: pollinterval must be positive", "Load")
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Add the default peer port to seed addresses if needed and
	// remove duplicates.
	cfg.Seeds, err = cfgutil.NormalizeAddresses(cfg.Seeds, defaultPeerPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid seed address: %v\n", err)
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}
