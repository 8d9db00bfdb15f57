package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws"
)

const (
	defaultConfigFilename  = "lws-scanner.conf"
	defaultDataDirname     = "data"
	defaultLogLevel        = "info"
	defaultLogDirname      = "logs"
	defaultLogFilename     = "lws-scanner.log"
	defaultDBFilename      = "lws-scanner.db"
	defaultDaemonRPC       = "ws://127.0.0.1:18082/peer"
	defaultScanThreads     = 1
	defaultCreateQueueMax  = 10000
	defaultRetentionBlocks = 100
	defaultNetwork         = "mainnet"
)

var (
	defaultHomeDir    = currentDir()
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

func currentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

// config holds every value lws-scanner needs to drive a Supervisor,
// parsed from the command line (and, if given, a config file) by
// go-flags.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion bool  `short:"V" long:"version" description:"Display version information and exit"`

	DataDir string `short:"b" long:"datadir" description:"Directory to store the scan database"`
	DBFile  string `long:"dbfile" description:"Database file name, relative to datadir unless absolute"`

	DaemonRPC   string `long:"daemon" description:"<protocol>://<address>:<port>/peer of a daemon's peer RPC"`
	Network     string `long:"network" description:"Network to scan: mainnet, testnet, or stagenet"`
	GenesisHash string `long:"genesishash" description:"Hex-encoded expected block-0 hash; chain sync rejects a peer that disagrees. Empty skips the check"`

	ScanThreads     int    `long:"scanthreads" description:"Maximum number of scan worker goroutines"`
	CreateQueueMax  int    `long:"createqueuemax" description:"Maximum number of pending account-creation requests"`
	RetentionBlocks uint64 `long:"retentionblocks" description:"Number of recent blocks to keep hashes for reorg detection"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
}

func defaultConfig() config {
	return config{
		ConfigFile:      defaultConfigFile,
		DataDir:         defaultDataDir,
		DBFile:          defaultDBFilename,
		DaemonRPC:       defaultDaemonRPC,
		Network:         defaultNetwork,
		ScanThreads:     defaultScanThreads,
		CreateQueueMax:  defaultCreateQueueMax,
		RetentionBlocks: defaultRetentionBlocks,
		DebugLevel:      defaultLogLevel,
		LogDir:          defaultLogDir,
	}
}

// loadConfig parses command line flags, pre-parsing -C/--configfile
// first so a config file's values can be layered underneath the rest
// of the flags, then initializes logging and returns the merged config.
func loadConfig() (*config, []string, error) {
	cfg := defaultConfig()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}

	if preCfg.ShowVersion {
		fmt.Println("lws-scanner", version())
		os.Exit(0)
	}

	if preCfg.ConfigFile != defaultConfigFile {
		cfg.ConfigFile = preCfg.ConfigFile
	}
	if _, statErr := os.Stat(cfg.ConfigFile); statErr == nil {
		parser := flags.NewParser(&cfg, flags.Default)
		if err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile); err != nil {
			return nil, nil, err
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	initSeelogLogger(filepath.Join(cfg.LogDir, defaultLogFilename))
	setLogLevels(cfg.DebugLevel)

	if !filepath.IsAbs(cfg.DBFile) {
		cfg.DBFile = filepath.Join(cfg.DataDir, cfg.DBFile)
	}

	if cfg.ScanThreads < 1 {
		cfg.ScanThreads = 1
	}

	return &cfg, remainingArgs, nil
}

// networkParams resolves cfg.Network into the NetworkParams Supervisor
// and its peer client need.
func networkParams(cfg *config) (lws.NetworkParams, error) {
	var params lws.NetworkParams
	switch cfg.Network {
	case "mainnet", "":
		params = lws.MainNet()
	case "testnet":
		params = lws.NetworkParams{Name: "testnet", DefaultPeerPort: 28082}
	case "stagenet":
		params = lws.NetworkParams{Name: "stagenet", DefaultPeerPort: 38082}
	default:
		return lws.NetworkParams{}, fmt.Errorf("unknown network %q", cfg.Network)
	}
	params.RetentionBlocks = cfg.RetentionBlocks

	if cfg.GenesisHash != "" {
		raw, err := hex.DecodeString(cfg.GenesisHash)
		if err != nil || len(raw) != len(params.GenesisHash) {
			return lws.NetworkParams{}, fmt.Errorf("genesishash must be %d hex-encoded bytes", len(params.GenesisHash))
		}
		copy(params.GenesisHash[:], raw)
	}
	return params, nil
}
