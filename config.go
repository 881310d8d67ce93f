// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/btcsuite/hdwallet/netparams"
	"github.com/btcsuite/hdwallet/wallet"
)

const (
	defaultConfigFilename = "hdwallet.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "hdwallet.log"
)

var (
	defaultAppDir     = btcutil.AppDataDir("hdwallet", false)
	defaultConfigFile = filepath.Join(defaultAppDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultAppDir, defaultLogDirname)

	// activeNet is the network the wallet operates on, selected by the
	// network flags.
	activeNet = &netparams.MainNetParams
)

type config struct {
	// General application behavior
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	LogDir      string `long:"logdir" description:"Directory to log output"`

	// Network selection
	TestNet bool `long:"testnet" description:"Use the test network (default mainnet)"`
	SimNet  bool `long:"simnet" description:"Use the simulation test network (default mainnet)"`

	// Key material entry
	MnemonicFile string `long:"mnemonicfile" description:"File containing the seed mnemonic on its first line -- If unset the mnemonic is prompted for"`
	Electrum     bool   `long:"electrum" description:"Interpret the mnemonic as an Electrum native seed instead of BIP39"`
	Passphrase   bool   `long:"passphrase" description:"Prompt for an additional seed passphrase"`
	WIF          bool   `long:"wif" description:"Back the wallet with a single WIF private key instead of a mnemonic"`
	Account      uint32 `long:"account" description:"BIP44 account number to derive under"`

	// Discovery behavior
	Standard    string `long:"standard" description:"Derivation standard to scan {auto, bip44, electrum, all}"`
	GapLimit    uint32 `long:"gaplimit" description:"Consecutive unused addresses that end a discovery scan"`
	SearchLimit uint32 `long:"searchlimit" description:"Index bound of offline address scans"`

	// Network services
	Peer  string `long:"peer" description:"Bitcoin peer to broadcast transactions to, as host or host:port"`
	Proxy string `long:"proxy" description:"Connect to the peer via SOCKS5 proxy (eg. 127.0.0.1:9050)"`

	// Transaction creation
	FeeRate        int64  `long:"feerate" description:"Fee rate in satoshis per byte -- 0 selects the provider's medium tier"`
	InputValue     int64  `long:"inputvalue" description:"Value in satoshis of the spent output -- 0 assumes the output holds exactly the payments plus the fee"`
	AddChange      bool   `long:"addchange" description:"Pay the input surplus to a fresh change address instead of leaving it as fee"`
	SourceAddress  string `long:"sourceaddress" description:"Wallet address holding the spent output (default: the wallet's first address)"`
	SkipValidation bool   `long:"skipvalidation" description:"Broadcast transactions without the pre-send safety checks"`
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultAppDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style
	// %VARIABLE%, but the variables can still be expanded via
	// POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validLogLevel returns whether or not logLevel is a valid debug log
// level.
func validLogLevel(logLevel string) bool {
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

// supportedSubsystems returns a sorted slice of the supported subsystems
// for logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and
// set the levels accordingly.  An appropriate error is returned if
// anything is invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it
	// as the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified
//     options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in the wallet functioning properly without any
// config settings while still allowing the user to override settings
// with config files and command line options.  Command line options
// always take precedence.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		DebugLevel: defaultLogLevel,
		ConfigFile: defaultConfigFile,
		LogDir:     defaultLogDir,
		GapLimit:   wallet.DefaultGapLimit,
	}

	// Pre-parse the command line options to see if an alternative
	// config file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(
		cleanAndExpandPath(preCfg.ConfigFile))
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Choose the active network params based on the selected network.
	// Multiple networks can't be selected simultaneously.
	numNets := 0
	if cfg.TestNet {
		activeNet = &netparams.TestNet3Params
		numNets++
	}
	if cfg.SimNet {
		activeNet = &netparams.SimNetParams
		numNets++
	}
	if numNets > 1 {
		err := fmt.Errorf("loadConfig: the testnet and simnet params " +
			"can't be used together -- choose one")
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Validate the discovery standard early so every command can rely
	// on it.
	if _, err := wallet.ParseStandard(cfg.Standard); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Append the network type to the log directory so it is
	// "namespaced" per network.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, activeNet.Params.Name)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("loadConfig: %v", err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Warn about missing config file after the final command line parse
	// succeeds.  This prevents the warning on help messages and invalid
	// options.
	if configFileError != nil {
		log.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}
