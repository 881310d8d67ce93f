// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/btcsuite/hdwallet/chain"
	"github.com/btcsuite/hdwallet/p2p"
	"github.com/btcsuite/hdwallet/wallet"
)

// logWriter implements an io.Writer that outputs to both standard output
// and the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all
// subsystem loggers created from it will write to the backend.  When
// adding new subsystems, add the subsystem logger variable here and to
// the subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized
// with a log file.  This must be performed early during application
// startup by calling initLogRotator.
var (
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	log       = backendLog.Logger("HDWL")
	walletLog = backendLog.Logger("WLLT")
	chainLog  = backendLog.Logger("CHNS")
	peerLog   = backendLog.Logger("PEER")
)

// Initialize package-global logger variables.
func init() {
	wallet.UseLogger(walletLog)
	chain.UseLogger(chainLog)
	p2p.UseLogger(peerLog)
}

// subsystemLoggers maps each subsystem identifier to its associated
// logger.
var subsystemLoggers = map[string]btclog.Logger{
	"HDWL": log,
	"WLLT": walletLog,
	"CHNS": chainLog,
	"PEER": peerLog,
}

// initLogRotator initializes the logging rotator to write logs to logFile
// and create roll files in the same directory.  It must be called before
// the package-global log rotator variables are used.
func initLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n",
			err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n",
			err)
		os.Exit(1)
	}

	logRotator = r
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.  Uninitialized subsystems are dynamically
// created as needed.
func setLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.  It also dynamically creates the subsystem loggers as needed, so
// it can be used to initialize the logging system.
func setLogLevels(logLevel string) {
	// Configure all sub-systems with the new logging level.  Dynamically
	// create loggers as needed.
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}

// logClosure is used to provide a closure over expensive logging
// operations so they don't have to be performed when the logging level
// doesn't warrant it.
type logClosure func() string

// String invokes the underlying function and returns the result.
func (c logClosure) String() string {
	return c()
}

// newLogClosure returns a new closure over a function that returns a
// string which itself provides a Stringer interface so that it can be
// used with the logging system.
func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
