// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// shutdownContext returns a context cancelled on the first SIGINT or
// SIGTERM.  A second signal exits immediately without waiting for
// in-flight operations.
func shutdownContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-interruptChannel
		log.Infof("Received signal (%s).  Shutting down...", sig)
		cancel()

		sig = <-interruptChannel
		log.Infof("Received signal (%s) again.  Exiting now.", sig)
		os.Exit(1)
	}()

	return ctx
}
