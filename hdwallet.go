// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"runtime"
	"sort"
)

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Work around defer not working after os.Exit.
	if err := walletMain(); err != nil {
		os.Exit(1)
	}
}

// walletMain is a work-around main function that is required since
// deferred functions (such as log flushing) are not called with calls to
// os.Exit.  Instead, main runs this function and checks for a non-nil
// error, at which point any defers have already run, and if the error is
// non-nil, the program can be exited with an error exit status.
func walletMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	cfg, args, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "no command specified\n")
		fmt.Fprintf(os.Stderr, "commands: %v\n", commandNames())
		return fmt.Errorf("no command specified")
	}

	command, commandArgs := args[0], args[1:]
	handler, ok := commandHandlers[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		fmt.Fprintf(os.Stderr, "commands: %v\n", commandNames())
		return fmt.Errorf("unknown command %q", command)
	}

	log.Debugf("Version %s running %q on %s", version(), command,
		activeNet.Params.Name)

	ctx := shutdownContext()
	if err := handler(ctx, cfg, commandArgs); err != nil {
		log.Errorf("Command %q failed: %v", command, err)
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func commandNames() []string {
	names := make([]string, 0, len(commandHandlers))
	for name := range commandHandlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
