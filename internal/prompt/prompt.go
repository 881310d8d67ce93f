// Copyright (c) 2015-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package prompt provides interactive terminal entry of wallet secrets:
// mnemonics, passphrases, and WIF private keys.  Secrets never travel
// through command line arguments.
package prompt

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Mnemonic prompts for a seed mnemonic on the given reader.  The phrase
// is echoed since mnemonics are long and typo-prone; use Passphrase for
// hidden entry.
func Mnemonic(reader *bufio.Reader) (string, error) {
	fmt.Print("Enter seed mnemonic: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	mnemonic := strings.TrimSpace(line)
	if mnemonic == "" {
		return "", fmt.Errorf("no mnemonic entered")
	}
	return mnemonic, nil
}

// Passphrase prompts for an optional seed passphrase without echoing it.
// When confirm is set the passphrase must be entered twice.
func Passphrase(confirm bool) (string, error) {
	pass, err := readHidden("Enter passphrase (may be empty): ")
	if err != nil {
		return "", err
	}
	if !confirm {
		return pass, nil
	}

	again, err := readHidden("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if pass != again {
		return "", fmt.Errorf("the entered passphrases do not match")
	}
	return pass, nil
}

// WIF prompts for a WIF-encoded private key without echoing it.
func WIF() (string, error) {
	wif, err := readHidden("Enter WIF private key: ")
	if err != nil {
		return "", err
	}
	if wif == "" {
		return "", fmt.Errorf("no private key entered")
	}
	return wif, nil
}

// readHidden reads one line from the terminal with echo disabled,
// falling back to plain stdin reads when stdin is not a terminal (tests
// and pipes).
func readHidden(promptText string) (string, error) {
	fmt.Print(promptText)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
