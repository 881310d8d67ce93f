// Copyright (c) 2014-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// bip44Purpose is the hardened purpose index of BIP44 derivation paths.
const bip44Purpose = 44

// ErrInvalidPath describes a derivation path string that could not be
// parsed.
var ErrInvalidPath = errors.New("invalid derivation path")

// Path is an ordered sequence of child indices.  Indices at or above
// HardenedKeyStart are hardened.
type Path []uint32

// ParsePath parses a derivation path string such as "m/44'/0'/0'/0/0"
// into its child indices.  Each component may carry a trailing ' or h to
// mark it hardened.  The leading "m" component is required.
func ParsePath(path string) (Path, error) {
	components := strings.Split(path, "/")
	if len(components) == 0 || components[0] != "m" {
		return nil, fmt.Errorf("%w: %q must begin with m/", ErrInvalidPath,
			path)
	}

	parsed := make(Path, 0, len(components)-1)
	for _, component := range components[1:] {
		if component == "" {
			return nil, fmt.Errorf("%w: empty component in %q",
				ErrInvalidPath, path)
		}
		hardened := false
		if strings.HasSuffix(component, "'") ||
			strings.HasSuffix(component, "h") {

			hardened = true
			component = component[:len(component)-1]
		}
		index, err := strconv.ParseUint(component, 10, 32)
		if err != nil || index >= HardenedKeyStart {
			return nil, fmt.Errorf("%w: bad index %q", ErrInvalidPath,
				component)
		}
		if hardened {
			index += HardenedKeyStart
		}
		parsed = append(parsed, uint32(index))
	}
	return parsed, nil
}

// String renders the path in the conventional m/i/j/... form with '
// marking hardened components.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, index := range p {
		b.WriteString("/")
		if index >= HardenedKeyStart {
			b.WriteString(strconv.FormatUint(uint64(index-HardenedKeyStart), 10))
			b.WriteString("'")
		} else {
			b.WriteString(strconv.FormatUint(uint64(index), 10))
		}
	}
	return b.String()
}

// AccountPath returns the hardened BIP44 account path m/44'/coin'/account'
// for the network's registered coin type.
func AccountPath(coinType, account uint32) Path {
	return Path{
		bip44Purpose + HardenedKeyStart,
		coinType + HardenedKeyStart,
		account + HardenedKeyStart,
	}
}

// Derive folds Child over the path components left to right, returning the
// node at the end of the path.
func (n *Node) Derive(path Path) (*Node, error) {
	node := n
	for _, index := range path {
		child, err := node.Child(index)
		if err != nil {
			return nil, fmt.Errorf("derive %s at index %d: %w",
				path, index, err)
		}
		node = child
	}
	return node, nil
}
