// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"
)

// semanticAlphabet defines the allowed characters for the pre-release
// portion of a semantic version string.
const semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

// These constants define the application version and follow the semantic
// versioning 2.0.0 spec (https://semver.org/).
const (
	appMajor uint = 0
	appMinor uint = 1
	appPatch uint = 0

	// appPreRelease MUST only contain characters from semanticAlphabet
	// per the semantic versioning spec.
	appPreRelease = "beta"
)

// version returns the application version as a properly formed string
// per the semantic versioning 2.0.0 spec.
func version() string {
	// Start with the major, minor, and patch versions.
	version := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)

	// Append pre-release version if there is one.  The hyphen called
	// for by the semantic versioning spec is automatically appended and
	// should not be contained in the pre-release string.
	if appPreRelease != "" {
		preRelease := normalizeVerString(appPreRelease)
		if preRelease != "" {
			version = fmt.Sprintf("%s-%s", version, preRelease)
		}
	}

	return version
}

// normalizeVerString returns the passed string stripped of all characters
// which are not valid according to the semantic versioning guidelines.
func normalizeVerString(str string) string {
	var result strings.Builder
	for _, r := range str {
		if strings.ContainsRune(semanticAlphabet, r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
