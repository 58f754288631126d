// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/tomtom215/ytarchive/internal/retry"
)

// Exit codes form a stable contract for scripting around the CLI:
// 0 success, 1 generic failure, 2 bad arguments, 3 network, 4 content
// store, 5 filesystem, 6 configuration, 7 remote data.
const (
	exitOK      = 0
	exitGeneric = 1
	exitArgs    = 2
	exitNetwork = 3
	exitStore   = 4
	exitFS      = 5
	exitConfig  = 6
	exitData    = 7
)

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		os.Exit(exitOK)
	}
	fmt.Fprintln(os.Stderr, "ytarchive:", err)
	os.Exit(exitCode(err))
}

// exitCode maps the error that bubbled out of a command onto the exit
// code contract, preferring the classified kind when one is attached.
func exitCode(err error) int {
	if kind, ok := retry.KindOf(err); ok {
		switch kind {
		case retry.NetworkTransient, retry.NetworkRateLimited, retry.QuotaExhausted:
			return exitNetwork
		case retry.ContentStoreTransient, retry.ContentStoreFatal:
			return exitStore
		case retry.FilesystemFull, retry.FilesystemPermission:
			return exitFS
		case retry.ConfigInvalid:
			return exitConfig
		case retry.Auth, retry.RemoteUnavailable, retry.ExtractorIncompatible:
			return exitData
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "load config"), strings.Contains(msg, "configuration validation"):
		return exitConfig
	case strings.Contains(msg, "unknown flag"), strings.Contains(msg, "unknown command"),
		strings.Contains(msg, "accepts at most"), strings.Contains(msg, "invalid argument"):
		return exitArgs
	default:
		return exitGeneric
	}
}
