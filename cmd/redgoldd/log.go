// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"

	"github.com/redgold-io/redgold-core/config"
	"github.com/redgold-io/redgold-core/party"
	"github.com/redgold-io/redgold-core/peerstore"
	"github.com/redgold-io/redgold-core/schema"
)

// logBackend writes all subsystem output to stdout.
var logBackend = btclog.NewBackend(os.Stdout)

// log is the logger for the main daemon package.
var log = logBackend.Logger("RGLD")

// subsystemLoggers maps each subsystem identifier to its associated
// logger.
var subsystemLoggers = map[string]btclog.Logger{
	"RGLD": log,
	"SCHM": logBackend.Logger("SCHM"),
	"PRTY": logBackend.Logger("PRTY"),
	"PEER": logBackend.Logger("PEER"),
}

func init() {
	schema.UseLogger(subsystemLoggers["SCHM"])
	party.UseLogger(subsystemLoggers["PRTY"])
	peerstore.UseLogger(subsystemLoggers["PEER"])
}

// setLogLevel sets the logging level for the provided subsystem.
// Invalid subsystems are ignored. Uninitialized subsystems are
// dynamically created as needed.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the
// passed level.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}

// supportedSubsystems returns a sorted slice of the supported
// subsystems for logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level
// and set the levels accordingly.  An appropriate error is returned if
// anything is invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it
	// as the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !config.ValidLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid",
				debugLevel)
		}
		setLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return fmt.Errorf("the specified debug level contains an "+
				"invalid subsystem/level pair [%v]", logLevelPair)
		}
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := subsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is invalid "+
				"-- supported subsystems %v", subsysID,
				supportedSubsystems())
		}
		if !config.ValidLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid",
				logLevel)
		}
		setLogLevel(subsysID, logLevel)
	}
	return nil
}
