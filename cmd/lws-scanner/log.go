package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/cihub/seelog"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws/account"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/chainsync"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/db"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/moneroutil"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/peer"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/scan"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/supervisor"
)

// Loggers per subsystem. backendLog is the seelog logger every subsystem
// logger routes its messages to.
var (
	backendLog = seelog.Disabled
	log        = btclog.Disabled
	dbLog      = btclog.Disabled
	acctLog    = btclog.Disabled
	cryptoLog  = btclog.Disabled
	peerLog    = btclog.Disabled
	syncLog    = btclog.Disabled
	scanLog    = btclog.Disabled
	supLog     = btclog.Disabled
)

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"SCNR": log,
	"DATB": dbLog,
	"ACCT": acctLog,
	"CRYP": cryptoLog,
	"PEER": peerLog,
	"CSYN": syncLog,
	"SCAN": scanLog,
	"SUPR": supLog,
}

// useLogger updates the logger references for subsystemID to logger.
// Invalid subsystems are ignored.
func useLogger(subsystemID string, logger btclog.Logger) {
	if _, ok := subsystemLoggers[subsystemID]; !ok {
		return
	}
	subsystemLoggers[subsystemID] = logger

	switch subsystemID {
	case "SCNR":
		log = logger
	case "DATB":
		dbLog = logger
		db.UseLogger(logger)
	case "ACCT":
		acctLog = logger
		account.UseLogger(logger)
	case "CRYP":
		cryptoLog = logger
		moneroutil.UseLogger(logger)
	case "PEER":
		peerLog = logger
		peer.UseLogger(logger)
	case "CSYN":
		syncLog = logger
		chainsync.UseLogger(logger)
	case "SCAN":
		scanLog = logger
		scan.UseLogger(logger)
	case "SUPR":
		supLog = logger
		supervisor.UseLogger(logger)
	}
}

// initSeelogLogger initializes a new seelog logger, writing to both
// stdout and a rotated log file, used as the backend for every
// subsystem logger.
func initSeelogLogger(logFile string) {
	config := `
        <seelog type="adaptive" mininterval="2000000" maxinterval="100000000"
                critmsgcount="500" minlevel="trace">
                <outputs formatid="all">
                        <console />
                        <rollingfile type="size" filename="%s" maxsize="10485760" maxrolls="3" />
                </outputs>
                <formats>
                        <format id="all" format="%%Time %%Date [%%LEV] %%Msg%%n" />
                </formats>
        </seelog>`
	config = fmt.Sprintf(config, logFile)

	logger, err := seelog.LoggerFromConfigAsString(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v", err)
		os.Exit(1)
	}

	backendLog = logger
}

// setLogLevel sets the logging level for the provided subsystem.
// Invalid subsystems are ignored; uninitialized subsystems are created
// as needed.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	level, ok := btclog.LogLevelFromString(logLevel)
	if !ok {
		level = btclog.InfoLvl
	}

	if logger == btclog.Disabled {
		logger = btclog.NewSubsystemLogger(backendLog, subsystemID+": ")
		useLogger(subsystemID, logger)
	}
	logger.SetLevel(level)
}

// setLogLevels sets the log level for every subsystem logger to the
// passed level.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}
