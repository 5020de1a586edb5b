// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/meridianchain/mrdd/blockchain"
	"github.com/meridianchain/mrdd/internal/limits"
	"github.com/meridianchain/mrdd/internal/version"
	"github.com/meridianchain/mrdd/txscript"
)

// cfg houses the loaded configuration for the entire process.
var cfg *config

// maxSigCacheEntries is the maximum number of entries the signature
// verification cache may hold.
const maxSigCacheEntries = 50000

// mrddMain is the real main function for mrdd.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func mrddMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	tcfg, _, err := loadConfig(appName)
	if err != nil {
		usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
		fmt.Fprintln(os.Stderr, err)
		var e errSuppressUsage
		if !errors.As(err, &e) {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a context that will be canceled when a shutdown signal has been
	// triggered from an OS signal such as SIGINT (Ctrl+C).
	ctx := shutdownListener()
	defer mrddLog.Info("Shutdown complete")

	// Show version and home dir at startup.
	mrddLog.Infof("Version %s (Go version %s %s/%s)", version.String(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	mrddLog.Infof("Home dir: %s", cfg.HomeDir)
	if cfg.NoFileLogging {
		mrddLog.Info("File logging disabled")
	}

	// Block processing can cause bursty allocations.  This limits the
	// garbage collector from excessively overallocating during bursts by
	// imposing a soft upper memory limit when the Go runtime supports it
	// and lowering the target GC percentage otherwise.
	if limits.SupportsMemoryLimit {
		const softMemLimit = (15 * (1 << 30)) / 10 // 1.5 GiB
		limits.SetMemoryLimit(softMemLimit)
		mrddLog.Infof("Soft memory limit: %d MiB", softMemLimit>>20)
	} else {
		debug.SetGCPercent(20)
	}

	// Return now if a shutdown signal was triggered.
	if shutdownRequested(ctx) {
		return nil
	}

	// Load the block database.
	db, err := loadBlockDB()
	if err != nil {
		mrddLog.Errorf("%v", err)
		return err
	}
	defer func() {
		// Ensure the database is sync'd and closed on shutdown.
		mrddLog.Infof("Gracefully shutting down the block database...")
		db.Close()
	}()

	// Return now if a shutdown signal was triggered.
	if shutdownRequested(ctx) {
		return nil
	}

	// Create the chain instance the process serves.  The notification
	// callback keeps an operator-readable record of chain activity in the
	// logs.
	chain, err := blockchain.New(&blockchain.Config{
		DB:            db,
		ChainParams:   cfg.params.Params,
		TimeSource:    blockchain.NewMedianTime(),
		SigCache:      txscript.NewSigCache(maxSigCacheEntries),
		Notifications: handleChainNotification,
	})
	if err != nil {
		mrddLog.Errorf("Unable to create chain instance: %v", err)
		return err
	}

	best := chain.BestSnapshot()
	mrddLog.Infof("Chain instance created (height %d, hash %v, %d total "+
		"transactions)", best.Height, best.Hash, best.TotalTxns)

	// Block until the context is cancelled which happens when the interrupt
	// signal is received from an OS signal.
	<-ctx.Done()
	return nil
}

// handleChainNotification logs noteworthy chain events such as connected and
// disconnected blocks along with reorganizations.
func handleChainNotification(notification *blockchain.Notification) {
	switch notification.Type {
	case blockchain.NTBlockConnected:
		data, ok := notification.Data.(*blockchain.BlockConnectedNtfnsData)
		if !ok {
			chainLog.Warnf("Block connected notification is not the "+
				"expected type -- got %T", notification.Data)
			break
		}
		chainLog.Infof("Block connected: %v (height %d)",
			data.Block.Hash(), data.Block.MsgBlock().Header.Height)

	case blockchain.NTBlockDisconnected:
		data, ok := notification.Data.(*blockchain.BlockDisconnectedNtfnsData)
		if !ok {
			chainLog.Warnf("Block disconnected notification is not the "+
				"expected type -- got %T", notification.Data)
			break
		}
		chainLog.Infof("Block disconnected: %v (height %d)",
			data.Block.Hash(), data.Block.MsgBlock().Header.Height)

	case blockchain.NTReorganization:
		data, ok := notification.Data.(*blockchain.ReorganizationNtfnsData)
		if !ok {
			chainLog.Warnf("Reorganization notification is not the "+
				"expected type -- got %T", notification.Data)
			break
		}
		chainLog.Infof("Chain reorganization: old tip %v (height %d), "+
			"new tip %v (height %d)", data.OldHash, data.OldHeight,
			data.NewHash, data.NewHeight)
	}
}

func main() {
	// Work around defer not working after os.Exit()
	if err := mrddMain(); err != nil {
		os.Exit(1)
	}
}
