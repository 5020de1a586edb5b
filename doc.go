// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
mrdd is a Meridian full node chain daemon.

mrdd maintains the entire past transactional ledger of the Meridian network,
validates every block and transaction against the consensus rules, tracks the
full set of unspent transaction outputs, and selects the best chain among all
known competing branches.

Usage:

	mrdd [OPTIONS]

Application Options:

	-V, --version        Display version information and exit
	-A, --appdata=       Path to application home directory
	-C, --configfile=    Path to configuration file
	-b, --datadir=       Directory to store data
	    --logdir=        Directory to log output
	    --nofilelogging  Disable file logging
	-d, --debuglevel=    Logging level for all subsystems {trace, debug,
	                     info, warn, error, critical} -- You may also
	                     specify <subsystem>=<level>,<subsystem2>=<level>,...
	                     to set the log level for individual subsystems --
	                     Use show to list available subsystems
	    --testnet        Use the test network
	    --simnet         Use the simulation test network

Help Options:

	-h, --help  Show this help message
*/
package main
