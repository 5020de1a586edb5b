// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/meridianchain/mrdd/mrdutil"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about various chain events.
type NotificationCallback func(*Notification)

// Constants for the type of a notification message.
const (
	// NTBlockAccepted indicates the associated block was accepted into
	// the block chain.  Note that this does not necessarily mean it was
	// added to the main chain.  For that, use NTBlockConnected.
	NTBlockAccepted NotificationType = iota

	// NTBlockConnected indicates the associated block was connected to the
	// main chain.
	NTBlockConnected

	// NTBlockDisconnected indicates the associated block was disconnected
	// from the main chain.
	NTBlockDisconnected

	// NTChainReorgStarted indicates that a chain reorganization has commenced.
	NTChainReorgStarted

	// NTChainReorgDone indicates that a chain reorganization has concluded.
	NTChainReorgDone

	// NTReorganization indicates that a blockchain reorganization has taken
	// place.
	NTReorganization

	// NTBlockRejected indicates the associated block failed validation and
	// has been permanently marked invalid.
	NTBlockRejected
)

// notificationTypeStrings is a map of notification types back to their
// constant names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTBlockAccepted:     "NTBlockAccepted",
	NTBlockConnected:    "NTBlockConnected",
	NTBlockDisconnected: "NTBlockDisconnected",
	NTChainReorgStarted: "NTChainReorgStarted",
	NTChainReorgDone:    "NTChainReorgDone",
	NTReorganization:    "NTReorganization",
	NTBlockRejected:     "NTBlockRejected",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// BlockAcceptedNtfnsData is the structure for data indicating information
// about an accepted block.  Note that this does not necessarily mean the block
// that was accepted extended the best chain as it might have created or
// extended a side chain.
type BlockAcceptedNtfnsData struct {
	// BestHeight is the height of the current best chain.  Since the accepted
	// block might be on a side chain, this is not necessarily the same as the
	// height of the accepted block.
	BestHeight int64

	// ForkLen is the length of the side chain the block extended or zero in
	// the case the block extended the main chain.
	ForkLen int64

	// Block is the block that was accepted into the chain.
	Block *mrdutil.Block
}

// BlockConnectedNtfnsData is the structure for data indicating information
// about a connected block.
type BlockConnectedNtfnsData struct {
	// Block is the block that was connected to the main chain.
	Block *mrdutil.Block
}

// BlockDisconnectedNtfnsData is the structure for data indicating information
// about a disconnected block.
type BlockDisconnectedNtfnsData struct {
	// Block is the block that was disconnected from the main chain.
	Block *mrdutil.Block
}

// ReorganizationNtfnsData is the structure for data indicating information
// about a reorganization.
type ReorganizationNtfnsData struct {
	OldHash   chainhash.Hash
	OldHeight int64
	NewHash   chainhash.Hash
	NewHeight int64
}

// BlockRejectedNtfnsData is the structure for data indicating information
// about a block that failed validation and was permanently marked invalid.
type BlockRejectedNtfnsData struct {
	// Hash is the hash of the rejected block.
	Hash chainhash.Hash

	// Err is the rule violation that caused the rejection.
	Err error
}

// Notification defines notification that is sent to the caller via the
// callback function provided during the call to New and consists of a
// notification type as well as associated data that depends on the type as
// follows:
//   - NTBlockAccepted:     *BlockAcceptedNtfnsData
//   - NTBlockConnected:    *BlockConnectedNtfnsData
//   - NTBlockDisconnected: *BlockDisconnectedNtfnsData
//   - NTChainReorgStarted: nil
//   - NTChainReorgDone:    nil
//   - NTReorganization:    *ReorganizationNtfnsData
//   - NTBlockRejected:     *BlockRejectedNtfnsData
type Notification struct {
	Type NotificationType
	Data interface{}
}

// sendNotification sends a notification with the passed type and data if the
// caller requested notifications by providing a callback function in the call
// to New.
//
// Notifications are sent while the chain lock is held which guarantees the
// callback observes a totally ordered stream of chain events.  The callback
// must not call back into chain methods that acquire the chain lock.
func (b *BlockChain) sendNotification(typ NotificationType, data interface{}) {
	if b.notifications == nil {
		return
	}

	n := Notification{Type: typ, Data: data}
	b.notifications(&n)
}
