// Package stack declares the Thread/IPv6 stack as an opaque collaborator
// (spec §1 "Out of scope"): neighbor enumeration, key derivation, role
// queries, and the two callbacks the platform API delivers frames and
// transmit outcomes through. No implementation lives here — a real build
// links this module against the actual Thread stack; tests in this module
// satisfy it with fakes.
package stack

import "github.com/Cascoda/ca821x-posix-thread/mac/frame"

// Role is the stack's current Thread role, as relevant to the key/device
// table synchronizer (component F): whether up to 5 children plus routers
// are enumerated, or a single parent.
type Role uint8

const (
	RoleChild Role = iota
	RoleRouter
	RoleLeader
)

// Neighbor is one entry of the stack's neighbor table: a child, a router,
// or a parent, as handed to the key/device table synchronizer.
type Neighbor struct {
	ExtAddr   [8]byte // network byte order, as the stack holds it
	ShortAddr uint16
	PANID     uint16
}

// StateChangeFlags mirrors the flag bits a Thread stack implementation
// raises via the state-change hook (spec §4.6): the synchronizer and the
// coordinator role-change hook both react to these.
type StateChangeFlags uint32

const (
	FlagKeySequenceAdvanced StateChangeFlags = 1 << iota
	FlagChildAdded
	FlagChildRemoved
	FlagRoleChanged
	FlagLinkAccepted
)

// Stack is the collaborator this module consumes. Role, Children, Routers,
// and Parent feed the key/device table synchronizer (component F);
// DeriveKey supplies the three key generations it stages; Channel and PANID
// report the network parameters hardmac's coordinator role-change hook
// needs when issuing MLME-START.
type Stack interface {
	Role() Role
	PANID() uint16
	Channel() uint8
	KeySequence() uint32

	// Children returns up to 5 attached children; only called when Role is
	// not RoleChild.
	Children() []Neighbor
	// Routers returns attached router neighbors, used to fill any capacity
	// left after Children (N + M <= 5).
	Routers() []Neighbor
	// Parent returns this device's parent; only called when Role is
	// RoleChild.
	Parent() Neighbor

	// DeriveKey returns the 16-byte key material for the given key
	// sequence number. ok is false if the stack cannot derive a key for
	// that sequence (e.g. it has rolled over and no longer has history).
	DeriveKey(sequence uint32) (key [16]byte, ok bool)

	// OnReceive delivers a decoded inbound frame, or err if none could be
	// decoded, to the stack's receive-done callback.
	OnReceive(pkt *frame.RadioPacket, err error)
	// OnTransmitDone delivers the outcome of a previously submitted
	// transmission to the stack's transmit-done callback.
	OnTransmitDone(context interface{}, ackReceived bool, err error)

	// OnActiveScanResult delivers one beacon result (network name,
	// extended PAN id, channel, LQI) during an active scan; a nil result
	// signals scan completion.
	OnActiveScanResult(result *ActiveScanResult)
	// OnEnergyScanResult delivers one channel/RSSI pair during an energy
	// scan; a nil result signals scan completion.
	OnEnergyScanResult(result *EnergyScanResult)
}

// ActiveScanResult is one beacon observed during an active scan.
type ActiveScanResult struct {
	Channel     uint8
	LQI         uint8
	NetworkName [16]byte
	ExtendedPAN [8]byte
}

// EnergyScanResult is one channel's measured RSSI during an energy scan.
type EnergyScanResult struct {
	Channel uint8
	MaxRSSI int8
}
