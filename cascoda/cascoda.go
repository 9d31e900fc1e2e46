// Package cascoda declares the downward collaborator this module consumes:
// the IEEE 802.15.4 hard-MAC co-processor's synchronous MLME/HWME request
// API and its asynchronous MCPS/MLME indication and confirm callbacks. The
// package contains interfaces and parameter-set types only — no co-processor
// is implemented here, per spec.md §1 ("Out of scope").
//
// The shape of Transport is modeled on periph.io/x/periph's split between a
// synchronous conn.Conn (here: synchronous *_request calls) and an
// interrupt-fed path (here: the Callbacks interface the worker thread
// invokes), the same split
// the teacher's sx1231/sx1276 radio drivers use between register writes and
// the interrupt-driven rx channel.
package cascoda

import "github.com/Cascoda/ca821x-posix-thread/mac/addr"

// MAC status codes returned by the co-processor, per the Cascoda API /
// IEEE 802.15.4 MAC status enumeration. Only the subset this module needs
// to distinguish is named.
const (
	MACSuccess              uint8 = 0x00
	MACChannelAccessFailure uint8 = 0xE1
	MACNoAck                uint8 = 0xE9
	MACNoData               uint8 = 0x2F
	MACTransactionOverflow  uint8 = 0xF9
	MACTransactionExpired   uint8 = 0xF0
	MACScanInProgress       uint8 = 0xFC
)

// DataRequest is the MCPS-DATA.request parameter set: a single outbound MAC
// frame destined for the co-processor's transmit queue.
type DataRequest struct {
	SrcAddrMode addr.Mode
	DstAddrMode addr.Mode
	DstPANID    uint16
	DstAddr     [8]byte // first DstAddrMode.Len() bytes significant, little-endian
	Msdu        []byte
	MsduHandle  uint8
	TxOptions   uint8 // bit0 ack-request, bit2 indirect
	Security    addr.Security
}

// DataIndication is the MCPS-DATA.indication parameter set: an inbound MAC
// frame delivered asynchronously by the co-processor's worker thread.
type DataIndication struct {
	SrcAddrMode     addr.Mode
	SrcPANID        uint16
	SrcAddr         [8]byte
	DstAddrMode     addr.Mode
	DstPANID        uint16
	DstAddr         [8]byte
	Msdu            []byte
	MpduLinkQuality uint8 // LQI, 0..255
	Security        addr.Security
}

// DataConfirm is the MCPS-DATA.confirm parameter set: the asynchronous
// outcome of a previously submitted DataRequest, correlated by handle.
type DataConfirm struct {
	MsduHandle uint8
	Status     uint8
}

// BeaconNotifyIndication is the MLME-BEACON-NOTIFY.indication parameter set
// delivered for each beacon received during an active scan.
type BeaconNotifyIndication struct {
	CoordAddrMode   addr.Mode
	CoordPANID      uint16
	CoordAddr       [8]byte
	LogicalChannel  uint8
	LinkQuality     uint8
	SecurityLevel   uint8
	SDU             []byte // beacon payload, protocol-id/version/name/ext-pan-id
}

// ScanConfirm is the MLME-SCAN.confirm parameter set. ResultList holds
// per-channel RSSI readings for an energy scan; it is empty for an active
// scan (those results arrive via BeaconNotifyIndication instead).
type ScanConfirm struct {
	Status     uint8
	ResultList []int8
}

// DeviceDescriptor mirrors the co-processor's macDeviceTable entry layout:
// PAN id, short address, extended address (little-endian on the wire),
// frame counter, and an exempt-from-security-check flag.
type DeviceDescriptor struct {
	PANID         uint16
	ShortAddr     uint16
	ExtAddr       [8]byte // little-endian, see addr.ReverseExt
	FrameCounter  uint32
	Exempt        bool
}

// KeyIDLookupDesc is one entry of a key table entry's key-id lookup list.
type KeyIDLookupDesc struct {
	LookupData     [9]byte
	LookupDataSize uint8 // 0: 5 bytes significant, 1: 9 bytes significant
}

// KeyDescriptor is a single macKeyTable entry: the 16-byte key material plus
// its lookup, usage, and device-list descriptors, per IEEE 802.15.4 Table
// 7-5 / Thread 7.2.2.2.1.
type KeyDescriptor struct {
	Key             [16]byte
	KeyIDLookupList [1]KeyIDLookupDesc
	UsageFrameTypes [2]uint8 // data, data-request-command
	DeviceIndices   []uint8  // indices into the device table this key applies to
}

// Transport is the synchronous half of the co-processor API: MLME-SET/GET/
// RESET/START/SCAN/POLL-request and HWME-SET/GET-request. All calls block
// until the co-processor's serialized command channel returns a status;
// they must only be invoked from the main thread or from the worker thread
// while holding the barrier (see hardmac/barrier).
type Transport interface {
	MLMESet(attribute uint32, index uint8, value []byte) (status uint8, err error)
	MLMEGet(attribute uint32, index uint8) (value []byte, status uint8, err error)
	MLMEReset(setDefaultPIB bool) (status uint8, err error)
	MLMEStart(panID uint16, channel uint8, beaconOrder, superframeOrder uint8, panCoordinator bool) (status uint8, err error)
	MLMEScan(scanType uint8, channels uint32, duration uint8, security addr.Security) (status uint8, err error)
	MLMEPoll(coord addr.Addr, security addr.Security) (status uint8, err error)
	HWMESet(attribute uint8, value []byte) (status uint8, err error)
	HWMEGet(attribute uint8) (value []byte, status uint8, err error)
	MCPSData(req DataRequest) (status uint8, err error)
}

// Callbacks is the asynchronous half: the co-processor worker thread invokes
// these as indications and confirms arrive. A generic dispatch hook receives
// any frame the other callbacks don't claim, matching the original
// handleGenericDispatchFrame debug hook.
type Callbacks interface {
	OnDataIndication(DataIndication)
	OnDataConfirm(DataConfirm)
	OnBeaconNotify(BeaconNotifyIndication)
	OnScanConfirm(ScanConfirm)
	OnGenericDispatch(buf []byte)
}

// FatalErrorFunc is invoked by the transport when the driver link itself
// fails (not a MAC-level status); per spec.md §7 this is expected to abort
// the process with no attempt at recovery.
type FatalErrorFunc func(error)
