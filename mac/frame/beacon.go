package frame

import "errors"

// Beacon payload layout recovered from original_source's
// otPlatRadioSetNetworkName / otPlatRadioSetExtendedPanId: a fixed 32-byte
// buffer with a 2-byte protocol header, a 16-byte network name field, and
// an 8-byte extended PAN id, in that order. Kept as a single encode/decode
// pair (SPEC_FULL.md §13) so outbound beacon construction and the scan
// driver's inbound parsing can never drift out of sync.
const (
	BeaconPayloadLength = 32

	beaconProtocolID      = 3
	beaconProtocolVersion = 1
	beaconNameOffset      = 2
	beaconNameLength      = 16
	beaconExtPANOffset    = 18
)

// ErrBadBeaconProtocol is returned by DecodeBeaconPayload when the leading
// protocol-id/version header doesn't match what this driver writes.
var ErrBadBeaconProtocol = errors.New("frame: unrecognized beacon payload protocol header")

// BeaconPayload is the Thread-specific beacon payload carried in the
// co-processor's macBeaconPayload attribute.
type BeaconPayload struct {
	NetworkName  [beaconNameLength]byte
	ExtendedPAN  [8]byte
}

// EncodeBeaconPayload renders b into the fixed 32-byte wire layout.
func EncodeBeaconPayload(b BeaconPayload) [BeaconPayloadLength]byte {
	var out [BeaconPayloadLength]byte
	out[0] = beaconProtocolID
	out[1] = beaconProtocolVersion
	copy(out[beaconNameOffset:beaconNameOffset+beaconNameLength], b.NetworkName[:])
	copy(out[beaconExtPANOffset:beaconExtPANOffset+8], b.ExtendedPAN[:])
	return out
}

// DecodeBeaconPayload parses a beacon's SDU back into a BeaconPayload. Used
// by the scan driver (component G) when processing MLME-BEACON-NOTIFY
// indications gathered during an active scan.
func DecodeBeaconPayload(sdu []byte) (BeaconPayload, error) {
	var b BeaconPayload
	if len(sdu) < BeaconPayloadLength {
		return b, ErrTruncated
	}
	if sdu[0] != beaconProtocolID || sdu[1] != beaconProtocolVersion {
		return b, ErrBadBeaconProtocol
	}
	copy(b.NetworkName[:], sdu[beaconNameOffset:beaconNameOffset+beaconNameLength])
	copy(b.ExtendedPAN[:], sdu[beaconExtPANOffset:beaconExtPANOffset+8])
	return b, nil
}
