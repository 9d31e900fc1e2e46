// Package keytable implements the key & device table synchronizer
// (component F): on a stack state-change trigger it rebuilds the
// co-processor's device table (children+routers, or a single parent) and a
// three-generation key table, grounded on original_source's
// keyChangeCallback.
package keytable

import (
	"fmt"

	"github.com/Cascoda/ca821x-posix-thread/cascoda"
	"github.com/Cascoda/ca821x-posix-thread/mac/addr"
	"github.com/Cascoda/ca821x-posix-thread/stack"
)

// MaxDeviceTableEntries is the co-processor's device table capacity.
const MaxDeviceTableEntries = 5

// defaultKeySource is the fixed key source used for every key-table lookup
// entry, per spec §6 initialization defaults.
var defaultKeySource = [8]byte{0, 0, 0, 0, 0, 0, 0, 0xFF}

const (
	frameTypeData        uint8 = 0x01
	frameTypeDataRequest uint8 = 0x04 // MAC command sub-type: data-request
)

// Synchronizer rebuilds the co-processor's device and key tables in
// response to stack state-change triggers.
type Synchronizer struct {
	Transport cascoda.Transport
	Stack     stack.Stack
	LogPrintf func(string, ...interface{})
}

func (s *Synchronizer) logf(format string, args ...interface{}) {
	if s.LogPrintf != nil {
		s.LogPrintf(format, args...)
	}
}

// Sync performs the full rebuild described in spec §4.6. A failed
// co-processor set-request is logged at warning level and aborts this
// rebuild, leaving the partially-updated state in place; the next trigger
// retries the whole thing from scratch.
func (s *Synchronizer) Sync() {
	devices, err := s.buildDeviceTable()
	if err != nil {
		s.logf("keytable: device table build failed: %v", err)
		return
	}
	if err := s.writeDeviceTable(devices); err != nil {
		s.logf("keytable: device table write failed: %v", err)
		return
	}
	if err := s.writeKeyTable(devices); err != nil {
		s.logf("keytable: key table write failed: %v", err)
		return
	}
}

// buildDeviceTable enumerates the neighbors to push to the co-processor
// device table, per spec §4.6 steps 1-2.
func (s *Synchronizer) buildDeviceTable() ([]cascoda.DeviceDescriptor, error) {
	var out []cascoda.DeviceDescriptor

	if s.Stack.Role() == stack.RoleChild {
		parent := s.Stack.Parent()
		out = append(out, descriptorFor(parent))
		return out, nil
	}

	children := s.Stack.Children()
	for _, c := range children {
		if len(out) >= MaxDeviceTableEntries {
			break
		}
		if isZeroExt(c.ExtAddr) {
			continue
		}
		out = append(out, descriptorFor(c))
	}
	remaining := MaxDeviceTableEntries - len(out)
	if remaining > 0 {
		for _, r := range s.Stack.Routers() {
			if remaining == 0 {
				break
			}
			if isZeroExt(r.ExtAddr) {
				continue
			}
			out = append(out, descriptorFor(r))
			remaining--
		}
	}
	return out, nil
}

func descriptorFor(n stack.Neighbor) cascoda.DeviceDescriptor {
	return cascoda.DeviceDescriptor{
		PANID:        n.PANID,
		ShortAddr:    n.ShortAddr,
		ExtAddr:      addr.ReverseExt(n.ExtAddr),
		FrameCounter: 0,
		Exempt:       false,
	}
}

func isZeroExt(ext [8]byte) bool {
	return ext == [8]byte{}
}

// writeDeviceTable writes each descriptor to co-processor slots 0..N-1, then
// writes the entry-count attribute, per spec §4.6 step 3.
func (s *Synchronizer) writeDeviceTable(devices []cascoda.DeviceDescriptor) error {
	for i, d := range devices {
		buf := encodeDeviceDescriptor(d)
		status, err := s.Transport.MLMESet(cascoda.AttrDeviceTable, uint8(i), buf)
		if err != nil {
			return err
		}
		if status != cascoda.MACSuccess {
			return fmt.Errorf("keytable: device table slot %d: status %#x", i, status)
		}
	}
	status, err := s.Transport.MLMESet(cascoda.AttrDeviceTableEntries, 0, []byte{uint8(len(devices))})
	if err != nil {
		return err
	}
	if status != cascoda.MACSuccess {
		return fmt.Errorf("keytable: device table entry count: status %#x", status)
	}
	return nil
}

func encodeDeviceDescriptor(d cascoda.DeviceDescriptor) []byte {
	buf := make([]byte, 2+2+8+4+1)
	buf[0] = byte(d.PANID)
	buf[1] = byte(d.PANID >> 8)
	buf[2] = byte(d.ShortAddr)
	buf[3] = byte(d.ShortAddr >> 8)
	copy(buf[4:12], d.ExtAddr[:])
	buf[12] = byte(d.FrameCounter)
	buf[13] = byte(d.FrameCounter >> 8)
	buf[14] = byte(d.FrameCounter >> 16)
	buf[15] = byte(d.FrameCounter >> 24)
	if d.Exempt {
		buf[16] = 1
	}
	return buf
}

// writeKeyTable builds and writes the composite key descriptor and its up
// to three generations, per spec §4.6 steps 4-5.
func (s *Synchronizer) writeKeyTable(devices []cascoda.DeviceDescriptor) error {
	seq := s.Stack.KeySequence()
	generations := []uint32{}
	if seq > 0 {
		generations = append(generations, seq-1)
	}
	generations = append(generations, seq, seq+1)

	written := 0
	for _, gen := range generations {
		if gen == 0 {
			continue // sequence 0 is always skipped, per spec §4.6 step 5
		}
		key, ok := s.Stack.DeriveKey(gen)
		if !ok {
			continue
		}
		desc := buildKeyDescriptor(key, gen, len(devices))
		buf := encodeKeyDescriptor(desc)
		status, err := s.Transport.MLMESet(cascoda.AttrKeyTable, uint8(written), buf)
		if err != nil {
			return err
		}
		if status != cascoda.MACSuccess {
			return fmt.Errorf("keytable: key table slot %d: status %#x", written, status)
		}
		written++
	}
	status, err := s.Transport.MLMESet(cascoda.AttrKeyTableEntries, 0, []byte{uint8(written)})
	if err != nil {
		return err
	}
	if status != cascoda.MACSuccess {
		return fmt.Errorf("keytable: key table entry count: status %#x", status)
	}
	return nil
}

func buildKeyDescriptor(key [16]byte, seq uint32, deviceCount int) cascoda.KeyDescriptor {
	var lookup cascoda.KeyIDLookupDesc
	lookup.LookupData[0] = byte((seq & 0x7F) + 1)
	copy(lookup.LookupData[1:8], defaultKeySource[:7])
	lookup.LookupData[8] = defaultKeySource[7]
	lookup.LookupDataSize = 1 // 9 bytes significant

	devices := make([]uint8, deviceCount)
	for i := range devices {
		devices[i] = uint8(i)
	}

	return cascoda.KeyDescriptor{
		Key:             key,
		KeyIDLookupList: [1]cascoda.KeyIDLookupDesc{lookup},
		UsageFrameTypes: [2]uint8{frameTypeData, frameTypeDataRequest},
		DeviceIndices:   devices,
	}
}

func encodeKeyDescriptor(d cascoda.KeyDescriptor) []byte {
	buf := make([]byte, 0, 16+9+1+2+1+len(d.DeviceIndices))
	buf = append(buf, d.Key[:]...)
	buf = append(buf, d.KeyIDLookupList[0].LookupData[:]...)
	buf = append(buf, d.KeyIDLookupList[0].LookupDataSize)
	buf = append(buf, d.UsageFrameTypes[:]...)
	buf = append(buf, uint8(len(d.DeviceIndices)))
	buf = append(buf, d.DeviceIndices...)
	return buf
}
