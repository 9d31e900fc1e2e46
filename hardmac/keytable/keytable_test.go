package keytable

import (
	"testing"

	"github.com/Cascoda/ca821x-posix-thread/cascoda"
	"github.com/Cascoda/ca821x-posix-thread/mac/addr"
	"github.com/Cascoda/ca821x-posix-thread/mac/frame"
	"github.com/Cascoda/ca821x-posix-thread/stack"
)

type recordingTransport struct {
	sets []struct {
		attr  uint32
		index uint8
		value []byte
	}
}

func (t *recordingTransport) MLMESet(attribute uint32, index uint8, value []byte) (uint8, error) {
	t.sets = append(t.sets, struct {
		attr  uint32
		index uint8
		value []byte
	}{attribute, index, append([]byte(nil), value...)})
	return cascoda.MACSuccess, nil
}
func (t *recordingTransport) MLMEGet(attribute uint32, index uint8) ([]byte, uint8, error) {
	return nil, cascoda.MACNoData, nil
}
func (t *recordingTransport) MLMEReset(bool) (uint8, error)         { return cascoda.MACSuccess, nil }
func (t *recordingTransport) MLMEStart(uint16, uint8, uint8, uint8, bool) (uint8, error) {
	return cascoda.MACSuccess, nil
}
func (t *recordingTransport) MLMEScan(uint8, uint32, uint8, addr.Security) (uint8, error) {
	return cascoda.MACSuccess, nil
}
func (t *recordingTransport) MLMEPoll(addr.Addr, addr.Security) (uint8, error) {
	return cascoda.MACSuccess, nil
}
func (t *recordingTransport) HWMESet(uint8, []byte) (uint8, error)     { return cascoda.MACSuccess, nil }
func (t *recordingTransport) HWMEGet(uint8) ([]byte, uint8, error)     { return nil, cascoda.MACSuccess, nil }
func (t *recordingTransport) MCPSData(cascoda.DataRequest) (uint8, error) {
	return cascoda.MACSuccess, nil
}

func (t *recordingTransport) countAttr(attr uint32) int {
	n := 0
	for _, s := range t.sets {
		if s.attr == attr {
			n++
		}
	}
	return n
}

func (t *recordingTransport) lastValue(attr uint32) []byte {
	var v []byte
	for _, s := range t.sets {
		if s.attr == attr {
			v = s.value
		}
	}
	return v
}

func (t *recordingTransport) valuesForAttr(attr uint32) [][]byte {
	var out [][]byte
	for _, s := range t.sets {
		if s.attr == attr {
			out = append(out, s.value)
		}
	}
	return out
}

type fakeStack struct {
	role     stack.Role
	children []stack.Neighbor
	routers  []stack.Neighbor
	parent   stack.Neighbor
	keySeq   uint32
}

func (f *fakeStack) Role() stack.Role                 { return f.role }
func (f *fakeStack) PANID() uint16                    { return 0xFACE }
func (f *fakeStack) Channel() uint8                   { return 15 }
func (f *fakeStack) KeySequence() uint32              { return f.keySeq }
func (f *fakeStack) Children() []stack.Neighbor       { return f.children }
func (f *fakeStack) Routers() []stack.Neighbor        { return f.routers }
func (f *fakeStack) Parent() stack.Neighbor           { return f.parent }
func (f *fakeStack) DeriveKey(seq uint32) ([16]byte, bool) {
	var k [16]byte
	k[0] = byte(seq)
	return k, true
}
func (f *fakeStack) OnReceive(pkt *frame.RadioPacket, err error)          {}
func (f *fakeStack) OnTransmitDone(ctx interface{}, ack bool, err error) {}
func (f *fakeStack) OnActiveScanResult(r *stack.ActiveScanResult)        {}
func (f *fakeStack) OnEnergyScanResult(r *stack.EnergyScanResult)        {}

func TestSyncWritesChildrenAndRouters(t *testing.T) {
	tr := &recordingTransport{}
	st := &fakeStack{
		role: stack.RoleRouter,
		children: []stack.Neighbor{
			{ExtAddr: [8]byte{1}, ShortAddr: 0x0001, PANID: 0xFACE},
			{ExtAddr: [8]byte{2}, ShortAddr: 0x0002, PANID: 0xFACE},
		},
		routers: []stack.Neighbor{
			{ExtAddr: [8]byte{3}, ShortAddr: 0x0003, PANID: 0xFACE},
		},
		keySeq: 10,
	}
	sync := &Synchronizer{Transport: tr, Stack: st}
	sync.Sync()

	if n := tr.countAttr(cascoda.AttrDeviceTable); n != 3 {
		t.Fatalf("device table writes = %d, want 3", n)
	}
	count := tr.lastValue(cascoda.AttrDeviceTableEntries)
	if len(count) != 1 || count[0] != 3 {
		t.Fatalf("device table entry count = %v, want [3]", count)
	}
}

func TestSyncEmitsSingleParentForChildRole(t *testing.T) {
	tr := &recordingTransport{}
	st := &fakeStack{
		role:   stack.RoleChild,
		parent: stack.Neighbor{ExtAddr: [8]byte{9}, ShortAddr: 0x0009, PANID: 0xFACE},
		keySeq: 1,
	}
	sync := &Synchronizer{Transport: tr, Stack: st}
	sync.Sync()

	if n := tr.countAttr(cascoda.AttrDeviceTable); n != 1 {
		t.Fatalf("device table writes = %d, want 1", n)
	}
}

func TestSyncSkipsSequenceZeroGenerations(t *testing.T) {
	tr := &recordingTransport{}
	st := &fakeStack{role: stack.RoleChild, keySeq: 0}
	sync := &Synchronizer{Transport: tr, Stack: st}
	sync.Sync()

	// seq=0 -> previous would be skipped (no seq-1 emitted at all), current=0
	// skipped, next=1 written: exactly one key table entry.
	count := tr.lastValue(cascoda.AttrKeyTableEntries)
	if len(count) != 1 || count[0] != 1 {
		t.Fatalf("key table entry count = %v, want [1]", count)
	}
}

func TestKeyDescriptorLookupDataLayout(t *testing.T) {
	tr := &recordingTransport{}
	st := &fakeStack{role: stack.RoleChild, keySeq: 10}
	sync := &Synchronizer{Transport: tr, Stack: st}
	sync.Sync()

	values := tr.valuesForAttr(cascoda.AttrKeyTable)
	if len(values) == 0 {
		t.Fatalf("no key table writes recorded")
	}

	// encodeKeyDescriptor lays out Key[16] ++ LookupData[9] ++
	// LookupDataSize[1] ++ UsageFrameTypes[2] ++ count[1] ++ indices, so
	// LookupData[0] sits at buf[16] and LookupData[8] at buf[24].
	for _, buf := range values {
		if len(buf) < 25 {
			t.Fatalf("key descriptor too short: %d bytes", len(buf))
		}
		for _, b := range buf[17:24] {
			if b != 0 {
				t.Fatalf("LookupData[1:8] = %v, want all zero", buf[17:24])
			}
		}
		if buf[24] != 0xFF {
			t.Fatalf("LookupData[8] = %#x, want 0xFF", buf[24])
		}
		keyIndex := buf[16]
		if keyIndex == 0 || keyIndex > 0x80 {
			t.Fatalf("LookupData[0] = %#x, want a 1..0x80 key index", keyIndex)
		}
	}
}
