package hardmac

import (
	"sync"
	"testing"

	"github.com/Cascoda/ca821x-posix-thread/cascoda"
	"github.com/Cascoda/ca821x-posix-thread/cascoda/harness"
	"github.com/Cascoda/ca821x-posix-thread/mac/frame"
	"github.com/Cascoda/ca821x-posix-thread/stack"
)

type fakeStack struct {
	mu           sync.Mutex
	role         stack.Role
	panID        uint16
	channel      uint8
	received     []*frame.RadioPacket
	transmitDone []bool
}

func (f *fakeStack) Role() stack.Role       { return f.role }
func (f *fakeStack) PANID() uint16          { return f.panID }
func (f *fakeStack) Channel() uint8         { return f.channel }
func (f *fakeStack) KeySequence() uint32    { return 1 }
func (f *fakeStack) Children() []stack.Neighbor { return nil }
func (f *fakeStack) Routers() []stack.Neighbor  { return nil }
func (f *fakeStack) Parent() stack.Neighbor     { return stack.Neighbor{} }
func (f *fakeStack) DeriveKey(sequence uint32) ([16]byte, bool) {
	return [16]byte{}, true
}

func (f *fakeStack) OnReceive(pkt *frame.RadioPacket, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, pkt)
}

func (f *fakeStack) OnTransmitDone(context interface{}, ackReceived bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transmitDone = append(f.transmitDone, ackReceived)
}

func (f *fakeStack) OnActiveScanResult(result *stack.ActiveScanResult) {}
func (f *fakeStack) OnEnergyScanResult(result *stack.EnergyScanResult) {}

type memStore struct {
	value [8]byte
	ok    bool
}

func (m *memStore) Load() ([8]byte, bool, error) { return m.value, m.ok, nil }
func (m *memStore) Save(value [8]byte) error {
	m.value = value
	m.ok = true
	return nil
}

type fixedRand struct{ b byte }

func (f fixedRand) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = f.b
	}
	return len(p), nil
}

func newTestRadio(t *testing.T) (*Radio, *harness.Loopback, *fakeStack) {
	t.Helper()
	st := &fakeStack{role: stack.RoleChild, panID: 0xABCD, channel: 15}
	var lb *harness.Loopback
	var r *Radio
	// Radio implements cascoda.Callbacks, but Init needs the transport before
	// r exists; NewLoopback needs the callbacks before the transport. Break
	// the cycle with a forwarding shim, mirroring how a real worker thread
	// is wired up only after both halves exist.
	fwd := &callbackForwarder{}
	lb = harness.NewLoopback(fwd)
	radio, err := Init(lb, st, &memStore{}, fixedRand{0x42}, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	r = radio
	fwd.target = r
	return r, lb, st
}

type callbackForwarder struct {
	target cascoda.Callbacks
}

func (c *callbackForwarder) OnDataIndication(ind cascoda.DataIndication) { c.target.OnDataIndication(ind) }
func (c *callbackForwarder) OnDataConfirm(conf cascoda.DataConfirm)      { c.target.OnDataConfirm(conf) }
func (c *callbackForwarder) OnBeaconNotify(ind cascoda.BeaconNotifyIndication) {
	c.target.OnBeaconNotify(ind)
}
func (c *callbackForwarder) OnScanConfirm(conf cascoda.ScanConfirm)  { c.target.OnScanConfirm(conf) }
func (c *callbackForwarder) OnGenericDispatch(buf []byte)            { c.target.OnGenericDispatch(buf) }

func TestEnableReceiveTransmitLifecycle(t *testing.T) {
	r, lb, st := newTestRadio(t)

	if status := r.Enable(); status != StatusNone {
		t.Fatalf("Enable: %v", status)
	}
	if status := r.Receive(15); status != StatusNone {
		t.Fatalf("Receive: %v", status)
	}

	pkt := r.GetTransmitBuffer()
	pkt.Length = 9
	pkt.Buffer[0] = 0x01 // data frame, no security, no ack, no addressing
	pkt.Buffer[1] = 0x00
	pkt.Buffer[2] = 0x00 // sequence

	if status := r.Transmit(pkt); status != StatusNone {
		t.Fatalf("Transmit: %v", status)
	}

	go r.Barrier.ProcessWait()
	lb.DeliverConfirm(cascoda.MACSuccess)

	st.mu.Lock()
	got := len(st.transmitDone)
	st.mu.Unlock()
	if got != 1 {
		t.Fatalf("transmitDone len = %d, want 1", got)
	}
}

func TestTransmitRejectedWhileDisabled(t *testing.T) {
	r, _, _ := newTestRadio(t)
	pkt := r.GetTransmitBuffer()
	if status := r.Transmit(pkt); status != StatusBusy {
		t.Fatalf("Transmit while disabled = %v, want busy", status)
	}
}

func TestGetIEEEEui64PersistsAcrossCalls(t *testing.T) {
	r, _, _ := newTestRadio(t)
	first, err := r.GetIEEEEui64()
	if err != nil {
		t.Fatalf("GetIEEEEui64: %v", err)
	}
	second, err := r.GetIEEEEui64()
	if err != nil {
		t.Fatalf("GetIEEEEui64: %v", err)
	}
	if first != second {
		t.Fatalf("EUI-64 changed between calls: %x != %x", first, second)
	}
	if first[0]&0x02 == 0 {
		t.Fatalf("locally-administered bit not set: %x", first)
	}
}

func TestSetPromiscuousRoundTrip(t *testing.T) {
	r, _, _ := newTestRadio(t)
	if r.GetPromiscuous() {
		t.Fatalf("promiscuous true before any Set")
	}
	if status := r.SetPromiscuous(true); status != StatusNone {
		t.Fatalf("SetPromiscuous: %v", status)
	}
	if !r.GetPromiscuous() {
		t.Fatalf("promiscuous not set")
	}
}

func TestStateChangeFiresKeytableHook(t *testing.T) {
	r, lb, _ := newTestRadio(t)
	r.StateChange(stack.FlagChildAdded)
	raw, status, err := lb.MLMEGet(cascoda.AttrDeviceTableEntries, 0)
	if err != nil {
		t.Fatalf("MLMEGet: %v", err)
	}
	if status != cascoda.MACSuccess {
		t.Fatalf("MLMEGet status = %#x", status)
	}
	if len(raw) != 1 || raw[0] != 1 {
		t.Fatalf("device table entries = %v, want [1] (child role emits a single parent descriptor)", raw)
	}
}
