// Package harness is a loopback test double for cascoda.Transport, used by
// this module's own package tests in place of a real UART/SPI bridge to the
// co-processor. It is modeled on the teacher's shim.go (SPI/GPIO adaptors
// over github.com/kidoman/embd) and spimux.Conn (a mutex-guarded shared SPI
// bus with a GPIO chip-select multiplexer): the harness keeps that same
// "shared bus + interrupt pin" shape so that a real transport could be
// substituted without the rest of this module noticing the difference.
package harness

import (
	"sync"
	"time"

	"github.com/kidoman/embd"
	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/spi"

	"github.com/Cascoda/ca821x-posix-thread/cascoda"
	"github.com/Cascoda/ca821x-posix-thread/mac/addr"
)

// wireConn is a loopback stand-in for the spi.Conn a real co-processor
// bridge would hold; it just echoes what is written, the way spimux.Conn
// shares one physical bus behind a mutex and a select pin.
type wireConn struct {
	mu  sync.Mutex
	sel gpio.Level
}

func (w *wireConn) Tx(write, read []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	copy(read, write)
	return nil
}

func (w *wireConn) String() string { return "harness.wireConn" }

func (w *wireConn) Duplex() conn.Duplex { return conn.Full }

var _ spi.Conn = (*wireConn)(nil)

// irqPin simulates the co-processor's interrupt request line, following the
// embd.DigitalPin.Watch → channel adaptor in shim.go's gpio type.
type irqPin struct {
	mu   sync.Mutex
	edge chan struct{}
	dir  embd.Direction
}

func newIRQPin() *irqPin {
	return &irqPin{edge: make(chan struct{}, 1), dir: embd.In}
}

// Raise simulates the co-processor asserting its interrupt line; the harness
// calls this internally whenever a queued indication or confirm is ready for
// delivery, mirroring the embd edge-callback pattern (g.edgeCB in shim.go). A
// pin configured for output cannot report an edge, matching embd's own
// Watch/edge-callback pairing which only operates on an In-direction pin.
func (p *irqPin) Raise() {
	if p.dir != embd.In {
		return
	}
	select {
	case p.edge <- struct{}{}:
	default:
	}
}

func (p *irqPin) WaitForEdge(timeout time.Duration) bool {
	select {
	case <-p.edge:
		return true
	case <-time.After(timeout):
		return false
	}
}

// pibEntry is one simulated MLME/HWME attribute slot.
type pibEntry struct {
	value  []byte
	status uint8
}

// Loopback is an in-process cascoda.Transport: MLME-SET/GET round-trip
// through an in-memory PIB table instead of a real co-processor, and
// MCPS-DATA.request always returns success and is queued for a test to
// complete asynchronously via DeliverConfirm. It satisfies cascoda.Transport so
// package tests elsewhere in this module can exercise hardmac without
// hardware.
type Loopback struct {
	mu   sync.Mutex
	pib  map[uint32]map[uint8]pibEntry
	hw   map[uint8][]byte
	wire *wireConn
	irq  *irqPin

	cb      cascoda.Callbacks
	pending []cascoda.DataRequest
}

// NewLoopback constructs an empty Loopback bound to the given callback sink.
// cb receives OnDataIndication/OnDataConfirm/etc. calls exactly as a real
// worker thread reading off the wire would deliver them.
func NewLoopback(cb cascoda.Callbacks) *Loopback {
	return &Loopback{
		pib:  make(map[uint32]map[uint8]pibEntry),
		hw:   make(map[uint8][]byte),
		wire: &wireConn{},
		irq:  newIRQPin(),
		cb:   cb,
	}
}

var _ cascoda.Transport = (*Loopback)(nil)

func (l *Loopback) MLMESet(attribute uint32, index uint8, value []byte) (uint8, error) {
	echo := make([]byte, len(value))
	if err := l.wire.Tx(value, echo); err != nil {
		return cascoda.MACTransactionExpired, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pib[attribute] == nil {
		l.pib[attribute] = make(map[uint8]pibEntry)
	}
	l.pib[attribute][index] = pibEntry{value: echo, status: cascoda.MACSuccess}
	return cascoda.MACSuccess, nil
}

func (l *Loopback) MLMEGet(attribute uint32, index uint8) ([]byte, uint8, error) {
	l.mu.Lock()
	idx, ok := l.pib[attribute]
	if !ok {
		l.mu.Unlock()
		return nil, cascoda.MACNoData, nil
	}
	e, ok := idx[index]
	l.mu.Unlock()
	if !ok {
		return nil, cascoda.MACNoData, nil
	}

	echo := make([]byte, len(e.value))
	if err := l.wire.Tx(e.value, echo); err != nil {
		return nil, cascoda.MACTransactionExpired, err
	}
	return echo, e.status, nil
}

func (l *Loopback) MLMEReset(setDefaultPIB bool) (uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if setDefaultPIB {
		l.pib = make(map[uint32]map[uint8]pibEntry)
	}
	return cascoda.MACSuccess, nil
}

func (l *Loopback) MLMEStart(panID uint16, channel uint8, beaconOrder, superframeOrder uint8, panCoordinator bool) (uint8, error) {
	return cascoda.MACSuccess, nil
}

func (l *Loopback) MLMEScan(scanType uint8, channels uint32, duration uint8, security addr.Security) (uint8, error) {
	return cascoda.MACSuccess, nil
}

func (l *Loopback) MLMEPoll(coord addr.Addr, security addr.Security) (uint8, error) {
	return cascoda.MACNoData, nil
}

func (l *Loopback) HWMESet(attribute uint8, value []byte) (uint8, error) {
	echo := make([]byte, len(value))
	if err := l.wire.Tx(value, echo); err != nil {
		return cascoda.MACTransactionExpired, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hw[attribute] = echo
	return cascoda.MACSuccess, nil
}

func (l *Loopback) HWMEGet(attribute uint8) ([]byte, uint8, error) {
	l.mu.Lock()
	v, ok := l.hw[attribute]
	l.mu.Unlock()
	if !ok {
		return nil, cascoda.MACNoData, nil
	}
	echo := make([]byte, len(v))
	if err := l.wire.Tx(v, echo); err != nil {
		return nil, cascoda.MACTransactionExpired, err
	}
	return echo, cascoda.MACSuccess, nil
}

func (l *Loopback) MCPSData(req cascoda.DataRequest) (uint8, error) {
	echo := make([]byte, len(req.Msdu))
	if err := l.wire.Tx(req.Msdu, echo); err != nil {
		return cascoda.MACTransactionExpired, err
	}

	l.mu.Lock()
	l.pending = append(l.pending, req)
	l.mu.Unlock()
	l.irq.Raise()
	return cascoda.MACSuccess, nil
}

// irqWaitTimeout bounds how long DeliverConfirm/DeliverIndication wait for
// the edge MCPSData raised; the harness is in-process so the edge is always
// already pending by the time a test calls Deliver*.
const irqWaitTimeout = 10 * time.Millisecond

// DeliverConfirm simulates the co-processor's async MCPS-DATA.confirm for
// the oldest still-pending request, the way a test drives the worker thread
// side of an in-transit round trip. It waits for the interrupt line MCPSData
// raised, mirroring a real bridge that only services the confirm once IRQ
// fires.
func (l *Loopback) DeliverConfirm(status uint8) {
	if !l.irq.WaitForEdge(irqWaitTimeout) {
		return
	}

	l.mu.Lock()
	if len(l.pending) == 0 {
		l.mu.Unlock()
		return
	}
	req := l.pending[0]
	l.pending = l.pending[1:]
	l.mu.Unlock()
	l.cb.OnDataConfirm(cascoda.DataConfirm{MsduHandle: req.MsduHandle, Status: status})
}

// DeliverIndication injects an inbound frame as if received over the air: the
// co-processor raises IRQ for an unsolicited indication exactly as it does
// for a confirm, so the harness does the same before waiting on the edge.
func (l *Loopback) DeliverIndication(ind cascoda.DataIndication) {
	l.irq.Raise()
	l.irq.WaitForEdge(irqWaitTimeout)
	l.cb.OnDataIndication(ind)
}
