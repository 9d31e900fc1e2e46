// Package scan implements the scan driver (component G): translates the
// stack's active/energy scan requests into MLME-SCAN-request calls and
// streams beacon notifications and completion back upward, grounded on
// original_source's otPlatRadioActiveScan/otPlatRadioEnergyScan and their
// handleBeaconNotify/handleScanConfirm callbacks.
package scan

import (
	"errors"
	"math"
	"sync"

	"github.com/Cascoda/ca821x-posix-thread/cascoda"
	"github.com/Cascoda/ca821x-posix-thread/hardmac/barrier"
	"github.com/Cascoda/ca821x-posix-thread/mac/addr"
	"github.com/Cascoda/ca821x-posix-thread/mac/frame"
	"github.com/Cascoda/ca821x-posix-thread/stack"
)

const (
	minChannel = 11
	maxChannel = 26

	activeDefaultExponent uint8 = 5
	energyDefaultExponent uint8 = 6
)

// ErrScanInProgress is returned when a scan is requested while one is
// already running, per spec §4.7 ("at most one scan in flight").
var ErrScanInProgress = errors.New("scan: already in progress")

// allChannelsMask sets bits 11..26, the "channel mask of 0 means channels
// 11..26" default from spec §4.7.
const allChannelsMask uint32 = ((1 << (maxChannel + 1)) - 1) &^ ((1 << minChannel) - 1)

// durationExponent implements clamp(log2(ms/15), 0, 14), with ms < 50
// defaulting to defaultExp rather than evaluating the log, per spec §4.7
// and its round-trip law in §8.
func durationExponent(ms uint32, defaultExp uint8) uint8 {
	if ms < 50 {
		return defaultExp
	}
	v := math.Log2(float64(ms) / 15.0)
	e := int(v)
	if e < 0 {
		e = 0
	}
	if e > 14 {
		e = 14
	}
	return uint8(e)
}

type scanType uint8

const (
	none scanType = iota
	active
	energy
)

// Driver runs at most one scan at a time and restores the previously
// selected channel when it completes.
type Driver struct {
	Transport cascoda.Transport
	Stack     stack.Stack
	Barrier   *barrier.Barrier
	LogPrintf func(string, ...interface{})

	mu            sync.Mutex
	inProgress    scanType
	savedChannel  uint8
	remainingMask uint32
}

func (d *Driver) logf(format string, args ...interface{}) {
	if d.LogPrintf != nil {
		d.LogPrintf(format, args...)
	}
}

func normalizeMask(mask uint32) uint32 {
	if mask == 0 {
		return allChannelsMask
	}
	return mask & allChannelsMask
}

// ActiveScan begins an active scan over channelMask (0 meaning 11..26) for
// approximately durationMs milliseconds per channel.
func (d *Driver) ActiveScan(channelMask uint32, durationMs uint32, currentChannel uint8) (uint8, error) {
	d.mu.Lock()
	if d.inProgress != none {
		d.mu.Unlock()
		return 0, ErrScanInProgress
	}
	d.inProgress = active
	d.savedChannel = currentChannel
	d.mu.Unlock()

	mask := normalizeMask(channelMask)
	exponent := durationExponent(durationMs, activeDefaultExponent)
	status, err := d.Transport.MLMEScan(cascoda.ScanTypeActive, mask, exponent, addr.Security{})
	if err != nil || status != cascoda.MACSuccess {
		d.finish()
	}
	return status, err
}

// EnergyScan begins an energy scan; see ActiveScan for parameter semantics.
func (d *Driver) EnergyScan(channelMask uint32, durationMs uint32, currentChannel uint8) (uint8, error) {
	d.mu.Lock()
	if d.inProgress != none {
		d.mu.Unlock()
		return 0, ErrScanInProgress
	}
	d.inProgress = energy
	d.savedChannel = currentChannel
	d.remainingMask = normalizeMask(channelMask)
	d.mu.Unlock()

	exponent := durationExponent(durationMs, energyDefaultExponent)
	status, err := d.Transport.MLMEScan(cascoda.ScanTypeEnergy, d.remainingMask, exponent, addr.Security{})
	if err != nil || status != cascoda.MACSuccess {
		d.finish()
	}
	return status, err
}

// OnBeaconNotify handles one MLME-BEACON-NOTIFY.indication during an active
// scan: parse the beacon payload and deliver a result to the stack under the
// barrier.
func (d *Driver) OnBeaconNotify(ind cascoda.BeaconNotifyIndication) {
	d.mu.Lock()
	inProgress := d.inProgress
	d.mu.Unlock()
	if inProgress != active {
		return
	}

	payload, err := frame.DecodeBeaconPayload(ind.SDU)
	if err != nil {
		d.logf("scan: dropping malformed beacon: %v", err)
		return
	}
	result := &stack.ActiveScanResult{
		Channel:     ind.LogicalChannel,
		LQI:         ind.LinkQuality,
		NetworkName: payload.NetworkName,
		ExtendedPAN: payload.ExtendedPAN,
	}
	d.Barrier.Invoke(func() {
		d.Stack.OnActiveScanResult(result)
	})
}

// OnScanConfirm handles the MLME-SCAN.confirm that ends any scan: for an
// energy scan it walks the result list pairing each RSSI with the lowest
// channel still set in the mask, then signals completion and restores the
// previously selected channel.
func (d *Driver) OnScanConfirm(conf cascoda.ScanConfirm) {
	d.mu.Lock()
	kind := d.inProgress
	mask := d.remainingMask
	d.mu.Unlock()
	if kind == none {
		return
	}

	if kind == energy {
		for _, rssi := range conf.ResultList {
			ch := lowestSetChannel(mask)
			if ch == 0 {
				break
			}
			mask &^= 1 << ch
			result := &stack.EnergyScanResult{Channel: ch, MaxRSSI: rssi}
			d.Barrier.Invoke(func() {
				d.Stack.OnEnergyScanResult(result)
			})
		}
		d.Barrier.Invoke(func() {
			d.Stack.OnEnergyScanResult(nil)
		})
	} else {
		d.Barrier.Invoke(func() {
			d.Stack.OnActiveScanResult(nil)
		})
	}
	d.restoreChannel()
	d.finish()
}

// restoreChannel puts the co-processor back on the channel it was tuned to
// before the scan began, per spec §4.7 ("restoring the previously selected
// channel").
func (d *Driver) restoreChannel() {
	d.mu.Lock()
	ch := d.savedChannel
	d.mu.Unlock()
	if _, err := d.Transport.MLMESet(cascoda.AttrCurrentChannel, 0, []byte{ch}); err != nil {
		d.logf("scan: failed to restore channel %d: %v", ch, err)
	}
}

func lowestSetChannel(mask uint32) uint8 {
	for ch := uint8(minChannel); ch <= maxChannel; ch++ {
		if mask&(1<<ch) != 0 {
			return ch
		}
	}
	return 0
}

func (d *Driver) finish() {
	d.mu.Lock()
	d.inProgress = none
	d.remainingMask = 0
	d.mu.Unlock()
}
