// Package frame implements the bidirectional bijection between a PHY-level
// IEEE 802.15.4-2006 PDU (as the Thread stack hands it to, and receives it
// from, the platform) and the co-processor's structured MCPS-DATA request
// and indication parameter sets. See spec.md §4.1.
//
// The codec style — a small cursor walking a byte slice with explicit
// bounds checks rather than pointer arithmetic over a C struct — replaces
// the original implementation's "params + msduLength + 29" pointer offset
// (spec.md §9, Open Question 4): every read here is checked against the
// buffer length before it happens.
package frame

import (
	"errors"
	"fmt"

	"github.com/Cascoda/ca821x-posix-thread/cascoda"
	"github.com/Cascoda/ca821x-posix-thread/mac/addr"
)

const (
	maxPHYLength = 127
	minPHYLength = 5
	baseHeaderLen = 3 // frame control (2) + sequence number (1)
)

// Frame control field bit layout, IEEE 802.15.4-2006 §7.2.1.
const (
	fcFrameTypeMask uint16 = 0x0007
	fcSecurityEna   uint16 = 1 << 3
	fcAckRequest    uint16 = 1 << 5
	fcPANCompress   uint16 = 1 << 6
	fcDstAddrShift         = 10
	fcSrcAddrShift         = 14
	fcAddrModeMask  uint16 = 0x3

	frameTypeData    uint16 = 0x01
	frameTypeCommand uint16 = 0x03
)

// TxOptions bits for cascoda.DataRequest, per spec.md §4.1.
const (
	TxOptionAckRequest uint8 = 1 << 0
	TxOptionIndirect   uint8 = 1 << 2
)

// RadioPacket is the PHY-level PDU exchanged with the Thread stack, per
// spec.md §3.
type RadioPacket struct {
	Length  uint8  // 1..127, bytes significant in Buffer
	Buffer  [maxPHYLength]byte
	Channel uint8 // 11..26
	LQI     uint8
	Power   int8 // dBm estimate
	Direct  bool // true: direct transmission, false: indirect (held for a sleepy child)
	Context interface{} // opaque, routes the eventual transmit-done callback
}

// Psdu returns the significant prefix of Buffer.
func (p *RadioPacket) Psdu() []byte { return p.Buffer[:p.Length] }

var (
	// ErrUnsupportedFrameType is returned by Encode when the frame is
	// neither a data frame nor a MAC command frame.
	ErrUnsupportedFrameType = errors.New("frame: unsupported frame type for transmission")
	// ErrReservedAddrMode is returned when an addressing mode field is the
	// reserved value 1.
	ErrReservedAddrMode = errors.New("frame: reserved addressing mode")
	// ErrTooLong is returned when a decoded frame would exceed 127 bytes.
	ErrTooLong = errors.New("frame: decoded length exceeds 127 bytes")
	// ErrTruncated is returned when a cursor read would run past the end of
	// the buffer: the defensive replacement for the original's raw pointer
	// arithmetic (spec.md §9 Open Question 4).
	ErrTruncated = errors.New("frame: truncated header")
)

// cursor is a bounds-checked view over a byte slice, replacing the raw
// pointer-offset arithmetic ("params + msduLength + 29") used by the first,
// non-authoritative implementation described in spec.md §9.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) take(n int) ([]byte, error) {
	if c.pos < 0 || c.pos+n > len(c.buf) {
		return nil, ErrTruncated
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) byte() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Encode converts a stack-supplied RadioPacket into the MCPS-DATA.request
// parameter set the co-processor expects. It rejects anything that is not a
// data or MAC-command frame with ErrUnsupportedFrameType, per spec.md §4.1.
func Encode(p *RadioPacket) (cascoda.DataRequest, error) {
	var req cascoda.DataRequest
	psdu := p.Psdu()
	if len(psdu) < minPHYLength {
		return req, ErrTruncated
	}

	fc := uint16(psdu[0]) | uint16(psdu[1])<<8
	frameType := fc & fcFrameTypeMask
	if frameType != frameTypeData && frameType != frameTypeCommand {
		return req, fmt.Errorf("%w: frame type %#x", ErrUnsupportedFrameType, frameType)
	}

	srcMode := addr.Mode((fc >> fcSrcAddrShift) & fcAddrModeMask)
	dstMode := addr.Mode((fc >> fcDstAddrShift) & fcAddrModeMask)
	ackReq := fc&fcAckRequest != 0
	panCompressed := fc&fcPANCompress != 0
	secEnabled := fc&fcSecurityEna != 0

	c := &cursor{buf: psdu, pos: baseHeaderLen}

	req.SrcAddrMode = srcMode
	req.DstAddrMode = dstMode
	req.TxOptions = 0
	if ackReq {
		req.TxOptions |= TxOptionAckRequest
	}
	if !p.Direct {
		req.TxOptions |= TxOptionIndirect
	}

	switch dstMode {
	case addr.ModeShort, addr.ModeExtended:
		panBytes, err := c.take(2)
		if err != nil {
			return req, err
		}
		req.DstPANID = le16(panBytes)
		n := dstMode.Len()
		addrBytes, err := c.take(n)
		if err != nil {
			return req, err
		}
		copy(req.DstAddr[:n], addrBytes)
	case addr.ModeNone:
		// no destination address present
	default:
		return req, ErrReservedAddrMode
	}

	if srcMode != addr.ModeNone {
		if srcMode == addr.ModeReserved {
			return req, ErrReservedAddrMode
		}
		if !panCompressed {
			if _, err := c.take(2); err != nil { // source PAN, not otherwise used downward
				return req, err
			}
		}
		if _, err := c.take(srcMode.Len()); err != nil {
			return req, err
		}
	}

	var sec addr.Security
	if secEnabled {
		ashStart := c.pos
		secControl, err := c.byte()
		if err != nil {
			return req, err
		}
		sec.Level = secControl & 0x07
		sec.KeyIDMode = (secControl >> 3) & 0x03
		if _, err := c.take(4); err != nil { // frame counter
			return req, err
		}
		switch sec.KeyIDMode {
		case 1:
			b, err := c.byte()
			if err != nil {
				return req, err
			}
			sec.KeyIndex = b
		case 2:
			ks, err := c.take(4)
			if err != nil {
				return req, err
			}
			copy(sec.KeySource[:4], ks)
			b, err := c.byte()
			if err != nil {
				return req, err
			}
			sec.KeyIndex = b
		case 3:
			ks, err := c.take(8)
			if err != nil {
				return req, err
			}
			copy(sec.KeySource[:8], ks)
			b, err := c.byte()
			if err != nil {
				return req, err
			}
			sec.KeyIndex = b
		}
		_ = ashStart
	}
	req.Security = sec

	headerLen := c.pos
	// Data and command frames alike: the MSDU is the copied slice between
	// the end of the header and the start of the MIC+FCS footer.
	footerLen := addr.FooterLen(sec.Level) + 2 // +2 for FCS
	if len(psdu) < headerLen+footerLen {
		return req, ErrTruncated
	}
	req.Msdu = append([]byte(nil), psdu[headerLen:len(psdu)-footerLen]...)
	return req, nil
}

// Decode converts an MCPS-DATA.indication parameter set into a stack PDU.
// channel is the radio's currently tuned channel, stamped onto the result
// since the indication itself carries no channel field. Edge cases from
// spec.md §4.1 (reserved addressing modes, resulting length > 127) return an
// error; callers must log and drop rather than propagate these upward.
func Decode(ind cascoda.DataIndication, channel uint8) (*RadioPacket, error) {
	if ind.SrcAddrMode == addr.ModeReserved || ind.DstAddrMode == addr.ModeReserved {
		return nil, ErrReservedAddrMode
	}

	var fc uint16
	fc |= (uint16(ind.SrcAddrMode) & fcAddrModeMask) << fcSrcAddrShift
	fc |= (uint16(ind.DstAddrMode) & fcAddrModeMask) << fcDstAddrShift
	fc |= frameTypeData
	secEnabled := ind.Security.Level != 0
	if secEnabled {
		fc |= fcSecurityEna
	}

	var p RadioPacket
	pos := baseHeaderLen

	writeAddrField := func(mode addr.Mode, panID uint16, a [8]byte, writePAN bool) {
		if writePAN {
			le16put(p.Buffer[pos:pos+2], panID)
			pos += 2
		}
		n := mode.Len()
		copy(p.Buffer[pos:pos+n], a[:n])
		pos += n
	}

	if ind.DstAddrMode != addr.ModeNone {
		writeAddrField(ind.DstAddrMode, ind.DstPANID, ind.DstAddr, true)
	}

	samePAN := ind.SrcPANID == ind.DstPANID
	if ind.SrcAddrMode != addr.ModeNone {
		if !samePAN {
			writeAddrField(ind.SrcAddrMode, ind.SrcPANID, ind.SrcAddr, true)
		} else {
			writeAddrField(ind.SrcAddrMode, 0, ind.SrcAddr, false)
			fc |= fcPANCompress
		}
	}

	le16put(p.Buffer[0:2], fc)

	headerLen := pos
	if secEnabled {
		ashStart := headerLen
		secControl := ind.Security.Level&0x07 | (ind.Security.KeyIDMode&0x03)<<3
		p.Buffer[ashStart] = secControl
		pos = ashStart + 5 // security control (1) + frame counter (4, left zero: the indication carries no frame counter)
		switch ind.Security.KeyIDMode {
		case 1:
			p.Buffer[pos] = ind.Security.KeyIndex
			pos++
		case 2:
			copy(p.Buffer[pos:pos+4], ind.Security.KeySource[:4])
			pos += 4
			p.Buffer[pos] = ind.Security.KeyIndex
			pos++
		case 3:
			copy(p.Buffer[pos:pos+8], ind.Security.KeySource[:8])
			pos += 8
			p.Buffer[pos] = ind.Security.KeyIndex
			pos++
		}
		headerLen = pos
	}

	footerLen := addr.FooterLen(ind.Security.Level) + 2
	length := headerLen + len(ind.Msdu) + footerLen
	if length > maxPHYLength {
		return nil, fmt.Errorf("%w: %d", ErrTooLong, length)
	}
	copy(p.Buffer[headerLen:], ind.Msdu)

	p.Length = uint8(length)
	p.Channel = channel
	p.LQI = ind.MpduLinkQuality
	p.Power = int8((int(ind.MpduLinkQuality) - 256) / 2)
	p.Direct = true
	return &p, nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

func le16put(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
