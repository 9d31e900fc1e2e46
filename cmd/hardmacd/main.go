// Command hardmacd is an example process wiring together hardmac.Init,
// Enable, and a receive loop, in the style of the teacher's
// cmd/mqttradio/main.go: parse flags, construct collaborators, run forever.
//
// A real deployment links this module against the actual Thread/IPv6 stack
// and a real co-processor transport; since both are declared out of scope
// (spec.md §1), this command wires the in-process loopback harness and a
// minimal logging stack stand-in instead, to demonstrate the call sequence
// an integrator would follow.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/Cascoda/ca821x-posix-thread/cascoda"
	"github.com/Cascoda/ca821x-posix-thread/cascoda/harness"
	"github.com/Cascoda/ca821x-posix-thread/config"
	"github.com/Cascoda/ca821x-posix-thread/hardmac"
	"github.com/Cascoda/ca821x-posix-thread/hardmac/workerthread"
	"github.com/Cascoda/ca821x-posix-thread/mac/frame"
	"github.com/Cascoda/ca821x-posix-thread/stack"
)

// logStack is a minimal stack.Stack that never attaches to anything; it
// just logs every event it's handed. Good enough to exercise the wiring in
// run(); a real build replaces it with the actual Thread stack binding.
type logStack struct {
	logf func(string, ...interface{})
}

func (s logStack) Role() stack.Role                   { return stack.RoleChild }
func (s logStack) PANID() uint16                      { return 0 }
func (s logStack) Channel() uint8                     { return 15 }
func (s logStack) KeySequence() uint32                { return 0 }
func (s logStack) Children() []stack.Neighbor         { return nil }
func (s logStack) Routers() []stack.Neighbor          { return nil }
func (s logStack) Parent() stack.Neighbor             { return stack.Neighbor{} }
func (s logStack) DeriveKey(uint32) ([16]byte, bool)  { return [16]byte{}, false }

func (s logStack) OnReceive(pkt *frame.RadioPacket, err error) {
	if err != nil {
		s.logf("hardmacd: receive error: %v", err)
		return
	}
	s.logf("hardmacd: received %d-byte frame on channel %d", len(pkt.Psdu()), pkt.Channel)
}

func (s logStack) OnTransmitDone(context interface{}, ackReceived bool, err error) {
	s.logf("hardmacd: transmit done, ack=%v err=%v", ackReceived, err)
}

func (s logStack) OnActiveScanResult(result *stack.ActiveScanResult) {
	if result == nil {
		s.logf("hardmacd: active scan complete")
		return
	}
	s.logf("hardmacd: beacon on channel %d, network %q", result.Channel, result.NetworkName)
}

func (s logStack) OnEnergyScanResult(result *stack.EnergyScanResult) {
	if result == nil {
		s.logf("hardmacd: energy scan complete")
		return
	}
	s.logf("hardmacd: channel %d max RSSI %d dBm", result.Channel, result.MaxRSSI)
}

// fileStore persists the EUI-64 to a plain file, one line of hex.
type fileStore struct {
	path string
}

func (f fileStore) Load() ([8]byte, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return [8]byte{}, false, nil
		}
		return [8]byte{}, false, err
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil || len(decoded) != 8 {
		return [8]byte{}, false, fmt.Errorf("hardmacd: malformed eui64 file %s", f.path)
	}
	var v [8]byte
	copy(v[:], decoded)
	return v, true, nil
}

func (f fileStore) Save(value [8]byte) error {
	return os.WriteFile(f.path, []byte(hex.EncodeToString(value[:])+"\n"), 0600)
}

func run(confPath, euiPath string, debug bool) error {
	var logf func(string, ...interface{})
	if debug {
		logf = log.Printf
	}

	var conf config.Config
	if confPath != "" {
		f, err := os.Open(confPath)
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}
		defer f.Close()
		conf, err = config.Load(f)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		conf = config.Default()
	}

	st := logStack{logf: logf}

	var radio *hardmac.Radio
	transport := harness.NewLoopback(radioCallbacks{&radio})

	r, err := hardmac.Init(transport, st, fileStore{euiPath}, rand.New(rand.NewSource(time.Now().UnixNano())), logf)
	if err != nil {
		return fmt.Errorf("hardmac.Init: %w", err)
	}
	radio = r

	if status := radio.SetPANID(conf.PANID); status != hardmac.StatusNone {
		return fmt.Errorf("SetPANID: %s", status)
	}
	if status := radio.SetExtendedPanID(conf.ExtendedPANID); status != hardmac.StatusNone {
		return fmt.Errorf("SetExtendedPanID: %s", status)
	}
	if status := radio.SetNetworkName(conf.NetworkName); status != hardmac.StatusNone {
		return fmt.Errorf("SetNetworkName: %s", status)
	}

	if status := radio.Enable(); status != hardmac.StatusNone {
		return fmt.Errorf("Enable: %s", status)
	}
	if status := radio.Receive(conf.Channel); status != hardmac.StatusNone {
		return fmt.Errorf("Receive: %s", status)
	}

	log.Printf("hardmacd ready on channel %d", conf.Channel)
	go func() {
		if err := workerthread.Pin(); err != nil {
			log.Printf("hardmacd: worker thread pin failed (continuing): %v", err)
		}
		for {
			radio.Barrier.ProcessWait()
		}
	}()

	for {
		time.Sleep(time.Hour)
	}
}

// radioCallbacks forwards to whatever *hardmac.Radio has been assigned by
// the time an indication arrives; it exists only to break the construction
// cycle between harness.NewLoopback (needs a Callbacks sink) and
// hardmac.Init (needs the transport first).
type radioCallbacks struct {
	radio **hardmac.Radio
}

func (c radioCallbacks) OnDataIndication(ind cascoda.DataIndication) {
	(*c.radio).OnDataIndication(ind)
}
func (c radioCallbacks) OnDataConfirm(conf cascoda.DataConfirm) { (*c.radio).OnDataConfirm(conf) }
func (c radioCallbacks) OnBeaconNotify(ind cascoda.BeaconNotifyIndication) {
	(*c.radio).OnBeaconNotify(ind)
}
func (c radioCallbacks) OnScanConfirm(conf cascoda.ScanConfirm) { (*c.radio).OnScanConfirm(conf) }
func (c radioCallbacks) OnGenericDispatch(buf []byte)           { (*c.radio).OnGenericDispatch(buf) }

func main() {
	confPath := flag.String("config", "", "path to a JSON config file (defaults built in if omitted)")
	euiPath := flag.String("eui64", "hardmacd.eui64", "path to the persisted EUI-64 file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := run(*confPath, *euiPath, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "hardmacd: %s\n", err)
		os.Exit(1)
	}
}
