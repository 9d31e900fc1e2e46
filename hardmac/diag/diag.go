//go:build hardmac_diag

// Package diag is an optional MQTT diagnostic exporter for field debugging:
// it republishes radio-state transitions, in-transit table occupancy,
// device-cache liveness, and scan results to a broker. It is not part of
// the stack-facing API; nothing in this module's normal operation depends
// on it, so it is built only with the hardmac_diag tag.
//
// Adapted nearly verbatim from the teacher's cmd/mqttradio/mqtt.go connect/
// publish/de-dup idiom, re-pointed at this module's own event shapes instead
// of radio payload messages. The teacher's reflection-based internal
// subscription-hook forwarding (mq.subHooks/Subscribe) has no counterpart
// here — this exporter only ever publishes, it never needs to route
// messages back in-process — so that part of mqtt.go is not carried over.
package diag

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config describes how to reach the diagnostic MQTT broker.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Exporter publishes diagnostic events to an MQTT broker.
type Exporter struct {
	conn      mqtt.Client
	LogPrintf func(string, ...interface{})

	dedupMu sync.Mutex
	dedup   map[uint64]time.Time
}

// New connects to conf's broker and returns a ready Exporter.
func New(conf Config, logf func(string, ...interface{})) (*Exporter, error) {
	hostname, _ := os.Hostname()
	id := "hardmacd-" + hostname

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", conf.Host, conf.Port))
	opts.ClientID = id
	opts.Username = conf.User
	opts.Password = conf.Password

	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(10 * time.Second) {
		return nil, token.Error()
	}

	e := &Exporter{conn: client, LogPrintf: logf, dedup: make(map[uint64]time.Time)}
	go e.gc()
	return e, nil
}

// gc periodically discards old de-dup entries, mirroring mqtt.go's gc loop.
func (e *Exporter) gc() {
	for {
		time.Sleep(time.Minute)
		e.dedupMu.Lock()
		tooOld := time.Now().Add(-10 * time.Minute)
		for h, t := range e.dedup {
			if t.Before(tooOld) {
				delete(e.dedup, h)
			}
		}
		e.dedupMu.Unlock()
	}
}

func (e *Exporter) logf(format string, args ...interface{}) {
	if e.LogPrintf != nil {
		e.LogPrintf(format, args...)
	}
}

// publish marshals payload as JSON and publishes it under topic, recording
// a de-dup hash the way mqtt.go does for its loopback subscriptions (kept
// here even though this exporter has no internal subscribers, since a field
// debugger may run several hardmacd instances sharing one broker topic
// space and wants to tell its own echoes apart).
func (e *Exporter) publish(topic string, payload interface{}) {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		e.logf("diag: marshal %s: %v", topic, err)
		return
	}
	e.conn.Publish(topic, 1, false, jsonPayload)

	hash := hashMessage(topic, string(jsonPayload))
	e.dedupMu.Lock()
	e.dedup[hash] = time.Now()
	e.dedupMu.Unlock()
}

// PublishStateChange reports a radio state machine transition.
func (e *Exporter) PublishStateChange(from, to string) {
	e.publish("hardmac/state", struct{ From, To string }{from, to})
}

// PublishIntransitOccupancy reports the in-transit table's current live
// record count.
func (e *Exporter) PublishIntransitOccupancy(occupied int) {
	e.publish("hardmac/intransit", struct{ Occupied int }{occupied})
}

// PublishDeviceLiveness reports a device cache liveness query result.
func (e *Exporter) PublishDeviceLiveness(ext [8]byte, active bool) {
	e.publish("hardmac/devicecache", struct {
		ExtAddr string
		Active  bool
	}{fmt.Sprintf("%x", ext), active})
}

// PublishScanResult reports one scan result (energy or active).
func (e *Exporter) PublishScanResult(channel uint8, rssiOrLQI int, kind string) {
	e.publish("hardmac/scan", struct {
		Channel uint8
		Value   int
		Kind    string
	}{channel, rssiOrLQI, kind})
}

func hashMessage(s ...string) uint64 {
	key := strings.Join(s, "ǂ")
	h := fnv.New64()
	h.Write([]byte(key))
	return h.Sum64()
}
