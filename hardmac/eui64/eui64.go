// Package eui64 persists this device's IEEE EUI-64 across restarts.
//
// original_source generates a fresh EUI-64 from the random source on every
// call to otPlatRadioGetIeeeEui64 — flagged in spec §9 as almost certainly
// wrong, since a device's hardware address must not change between boots.
// This package implements the corrected behavior: generate once, persist,
// and return the stored value on every subsequent call.
package eui64

import "sync"

// RandomSource supplies entropy for the one-time generation. Implemented
// against the stack's random-source collaborator (spec §1, out of scope).
type RandomSource interface {
	Read(p []byte) (n int, err error)
}

// Store is a loader/saver pair for the 8-byte EUI-64, backed by whatever
// durable storage the host process provides (a file, an NVM partition, ...).
type Store interface {
	Load() (value [8]byte, ok bool, err error)
	Save(value [8]byte) error
}

// Provider returns a stable EUI-64, generating and persisting one via rand
// on its very first call if store holds nothing yet.
type Provider struct {
	store Store
	rand  RandomSource

	mu     sync.Mutex
	cached [8]byte
	loaded bool
}

// New returns a Provider backed by store, using rand for the one-time
// generation.
func New(store Store, rand RandomSource) *Provider {
	return &Provider{store: store, rand: rand}
}

// Get returns the persisted EUI-64, generating and saving one on first use.
func (p *Provider) Get() ([8]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.cached, nil
	}

	if v, ok, err := p.store.Load(); err != nil {
		return [8]byte{}, err
	} else if ok {
		p.cached = v
		p.loaded = true
		return p.cached, nil
	}

	var v [8]byte
	if _, err := p.rand.Read(v[:]); err != nil {
		return [8]byte{}, err
	}
	v[0] |= 0x02 // locally administered, per IEEE 802-2014 §8.2.2
	v[0] &^= 0x01 // unicast

	if err := p.store.Save(v); err != nil {
		return [8]byte{}, err
	}
	p.cached = v
	p.loaded = true
	return p.cached, nil
}
