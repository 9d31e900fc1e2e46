package eui64

import "testing"

type memStore struct {
	value [8]byte
	ok    bool
}

func (m *memStore) Load() ([8]byte, bool, error) { return m.value, m.ok, nil }
func (m *memStore) Save(v [8]byte) error {
	m.value = v
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

func TestGeneratesOnceAndPersists(t *testing.T) {
	store := &memStore{}
	p := New(store, fixedRand{b: 0x42})

	v1, err := p.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !store.ok {
		t.Fatal("expected value to be saved after first Get")
	}

	v2, err := p.Get()
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if v1 != v2 {
		t.Fatalf("EUI-64 changed between calls: %x != %x", v1, v2)
	}
}

func TestLoadsExistingValueWithoutRegenerating(t *testing.T) {
	existing := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	store := &memStore{value: existing, ok: true}
	p := New(store, fixedRand{b: 0xFF})

	v, err := p.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != existing {
		t.Fatalf("Get = %x, want stored value %x", v, existing)
	}
}
