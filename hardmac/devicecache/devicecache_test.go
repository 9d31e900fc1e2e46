package devicecache

import "testing"

type fakeReader struct {
	rows []DeviceTableRow
}

func (f *fakeReader) ReadDeviceTable() ([]DeviceTableRow, error) { return f.rows, nil }

func TestFirstQueryAfterInsertReturnsInactive(t *testing.T) {
	ext := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	r := &fakeReader{rows: []DeviceTableRow{{ExtAddr: ext, FrameCounter: 5}}}
	c := New(r, 5)

	active, err := c.IsActive(ext)
	if err != nil {
		t.Fatalf("IsActive: %v", err)
	}
	if active {
		t.Fatal("first query should report inactive (no delta yet)")
	}
}

func TestActiveAfterFrameCounterAdvances(t *testing.T) {
	ext := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	r := &fakeReader{rows: []DeviceTableRow{{ExtAddr: ext, FrameCounter: 5}}}
	c := New(r, 5)

	if _, err := c.IsActive(ext); err != nil {
		t.Fatalf("first IsActive: %v", err)
	}

	r.rows[0].FrameCounter = 6
	active, err := c.IsActive(ext)
	if err != nil {
		t.Fatalf("second IsActive: %v", err)
	}
	if !active {
		t.Fatal("expected active after frame counter advanced")
	}

	active, err = c.IsActive(ext)
	if err != nil {
		t.Fatalf("third IsActive: %v", err)
	}
	if active {
		t.Fatal("expected inactive once counter has not advanced again")
	}
}

func TestStaleEntryDiscardedOnRefresh(t *testing.T) {
	ext1 := [8]byte{1}
	ext2 := [8]byte{2}
	r := &fakeReader{rows: []DeviceTableRow{{ExtAddr: ext1, FrameCounter: 1}}}
	c := New(r, 5)
	c.IsActive(ext1)

	r.rows = []DeviceTableRow{{ExtAddr: ext2, FrameCounter: 1}}
	active, err := c.IsActive(ext1)
	if err != nil {
		t.Fatalf("IsActive: %v", err)
	}
	if active {
		t.Fatal("evicted entry should not report active")
	}
}
