// Package devicecache implements the device activity cache (component H):
// it tracks per-neighbor frame-counter deltas so the platform API can answer
// "is this extended address currently active" for sleepy Thread children,
// per spec §4.8.
package devicecache

type entryState uint8

const (
	empty entryState = iota
	staged
	live
)

type entry struct {
	state        entryState
	ext          [8]byte
	frameCounter uint32
	lastPolled   uint32
}

// DeviceTableReader re-reads the co-processor's device table, returning one
// entry per occupied slot. Implemented by the caller against
// cascoda.Transport's MLME-GET(AttrDeviceTable, ...) calls.
type DeviceTableReader interface {
	ReadDeviceTable() ([]DeviceTableRow, error)
}

// DeviceTableRow is one device table entry as read back from the
// co-processor.
type DeviceTableRow struct {
	ExtAddr      [8]byte
	FrameCounter uint32
}

// Cache mirrors the co-processor's device table capacity and the
// frame-counter value observed at each address's last activity query. It is
// owned and mutated only by the main thread, per spec §5's guardian table.
type Cache struct {
	reader  DeviceTableReader
	entries []entry
}

// New returns a Cache with room for capacity device table rows.
func New(reader DeviceTableReader, capacity int) *Cache {
	return &Cache{reader: reader, entries: make([]entry, capacity)}
}

// refresh re-reads the entire device table and reconciles it against the
// cache: entries not observed are discarded, new entries are inserted as
// staged, and entries seen again are promoted to live. The two-phase
// staged/live flag keeps a stale entry from surviving more than one refresh
// without being re-observed.
func (c *Cache) refresh() error {
	rows, err := c.reader.ReadDeviceTable()
	if err != nil {
		return err
	}

	seen := make([]bool, len(c.entries))
	for _, row := range rows {
		idx := c.find(row.ExtAddr)
		if idx < 0 {
			idx = c.freeSlot()
			if idx < 0 {
				continue // table full of live entries we couldn't match; drop silently
			}
			c.entries[idx] = entry{state: staged, ext: row.ExtAddr, frameCounter: row.FrameCounter}
		} else {
			c.entries[idx].frameCounter = row.FrameCounter
			if c.entries[idx].state == staged {
				c.entries[idx].state = live
			}
		}
		seen[idx] = true
	}
	for i := range c.entries {
		if !seen[i] {
			c.entries[i] = entry{}
		}
	}
	return nil
}

func (c *Cache) find(ext [8]byte) int {
	for i := range c.entries {
		if c.entries[i].state != empty && c.entries[i].ext == ext {
			return i
		}
	}
	return -1
}

func (c *Cache) freeSlot() int {
	for i := range c.entries {
		if c.entries[i].state == empty {
			return i
		}
	}
	return -1
}

// IsActive reports whether ext has been observed with a new frame counter
// since its last IsActive query, per spec §4.8: the first query after an
// entry is inserted returns false (no delta yet available), and each query
// stores the counter value it observed for next time.
func (c *Cache) IsActive(ext [8]byte) (bool, error) {
	if err := c.refresh(); err != nil {
		return false, err
	}
	idx := c.find(ext)
	if idx < 0 {
		return false, nil
	}
	e := &c.entries[idx]
	active := e.state == live && e.frameCounter != e.lastPolled
	e.lastPolled = e.frameCounter
	return active, nil
}
