package state

import "testing"

func TestEnableDisableCycle(t *testing.T) {
	var m Machine
	if m.Current() != Disabled {
		t.Fatalf("zero value = %v, want Disabled", m.Current())
	}
	if err := m.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if m.Current() != Sleep {
		t.Fatalf("after Enable = %v, want Sleep", m.Current())
	}
	if err := m.Enable(); err != ErrBusy {
		t.Fatalf("double Enable err = %v, want ErrBusy", err)
	}
	if err := m.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if m.Current() != Disabled {
		t.Fatalf("after Disable = %v, want Disabled", m.Current())
	}
}

func TestTransmitRejectedFromWrongState(t *testing.T) {
	var m Machine
	if err := m.BeginTransmit(); err != ErrBusy {
		t.Fatalf("BeginTransmit from Disabled err = %v, want ErrBusy", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	var m Machine
	mustOK(t, m.Enable())
	mustOK(t, m.ReceiveOn())
	mustOK(t, m.ReceiveOn()) // channel change, same state
	mustOK(t, m.BeginTransmit())
	if err := m.GoToSleep(); err != ErrBusy {
		t.Fatalf("GoToSleep while Transmit err = %v, want ErrBusy", err)
	}
	mustOK(t, m.EndTransmit())
	if m.Current() != Receive {
		t.Fatalf("after EndTransmit = %v, want Receive", m.Current())
	}
	mustOK(t, m.GoToSleep())
	if m.Current() != Sleep {
		t.Fatalf("after GoToSleep = %v, want Sleep", m.Current())
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
