package hostmem

import "testing"

func TestAcquireRelease(t *testing.T) {
	m := New()

	mapping, err := m.Acquire(0x1000, 4096)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	data := mapping.Bytes()
	if len(data) != 4096 {
		t.Fatalf("Bytes() len = %d, want 4096", len(data))
	}
	copy(data, []byte("hello"))
	if string(mapping.Bytes()[:5]) != "hello" {
		t.Errorf("mapping did not retain written bytes")
	}

	if err := mapping.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := mapping.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got: %v", err)
	}
}

func TestAcquireZeroLength(t *testing.T) {
	m := New()

	mapping, err := m.Acquire(0x2000, 0)
	if err != nil {
		t.Fatalf("Acquire(0): %v", err)
	}
	if len(mapping.Bytes()) != 0 {
		t.Errorf("Bytes() on a zero-length mapping should be empty")
	}
	if err := mapping.Release(); err != nil {
		t.Errorf("Release on zero-length mapping: %v", err)
	}
}
