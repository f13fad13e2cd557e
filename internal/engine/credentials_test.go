package engine

import "testing"

func TestCredentialPoolRotatesAfterLimit(t *testing.T) {
	pool := NewCredentialPool([]string{"key-a", "key-b"}, 100)

	first, ok := pool.Next()
	if !ok || first.Token != "key-a" {
		t.Fatalf("Next() = %v, %v, want key-a", first, ok)
	}
	for i := 0; i < 100; i++ {
		pool.RecordUse(first)
	}
	if !first.Active {
		t.Fatal("credential deactivated after 100 uses, want active until the 101st")
	}
	pool.RecordUse(first)
	if first.Active {
		t.Fatal("credential still active after 101 uses")
	}

	for i := 0; i < 5; i++ {
		c, ok := pool.Next()
		if !ok || c.Token != "key-b" {
			t.Fatalf("Next() = %v, %v, want key-b", c, ok)
		}
	}
}

func TestCredentialPoolDeactivate(t *testing.T) {
	pool := NewCredentialPool([]string{"a", "b"}, 0)
	a, _ := pool.Next()
	pool.Deactivate(a)
	pool.Deactivate(a)

	b, ok := pool.Next()
	if !ok || b.Token != "b" {
		t.Fatalf("Next() = %v, want b", b)
	}
	if pool.Exhausted() {
		t.Fatal("Exhausted() = true with one active key")
	}
	pool.Deactivate(b)
	if !pool.Exhausted() {
		t.Fatal("Exhausted() = false with no active key")
	}
	if c, ok := pool.Next(); ok {
		t.Errorf("Next() on exhausted pool = %v", c)
	}
	// Usage after deactivation never resurrects a key.
	pool.RecordUse(a)
	if !pool.Exhausted() {
		t.Error("RecordUse reactivated a key")
	}
}

func TestCredentialPoolDefaultLimit(t *testing.T) {
	pool := NewCredentialPool([]string{"k"}, 0)
	c, _ := pool.Next()
	for i := 0; i < DefaultRequestLimit; i++ {
		pool.RecordUse(c)
	}
	if pool.Exhausted() {
		t.Fatalf("exhausted after %d uses", DefaultRequestLimit)
	}
	pool.RecordUse(c)
	if !pool.Exhausted() {
		t.Fatalf("not exhausted after %d uses", DefaultRequestLimit+1)
	}
}

func TestCredentialPoolSnapshot(t *testing.T) {
	pool := NewCredentialPool([]string{"k1", "k2"}, 10)
	c, _ := pool.Next()
	pool.RecordUse(c)

	snap := pool.Snapshot()
	if len(snap) != 2 || pool.Len() != 2 {
		t.Fatalf("Snapshot() len = %d, Len() = %d, want 2", len(snap), pool.Len())
	}
	if snap[0].Requests != 1 || !snap[0].Active {
		t.Errorf("snap[0] = %+v", snap[0])
	}
	snap[0].Active = false
	if pool.Exhausted() || !c.Active {
		t.Error("modifying snapshot changed the pool")
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"short", "***"},
		{"AIzaSyD-abcdef", "AIza…ef"},
	}
	for _, tt := range tests {
		if got := maskToken(tt.in); got != tt.want {
			t.Errorf("maskToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
