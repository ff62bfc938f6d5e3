package ids

import "testing"

func TestNewIsUniqueAndOrdered(t *testing.T) {
	const n = 1000
	prev := ""
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := New()
		if len(id) != 26 {
			t.Fatalf("expected 26-char ULID, got %q", id)
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = struct{}{}
		if id <= prev {
			t.Fatalf("ids must be strictly increasing: %q after %q", id, prev)
		}
		prev = id
	}
}
