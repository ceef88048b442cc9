package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFreshness_JSONByName(t *testing.T) {
	for _, f := range []Freshness{Fresh, Aging, Stale, Expired} {
		b, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("marshal %v: %v", f, err)
		}
		var back Freshness
		if err := json.Unmarshal(b, &back); err != nil || back != f {
			t.Fatalf("%s round trip = %v err=%v", b, back, err)
		}
	}
	var f Freshness
	if err := json.Unmarshal([]byte(`"ROTTEN"`), &f); err == nil {
		t.Fatalf("unknown name should fail")
	}
}

func TestEntry_Expired(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	e := Entry[int]{Data: 1, CreatedAt: t0}
	if e.Expired(t0.Add(TTL)) {
		t.Fatalf("age equal to TTL is still served")
	}
	if !e.Expired(t0.Add(TTL + time.Millisecond)) {
		t.Fatalf("age past TTL must expire")
	}
}

func TestStatusSnapshot_Equal(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := StatusSnapshot{Status: "OPEN", Total: 2, UpdatedAt: t0, Extra: map[string]any{"zone": "B", "n": 1.0}}
	b := a
	b.Extra = map[string]any{"zone": "B", "n": 1.0}
	if !a.Equal(b) {
		t.Fatalf("value equal snapshots differ")
	}
	b.Extra["nested"] = map[string]any{}
	if a.Equal(b) {
		t.Fatalf("extra key should differ")
	}
	c := a
	c.Picked = 1
	if a.Equal(c) {
		t.Fatalf("picked should differ")
	}

	nested := func(zones ...any) StatusSnapshot {
		return StatusSnapshot{Status: "OPEN", UpdatedAt: t0, Extra: map[string]any{
			"zones": zones,
			"dock":  map[string]any{"door": 4.0},
		}}
	}
	if !nested("A", "B").Equal(nested("A", "B")) {
		t.Fatalf("identical nested extras should be equal")
	}
	if nested("A", "B").Equal(nested("B", "A")) {
		t.Fatalf("reordered zones should differ")
	}
	if !(StatusSnapshot{Status: "OPEN"}).Equal(StatusSnapshot{Status: "OPEN", Extra: map[string]any{}}) {
		t.Fatalf("nil and empty extras should be equal")
	}
}

func TestLineItem_Key(t *testing.T) {
	a := LineItem{Name: "ab", Variant: "c"}
	b := LineItem{Name: "a", Variant: "bc"}
	if a.Key() == b.Key() {
		t.Fatalf("keys must not collide")
	}
}
