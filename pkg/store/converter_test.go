package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBoolStringForm(t *testing.T) {
	c := Bool()
	v, err := c.FromString("true")
	if err != nil || !v {
		t.Fatalf("FromString(true) = %v, %v", v, err)
	}
	if _, err := c.FromString("yes"); err == nil {
		t.Error("FromString accepted a non-bool string")
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	c := UUID()
	id := uuid.New()

	s, err := c.ToString(id)
	if err != nil {
		t.Fatalf("ToString: %v", err)
	}
	back, err := c.FromString(s)
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	if back != id {
		t.Errorf("string round trip: got %s, want %s", back, id)
	}

	raw, err := c.ToJSON(id)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err = c.FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if back != id {
		t.Errorf("JSON round trip: got %s, want %s", back, id)
	}

	if _, err := c.FromString("not-a-uuid"); err == nil {
		t.Error("FromString accepted garbage")
	}
}

func TestInstantRoundTripPreservesNanos(t *testing.T) {
	c := Instant()
	now := time.Now().UTC()

	s, err := c.ToString(now)
	if err != nil {
		t.Fatalf("ToString: %v", err)
	}
	back, err := c.FromString(s)
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	if !back.Equal(now) {
		t.Errorf("round trip drifted: got %v, want %v", back, now)
	}
}

func TestNullable(t *testing.T) {
	c := Nullable(Int())

	s, err := c.ToString(nil)
	if err != nil || s != "NULL" {
		t.Fatalf("ToString(nil) = %q, %v", s, err)
	}
	v, err := c.FromString("NULL")
	if err != nil || v != nil {
		t.Fatalf("FromString(NULL) = %v, %v", v, err)
	}

	raw, err := c.ToJSON(nil)
	if err != nil || string(raw) != "null" {
		t.Fatalf("ToJSON(nil) = %s, %v", raw, err)
	}

	seven := 7
	s, err = c.ToString(&seven)
	if err != nil || s != "7" {
		t.Fatalf("ToString(&7) = %q, %v", s, err)
	}
	v, err = c.FromString("7")
	if err != nil || v == nil || *v != 7 {
		t.Fatalf("FromString(7) = %v, %v", v, err)
	}
}

func TestListRejectsBadElement(t *testing.T) {
	c := List(Int())

	raw, err := c.ToJSON([]int{1, 2, 3})
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := c.FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if len(back) != 3 || back[0] != 1 || back[2] != 3 {
		t.Errorf("round trip = %v", back)
	}

	if _, err := c.FromJSON(json.RawMessage(`[1, "two", 3]`)); err == nil {
		t.Error("FromJSON accepted a list with a bad element")
	}
}

func TestMapOfUsesKeyStringForm(t *testing.T) {
	c := MapOf(Int(), Text())

	raw, err := c.ToJSON(map[int]string{1: "one", 2: "two"})
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	// Keys must appear as the key converter's string form.
	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err != nil {
		t.Fatalf("encoded form is not an object: %v", err)
	}
	if obj["1"] != "one" || obj["2"] != "two" {
		t.Errorf("encoded object = %v", obj)
	}

	back, err := c.FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if back[1] != "one" || back[2] != "two" {
		t.Errorf("round trip = %v", back)
	}

	if _, err := c.FromJSON(json.RawMessage(`{"x": "bad key"}`)); err == nil {
		t.Error("FromJSON accepted an unconvertible key")
	}
}

func TestJSONOnlyStringFormIsJSONText(t *testing.T) {
	type pair struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	c := JSONOnly(
		func(raw json.RawMessage) (pair, error) {
			var p pair
			err := json.Unmarshal(raw, &p)
			return p, err
		},
		func(p pair) (json.RawMessage, error) { return json.Marshal(p) },
	)

	s, err := c.ToString(pair{A: 1, B: 2})
	if err != nil {
		t.Fatalf("ToString: %v", err)
	}
	back, err := c.FromString(s)
	if err != nil {
		t.Fatalf("FromString(%q): %v", s, err)
	}
	if back != (pair{A: 1, B: 2}) {
		t.Errorf("round trip = %+v", back)
	}
}
