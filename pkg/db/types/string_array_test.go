package dbtypes

import "testing"

func TestStringArrayRoundTrip(t *testing.T) {
	arr := StringArray{"PUSH", "EMAIL"}
	value, err := arr.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if value != "{PUSH,EMAIL}" {
		t.Fatalf("unexpected literal %v", value)
	}

	var parsed StringArray
	if err := parsed.Scan(value); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(parsed) != 2 || parsed[0] != "PUSH" || parsed[1] != "EMAIL" {
		t.Fatalf("unexpected parse result %v", parsed)
	}
}

func TestStringArrayEmptyAndNil(t *testing.T) {
	var parsed StringArray
	if err := parsed.Scan(nil); err != nil {
		t.Fatalf("Scan nil: %v", err)
	}
	if len(parsed) != 0 {
		t.Fatalf("expected empty array, got %v", parsed)
	}

	if err := parsed.Scan("{}"); err != nil {
		t.Fatalf("Scan empty literal: %v", err)
	}
	if len(parsed) != 0 {
		t.Fatalf("expected empty array, got %v", parsed)
	}
}
