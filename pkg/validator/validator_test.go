package validator

import "testing"

func TestValid(t *testing.T) {
	v := New()
	if !v.Valid() {
		t.Fatalf("new validator should be valid")
	}

	v.Check(false, "latitude", "must be between -90 and 90")
	if v.Valid() {
		t.Fatalf("validator with a failed check should not be valid")
	}
	if got := v.Errors["latitude"]; got != "must be between -90 and 90" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestCheckPassingConditionAddsNothing(t *testing.T) {
	v := New()
	v.Check(true, "driver_id", "must be provided")
	if len(v.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", v.Errors)
	}
}

func TestAddErrorKeepsFirstMessage(t *testing.T) {
	v := New()
	v.AddError("heading", "must be between 0 and 360")
	v.AddError("heading", "second message")
	if got := v.Errors["heading"]; got != "must be between 0 and 360" {
		t.Fatalf("first message should win, got %q", got)
	}
}

func TestIn(t *testing.T) {
	if !In("sync", "sync", "async") {
		t.Fatalf("expected sync to be permitted")
	}
	if In("batch", "sync", "async") {
		t.Fatalf("batch should not be permitted")
	}
}
