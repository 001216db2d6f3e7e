package types

import (
	"encoding/json"
	"testing"
)

func TestNewID(t *testing.T) {
	id1 := NewID()
	id2 := NewID()

	if id1.IsZero() || id2.IsZero() {
		t.Fatal("NewID() returned a zero ID")
	}
	if id1 == id2 {
		t.Errorf("NewID() returned duplicate IDs: %v", id1)
	}
	if err := id1.Validate(); err != nil {
		t.Errorf("NewID() produced invalid ID: %v", err)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid uuid", "550e8400-e29b-41d4-a716-446655440000", false},
		{"empty string", "", true},
		{"not a uuid", "plan-1", true},
		{"truncated uuid", "550e8400-e29b-41d4", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && id.String() != tt.input {
				t.Errorf("ParseID(%q) = %v, want round-trip", tt.input, id)
			}
		})
	}
}

func TestID_Short(t *testing.T) {
	id := ID("550e8400-e29b-41d4-a716-446655440000")
	if got := id.Short(); got != "550e8400" {
		t.Errorf("Short() = %q, want %q", got, "550e8400")
	}
	if got := ID("").Short(); got != "" {
		t.Errorf("Short() on zero ID = %q, want empty", got)
	}
	if got := ID("abc").Short(); got != "abc" {
		t.Errorf("Short() on short ID = %q, want %q", got, "abc")
	}
}

func TestID_JSON(t *testing.T) {
	id := NewID()

	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded ID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded != id {
		t.Errorf("round-trip = %v, want %v", decoded, id)
	}

	// Zero IDs serialize as null and deserialize back to zero.
	data, err = json.Marshal(ID(""))
	if err != nil {
		t.Fatalf("Marshal(zero) error = %v", err)
	}
	if string(data) != "null" {
		t.Errorf("Marshal(zero) = %s, want null", data)
	}

	var fromEmpty ID
	if err := json.Unmarshal([]byte(`""`), &fromEmpty); err != nil {
		t.Fatalf("Unmarshal(empty) error = %v", err)
	}
	if !fromEmpty.IsZero() {
		t.Errorf("Unmarshal(empty) = %v, want zero", fromEmpty)
	}

	if err := json.Unmarshal([]byte(`"not-a-uuid"`), &fromEmpty); err == nil {
		t.Error("Unmarshal(invalid) should fail")
	}
}
