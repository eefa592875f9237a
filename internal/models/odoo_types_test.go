package models

import (
	"encoding/json"
	"testing"
)

func TestOdooString_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OdooString
		wantErr bool
	}{
		{"plain string", `"W-BLZ-001"`, "W-BLZ-001", false},
		{"empty string", `""`, "", false},
		{"false means empty", `false`, "", false},
		{"true kept literal", `true`, "true", false},
		{"number rejected", `42`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got OdooString
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOdooString_Scan(t *testing.T) {
	var s OdooString
	if err := s.Scan("hello"); err != nil || s != "hello" {
		t.Errorf("Scan(string) = %q, %v", s, err)
	}
	if err := s.Scan([]byte("bytes")); err != nil || s != "bytes" {
		t.Errorf("Scan([]byte) = %q, %v", s, err)
	}
	if err := s.Scan(nil); err != nil || s != "" {
		t.Errorf("Scan(nil) = %q, %v", s, err)
	}
	if err := s.Scan(12); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestOdooRef_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OdooRef
		wantErr bool
	}{
		{"many2one tuple", `[7, "Boutique Lyon"]`, 7, false},
		{"bare id", `42`, 42, false},
		{"false means unset", `false`, 0, false},
		{"empty tuple", `[]`, 0, false},
		{"string rejected", `"7"`, 0, true},
		{"tuple without id", `["Boutique Lyon"]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got OdooRef
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestOdooRef_Scan(t *testing.T) {
	var r OdooRef
	if err := r.Scan(int64(9)); err != nil || r.Int64() != 9 {
		t.Errorf("Scan(int64) = %d, %v", r, err)
	}
	if err := r.Scan(float64(3)); err != nil || r.Int64() != 3 {
		t.Errorf("Scan(float64) = %d, %v", r, err)
	}
	if err := r.Scan(nil); err != nil || r != 0 {
		t.Errorf("Scan(nil) = %d, %v", r, err)
	}
	if err := r.Scan("x"); err == nil {
		t.Error("Scan(string) should fail")
	}
}
