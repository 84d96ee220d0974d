package commsutil

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    string
		wantErr bool
	}{
		{name: "map", input: map[string]string{"key": "value"}, want: `{"key":"value"}`},
		{name: "nil", input: nil, want: "null"},
		{name: "channel is not serializable", input: make(chan int), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("commsutil:codec_test - expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("commsutil:codec_test - EncodePayload() = %q, want %q", data, tt.want)
			}
		})
	}
}

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantLen int
		wantErr bool
	}{
		{name: "empty input", data: "", wantLen: 0},
		{name: "whitespace", data: "   ", wantLen: 0},
		{name: "null", data: "null", wantLen: 0},
		{name: "object", data: `{"series_id":"GDP","limit":10}`, wantLen: 2},
		{name: "array rejected", data: `[1,2]`, wantErr: true},
		{name: "string rejected", data: `"GDP"`, wantErr: true},
		{name: "malformed", data: `{"a":`, wantErr: true},
		{name: "trailing data", data: `{"a":1} {"b":2}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeObject([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("commsutil:codec_test - expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("commsutil:codec_test - len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestDecodeObject_KeepsNumbersExact(t *testing.T) {
	got, err := DecodeObject([]byte(`{"release_id": 9007199254740993}`))
	if err != nil {
		t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
	}
	n, ok := got["release_id"].(json.Number)
	if !ok {
		t.Fatalf("commsutil:codec_test - release_id type = %T, want json.Number", got["release_id"])
	}
	if n.String() != "9007199254740993" {
		t.Errorf("commsutil:codec_test - release_id = %s, want 9007199254740993", n)
	}
}

func TestDecodeObject_NotObjectSentinel(t *testing.T) {
	_, err := DecodeObject([]byte(`[]`))
	if !errors.Is(err, ErrNotObject) {
		t.Errorf("commsutil:codec_test - err = %v, want ErrNotObject", err)
	}
}
