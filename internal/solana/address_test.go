package solana

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParsePublicKey(t *testing.T) {
	valid := []string{
		"11111111111111111111111111111111",
		"So11111111111111111111111111111111111111112",
		TopocoinMint,
	}
	for _, s := range valid {
		pk, err := ParsePublicKey(s)
		if err != nil {
			t.Errorf("ParsePublicKey(%q) error: %v", s, err)
			continue
		}
		if pk.String() != s {
			t.Errorf("round trip %q -> %q", s, pk.String())
		}
	}
	if !MustPublicKey("11111111111111111111111111111111").IsZero() {
		t.Error("system program address should be all zeroes")
	}
}

func TestParsePublicKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "abc", "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", TopocoinMint + TopocoinMint} {
		if _, err := ParsePublicKey(s); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ParsePublicKey(%q) error = %v, want ErrInvalidAddress", s, err)
		}
	}
}

func TestPublicKey_JSON(t *testing.T) {
	in := struct {
		Owner PublicKey `json:"owner"`
	}{MustPublicKey(TopocoinMint)}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `{"owner":"`+TopocoinMint+`"}` {
		t.Errorf("json = %s", data)
	}

	var out struct {
		Owner PublicKey `json:"owner"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if out.Owner != in.Owner {
		t.Error("decoded key differs")
	}
	if err := json.Unmarshal([]byte(`{"owner":"nope"}`), &out); err == nil {
		t.Error("expected error for invalid address")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		raw      uint64
		decimals uint8
		want     string
	}{
		{0, 9, "0"},
		{1, 9, "0.000000001"},
		{LamportsPerSOL, SOLDecimals, "1"},
		{1_500_000, 6, "1.5"},
		{123, 0, "123"},
		{120, 2, "1.2"},
		{5, 2, "0.05"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.raw, tt.decimals); got != tt.want {
			t.Errorf("FormatAmount(%d, %d) = %q, want %q", tt.raw, tt.decimals, got, tt.want)
		}
	}
}
