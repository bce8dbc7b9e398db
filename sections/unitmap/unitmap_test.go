package unitmap

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ykcfg/mir"
	"ykcfg/sections"
	"ykcfg/sections/mircfg"
)

var le64 = sections.Layout{ByteOrder: binary.LittleEndian, PointerWidth: 8}

func TestRoundTrip(t *testing.T) {
	units := []mir.Unit{
		{Name: "core", Hash: 0x1234},
		{Name: "main", Hash: 0xffffffffffffffff},
	}

	data, err := Encode(units, le64)
	if err != nil {
		t.Fatal(err)
	}

	version, got, err := Decode(data, le64)
	if err != nil {
		t.Fatal(err)
	}
	if version != mircfg.FormatVersion {
		t.Errorf("version = %d, want %d", version, mircfg.FormatVersion)
	}
	if diff := cmp.Diff(units, got); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestEmpty(t *testing.T) {
	data, err := Encode(nil, le64)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 8 {
		t.Errorf("empty map is %d bytes, want 8", len(data))
	}
}

func TestDuplicateHash(t *testing.T) {
	units := []mir.Unit{{Name: "a", Hash: 1}, {Name: "b", Hash: 1}}
	if _, err := Encode(units, le64); err == nil {
		t.Errorf("Encode() accepted two units with the same hash")
	}
}

func TestDecodeTrailing(t *testing.T) {
	data, _ := Encode([]mir.Unit{{Name: "a", Hash: 1}}, le64)
	if _, _, err := Decode(append(data, 0), le64); err == nil {
		t.Errorf("Decode() accepted trailing bytes")
	}
	if _, _, err := Decode(data[:len(data)-1], le64); err == nil {
		t.Errorf("Decode() accepted a truncated map")
	}
}
