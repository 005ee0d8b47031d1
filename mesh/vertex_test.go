package mesh

import (
	"bytes"
	"testing"
)

func TestLightPack(t *testing.T) {
	tests := []struct {
		l    LightLevel
		want uint8
	}{
		{LightLevel{Sky: 5, Block: 9}, 0x59},
		{LightLevel{Sky: 15, Block: 15}, 0xff},
		{LightLevel{}, 0},
		// out of range levels keep only their low nibble
		{LightLevel{Sky: 16, Block: 9}, 0x09},
		{LightLevel{Sky: 5, Block: 17}, 0x51},
		{LightLevel{Sky: 0x2f, Block: 0xf0}, 0xf0},
	}
	for _, tt := range tests {
		if got := tt.l.Pack(); got != tt.want {
			t.Errorf("%+v.Pack() = %#x, want %#x", tt.l, got, tt.want)
		}
	}
	if l := UnpackLight(0x59); l != (LightLevel{Sky: 5, Block: 9}) {
		t.Errorf("UnpackLight(0x59) = %+v", l)
	}
}

func TestEncodeVertexLayout(t *testing.T) {
	v := Vertex{Position: [4]uint8{1, 2, 3, 0x59}, UV: [2]uint16{0x1234, 0xabcd}}
	got := EncodeVertices(nil, []Vertex{v})
	want := []byte{1, 2, 3, 0x59, 0x34, 0x12, 0xcd, 0xab}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}

	cv := ColorVertex{Position: [4]uint8{4, 5, 6, 0xf0}, Color: [4]uint8{10, 20, 30, 255}}
	got = EncodeColorVertices(nil, []ColorVertex{cv})
	want = []byte{4, 5, 6, 0xf0, 10, 20, 30, 255}
	if !bytes.Equal(got, want) {
		t.Fatalf("color: got % x, want % x", got, want)
	}
}

func TestDecodeVerticesBadLength(t *testing.T) {
	if _, err := DecodeVertices(make([]byte, 12)); err == nil {
		t.Error("DecodeVertices accepted 12 bytes")
	}
	if _, err := DecodeColorVertices(make([]byte, 7)); err == nil {
		t.Error("DecodeColorVertices accepted 7 bytes")
	}
}
