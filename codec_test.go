package recdb

import "testing"

type sampleRecord struct {
	Name string
	Age  int
}

func TestGobCodecRoundTrip(t *testing.T) {
	c := GobCodec[sampleRecord]{}
	v := sampleRecord{Name: "ada", Age: 36}
	data, err := c.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %s", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	if got != v {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, v)
	}
}

func TestCompressedCodecRoundTrip(t *testing.T) {
	c := CompressedCodec[sampleRecord]{Inner: GobCodec[sampleRecord]{}}
	v := sampleRecord{Name: "grace", Age: 85}
	data, err := c.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %s", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	if got != v {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, v)
	}
}

func TestXZCodecRoundTrip(t *testing.T) {
	c := XZCodec[sampleRecord]{Inner: GobCodec[sampleRecord]{}}
	v := sampleRecord{Name: "margaret", Age: 92}
	data, err := c.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %s", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	if got != v {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, v)
	}
}

func TestGobCodecDecodeGarbageFails(t *testing.T) {
	c := GobCodec[sampleRecord]{}
	if _, err := c.Decode([]byte{0xDE, 0xAD, 0xBE, 0xEF}); err != ErrDeserialize {
		t.Errorf("expected ErrDeserialize for garbage input, got %v", err)
	}
}
