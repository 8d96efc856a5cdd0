package transfer

import (
	"bytes"
	"hash/crc32"
	"testing"

	"github.com/golang/snappy"
)

func TestSegmentFrameIntegrity(t *testing.T) {
	payload := bytes.Repeat([]byte("redcomponent"), 100)
	frame := segmentFrame{
		OperationID: "op-1",
		SegmentID:   "seg-1",
		DataID:      "shard-a",
		Offset:      0,
		Size:        int64(len(payload)),
		Checksum:    crc32.ChecksumIEEE(payload),
		Compressed:  true,
		Payload:     snappy.Encode(nil, payload),
	}

	codec := jsonCodec{}
	if codec.Name() != "json" {
		t.Errorf("unexpected codec name %s", codec.Name())
	}

	wire, err := codec.Marshal(&frame)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got segmentFrame
	if err := codec.Unmarshal(wire, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !got.Compressed {
		t.Fatal("compressed flag lost")
	}
	decoded, err := snappy.Decode(nil, got.Payload)
	if err != nil {
		t.Fatalf("snappy decode failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("payload corrupted in transit")
	}
	if crc32.ChecksumIEEE(decoded) != got.Checksum {
		t.Error("checksum mismatch after decompression")
	}
	if got.Size != int64(len(payload)) {
		t.Errorf("size field must describe the uncompressed payload, got %d", got.Size)
	}
}
