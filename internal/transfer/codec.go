package transfer

import "encoding/json"

// segmentFrame is the request frame carrying one segment to the target node
type segmentFrame struct {
	OperationID string `json:"operation_id"`
	SegmentID   string `json:"segment_id"`
	DataID      string `json:"data_id"`
	Offset      int64  `json:"offset"`
	Size        int64  `json:"size"` // Uncompressed payload size
	Compressed  bool   `json:"compressed"`
	Checksum    uint32 `json:"checksum,omitempty"` // CRC-32 (IEEE) of the uncompressed payload
	Payload     []byte `json:"payload"`
}

// segmentAck is the target node's per-segment response
type segmentAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// jsonCodec is a grpc codec for the segment frames. The segment wire format
// is private to this collaborator; no generated stubs are involved.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "json" }
