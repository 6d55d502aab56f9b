// Package codec holds the shared Frame type and Parser contract that
// every bitstream parser (codec/ac3, codec/dts, codec/hevc, codec/vc1,
// codec/flac, codec/vorbis, codec/aac) implements.
package codec

// Frame is one demuxed codec frame ready for packetization.
type Frame struct {
	Data          []byte
	TimestampNS   int64
	DurationNS    int64
	KeyFrame      bool
	RefHints      []int64 // timestamps of frames this one references, if known
	ParamsChanged bool    // header fields changed since the previous frame
}

// Parser is the shared bitstream-parser contract (§4.4): callers push raw
// bytes in, the parser advances its internal state machine and hands
// back whatever complete frames became available, and Flush drains any
// trailing partial state at end of stream.
type Parser interface {
	AddBytes(b []byte) ([]Frame, error)
	Flush() ([]Frame, error)
}
