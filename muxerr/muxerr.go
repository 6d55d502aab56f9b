// Package muxerr defines the typed error taxonomy shared by every layer of
// the muxing pipeline: EBML primitives, bitstream parsers, packetizers, the
// cluster scheduler, the segment assembler and the XML/EBML converter.
//
// Every layer returns one of these kinds wrapped with context using
// github.com/pkg/errors, so that a caller can match on Kind with errors.As
// while still getting a human-readable chain and (where available) a stack
// trace at the point of detection. Internal call chains that add no new
// context keep using the standard library's fmt.Errorf("...: %w", err)
// idiom, matching the style the teacher package already uses throughout
// ebml.go and parser.go.
package muxerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error by the taxonomy of §7: input format errors,
// schema violations, sync/reference errors, I/O errors and internal
// invariants. The orchestrator maps Kind to an exit code; the core itself
// never aborts the process.
type Kind int

const (
	// KindMalformedInput covers bitstreams or containers that do not
	// parse at all (bad sync word, truncated header, ...).
	KindMalformedInput Kind = iota
	// KindUnexpectedEOF covers a read that ran out of bytes mid-element.
	KindUnexpectedEOF
	// KindUnsupportedCodec covers a codec_id the muxer has no packetizer for.
	KindUnsupportedCodec
	// KindUnsupportedParameter covers a recognised codec with a parameter
	// combination this implementation does not handle (e.g. VC-1 simple
	// profile, which only the advanced profile supports per §4.4.4).
	KindUnsupportedParameter
	// KindUnknownXMLElement covers an XML element name the registry has
	// no descriptor for.
	KindUnknownXMLElement
	// KindOutOfRange covers a parsed value outside an element's declared
	// min/max.
	KindOutOfRange
	// KindMissingMandatory covers a mandatory-without-default child that
	// fix_mandatory could not inject because the XML omitted a value the
	// schema requires explicitly.
	KindMissingMandatory
	// KindInvalidAttribute covers a malformed XML attribute (bad binary
	// "format" value, for instance).
	KindInvalidAttribute
	// KindDuplicateChildNode covers a unique-per-parent child that
	// appears twice.
	KindDuplicateChildNode
	// KindUnresolvedReference covers a Block whose bref/fref points at a
	// packet the scheduler never saw — a malformed source stream or a
	// Packetizer contract violation.
	KindUnresolvedReference
	// KindNaluSizeLengthTooSmall covers an HEVC NALU-size-length
	// configured smaller than the largest NAL unit actually observed.
	KindNaluSizeLengthTooSmall
	// KindCodecPrivateMismatch covers chained inputs whose codec_private
	// blobs cannot be reconciled by CanConnectTo.
	KindCodecPrivateMismatch
	// KindIO covers open/read/write/seek failures and out-of-space.
	KindIO
	// KindInternal covers invariant violations considered implementation
	// bugs: ReservedSpaceTooSmall, ClusterReferenceBeyondRetention.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "MalformedInput"
	case KindUnexpectedEOF:
		return "UnexpectedEof"
	case KindUnsupportedCodec:
		return "UnsupportedCodec"
	case KindUnsupportedParameter:
		return "UnsupportedParameter"
	case KindUnknownXMLElement:
		return "UnknownXmlElement"
	case KindOutOfRange:
		return "OutOfRange"
	case KindMissingMandatory:
		return "MissingMandatory"
	case KindInvalidAttribute:
		return "InvalidAttribute"
	case KindDuplicateChildNode:
		return "DuplicateChildNode"
	case KindUnresolvedReference:
		return "UnresolvedReference"
	case KindNaluSizeLengthTooSmall:
		return "NaluSizeLengthTooSmall"
	case KindCodecPrivateMismatch:
		return "CodecPrivateMismatch"
	case KindIO:
		return "IO"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is a typed, located error: it carries the Kind, the offending file
// (when known), a byte offset (when known) and the minimum parameter that
// would resolve the error (only populated for KindNaluSizeLengthTooSmall
// today, per §7's "include the minimum parameter that would fix the
// problem").
type Error struct {
	Kind       Kind
	File       string
	Offset     int64
	MinFixup   int64
	HasOffset  bool
	HasMinFix  bool
	underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.HasOffset && e.File != "":
		return fmt.Sprintf("%s: %s@%s:%d", e.Kind, e.underlying, e.File, e.Offset)
	case e.HasOffset:
		return fmt.Sprintf("%s: %s@offset %d", e.Kind, e.underlying, e.Offset)
	case e.File != "":
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.underlying, e.File)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.underlying)
	}
}

// Unwrap lets errors.Is / errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.underlying }

// New builds an Error of the given kind wrapping msg, with a stack trace
// captured at the call site via github.com/pkg/errors.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, underlying: errors.New(msg)}
}

// Wrap builds an Error of the given kind wrapping an existing error, with a
// stack trace captured at the call site.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, underlying: errors.Wrap(err, msg)}
}

// WithOffset attaches a byte offset to the error (fluent, for call-site
// chaining: `return muxerr.Wrap(...).WithOffset(pos)`).
func (e *Error) WithOffset(off int64) *Error {
	e.Offset = off
	e.HasOffset = true
	return e
}

// WithFile attaches the offending file name to the error.
func (e *Error) WithFile(name string) *Error {
	e.File = name
	return e
}

// WithMinFixup attaches the minimum corrective parameter value (e.g. the
// smallest NALU size length that would have worked).
func (e *Error) WithMinFixup(v int64) *Error {
	e.MinFixup = v
	e.HasMinFix = true
	return e
}

// Is reports whether err (or any error it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
