package muxerr

import (
	"errors"
	"testing"
)

func TestNewFormatsKindAndMessage(t *testing.T) {
	err := New(KindMalformedInput, "bad sync word")
	if err.Error() != "MalformedInput: bad sync word" {
		t.Errorf("Error() = %q, want %q", err.Error(), "MalformedInput: bad sync word")
	}
}

func TestWithOffsetAndFileChain(t *testing.T) {
	err := New(KindUnexpectedEOF, "truncated header").WithOffset(42).WithFile("in.mkv")
	want := "UnexpectedEof: truncated header@in.mkv:42"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesUnderlyingCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindIO, cause, "writing cluster")
	if !errors.Is(err, cause) {
		t.Error("expected Wrap's result to unwrap to the original cause")
	}
}

func TestIsMatchesByKindAcrossWrapping(t *testing.T) {
	inner := New(KindNaluSizeLengthTooSmall, "nalu too large").WithMinFixup(4)
	outer := fmtErrorf(inner)

	if !Is(outer, KindNaluSizeLengthTooSmall) {
		t.Error("expected Is() to find the wrapped *Error by kind")
	}
	if Is(outer, KindIO) {
		t.Error("expected Is() to reject a non-matching kind")
	}

	var target *Error
	if !errors.As(outer, &target) {
		t.Fatal("expected errors.As to recover the *Error")
	}
	if !target.HasMinFix || target.MinFixup != 4 {
		t.Errorf("MinFixup = %d (set=%v), want 4 (set=true)", target.MinFixup, target.HasMinFix)
	}
}

func fmtErrorf(err error) error {
	return errWrap{err}
}

type errWrap struct{ err error }

func (e errWrap) Error() string { return "context: " + e.err.Error() }
func (e errWrap) Unwrap() error { return e.err }
