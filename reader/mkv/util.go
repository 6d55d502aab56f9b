package mkv

import (
	"errors"
	"io"
)

// fakeSeeker adapts a plain io.Reader to io.ReadSeeker so NewMatroskaParser
// can run in avoidSeeks mode against a non-seekable stream: Read delegates
// straight through, and Seek always fails since there's nothing to seek on.
type fakeSeeker struct {
	r io.Reader
}

func (fs *fakeSeeker) Read(p []byte) (int, error) {
	return fs.r.Read(p)
}

func (fs *fakeSeeker) Seek(offset int64, whence int) (int64, error) {
	return -1, errors.New("mkv: seek not supported on a streaming source")
}
