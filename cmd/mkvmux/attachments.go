package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/go-mkvmux/mkvmux/ebml"
)

// buildAttachments renders the `--attach-file` entries (§4.7 supplement)
// into an Attachments master, one AttachedFile per entry. Each entry is
// `PATH[:MIMETYPE[:DESCRIPTION]]`; MIMETYPE defaults to
// "application/octet-stream" when omitted, matching mkvmerge's own
// fallback for a file it can't sniff.
func buildAttachments(entries []string) (*ebml.Element, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	root := ebml.NewMaster(ebml.DescAttachments)
	for _, e := range entries {
		parts := strings.SplitN(e, ":", 3)
		path := parts[0]
		mime := "application/octet-stream"
		if len(parts) >= 2 && parts[1] != "" {
			mime = parts[1]
		}
		var description string
		if len(parts) == 3 {
			description = parts[2]
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("--attach-file %s: %w", path, err)
		}

		file := ebml.NewMaster(ebml.DescAttachedFile)
		if description != "" {
			d := ebml.NewLeaf(ebml.DescFileDescription)
			d.SetString(description)
			file.Push(d)
		}
		name := ebml.NewLeaf(ebml.DescFileName)
		name.SetString(filepath.Base(path))
		file.Push(name)

		mt := ebml.NewLeaf(ebml.DescFileMimeType)
		mt.SetString(mime)
		file.Push(mt)

		fd := ebml.NewLeaf(ebml.DescFileData)
		fd.SetBinary(data)
		file.Push(fd)

		uid := ebml.NewLeaf(ebml.DescFileUID)
		uid.SetUint(randomUID())
		file.Push(uid)

		file.Sort()
		root.Push(file)
	}
	return root, nil
}

// randomUID derives a non-zero 64-bit UID from a fresh random UUID, the
// same source Segment/Chapter/Edition UIDs use elsewhere in this module.
func randomUID() uint64 {
	u := uuid.New()
	v := binary.BigEndian.Uint64(u[:8])
	if v == 0 {
		v = 1
	}
	return v
}
