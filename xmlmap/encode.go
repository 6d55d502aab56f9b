// Encode side of the XML <-> EBML converter (§4.8): renders a Chapters
// or Tags master element tree back to the same XML schema DecodeChapters/
// DecodeTags consume, for the round-trip property of §8 ("xml -> ebml ->
// xml ... preserves document modulo whitespace, attribute order, and
// default-value injection").
package xmlmap

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/go-mkvmux/mkvmux/ebml"
)

// EncodeChapters renders a Chapters master element as Chapter-XML.
func EncodeChapters(w io.Writer, chapters *ebml.Element) error {
	return encodeDocument(w, "Chapters", chapters)
}

// EncodeTags renders a Tags master element as Tag-XML.
func EncodeTags(w io.Writer, tags *ebml.Element) error {
	return encodeDocument(w, "Tags", tags)
}

func encodeDocument(w io.Writer, rootName string, root *ebml.Element) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	e := &encoder{w: w}
	if err := e.writeOpenTag(rootName, 0); err != nil {
		return err
	}
	for _, child := range root.Children() {
		if err := e.writeElement(child, 1); err != nil {
			return err
		}
	}
	return e.writeCloseTag(rootName, 0)
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) indent(depth int) {
	for i := 0; i < depth; i++ {
		io.WriteString(e.w, "  ")
	}
}

func (e *encoder) writeOpenTag(name string, depth int) error {
	e.indent(depth)
	_, err := fmt.Fprintf(e.w, "<%s>\n", name)
	return err
}

func (e *encoder) writeCloseTag(name string, depth int) error {
	e.indent(depth)
	_, err := fmt.Fprintf(e.w, "</%s>\n", name)
	return err
}

// writeElement renders one element and its subtree, dispatching on the
// descriptor's value kind exactly the way decodeElement dispatched on it
// in reverse (§4.8).
func (e *encoder) writeElement(el *ebml.Element, depth int) error {
	if el.Tag() == ebml.TagDummy {
		return nil // unknown elements are never round-tripped through XML
	}
	name := el.Desc.Name

	if el.Tag() == ebml.TagMaster {
		if len(el.Children()) == 0 {
			e.indent(depth)
			_, err := fmt.Fprintf(e.w, "<%s></%s>\n", name, name)
			return err
		}
		if err := e.writeOpenTag(name, depth); err != nil {
			return err
		}
		for _, child := range el.Children() {
			if err := e.writeElement(child, depth+1); err != nil {
				return err
			}
		}
		return e.writeCloseTag(name, depth)
	}

	text, attr, err := leafText(el)
	if err != nil {
		return err
	}
	e.indent(depth)
	if attr != "" {
		_, err = fmt.Fprintf(e.w, "<%s %s>%s</%s>\n", name, attr, xmlEscape(text), name)
	} else {
		_, err = fmt.Fprintf(e.w, "<%s>%s</%s>\n", name, xmlEscape(text), name)
	}
	return err
}

// leafText renders a leaf's value as XML text content, restoring the
// timecode format for ChapterTimeStart/ChapterTimeEnd and defaulting
// Binary to base64 (the format decodeBinary treats as default).
func leafText(el *ebml.Element) (text string, attr string, err error) {
	switch el.Desc.Kind {
	case ebml.KindUInt:
		v, err := el.AsUint()
		if err != nil {
			return "", "", err
		}
		if isTimecodeElement(el.Desc.Name) {
			return formatTimecode(v), "", nil
		}
		return fmt.Sprintf("%d", v), "", nil
	case ebml.KindSInt:
		v, err := el.AsInt()
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%d", v), "", nil
	case ebml.KindFloat:
		v, err := el.AsFloat()
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%g", v), "", nil
	case ebml.KindString, ebml.KindUString:
		v, err := el.AsString()
		if err != nil {
			return "", "", err
		}
		return v, "", nil
	case ebml.KindBinary:
		v, err := el.AsBinary()
		if err != nil {
			return "", "", err
		}
		return base64.StdEncoding.EncodeToString(v), `format="base64"`, nil
	}
	return "", "", nil
}

// formatTimecode renders unsigned nanoseconds as HH:MM:SS.nnnnnnnnn, the
// inverse of parseTimecode.
func formatTimecode(ns uint64) string {
	total := ns / 1_000_000_000
	frac := ns % 1_000_000_000
	hh := total / 3600
	mm := (total / 60) % 60
	ss := total % 60
	return fmt.Sprintf("%02d:%02d:%02d.%09d", hh, mm, ss, frac)
}

func xmlEscape(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			b = append(b, "&amp;"...)
		case '<':
			b = append(b, "&lt;"...)
		case '>':
			b = append(b, "&gt;"...)
		default:
			b = append(b, s[i])
		}
	}
	return string(b)
}
