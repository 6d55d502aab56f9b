package xmlmap

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-mkvmux/mkvmux/ebml"
)

// Scenario 3 of §8: Chapter XML round-trip.
func TestDecodeChapters_Scenario(t *testing.T) {
	src := `<Chapters><EditionEntry><ChapterAtom><ChapterTimeStart>00:01:30.500000000</ChapterTimeStart><ChapterDisplay><ChapterString>Intro</ChapterString><ChapterLanguage>eng</ChapterLanguage></ChapterDisplay></ChapterAtom></EditionEntry></Chapters>`

	root, err := DecodeChapters(strings.NewReader(src), "")
	require.NoError(t, err)

	edition := root.GetChild(ebml.IDEditionEntry)
	require.NotNil(t, edition)
	atom := edition.GetChild(ebml.IDChapterAtom)
	require.NotNil(t, atom)

	ts := atom.GetChild(ebml.IDChapterTimeStart)
	require.NotNil(t, ts)
	v, err := ts.AsUint()
	require.NoError(t, err)
	require.EqualValues(t, 90_500_000_000, v)

	disp := atom.GetChild(ebml.IDChapterDisplay)
	require.NotNil(t, disp)
	str, err := disp.GetChild(ebml.IDChapterString).AsString()
	require.NoError(t, err)
	require.Equal(t, "Intro", str)
	lang, err := disp.GetChild(ebml.IDChapterLanguage).AsString()
	require.NoError(t, err)
	require.Equal(t, "eng", lang)

	require.NotNil(t, atom.GetChild(ebml.IDChapterUID))
	require.NotNil(t, edition.GetChild(ebml.IDEditionUID))
}

func TestDecodeChapters_InjectsDefaults(t *testing.T) {
	src := `<Chapters><EditionEntry><ChapterAtom></ChapterAtom></EditionEntry></Chapters>`
	root, err := DecodeChapters(strings.NewReader(src), "")
	require.NoError(t, err)

	atom := root.GetChild(ebml.IDEditionEntry).GetChild(ebml.IDChapterAtom)
	require.NotNil(t, atom)

	start, err := atom.GetChild(ebml.IDChapterTimeStart).AsUint()
	require.NoError(t, err)
	require.Zero(t, start)

	disp := atom.GetChild(ebml.IDChapterDisplay)
	require.NotNil(t, disp)
	lang, _ := disp.GetChild(ebml.IDChapterLanguage).AsString()
	require.Equal(t, "eng", lang)
	str, _ := disp.GetChild(ebml.IDChapterString).AsString()
	require.Equal(t, "", str)
}

// §8 property: xml -> ebml -> xml preserves the document modulo
// whitespace/attribute order/default injection.
func TestChaptersXMLRoundTrip(t *testing.T) {
	src := `<Chapters><EditionEntry><ChapterAtom><ChapterUID>1</ChapterUID><ChapterTimeStart>00:01:30.500000000</ChapterTimeStart><ChapterDisplay><ChapterString>Intro</ChapterString><ChapterLanguage>eng</ChapterLanguage></ChapterDisplay></ChapterAtom></EditionEntry></Chapters>`

	first, err := DecodeChapters(strings.NewReader(src), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeChapters(&buf, first))

	second, err := DecodeChapters(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)

	require.True(t, first.Equal(second), "round-tripped chapters tree should equal the original")
}

func TestTagsValidation_RejectsMissingName(t *testing.T) {
	src := `<Tags><Tag><SimpleTag><TagString>value</TagString></SimpleTag></Tag></Tags>`
	_, err := DecodeTags(strings.NewReader(src), "")
	require.Error(t, err)
}

func TestTagsValidation_RejectsBothStringAndBinary(t *testing.T) {
	src := `<Tags><Tag><SimpleTag><TagName>TITLE</TagName><TagString>a</TagString><TagBinary>YQ==</TagBinary></SimpleTag></Tag></Tags>`
	_, err := DecodeTags(strings.NewReader(src), "")
	require.Error(t, err)
}

func TestTagsRoundTrip(t *testing.T) {
	src := `<Tags><Tag><SimpleTag><TagName>TITLE</TagName><TagString>My Movie</TagString></SimpleTag></Tag></Tags>`
	first, err := DecodeTags(strings.NewReader(src), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeTags(&buf, first))

	second, err := DecodeTags(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)
	require.True(t, first.Equal(second))
}
