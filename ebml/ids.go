package ebml

// ID is an EBML element identifier, stored with its length marker intact —
// per spec §3 "IDs are compared as whole stored integers (not stripped of
// the marker), because the registry keys on the stored form." IDs are
// defined here the way the teacher package's ebml.go constants are (one
// const block per semantic group, commented with the element's purpose),
// extended to the full set this muxer writes or reads.
type ID uint32

// EBML header elements.
const (
	IDEBMLHeader             ID = 0x1A45DFA3
	IDEBMLVersion            ID = 0x4286
	IDEBMLReadVersion        ID = 0x42F7
	IDEBMLMaxIDLength        ID = 0x42F2
	IDEBMLMaxSizeLength      ID = 0x42F3
	IDEBMLDocType            ID = 0x4282
	IDEBMLDocTypeVersion     ID = 0x4287
	IDEBMLDocTypeReadVersion ID = 0x4285
)

// Global elements, reachable from every semantic context (§4.2).
const (
	IDVoid  ID = 0xEC
	IDCRC32 ID = 0xBF
)

// Segment.
const (
	IDSegment ID = 0x18538067
)

// Meta Seek Information.
const (
	IDSeekHead ID = 0x114D9B74
	IDSeek     ID = 0x4DBB
	IDSeekID   ID = 0x53AB
	IDSeekPos  ID = 0x53AC
)

// Segment Information.
const (
	IDSegmentInfo     ID = 0x1549A966
	IDSegmentUID      ID = 0x73A4
	IDSegmentFilename ID = 0x7384
	IDPrevUID         ID = 0x3CB923
	IDPrevFilename    ID = 0x3C83AB
	IDNextUID         ID = 0x3EB923
	IDNextFilename    ID = 0x3E83BB
	IDSegmentFamily   ID = 0x4444
	IDTimestampScale  ID = 0x2AD7B1
	IDDuration        ID = 0x4489
	IDDateUTC         ID = 0x4461
	IDTitle           ID = 0x7BA9
	IDMuxingApp       ID = 0x4D80
	IDWritingApp      ID = 0x5741
)

// Tracks.
const (
	IDTracks          ID = 0x1654AE6B
	IDTrackEntry      ID = 0xAE
	IDTrackNumber     ID = 0xD7
	IDTrackUID        ID = 0x73C5
	IDTrackType       ID = 0x83
	IDFlagEnabled     ID = 0xB9
	IDFlagDefault     ID = 0x88
	IDFlagForced      ID = 0x55AA
	IDFlagLacing      ID = 0x9C
	IDDefaultDuration ID = 0x23E383
	IDTrackName       ID = 0x536E
	IDLanguage        ID = 0x22B59C
	IDCodecID         ID = 0x86
	IDCodecPrivate    ID = 0x63A2
	IDCodecName       ID = 0x258688
	IDMaxBlockAddID   ID = 0x55EE
	IDContentEncs     ID = 0x6D80
	IDContentEnc      ID = 0x6240
	IDContentEncOrder ID = 0x5031
	IDContentEncScope ID = 0x5032
	IDContentEncType  ID = 0x5033
	IDContentCompr    ID = 0x5034
	IDContentCompAlgo ID = 0x4254
)

// Video settings.
const (
	IDVideo          ID = 0xE0
	IDFlagInterlaced ID = 0x9A
	IDPixelWidth     ID = 0xB0
	IDPixelHeight    ID = 0xBA
	IDDisplayWidth   ID = 0x54B0
	IDDisplayHeight  ID = 0x54BA
	IDDisplayUnit    ID = 0x54B2
	IDAspectRatio    ID = 0x54B3
)

// Audio settings.
const (
	IDAudio                   ID = 0xE1
	IDSamplingFrequency       ID = 0xB5
	IDOutputSamplingFrequency ID = 0x78B5
	IDChannels                ID = 0x9F
	IDBitDepth                ID = 0x6264
)

// Cluster.
const (
	IDCluster        ID = 0x1F43B675
	IDTimestamp      ID = 0xE7
	IDPrevSize       ID = 0xAB
	IDSimpleBlock    ID = 0xA3
	IDBlockGroup     ID = 0xA0
	IDBlock          ID = 0xA1
	IDBlockDuration  ID = 0x9B
	IDReferenceBlock ID = 0xFB
	IDDiscardPadding ID = 0x75A2
	IDBlockAdditions ID = 0x75A1
)

// Cues.
const (
	IDCues               ID = 0x1C53BB6B
	IDCuePoint           ID = 0xBB
	IDCueTime            ID = 0xB3
	IDCueTrackPositions  ID = 0xB7
	IDCueTrack           ID = 0xF7
	IDCueClusterPosition ID = 0xF1
	IDCueBlockNumber     ID = 0x5378
)

// Chapters.
const (
	IDChapters          ID = 0x1043A770
	IDEditionEntry      ID = 0x45B9
	IDEditionUID        ID = 0x45BC
	IDEditionFlagHidden ID = 0x45BD
	IDEditionFlagDef    ID = 0x45DB
	IDChapterAtom       ID = 0xB6
	IDChapterUID        ID = 0x73C4
	IDChapterTimeStart  ID = 0x91
	IDChapterTimeEnd    ID = 0x92
	IDChapterFlagHidden ID = 0x98
	IDChapterFlagEnable ID = 0x4598
	IDChapterDisplay    ID = 0x80
	IDChapterString     ID = 0x85
	IDChapterLanguage   ID = 0x437C
)

// Tags.
const (
	IDTags         ID = 0x1254C367
	IDTag          ID = 0x7373
	IDTargets      ID = 0x63C0
	IDTargetTypeV  ID = 0x68CA
	IDTargetType   ID = 0x63CA
	IDTagTrackUID  ID = 0x63C5
	IDSimpleTag    ID = 0x67C8
	IDTagName      ID = 0x45A3
	IDTagLanguage  ID = 0x447A
	IDTagDefault   ID = 0x4484
	IDTagString    ID = 0x4487
	IDTagBinary    ID = 0x4485
)

// Attachments.
const (
	IDAttachments        ID = 0x1941A469
	IDAttachedFile       ID = 0x61A7
	IDFileDescription    ID = 0x467E
	IDFileName           ID = 0x466E
	IDFileMimeType       ID = 0x4660
	IDFileData           ID = 0x465C
	IDFileUID            ID = 0x46AE
)
