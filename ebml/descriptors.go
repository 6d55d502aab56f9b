package ebml

// This file populates the registry's DAG, rooted at the Segment
// descriptor (§4.2). Each context is declared with declareContext(parent)
// and then populated with register(ctx, &Descriptor{...}) calls, mirroring
// the teacher's const-block-per-group layout in ebml.go but as a
// declarative table instead of bare ID constants, per the "macro-driven
// element registration... becomes a declarative table" design note (§9).

// --- EBML header context --------------------------------------------------

var CtxEBMLHeader = declareContext(ctxGlobal)

var (
	DescEBMLVersion            = register(CtxEBMLHeader, &Descriptor{ID: IDEBMLVersion, Name: "EBMLVersion", Kind: KindUInt, HasDefault: true, DefaultUint: 1})
	DescEBMLReadVersion        = register(CtxEBMLHeader, &Descriptor{ID: IDEBMLReadVersion, Name: "EBMLReadVersion", Kind: KindUInt, HasDefault: true, DefaultUint: 1})
	DescEBMLMaxIDLength        = register(CtxEBMLHeader, &Descriptor{ID: IDEBMLMaxIDLength, Name: "EBMLMaxIDLength", Kind: KindUInt, HasDefault: true, DefaultUint: 4})
	DescEBMLMaxSizeLength      = register(CtxEBMLHeader, &Descriptor{ID: IDEBMLMaxSizeLength, Name: "EBMLMaxSizeLength", Kind: KindUInt, HasDefault: true, DefaultUint: 8})
	DescEBMLDocType            = register(CtxEBMLHeader, &Descriptor{ID: IDEBMLDocType, Name: "DocType", Kind: KindString, Mandatory: true})
	DescEBMLDocTypeVersion     = register(CtxEBMLHeader, &Descriptor{ID: IDEBMLDocTypeVersion, Name: "DocTypeVersion", Kind: KindUInt, HasDefault: true, DefaultUint: 1})
	DescEBMLDocTypeReadVersion = register(CtxEBMLHeader, &Descriptor{ID: IDEBMLDocTypeReadVersion, Name: "DocTypeReadVersion", Kind: KindUInt, HasDefault: true, DefaultUint: 1})
)

// CtxTop is the context a file-level reader starts in: it holds only the
// EBML header and Segment, the two elements legal at byte offset zero and
// thereafter at the outermost nesting level (§4.2's root of the DAG). A
// reader walking a Matroska file calls Lookup(CtxTop, id) for every
// top-level element it encounters instead of hand-matching ID constants.
var CtxTop = declareContext(ctxGlobal)

var DescEBMLHeader = register(CtxTop, &Descriptor{ID: IDEBMLHeader, Name: "EBML", Kind: KindMaster, Mandatory: true, Unique: true, ChildContext: CtxEBMLHeader})

// --- Segment root ----------------------------------------------------------

var CtxSegment = declareContext(ctxGlobal)

var DescSegment = register(CtxTop, &Descriptor{ID: IDSegment, Name: "Segment", Kind: KindMaster, Mandatory: true, Unique: true, ChildContext: CtxSegment})

// SeekHead.
var CtxSeekHead = declareContext(CtxSegment)
var CtxSeek = declareContext(CtxSeekHead)

var (
	DescSeekID  = register(CtxSeek, &Descriptor{ID: IDSeekID, Name: "SeekID", Kind: KindBinary, Mandatory: true})
	DescSeekPos = register(CtxSeek, &Descriptor{ID: IDSeekPos, Name: "SeekPosition", Kind: KindUInt, Mandatory: true})
	DescSeek    = register(CtxSeekHead, &Descriptor{ID: IDSeek, Name: "Seek", Kind: KindMaster, ChildContext: CtxSeek})
	DescSeekHead = register(CtxSegment, &Descriptor{ID: IDSeekHead, Name: "SeekHead", Kind: KindMaster, ChildContext: CtxSeekHead})
)

// Info.
var CtxInfo = declareContext(CtxSegment)

var (
	DescSegmentUID      = register(CtxInfo, &Descriptor{ID: IDSegmentUID, Name: "SegmentUID", Kind: KindBinary, Unique: true, MinLen: 16, MaxLen: 16})
	DescSegmentFilename = register(CtxInfo, &Descriptor{ID: IDSegmentFilename, Name: "SegmentFilename", Kind: KindUString, Unique: true})
	DescPrevUID         = register(CtxInfo, &Descriptor{ID: IDPrevUID, Name: "PrevUID", Kind: KindBinary, Unique: true, MinLen: 16, MaxLen: 16})
	DescPrevFilename    = register(CtxInfo, &Descriptor{ID: IDPrevFilename, Name: "PrevFilename", Kind: KindUString, Unique: true})
	DescNextUID         = register(CtxInfo, &Descriptor{ID: IDNextUID, Name: "NextUID", Kind: KindBinary, Unique: true, MinLen: 16, MaxLen: 16})
	DescNextFilename    = register(CtxInfo, &Descriptor{ID: IDNextFilename, Name: "NextFilename", Kind: KindUString, Unique: true})
	DescSegmentFamily   = register(CtxInfo, &Descriptor{ID: IDSegmentFamily, Name: "SegmentFamily", Kind: KindBinary, MinLen: 16, MaxLen: 16})
	DescTimestampScale  = register(CtxInfo, &Descriptor{ID: IDTimestampScale, Name: "TimestampScale", Kind: KindUInt, Mandatory: true, Unique: true, HasDefault: true, DefaultUint: 1000000})
	DescDuration        = register(CtxInfo, &Descriptor{ID: IDDuration, Name: "Duration", Kind: KindFloat, Unique: true})
	DescDateUTC         = register(CtxInfo, &Descriptor{ID: IDDateUTC, Name: "DateUTC", Kind: KindDate, Unique: true})
	DescTitle           = register(CtxInfo, &Descriptor{ID: IDTitle, Name: "Title", Kind: KindUString, Unique: true})
	DescMuxingApp       = register(CtxInfo, &Descriptor{ID: IDMuxingApp, Name: "MuxingApp", Kind: KindUString, Mandatory: true, Unique: true})
	DescWritingApp      = register(CtxInfo, &Descriptor{ID: IDWritingApp, Name: "WritingApp", Kind: KindUString, Mandatory: true, Unique: true})

	DescInfo = register(CtxSegment, &Descriptor{ID: IDSegmentInfo, Name: "Info", Kind: KindMaster, Mandatory: true, Unique: true, ChildContext: CtxInfo})
)

// Tracks.
var (
	CtxTracks      = declareContext(CtxSegment)
	CtxTrackEntry  = declareContext(CtxTracks)
	CtxVideo       = declareContext(CtxTrackEntry)
	CtxAudio       = declareContext(CtxTrackEntry)
	CtxContentEncs = declareContext(CtxTrackEntry)
	CtxContentEnc  = declareContext(CtxContentEncs)
	CtxContentCompr = declareContext(CtxContentEnc)
)

var (
	DescPixelWidth    = register(CtxVideo, &Descriptor{ID: IDPixelWidth, Name: "PixelWidth", Kind: KindUInt, Mandatory: true, Unique: true})
	DescPixelHeight   = register(CtxVideo, &Descriptor{ID: IDPixelHeight, Name: "PixelHeight", Kind: KindUInt, Mandatory: true, Unique: true})
	DescDisplayWidth  = register(CtxVideo, &Descriptor{ID: IDDisplayWidth, Name: "DisplayWidth", Kind: KindUInt, Unique: true})
	DescDisplayHeight = register(CtxVideo, &Descriptor{ID: IDDisplayHeight, Name: "DisplayHeight", Kind: KindUInt, Unique: true})
	DescDisplayUnit   = register(CtxVideo, &Descriptor{ID: IDDisplayUnit, Name: "DisplayUnit", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})
	DescFlagInterlaced = register(CtxVideo, &Descriptor{ID: IDFlagInterlaced, Name: "FlagInterlaced", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})
	DescAspectRatio   = register(CtxVideo, &Descriptor{ID: IDAspectRatio, Name: "AspectRatioType", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})

	DescSamplingFrequency       = register(CtxAudio, &Descriptor{ID: IDSamplingFrequency, Name: "SamplingFrequency", Kind: KindFloat, Mandatory: true, Unique: true, HasDefault: true})
	DescOutputSamplingFrequency = register(CtxAudio, &Descriptor{ID: IDOutputSamplingFrequency, Name: "OutputSamplingFrequency", Kind: KindFloat, Unique: true})
	DescChannels                = register(CtxAudio, &Descriptor{ID: IDChannels, Name: "Channels", Kind: KindUInt, Mandatory: true, Unique: true, HasDefault: true, DefaultUint: 1})
	DescBitDepth                = register(CtxAudio, &Descriptor{ID: IDBitDepth, Name: "BitDepth", Kind: KindUInt, Unique: true})

	DescContentEncOrder = register(CtxContentEnc, &Descriptor{ID: IDContentEncOrder, Name: "ContentEncodingOrder", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})
	DescContentEncScope = register(CtxContentEnc, &Descriptor{ID: IDContentEncScope, Name: "ContentEncodingScope", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 1})
	DescContentEncType  = register(CtxContentEnc, &Descriptor{ID: IDContentEncType, Name: "ContentEncodingType", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})
	DescContentCompAlgo = register(CtxContentCompr, &Descriptor{ID: IDContentCompAlgo, Name: "ContentCompAlgo", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})
	DescContentCompr    = register(CtxContentEnc, &Descriptor{ID: IDContentCompr, Name: "ContentCompression", Kind: KindMaster, Unique: true, ChildContext: CtxContentCompr})
	DescContentEnc      = register(CtxContentEncs, &Descriptor{ID: IDContentEnc, Name: "ContentEncoding", Kind: KindMaster, ChildContext: CtxContentEnc})
	DescContentEncs     = register(CtxTrackEntry, &Descriptor{ID: IDContentEncs, Name: "ContentEncodings", Kind: KindMaster, Unique: true, ChildContext: CtxContentEncs})

	DescTrackNumber     = register(CtxTrackEntry, &Descriptor{ID: IDTrackNumber, Name: "TrackNumber", Kind: KindUInt, Mandatory: true, Unique: true})
	DescTrackUID        = register(CtxTrackEntry, &Descriptor{ID: IDTrackUID, Name: "TrackUID", Kind: KindUInt, Mandatory: true, Unique: true})
	DescTrackType       = register(CtxTrackEntry, &Descriptor{ID: IDTrackType, Name: "TrackType", Kind: KindUInt, Mandatory: true, Unique: true})
	DescFlagEnabled     = register(CtxTrackEntry, &Descriptor{ID: IDFlagEnabled, Name: "FlagEnabled", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 1})
	DescFlagDefault     = register(CtxTrackEntry, &Descriptor{ID: IDFlagDefault, Name: "FlagDefault", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 1})
	DescFlagForced      = register(CtxTrackEntry, &Descriptor{ID: IDFlagForced, Name: "FlagForced", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})
	DescFlagLacing      = register(CtxTrackEntry, &Descriptor{ID: IDFlagLacing, Name: "FlagLacing", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 1})
	DescDefaultDuration = register(CtxTrackEntry, &Descriptor{ID: IDDefaultDuration, Name: "DefaultDuration", Kind: KindUInt, Unique: true})
	DescMaxBlockAddID   = register(CtxTrackEntry, &Descriptor{ID: IDMaxBlockAddID, Name: "MaxBlockAdditionID", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})
	DescTrackName       = register(CtxTrackEntry, &Descriptor{ID: IDTrackName, Name: "Name", Kind: KindUString, Unique: true})
	DescLanguage        = register(CtxTrackEntry, &Descriptor{ID: IDLanguage, Name: "Language", Kind: KindString, Unique: true, HasDefault: true, DefaultString: "eng"})
	DescCodecID         = register(CtxTrackEntry, &Descriptor{ID: IDCodecID, Name: "CodecID", Kind: KindString, Mandatory: true, Unique: true})
	DescCodecPrivate    = register(CtxTrackEntry, &Descriptor{ID: IDCodecPrivate, Name: "CodecPrivate", Kind: KindBinary, Unique: true})
	DescCodecName       = register(CtxTrackEntry, &Descriptor{ID: IDCodecName, Name: "CodecName", Kind: KindUString, Unique: true})
	DescVideo           = register(CtxTrackEntry, &Descriptor{ID: IDVideo, Name: "Video", Kind: KindMaster, Unique: true, ChildContext: CtxVideo})
	DescAudio           = register(CtxTrackEntry, &Descriptor{ID: IDAudio, Name: "Audio", Kind: KindMaster, Unique: true, ChildContext: CtxAudio})

	DescTrackEntry = register(CtxTracks, &Descriptor{ID: IDTrackEntry, Name: "TrackEntry", Kind: KindMaster, ChildContext: CtxTrackEntry})
	DescTracks     = register(CtxSegment, &Descriptor{ID: IDTracks, Name: "Tracks", Kind: KindMaster, Mandatory: true, Unique: true, ChildContext: CtxTracks})
)

// Cluster.
var (
	CtxCluster     = declareContext(CtxSegment)
	CtxBlockGroup  = declareContext(CtxCluster)
)

var (
	DescTimestamp      = register(CtxCluster, &Descriptor{ID: IDTimestamp, Name: "Timestamp", Kind: KindUInt, Mandatory: true, Unique: true})
	DescPrevSize       = register(CtxCluster, &Descriptor{ID: IDPrevSize, Name: "PrevSize", Kind: KindUInt, Unique: true})
	DescSimpleBlock    = register(CtxCluster, &Descriptor{ID: IDSimpleBlock, Name: "SimpleBlock", Kind: KindBinary})
	DescBlockGroup     = register(CtxCluster, &Descriptor{ID: IDBlockGroup, Name: "BlockGroup", Kind: KindMaster, ChildContext: CtxBlockGroup})
	DescBlock          = register(CtxBlockGroup, &Descriptor{ID: IDBlock, Name: "Block", Kind: KindBinary, Mandatory: true, Unique: true})
	DescBlockDuration  = register(CtxBlockGroup, &Descriptor{ID: IDBlockDuration, Name: "BlockDuration", Kind: KindUInt, Unique: true})
	DescReferenceBlock = register(CtxBlockGroup, &Descriptor{ID: IDReferenceBlock, Name: "ReferenceBlock", Kind: KindSInt})
	DescDiscardPadding = register(CtxBlockGroup, &Descriptor{ID: IDDiscardPadding, Name: "DiscardPadding", Kind: KindSInt, Unique: true})

	DescCluster = register(CtxSegment, &Descriptor{ID: IDCluster, Name: "Cluster", Kind: KindMaster, ChildContext: CtxCluster, KeepInsertionOrder: true})
)

// Cues.
var (
	CtxCues              = declareContext(CtxSegment)
	CtxCuePoint          = declareContext(CtxCues)
	CtxCueTrackPositions = declareContext(CtxCuePoint)
)

var (
	DescCueTime            = register(CtxCuePoint, &Descriptor{ID: IDCueTime, Name: "CueTime", Kind: KindUInt, Mandatory: true, Unique: true})
	DescCueTrack           = register(CtxCueTrackPositions, &Descriptor{ID: IDCueTrack, Name: "CueTrack", Kind: KindUInt, Mandatory: true, Unique: true})
	DescCueClusterPosition = register(CtxCueTrackPositions, &Descriptor{ID: IDCueClusterPosition, Name: "CueClusterPosition", Kind: KindUInt, Mandatory: true, Unique: true})
	DescCueBlockNumber     = register(CtxCueTrackPositions, &Descriptor{ID: IDCueBlockNumber, Name: "CueBlockNumber", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 1})
	DescCueTrackPositions  = register(CtxCuePoint, &Descriptor{ID: IDCueTrackPositions, Name: "CueTrackPositions", Kind: KindMaster, ChildContext: CtxCueTrackPositions})
	DescCuePoint           = register(CtxCues, &Descriptor{ID: IDCuePoint, Name: "CuePoint", Kind: KindMaster, ChildContext: CtxCuePoint})
	DescCues               = register(CtxSegment, &Descriptor{ID: IDCues, Name: "Cues", Kind: KindMaster, Unique: true, ChildContext: CtxCues})
)

// Chapters.
var (
	CtxChapters        = declareContext(CtxSegment)
	CtxEditionEntry    = declareContext(CtxChapters)
	CtxChapterAtom     = declareContext(CtxEditionEntry)
	CtxChapterDisplay  = declareContext(CtxChapterAtom)
)

var (
	DescEditionUID        = register(CtxEditionEntry, &Descriptor{ID: IDEditionUID, Name: "EditionUID", Kind: KindUInt, Unique: true})
	DescEditionFlagHidden = register(CtxEditionEntry, &Descriptor{ID: IDEditionFlagHidden, Name: "EditionFlagHidden", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})
	DescEditionFlagDef    = register(CtxEditionEntry, &Descriptor{ID: IDEditionFlagDef, Name: "EditionFlagDefault", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})

	DescChapterUID        = register(CtxChapterAtom, &Descriptor{ID: IDChapterUID, Name: "ChapterUID", Kind: KindUInt, Mandatory: true, Unique: true})
	DescChapterTimeStart  = register(CtxChapterAtom, &Descriptor{ID: IDChapterTimeStart, Name: "ChapterTimeStart", Kind: KindUInt, Mandatory: true, Unique: true})
	DescChapterTimeEnd    = register(CtxChapterAtom, &Descriptor{ID: IDChapterTimeEnd, Name: "ChapterTimeEnd", Kind: KindUInt, Unique: true})
	DescChapterFlagHidden = register(CtxChapterAtom, &Descriptor{ID: IDChapterFlagHidden, Name: "ChapterFlagHidden", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 0})
	DescChapterFlagEnable = register(CtxChapterAtom, &Descriptor{ID: IDChapterFlagEnable, Name: "ChapterFlagEnabled", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 1})

	DescChapterString   = register(CtxChapterDisplay, &Descriptor{ID: IDChapterString, Name: "ChapterString", Kind: KindUString, Mandatory: true, Unique: true})
	DescChapterLanguage = register(CtxChapterDisplay, &Descriptor{ID: IDChapterLanguage, Name: "ChapterLanguage", Kind: KindString, Mandatory: true, Unique: true, HasDefault: true, DefaultString: "eng"})
	DescChapterDisplay  = register(CtxChapterAtom, &Descriptor{ID: IDChapterDisplay, Name: "ChapterDisplay", Kind: KindMaster, ChildContext: CtxChapterDisplay})

	DescChapterAtom  = register(CtxEditionEntry, &Descriptor{ID: IDChapterAtom, Name: "ChapterAtom", Kind: KindMaster, ChildContext: CtxChapterAtom})
	DescEditionEntry = register(CtxChapters, &Descriptor{ID: IDEditionEntry, Name: "EditionEntry", Kind: KindMaster, ChildContext: CtxEditionEntry})
	DescChapters     = register(CtxSegment, &Descriptor{ID: IDChapters, Name: "Chapters", Kind: KindMaster, Unique: true, ChildContext: CtxChapters})
)

// Tags.
var (
	CtxTags      = declareContext(CtxSegment)
	CtxTag       = declareContext(CtxTags)
	CtxTargets   = declareContext(CtxTag)
	CtxSimpleTag = declareContext(CtxTag)
)

var (
	DescTargetTypeValue = register(CtxTargets, &Descriptor{ID: IDTargetTypeV, Name: "TargetTypeValue", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 50})
	DescTargetType      = register(CtxTargets, &Descriptor{ID: IDTargetType, Name: "TargetType", Kind: KindString, Unique: true})
	DescTagTrackUID     = register(CtxTargets, &Descriptor{ID: IDTagTrackUID, Name: "TagTrackUID", Kind: KindUInt, HasDefault: true, DefaultUint: 0})
	DescTargets         = register(CtxTag, &Descriptor{ID: IDTargets, Name: "Targets", Kind: KindMaster, Mandatory: true, Unique: true, ChildContext: CtxTargets})

	DescTagName     = register(CtxSimpleTag, &Descriptor{ID: IDTagName, Name: "TagName", Kind: KindUString, Mandatory: true, Unique: true})
	DescTagLanguage = register(CtxSimpleTag, &Descriptor{ID: IDTagLanguage, Name: "TagLanguage", Kind: KindString, Unique: true, HasDefault: true, DefaultString: "und"})
	DescTagDefault  = register(CtxSimpleTag, &Descriptor{ID: IDTagDefault, Name: "TagDefault", Kind: KindUInt, Unique: true, HasDefault: true, DefaultUint: 1})
	DescTagString   = register(CtxSimpleTag, &Descriptor{ID: IDTagString, Name: "TagString", Kind: KindUString, Unique: true})
	DescTagBinary   = register(CtxSimpleTag, &Descriptor{ID: IDTagBinary, Name: "TagBinary", Kind: KindBinary, Unique: true})
	DescSimpleTag   = register(CtxTag, &Descriptor{ID: IDSimpleTag, Name: "SimpleTag", Kind: KindMaster, Mandatory: true, ChildContext: CtxSimpleTag})

	DescTag  = register(CtxTags, &Descriptor{ID: IDTag, Name: "Tag", Kind: KindMaster, ChildContext: CtxTag})
	DescTags = register(CtxSegment, &Descriptor{ID: IDTags, Name: "Tags", Kind: KindMaster, Unique: true, ChildContext: CtxTags})
)

// SimpleTag children can themselves contain nested SimpleTag elements
// (§4.8 "a nested Simple"); register the recursive edge now that
// DescSimpleTag exists.
func init() {
	register(CtxSimpleTag, &Descriptor{ID: IDSimpleTag, Name: "SimpleTag", Kind: KindMaster, ChildContext: CtxSimpleTag})
}

// Attachments.
var (
	CtxAttachments  = declareContext(CtxSegment)
	CtxAttachedFile = declareContext(CtxAttachments)
)

var (
	DescFileDescription = register(CtxAttachedFile, &Descriptor{ID: IDFileDescription, Name: "FileDescription", Kind: KindUString, Unique: true})
	DescFileName         = register(CtxAttachedFile, &Descriptor{ID: IDFileName, Name: "FileName", Kind: KindUString, Mandatory: true, Unique: true})
	DescFileMimeType     = register(CtxAttachedFile, &Descriptor{ID: IDFileMimeType, Name: "FileMimeType", Kind: KindString, Mandatory: true, Unique: true})
	DescFileData         = register(CtxAttachedFile, &Descriptor{ID: IDFileData, Name: "FileData", Kind: KindBinary, Mandatory: true, Unique: true})
	DescFileUID          = register(CtxAttachedFile, &Descriptor{ID: IDFileUID, Name: "FileUID", Kind: KindUInt, Mandatory: true, Unique: true})
	DescAttachedFile     = register(CtxAttachments, &Descriptor{ID: IDAttachedFile, Name: "AttachedFile", Kind: KindMaster, ChildContext: CtxAttachedFile})
	DescAttachments      = register(CtxSegment, &Descriptor{ID: IDAttachments, Name: "Attachments", Kind: KindMaster, Unique: true, ChildContext: CtxAttachments})
)

