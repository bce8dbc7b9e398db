package mircfg

// FormatVersion is the revision of the wire format produced by this package.
// Revisions are independent contracts: a consumer for one revision must not be
// fed a section of another.
const FormatVersion = 2

// Tag is the first byte of every record in a CFG section.  Tag values are part
// of the wire contract and must never be renumbered within a format version.
type Tag uint8

// Enumeration of record tags.
const (
	TagGoto                     Tag = 0
	TagSwitchInt                Tag = 1
	TagResume                   Tag = 2
	TagAbort                    Tag = 3
	TagReturn                   Tag = 4
	TagUnreachable              Tag = 5
	TagDropNoUnwind             Tag = 6
	TagDropWithUnwind           Tag = 7
	TagDropAndReplaceNoUnwind   Tag = 8
	TagDropAndReplaceWithUnwind Tag = 9
	TagCallNoCleanup            Tag = 10
	TagCallWithCleanup          Tag = 11
	TagCallUnknownNoCleanup     Tag = 12
	TagCallUnknownWithCleanup   Tag = 13
	TagAssertNoCleanup          Tag = 14
	TagAssertWithCleanup        Tag = 15
	TagYieldNoDrop              Tag = 16
	TagYieldWithDrop            Tag = 17
	TagGeneratorDrop            Tag = 18
	TagFalseEdges               Tag = 19
	TagFalseUnwindNoUnwind      Tag = 20
	TagFalseUnwindWithUnwind    Tag = 21

	// TagNoMir marks a definition without a materialized CFG.  Its payload is
	// only the definition's identity: there is no block.
	TagNoMir Tag = 254

	// TagSentinel ends the stream.  It appears exactly once, as the last byte.
	TagSentinel Tag = 255
)

var tagNames = map[Tag]string{
	TagGoto:                     "GOTO",
	TagSwitchInt:                "SWITCHINT",
	TagResume:                   "RESUME",
	TagAbort:                    "ABORT",
	TagReturn:                   "RETURN",
	TagUnreachable:              "UNREACHABLE",
	TagDropNoUnwind:             "DROP_NO_UNWIND",
	TagDropWithUnwind:           "DROP_WITH_UNWIND",
	TagDropAndReplaceNoUnwind:   "DROP_AND_REPLACE_NO_UNWIND",
	TagDropAndReplaceWithUnwind: "DROP_AND_REPLACE_WITH_UNWIND",
	TagCallNoCleanup:            "CALL_NO_CLEANUP",
	TagCallWithCleanup:          "CALL_WITH_CLEANUP",
	TagCallUnknownNoCleanup:     "CALL_UNKNOWN_NO_CLEANUP",
	TagCallUnknownWithCleanup:   "CALL_UNKNOWN_WITH_CLEANUP",
	TagAssertNoCleanup:          "ASSERT_NO_CLEANUP",
	TagAssertWithCleanup:        "ASSERT_WITH_CLEANUP",
	TagYieldNoDrop:              "YIELD_NO_DROP",
	TagYieldWithDrop:            "YIELD_WITH_DROP",
	TagGeneratorDrop:            "GENERATOR_DROP",
	TagFalseEdges:               "FALSE_EDGES",
	TagFalseUnwindNoUnwind:      "FALSE_UNWIND_NO_UNWIND",
	TagFalseUnwindWithUnwind:    "FALSE_UNWIND_WITH_UNWIND",
	TagNoMir:                    "NO_MIR",
	TagSentinel:                 "SENTINEL",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}

	return "UNKNOWN"
}

// Valid returns whether t is a record tag or the sentinel.
func (t Tag) Valid() bool {
	_, ok := tagNames[t]
	return ok
}
