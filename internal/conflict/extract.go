// Package conflict turns a single unmerged index entry from the
// repository gateway into a ConflictRecord: a stable file path and a
// deterministic text signature suitable for embedding and similarity
// search against previously recorded resolutions.
package conflict

import (
	"strings"

	"github.com/ealebed/context-cherry-pick/internal/gitrepo"
)

// unknownPath is returned for a degenerate entry (all three stages
// absent). It keeps the extractor total instead of requiring callers to
// special-case an impossible-in-practice shape.
const unknownPath = "unknown"

// ConflictRecord is the extractor's output: the conflicting file and a
// text signature describing the three-way conflict at that path.
type ConflictRecord struct {
	FilePath  string
	Signature string
}

// BlobReader reads the raw bytes of a blob named by the gateway.
type BlobReader func(ref gitrepo.BlobRef) ([]byte, error)

// Extract builds a ConflictRecord from one unmerged entry, reading blob
// content through readBlob. It never fails: a blob read error yields a
// signature block built from an empty byte slice rather than aborting
// the whole extraction, since a missing blob does not make the conflict
// itself less real.
func Extract(entry gitrepo.UnmergedEntry, readBlob BlobReader) ConflictRecord {
	path := entry.Path
	if path == "" || (entry.Ancestor == nil && entry.Ours == nil && entry.Theirs == nil) {
		path = unknownPath
	}

	var blocks []string
	if entry.Ancestor != nil {
		blocks = append(blocks, "<<<<<<< ANCESTOR\n"+decode(readBlob, *entry.Ancestor)+"\n")
	}
	if entry.Ours != nil {
		blocks = append(blocks, "<<<<<<< OURS\n"+decode(readBlob, *entry.Ours)+"\n")
	}
	if entry.Theirs != nil {
		blocks = append(blocks, ">>>>>>> THEIRS\n"+decode(readBlob, *entry.Theirs)+"\n")
	}

	return ConflictRecord{
		FilePath:  path,
		Signature: strings.Join(blocks, "=======\n"),
	}
}

func decode(readBlob BlobReader, ref gitrepo.BlobRef) string {
	data, err := readBlob(ref)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(data), "�")
}
