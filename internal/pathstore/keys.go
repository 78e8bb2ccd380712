package pathstore

import (
	"fmt"
	"regexp"
	"strings"
)

// Root is the key prefix every docchunk node lives under.
const Root = "docchunk"

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slug makes s safe for use as one key segment.
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

func ownerSegment(owner string) string {
	if s := Slug(owner); s != "" {
		return s
	}
	return "anonymous"
}

// DocumentKey is the prefix holding a document's meta node and chunks.
func DocumentKey(owner, docID string) string {
	return fmt.Sprintf("%s/users/%s/documents/%s", Root, ownerSegment(owner), docID)
}

// ChunkKey is the key of one chunk node.
func ChunkKey(owner, docID string, index int) string {
	return fmt.Sprintf("%s/chunks/%04d", DocumentKey(owner, docID), index)
}

// MetaKey is the key of a document's meta node.
func MetaKey(owner, docID string) string {
	return DocumentKey(owner, docID) + "/meta"
}

// HashKey is the by_hash index entry pointing at docID.
func HashKey(owner, contentHash, docID string) string {
	return fmt.Sprintf("%s/by_hash/%s/%s", hashPrefix(owner), contentHash, docID)
}

func hashPrefix(owner string) string {
	return fmt.Sprintf("%s/users/%s/documents", Root, ownerSegment(owner))
}

// lastSegment returns the final key segment. Pathstore may echo keys with
// either "/" or "." separators.
func lastSegment(key string) string {
	if i := strings.LastIndexAny(key, "/."); i >= 0 {
		return key[i+1:]
	}
	return key
}
