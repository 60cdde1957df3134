package patch

import (
	"bytes"
	"strings"

	hcversion "github.com/hashicorp/go-version"

	"math-with-slack/internal/model"
)

// Inject returns content with block inserted after the first line equal to
// block.Anchor. Every byte outside the inserted region is kept, including the
// line ending style. Removal is never textual; it goes through the backup.
func Inject(content []byte, block Block) ([]byte, error) {
	if err := block.validate(); err != nil {
		return nil, err
	}
	if HasMarker(content) {
		return nil, model.ErrAlreadyInjected
	}
	if !bytes.Contains(content, []byte(block.Anchor)) {
		return nil, model.ErrAnchorNotFound
	}

	pos, eol, ok := findAnchorLine(content, block.Anchor)
	if !ok {
		return nil, model.ErrAnchorNotFound
	}
	if eol == "" {
		eol = firstEOL(content)
	}

	var insert strings.Builder
	for _, line := range block.lines() {
		insert.WriteString(eol)
		insert.WriteString(line)
	}

	out := make([]byte, 0, len(content)+insert.Len())
	out = append(out, content[:pos]...)
	out = append(out, insert.String()...)
	out = append(out, content[pos:]...)
	return out, nil
}

// findAnchorLine returns the offset right after the anchor text of the first
// matching line (before its terminator) and that line's terminator, which is
// empty when the anchor is the unterminated last line.
func findAnchorLine(content []byte, anchor string) (int, string, bool) {
	start := 0
	for start <= len(content) {
		rest := content[start:]
		end := bytes.IndexByte(rest, '\n')

		line := rest
		eol := ""
		if end >= 0 {
			line = rest[:end]
			eol = "\n"
			if bytes.HasSuffix(line, []byte("\r")) {
				line = line[:len(line)-1]
				eol = "\r\n"
			}
		}
		if string(line) == anchor {
			return start + len(line), eol, true
		}
		if end < 0 {
			break
		}
		start += end + 1
	}
	return 0, "", false
}

func firstEOL(content []byte) string {
	idx := bytes.IndexByte(content, '\n')
	if idx > 0 && content[idx-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// HasMarker reports whether content carries a block from any version.
func HasMarker(content []byte) bool {
	return bytes.Contains(content, []byte(MarkerPrefix))
}

// MarkerVersion returns the version recorded in the marker line, if any.
func MarkerVersion(content []byte) (string, bool) {
	idx := bytes.Index(content, []byte(MarkerPrefix))
	if idx < 0 {
		return "", false
	}
	rest := content[idx+len(MarkerPrefix):]
	if end := bytes.IndexAny(rest, "\r\n"); end >= 0 {
		rest = rest[:end]
	}
	raw := strings.TrimSpace(string(rest))
	if raw == "" {
		return "", false
	}
	v, err := hcversion.NewVersion(raw)
	if err != nil {
		return raw, true
	}
	return v.String(), true
}

// HasAnchor reports whether some line of content equals anchor.
func HasAnchor(content []byte, anchor string) bool {
	_, _, ok := findAnchorLine(content, anchor)
	return ok
}
