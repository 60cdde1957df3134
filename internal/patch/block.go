package patch

import (
	_ "embed"
	"errors"
	"strings"

	"math-with-slack/internal/version"
)

const (
	// TargetName is the startup script that receives the injection block.
	TargetName = "ssb-interop.js"
	// PayloadName is the sibling script the block loads.
	PayloadName = "math-with-slack.js"
	// DefaultAnchor is the line the block is inserted after.
	DefaultAnchor = "    startup();"
	// MarkerPrefix identifies a block written by any version of this tool.
	MarkerPrefix = "// " + version.Product + " v"

	indent = "    "
)

//go:embed assets/math-with-slack.js
var payloadScript []byte

// Block is the fixed text inserted after the anchor line.
type Block struct {
	Anchor  string
	Marker  string
	Payload []string
}

// DefaultBlock returns the block for the running version.
func DefaultBlock() Block {
	return Block{
		Anchor: DefaultAnchor,
		Marker: indent + MarkerPrefix + version.Value,
		Payload: []string{
			indent + "// https://github.com/" + version.RepoOwner + "/" + version.RepoName,
			indent + "require(require('path').join(__dirname, '" + PayloadName + "'));",
		},
	}
}

// PayloadScript returns the MathJax bootstrap written next to the target.
func PayloadScript() []byte {
	out := make([]byte, len(payloadScript))
	copy(out, payloadScript)
	return out
}

func (b Block) validate() error {
	if strings.TrimSpace(b.Anchor) == "" {
		return errors.New("injection block has an empty anchor")
	}
	if strings.ContainsAny(b.Anchor, "\r\n") {
		return errors.New("injection block anchor must be a single line")
	}
	if !strings.Contains(b.Marker, MarkerPrefix) {
		return errors.New("injection block marker must contain " + MarkerPrefix)
	}
	return nil
}

func (b Block) lines() []string {
	out := make([]string, 0, len(b.Payload)+2)
	out = append(out, "", b.Marker)
	out = append(out, b.Payload...)
	return out
}
