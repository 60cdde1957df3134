package version

// Value is overridden at release time with -ldflags "-X math-with-slack/internal/version.Value=...".
var Value = "0.4.0"

// Product is the identifier written into the injection marker.
const Product = "math-with-slack"

const (
	RepoOwner = "fsavje"
	RepoName  = "math-with-slack"
)
