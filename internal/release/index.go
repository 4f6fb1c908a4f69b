package release

// TargetIndex is the package index a release is uploaded to.
type TargetIndex string

const (
	// IndexPreview is the staging index (TestPyPI).
	IndexPreview TargetIndex = "preview"

	// IndexProduction is the public index (PyPI).
	IndexProduction TargetIndex = "production"

	// DefaultIndex is used when no index argument is given.
	DefaultIndex = IndexPreview
)

// Default upload endpoints.
const (
	PreviewEndpoint    = "https://test.pypi.org/legacy/"
	ProductionEndpoint = "https://upload.pypi.org/legacy/"
)

// TokenUsername is the username sent with every upload. It tells the index
// that the password is an API token.
const TokenUsername = "__token__"

// ParseTargetIndex maps a literal, case-sensitive token to a TargetIndex.
func ParseTargetIndex(s string) (TargetIndex, error) {
	switch TargetIndex(s) {
	case IndexPreview, IndexProduction:
		return TargetIndex(s), nil
	default:
		return "", &InvalidIndexError{Value: s}
	}
}

// Endpoints overrides the default upload URL per index. Empty fields keep the default.
type Endpoints struct {
	Preview    string
	Production string
}

// Endpoint resolves the upload URL for the index.
func (i TargetIndex) Endpoint(overrides Endpoints) string {
	switch i {
	case IndexProduction:
		if overrides.Production != "" {
			return overrides.Production
		}
		return ProductionEndpoint
	default:
		if overrides.Preview != "" {
			return overrides.Preview
		}
		return PreviewEndpoint
	}
}

// TokenURL is where an operator can create an upload token for the index.
func (i TargetIndex) TokenURL() string {
	if i == IndexProduction {
		return "https://pypi.org/manage/account/token/"
	}
	return "https://test.pypi.org/manage/account/token/"
}

func (i TargetIndex) String() string {
	return string(i)
}
