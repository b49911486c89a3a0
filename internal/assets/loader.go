package assets

import (
	"errors"
	"fmt"
	"strings"
)

// Built-in asset names.
const (
	DefaultStyleName    = "card"
	DefaultTemplateName = "card"
)

var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
	ErrInvalidBasePath  = errors.New("invalid base path")
	ErrAssetRead        = errors.New("failed to read asset")
	ErrPathTraversal    = errors.New("path traversal detected")
)

// AssetLoader loads the card stylesheet and document template by name,
// without extension. Missing assets wrap ErrStyleNotFound or
// ErrTemplateNotFound; bad names wrap ErrInvalidAssetName.
type AssetLoader interface {
	LoadStyle(name string) (string, error)
	LoadTemplate(name string) (string, error)
}

// assetKind maps a loader method to its directory, extension and
// not-found sentinel.
type assetKind struct {
	dir      string
	ext      string
	notFound error
}

var (
	styleKind    = assetKind{dir: "styles", ext: ".css", notFound: ErrStyleNotFound}
	templateKind = assetKind{dir: "templates", ext: ".html", notFound: ErrTemplateNotFound}
)

// file returns the slash-separated path of name relative to an asset root.
func (k assetKind) file(name string) string {
	return k.dir + "/" + name + k.ext
}

// ValidateAssetName rejects empty names and names containing a path
// separator or a dot, so a name can neither leave its directory nor
// change its extension.
func ValidateAssetName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	case strings.ContainsAny(name, `/\.`):
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
