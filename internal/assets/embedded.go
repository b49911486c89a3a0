package assets

import (
	"embed"
	"fmt"
)

//go:embed styles/*.css templates/*.html
var builtin embed.FS

// EmbeddedLoader serves the card assets compiled into the binary.
type EmbeddedLoader struct{}

func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{}
}

func (e *EmbeddedLoader) LoadStyle(name string) (string, error) {
	return e.read(styleKind, name)
}

func (e *EmbeddedLoader) LoadTemplate(name string) (string, error) {
	return e.read(templateKind, name)
}

func (e *EmbeddedLoader) read(kind assetKind, name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}
	data, err := builtin.ReadFile(kind.file(name))
	if err != nil {
		return "", fmt.Errorf("%w: %q (built-in)", kind.notFound, name)
	}
	return string(data), nil
}

var _ AssetLoader = (*EmbeddedLoader)(nil)
