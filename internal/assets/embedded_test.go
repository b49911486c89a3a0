package assets

import (
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestEmbeddedLoader - Built-in card assets
// ---------------------------------------------------------------------------

func TestEmbeddedLoader_LoadStyle(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	tests := []struct {
		name        string
		styleName   string
		wantErr     error
		wantContain []string
	}{
		{
			name:        "card style carries static card rules",
			styleName:   DefaultStyleName,
			wantContain: []string{".screenshot-target", "#card", "border-radius: 12px", "pre > code", "max-width: 100%"},
		},
		{name: "nonexistent style", styleName: "nonexistent-style-xyz", wantErr: ErrStyleNotFound},
		{name: "empty name", styleName: "", wantErr: ErrInvalidAssetName},
		{name: "path traversal", styleName: "../secret", wantErr: ErrInvalidAssetName},
		{name: "backslash traversal", styleName: "..\\secret", wantErr: ErrInvalidAssetName},
		{name: "name with dot", styleName: "card.min", wantErr: ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := loader.LoadStyle(tt.styleName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LoadStyle(%q) error = %v, want %v", tt.styleName, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadStyle(%q) unexpected error: %v", tt.styleName, err)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(got, want) {
					t.Errorf("LoadStyle(%q) should contain %q", tt.styleName, want)
				}
			}
		})
	}
}

func TestEmbeddedLoader_LoadTemplate(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	t.Run("card template has one target wrapping one card", func(t *testing.T) {
		t.Parallel()

		got, err := loader.LoadTemplate(DefaultTemplateName)
		if err != nil {
			t.Fatalf("LoadTemplate() unexpected error: %v", err)
		}
		if n := strings.Count(got, `class="screenshot-target"`); n != 1 {
			t.Errorf("screenshot-target count = %d, want 1", n)
		}
		if n := strings.Count(got, `id="card"`); n != 1 {
			t.Errorf("card count = %d, want 1", n)
		}
		if strings.Index(got, "screenshot-target") > strings.Index(got, `id="card"`) {
			t.Error("card should be nested inside screenshot-target")
		}
		for _, field := range []string{"{{.Style}}", "{{.Content}}", "{{.Title}}"} {
			if !strings.Contains(got, field) {
				t.Errorf("template should reference %s", field)
			}
		}
	})

	t.Run("nonexistent template", func(t *testing.T) {
		t.Parallel()

		_, err := loader.LoadTemplate("cover")
		if !errors.Is(err, ErrTemplateNotFound) {
			t.Errorf("LoadTemplate() error = %v, want ErrTemplateNotFound", err)
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		t.Parallel()

		_, err := loader.LoadTemplate("../secret")
		if !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("LoadTemplate() error = %v, want ErrInvalidAssetName", err)
		}
	})
}
