package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/alnah/go-md2png/internal/assets"
)

// Sentinel errors for document synthesis.
var (
	ErrDocumentSynthesis = errors.New("document synthesis failed")
	ErrTemplateIntegrity = errors.New("template integrity check failed")
)

// Selectors the document guarantees and the renderer relies on.
const (
	TargetClass    = "screenshot-target"
	TargetSelector = "." + TargetClass
	CardID         = "card"
	CardSelector   = "#" + CardID
	ImageSelector  = CardSelector + " img"
)

// DocumentTitle is the <title> of every synthesized document.
const DocumentTitle = "Markdown Render"

// cardRulesTemplate holds the per-request rules appended after the static stylesheet.
const cardRulesTemplate = `
%s { background: %s; }
%s { width: %dpx; background: %s; }
`

// documentData is the data passed to the card template.
type documentData struct {
	Title   string
	Style   template.CSS
	Content template.HTML
}

// Synthesizer assembles complete card documents from a template and stylesheet.
// Safe for concurrent use after construction.
type Synthesizer struct {
	tmpl *template.Template
	css  string
}

// NewSynthesizer loads the named template and style from loader.
// The template is checked once with empty content: it must produce exactly one
// screenshot target containing exactly one card.
func NewSynthesizer(loader assets.AssetLoader, templateName, styleName string) (*Synthesizer, error) {
	tmplContent, err := loader.LoadTemplate(templateName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentSynthesis, err)
	}
	css, err := loader.LoadStyle(styleName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentSynthesis, err)
	}

	tmpl, err := template.New(templateName).Parse(tmplContent)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing template %q: %v", ErrDocumentSynthesis, templateName, err)
	}

	s := &Synthesizer{tmpl: tmpl, css: css}
	probe, err := s.execute("", ResolveStyle(StyleInput{}))
	if err != nil {
		return nil, err
	}
	if err := CheckDocument(probe); err != nil {
		return nil, fmt.Errorf("template %q: %w", templateName, err)
	}
	return s, nil
}

// Synthesize wraps an HTML fragment in the card document for the given style.
// The fragment is injected verbatim; it is re-checked so raw HTML cannot add a
// second screenshot target.
func (s *Synthesizer) Synthesize(fragment string, style Style) (string, error) {
	doc, err := s.execute(fragment, style)
	if err != nil {
		return "", err
	}
	if err := CheckDocument(doc); err != nil {
		return "", err
	}
	return doc, nil
}

func (s *Synthesizer) execute(fragment string, style Style) (string, error) {
	data := documentData{
		Title:   DocumentTitle,
		Style:   template.CSS(s.css + CardRules(style)), // #nosec G203 -- user values escaped by sanitizeCSS
		Content: template.HTML(fragment),                // #nosec G203 -- fragment comes from the Markdown renderer
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDocumentSynthesis, err)
	}
	return buf.String(), nil
}

// CardRules returns the CSS rules that depend on the resolved style.
func CardRules(style Style) string {
	return fmt.Sprintf(cardRulesTemplate,
		TargetSelector, sanitizeCSS(style.OuterBackground),
		CardSelector, style.Width, sanitizeCSS(style.CardBackground),
	)
}

// sanitizeCSS escapes sequences that could close the <style> element early.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// CheckDocument verifies the document holds exactly one screenshot target and
// exactly one card nested inside it.
func CheckDocument(doc string) error {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateIntegrity, err)
	}

	var targets, cards, nested int
	var walk func(n *html.Node, inTarget bool)
	walk = func(n *html.Node, inTarget bool) {
		if n.Type == html.ElementNode {
			if hasClass(n, TargetClass) {
				targets++
				inTarget = true
			}
			if attr(n, "id") == CardID {
				cards++
				if inTarget {
					nested++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inTarget)
		}
	}
	walk(root, false)

	switch {
	case targets != 1:
		return fmt.Errorf("%w: found %d %s elements, want 1", ErrTemplateIntegrity, targets, TargetSelector)
	case cards != 1:
		return fmt.Errorf("%w: found %d %s elements, want 1", ErrTemplateIntegrity, cards, CardSelector)
	case nested != 1:
		return fmt.Errorf("%w: %s is not inside %s", ErrTemplateIntegrity, CardSelector, TargetSelector)
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}
