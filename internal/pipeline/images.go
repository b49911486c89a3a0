package pipeline

import (
	"encoding/base64"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxInlineImageSize caps the size of a local image inlined as a data URI.
const MaxInlineImageSize = 10 << 20

// InlineLocalImages replaces relative img[src] paths with data: URIs read from
// sourceDir. The rendered page has no base URL, so relative paths would never
// resolve otherwise. If sourceDir is empty, the fragment is returned unchanged.
//
// Left untouched:
//   - URLs (http, https, file, data, protocol-relative) and anchors
//   - absolute paths
//   - paths escaping sourceDir
//   - missing, unreadable or oversized files (the browser reports them as broken)
func InlineLocalImages(fragment, sourceDir string) (string, error) {
	if sourceDir == "" {
		return fragment, nil
	}

	absSourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}

	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", err
	}

	changed := false
	for _, n := range nodes {
		if inlineNode(n, absSourceDir) {
			changed = true
		}
	}
	if !changed {
		return fragment, nil
	}

	var buf strings.Builder
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func inlineNode(n *html.Node, sourceDir string) bool {
	changed := false
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		for i, a := range n.Attr {
			if a.Key != "src" || !isRelativePath(a.Val) {
				continue
			}
			if uri, ok := dataURI(filepath.Join(sourceDir, localPath(a.Val)), sourceDir); ok {
				n.Attr[i].Val = uri
				changed = true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if inlineNode(c, sourceDir) {
			changed = true
		}
	}
	return changed
}

func dataURI(path, sourceDir string) (string, bool) {
	if !isPathUnderDir(path, sourceDir) {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() > MaxInlineImageSize {
		return "", false
	}
	data, err := os.ReadFile(path) // #nosec G304 -- containment checked above
	if err != nil {
		return "", false
	}

	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), true
}

// localPath turns a relative src into an OS path. Markdown renderers
// percent-encode destinations (my pic.png becomes my%20pic.png), so the
// value is unescaped first; a malformed escape is used as written.
func localPath(src string) string {
	if decoded, err := url.PathUnescape(src); err == nil {
		src = decoded
	}
	return filepath.FromSlash(src)
}

// isRelativePath reports whether src refers to a file relative to the document.
func isRelativePath(src string) bool {
	if src == "" || strings.HasPrefix(src, "#") || strings.HasPrefix(src, "//") {
		return false
	}
	if i := strings.Index(src, ":"); i > 0 && !strings.ContainsAny(src[:i], `/\.`) && len(src[:i]) > 1 {
		return false // scheme such as http:, data:, file:
	}
	return !filepath.IsAbs(src)
}

// isPathUnderDir checks that path stays inside dir after cleaning.
func isPathUnderDir(path, dir string) bool {
	cleanDir := filepath.Clean(dir)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(filepath.Clean(path)+string(filepath.Separator), cleanDir)
}
