// internal/app/features/page/page.go

// Package page builds the host document: the stock contact page rendered
// from embedded templates, or an operator-supplied HTML file. Sessions
// never touch the loaded document directly; each gets its own clone.
package page

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/dalemusser/contactform/internal/dom"
	"github.com/dalemusser/contactform/templates"
	"go.uber.org/zap"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

//go:embed static/contact.js
var staticFS embed.FS

// DefaultTitle is the heading of the stock page.
const DefaultTitle = "Contact us"

// Data is what the stock page template renders.
type Data struct {
	Title string
}

// Build renders the stock page and parses it into a document.
func Build(logger *zap.Logger, data Data) (*dom.Document, error) {
	if data.Title == "" {
		data.Title = DefaultTitle
	}
	engine := templates.New(logger)
	if err := engine.Boot(templates.Set{Name: "page", FS: templateFS, Patterns: []string{"templates/*.gohtml"}}); err != nil {
		return nil, err
	}
	html, err := engine.Execute("page", data)
	if err != nil {
		return nil, err
	}
	return dom.ParseString(string(html))
}

// LoadFile parses the HTML page at path.
func LoadFile(path string) (*dom.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}
	defer f.Close()
	return dom.Parse(f)
}

// Load returns the page at path, or the stock page when path is empty.
func Load(logger *zap.Logger, path string) (*dom.Document, error) {
	if path == "" {
		return Build(logger, Data{})
	}
	return LoadFile(path)
}

// Store holds the current host document. It is safe for concurrent use.
type Store struct {
	doc atomic.Pointer[dom.Document]
}

// NewStore creates a store holding doc.
func NewStore(doc *dom.Document) *Store {
	s := &Store{}
	s.doc.Store(doc)
	return s
}

// Replace swaps in a new document. Sessions already started keep theirs.
func (s *Store) Replace(doc *dom.Document) {
	s.doc.Store(doc)
}

// Session returns a private copy of the current document.
func (s *Store) Session() *dom.Document {
	return s.doc.Load().Clone()
}

// StaticFS returns the script shim, served under /static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded path is fixed at build time
	}
	return sub
}
