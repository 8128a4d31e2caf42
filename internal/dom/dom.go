// internal/dom/dom.go

// Package dom holds a parsed HTML host document and hands out element
// handles with the small slice of browser DOM behavior the page
// components rely on: attributes, text content, form control values,
// focus and form reset.
//
// A Document is not safe for concurrent use. Each session works on its
// own Clone of a shared, never-mutated template document.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed host page.
type Document struct {
	root *html.Node

	// defaults records the value each form control had when the page was
	// parsed; Reset restores these.
	defaults map[*html.Node]string

	active *html.Node
}

// Parse reads an HTML page into a Document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	d := &Document{root: root, defaults: make(map[*html.Node]string)}
	walk(root, func(n *html.Node) bool {
		if isFormControl(n) {
			d.defaults[n] = controlValue(n)
		}
		return true
	})
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Clone returns a deep copy of the document, including default values
// and the focused element.
func (d *Document) Clone() *Document {
	mapping := make(map[*html.Node]*html.Node)
	root := cloneNode(d.root, mapping)

	cp := &Document{root: root, defaults: make(map[*html.Node]string, len(d.defaults))}
	for n, v := range d.defaults {
		if nn, ok := mapping[n]; ok {
			cp.defaults[nn] = v
		}
	}
	if d.active != nil {
		cp.active = mapping[d.active]
	}
	return cp
}

func cloneNode(n *html.Node, mapping map[*html.Node]*html.Node) *html.Node {
	cp := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		cp.Attr = make([]html.Attribute, len(n.Attr))
		copy(cp.Attr, n.Attr)
	}
	mapping[n] = cp
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		cp.AppendChild(cloneNode(c, mapping))
	}
	return cp
}

// GetElementByID returns the first element whose id attribute equals id,
// or nil if there is none.
func (d *Document) GetElementByID(id string) *Element {
	if id == "" {
		return nil
	}
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return &Element{doc: d, node: found}
}

// ActiveElement returns the element that currently has focus, or nil.
func (d *Document) ActiveElement() *Element {
	if d.active == nil {
		return nil
	}
	return &Element{doc: d, node: d.active}
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Element is a handle to one element node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

// ID returns the element's id attribute.
func (e *Element) ID() string { return attr(e.node, "id") }

// TagName returns the lower-case tag name.
func (e *Element) TagName() string { return e.node.Data }

// GetAttribute returns the attribute value and whether it is present.
func (e *Element) GetAttribute(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttribute reports whether the attribute is present.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.GetAttribute(name)
	return ok
}

// SetAttribute sets or replaces an attribute.
func (e *Element) SetAttribute(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttribute deletes an attribute if present.
func (e *Element) RemoveAttribute(name string) {
	out := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		out = append(out, a)
	}
	e.node.Attr = out
}

// TextContent returns the concatenated text of all descendant text nodes.
func (e *Element) TextContent() string {
	return textContent(e.node)
}

// SetTextContent replaces all children with a single text node.
// An empty string leaves the element without children.
func (e *Element) SetTextContent(s string) {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	if s != "" {
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

// Value returns the current value of a form control: the value
// attribute for <input>, the text for <textarea>. Other elements report
// an empty string.
func (e *Element) Value() string {
	return controlValue(e.node)
}

// SetValue sets the current value of a form control.
func (e *Element) SetValue(v string) {
	switch e.node.DataAtom {
	case atom.Textarea:
		e.SetTextContent(v)
	case atom.Input:
		e.SetAttribute("value", v)
	}
}

// SetTabIndex sets the tabindex attribute, making the element
// programmatically focusable.
func (e *Element) SetTabIndex(i int) {
	e.SetAttribute("tabindex", strconv.Itoa(i))
}

// Focusable reports whether Focus would succeed on this element.
func (e *Element) Focusable() bool {
	if e.HasAttribute("disabled") {
		return false
	}
	if e.HasAttribute("tabindex") {
		return true
	}
	switch e.node.DataAtom {
	case atom.Input:
		t, _ := e.GetAttribute("type")
		return !strings.EqualFold(t, "hidden")
	case atom.Textarea, atom.Select, atom.Button:
		return true
	case atom.A:
		return e.HasAttribute("href")
	}
	return false
}

// Focus moves document focus to the element. It reports false and
// leaves focus unchanged when the element is not focusable.
func (e *Element) Focus() bool {
	if !e.Focusable() {
		return false
	}
	e.doc.active = e.node
	return true
}

// Focused reports whether the element currently has focus.
func (e *Element) Focused() bool {
	return e.doc.active == e.node
}

// QueryAttr returns the first descendant element, in document order,
// carrying attribute name with the given value.
func (e *Element) QueryAttr(name, value string) *Element {
	var found *html.Node
	for c := e.node.FirstChild; c != nil && found == nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			if n.Type == html.ElementNode {
				for _, a := range n.Attr {
					if a.Namespace == "" && a.Key == name && a.Val == value {
						found = n
						return false
					}
				}
			}
			return true
		})
	}
	if found == nil {
		return nil
	}
	return &Element{doc: e.doc, node: found}
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other *Element) bool {
	if other == nil {
		return false
	}
	for n := other.node; n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

// Reset restores every form control under the element to the value it
// had when the document was parsed.
func (e *Element) Reset() {
	walk(e.node, func(n *html.Node) bool {
		if isFormControl(n) {
			(&Element{doc: e.doc, node: n}).SetValue(e.doc.defaults[n])
		}
		return true
	})
}

// walk visits n and its descendants depth-first in document order until
// fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

func isFormControl(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Textarea:
		return true
	case atom.Input:
		switch strings.ToLower(attr(n, "type")) {
		case "submit", "button", "reset", "image", "hidden":
			return false
		}
		return true
	}
	return false
}

func controlValue(n *html.Node) string {
	switch n.DataAtom {
	case atom.Textarea:
		return textContent(n)
	case atom.Input:
		return attr(n, "value")
	}
	return ""
}
