package dom

import (
	"strings"
	"testing"
)

const samplePage = `<!doctype html>
<html><head><title>t</title></head><body>
<form id="f">
  <input id="a" type="text" value="preset">
  <small id="a-err"></small>
  <input id="b" type="email">
  <textarea id="c">hello</textarea>
  <button type="submit">Send</button>
</form>
<p id="note"></p>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(samplePage)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestGetElementByID(t *testing.T) {
	doc := mustParse(t)

	tests := []struct {
		id      string
		wantTag string
	}{
		{"f", "form"},
		{"a", "input"},
		{"c", "textarea"},
		{"note", "p"},
		{"missing", ""},
		{"", ""},
	}
	for _, tt := range tests {
		el := doc.GetElementByID(tt.id)
		if tt.wantTag == "" {
			if el != nil {
				t.Errorf("GetElementByID(%q) = %s, want nil", tt.id, el.TagName())
			}
			continue
		}
		if el == nil {
			t.Fatalf("GetElementByID(%q) = nil", tt.id)
		}
		if el.TagName() != tt.wantTag {
			t.Errorf("GetElementByID(%q).TagName() = %q, want %q", tt.id, el.TagName(), tt.wantTag)
		}
	}
}

func TestAttributes(t *testing.T) {
	doc := mustParse(t)
	el := doc.GetElementByID("b")

	if el.HasAttribute("aria-invalid") {
		t.Fatal("aria-invalid present before set")
	}
	el.SetAttribute("aria-invalid", "true")
	el.SetAttribute("aria-invalid", "true")
	if v, ok := el.GetAttribute("aria-invalid"); !ok || v != "true" {
		t.Fatalf("aria-invalid = %q,%v", v, ok)
	}
	if n := strings.Count(doc.String(), "aria-invalid"); n != 1 {
		t.Errorf("aria-invalid rendered %d times, want 1", n)
	}

	el.RemoveAttribute("aria-invalid")
	el.RemoveAttribute("aria-invalid")
	if el.HasAttribute("aria-invalid") {
		t.Error("aria-invalid still present after remove")
	}
	if v, _ := el.GetAttribute("type"); v != "email" {
		t.Errorf("type = %q, want email", v)
	}
}

func TestTextContent(t *testing.T) {
	doc := mustParse(t)
	el := doc.GetElementByID("a-err")

	el.SetTextContent("Required.")
	if got := el.TextContent(); got != "Required." {
		t.Errorf("TextContent = %q", got)
	}
	el.SetTextContent("")
	if got := el.TextContent(); got != "" {
		t.Errorf("TextContent after clear = %q", got)
	}
	if !strings.Contains(doc.String(), `<small id="a-err"></small>`) {
		t.Errorf("cleared element not rendered empty:\n%s", doc.String())
	}
}

func TestValuesAndReset(t *testing.T) {
	doc := mustParse(t)
	a := doc.GetElementByID("a")
	b := doc.GetElementByID("b")
	c := doc.GetElementByID("c")

	if a.Value() != "preset" || b.Value() != "" || c.Value() != "hello" {
		t.Fatalf("initial values = %q %q %q", a.Value(), b.Value(), c.Value())
	}

	a.SetValue("x")
	b.SetValue("y@z.io")
	c.SetValue("<b>typed</b>")
	if c.Value() != "<b>typed</b>" {
		t.Errorf("textarea value = %q", c.Value())
	}
	if !strings.Contains(doc.String(), "&lt;b&gt;typed&lt;/b&gt;") {
		t.Error("textarea value not escaped on render")
	}

	doc.GetElementByID("f").Reset()
	if a.Value() != "preset" || b.Value() != "" || c.Value() != "hello" {
		t.Errorf("after reset = %q %q %q", a.Value(), b.Value(), c.Value())
	}
}

func TestFocus(t *testing.T) {
	doc := mustParse(t)
	note := doc.GetElementByID("note")
	a := doc.GetElementByID("a")

	if doc.ActiveElement() != nil {
		t.Fatal("fresh document has an active element")
	}
	if note.Focus() {
		t.Fatal("plain paragraph accepted focus")
	}
	if !a.Focus() || !a.Focused() {
		t.Fatal("input refused focus")
	}
	note.SetTabIndex(-1)
	if !note.Focus() {
		t.Fatal("paragraph with tabindex refused focus")
	}
	if got := doc.ActiveElement().ID(); got != "note" {
		t.Errorf("active = %q, want note", got)
	}
	if a.Focused() {
		t.Error("input still focused")
	}
}

func TestQueryAttrDocumentOrder(t *testing.T) {
	doc := mustParse(t)
	form := doc.GetElementByID("f")

	if form.QueryAttr("aria-invalid", "true") != nil {
		t.Fatal("match before any attribute set")
	}
	doc.GetElementByID("c").SetAttribute("aria-invalid", "true")
	doc.GetElementByID("b").SetAttribute("aria-invalid", "true")

	got := form.QueryAttr("aria-invalid", "true")
	if got == nil || got.ID() != "b" {
		t.Fatalf("first match = %v, want b", got)
	}
	doc.GetElementByID("note").SetAttribute("aria-invalid", "true")
	if !form.Contains(got) || form.Contains(doc.GetElementByID("note")) {
		t.Error("Contains disagrees with tree structure")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc := mustParse(t)
	doc.GetElementByID("a").Focus()

	cp := doc.Clone()
	cp.GetElementByID("a").SetValue("changed")
	cp.GetElementByID("a-err").SetTextContent("boom")

	if doc.GetElementByID("a").Value() != "preset" {
		t.Error("clone mutation leaked into original value")
	}
	if doc.GetElementByID("a-err").TextContent() != "" {
		t.Error("clone mutation leaked into original text")
	}
	if cp.ActiveElement() == nil || cp.ActiveElement().ID() != "a" {
		t.Error("clone lost focus")
	}

	cp.GetElementByID("f").Reset()
	if got := cp.GetElementByID("a").Value(); got != "preset" {
		t.Errorf("clone reset value = %q, want preset", got)
	}
}
