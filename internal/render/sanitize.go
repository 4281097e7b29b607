package render

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedTags is the structural and inline tag set that survives
// sanitization. Other elements are unwrapped (their children kept).
var allowedTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Span: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.A: true, atom.Em: true, atom.Strong: true, atom.B: true, atom.I: true, atom.U: true,
	atom.S: true, atom.Sub: true, atom.Sup: true, atom.Small: true, atom.Mark: true,
	atom.Abbr: true, atom.Cite: true, atom.Q: true, atom.Del: true, atom.Ins: true,
	atom.Blockquote: true, atom.Pre: true, atom.Code: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Img: true, atom.Figure: true, atom.Figcaption: true,
	atom.Table: true, atom.Thead: true, atom.Tbody: true, atom.Tfoot: true,
	atom.Tr: true, atom.Th: true, atom.Td: true, atom.Caption: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true, atom.Aside: true,
	atom.Ruby: true, atom.Rt: true, atom.Rp: true,
}

// droppedTags are removed together with everything inside them.
var droppedTags = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Iframe: true, atom.Frame: true, atom.Frameset: true,
	atom.Object: true, atom.Embed: true, atom.Applet: true, atom.Form: true, atom.Input: true,
	atom.Button: true, atom.Select: true, atom.Textarea: true, atom.Link: true, atom.Meta: true,
	atom.Base: true, atom.Noscript: true, atom.Template: true, atom.Svg: true, atom.Math: true,
	atom.Audio: true, atom.Video: true, atom.Canvas: true, atom.Title: true, atom.Head: true,
}

var allowedAttrs = map[string]bool{
	"href": true, "src": true, "alt": true, "title": true, "id": true, "class": true,
	"lang": true, "dir": true, "start": true, "colspan": true, "rowspan": true, "width": true, "height": true,
}

// Sanitize parses markup as a body fragment and returns it with executable
// and embedded content removed. Unknown elements are unwrapped, event
// handler and style attributes are stripped, and href/src values must use a
// safe scheme. Unsafe input is neutralised, never rejected.
func Sanitize(markup string) string {
	return renderChildren(sanitizeTree(markup))
}

func renderChildren(root *html.Node) string {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			break
		}
	}
	return strings.TrimSpace(buf.String())
}

// sanitizeTree returns a detached element whose children are the cleaned
// fragment.
func sanitizeTree(markup string) *html.Node {
	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	root := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}

	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return root
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	cleanNode(root)
	return root
}

func cleanNode(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		switch c.Type {
		case html.TextNode:
			continue
		case html.ElementNode:
		default:
			n.RemoveChild(c)
			continue
		}

		if droppedTags[c.DataAtom] || c.Namespace != "" {
			n.RemoveChild(c)
			continue
		}
		if !allowedTags[c.DataAtom] {
			// unwrap and revisit the promoted children
			first := c.FirstChild
			for gc := c.FirstChild; gc != nil; {
				after := gc.NextSibling
				c.RemoveChild(gc)
				n.InsertBefore(gc, c)
				gc = after
			}
			n.RemoveChild(c)
			if first != nil {
				next = first
			}
			continue
		}

		cleanAttributes(c)
		cleanNode(c)
	}
}

func cleanAttributes(n *html.Node) {
	kept := n.Attr[:0]
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if attr.Namespace != "" || !allowedAttrs[key] {
			continue
		}
		if (key == "href" || key == "src") && !isSafeURI(attr.Val) {
			continue
		}
		attr.Key = key
		kept = append(kept, attr)
	}
	n.Attr = kept
}

// isSafeURI allows relative references, http(s), mailto and data:image.
func isSafeURI(raw string) bool {
	v := strings.TrimSpace(raw)
	if v == "" || strings.HasPrefix(v, "#") || strings.HasPrefix(v, "/") ||
		strings.HasPrefix(v, "./") || strings.HasPrefix(v, "../") || strings.HasPrefix(v, "?") {
		return true
	}
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "":
		return true
	case "http", "https", "mailto":
		return true
	case "data":
		return strings.HasPrefix(strings.ToLower(v), "data:image/")
	default:
		return false
	}
}
