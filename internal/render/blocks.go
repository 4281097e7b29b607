package render

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BlockKind classifies a laid-out block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockQuote
	BlockCode
	BlockListItem
	BlockImage
	BlockCaption
	BlockRule
)

// Block is one unit of flow content extracted from sanitized markup.
type Block struct {
	Kind   BlockKind
	Level  int    // heading level, 1..6
	Text   string // inline text; alt text for images
	Src    string // image source
	Marker string // list item bullet or number
}

// flowContainers flush pending inline text on entry and exit.
var flowContainers = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Aside: true, atom.Figure: true,
	atom.Table: true, atom.Thead: true, atom.Tbody: true, atom.Tfoot: true,
	atom.Tr: true, atom.Caption: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Ul: true, atom.Ol: true,
}

type flow struct {
	kind  BlockKind
	level int
	pre   bool
}

type blockBuilder struct {
	blocks  []Block
	text    strings.Builder
	current flow
	marker  string
	space   bool
}

// parseBlocks converts a sanitized tree into flow blocks.
func parseBlocks(root *html.Node) []Block {
	b := &blockBuilder{}
	b.walkChildren(root, flow{kind: BlockParagraph})
	b.flush()
	return b.blocks
}

func (b *blockBuilder) walkChildren(n *html.Node, f flow) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c, f)
	}
}

func (b *blockBuilder) walk(n *html.Node, f flow) {
	if n.Type == html.TextNode {
		b.appendText(n.Data, f)
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	switch a := n.DataAtom; {
	case isHeading(a):
		b.flush()
		b.walkChildren(n, flow{kind: BlockHeading, level: headingLevel(a)})
		b.flush()
	case a == atom.Pre:
		b.flush()
		b.walkChildren(n, flow{kind: BlockCode, pre: true})
		b.flush()
	case a == atom.Blockquote:
		b.flush()
		b.walkChildren(n, flow{kind: BlockQuote})
		b.flush()
	case a == atom.Figcaption:
		b.flush()
		b.walkChildren(n, flow{kind: BlockCaption})
		b.flush()
	case a == atom.Li:
		b.flush()
		b.marker = listMarker(n)
		b.walkChildren(n, flow{kind: BlockListItem})
		b.flush()
		b.marker = ""
	case a == atom.Hr:
		b.flush()
		b.blocks = append(b.blocks, Block{Kind: BlockRule})
	case a == atom.Img:
		b.flush()
		b.blocks = append(b.blocks, Block{Kind: BlockImage, Text: attr(n, "alt"), Src: attr(n, "src")})
	case a == atom.Br:
		if f.pre {
			b.appendText("\n", f)
		} else {
			b.text.WriteByte('\n')
			b.space = false
		}
	case a == atom.Td || a == atom.Th:
		if b.text.Len() > 0 {
			b.text.WriteString("  ")
			b.space = false
		}
		b.walkChildren(n, f)
	case a == atom.Rt || a == atom.Rp:
		// ruby annotations are dropped from terminal text
	case flowContainers[a]:
		b.flush()
		b.walkChildren(n, f)
		b.flush()
	default:
		b.walkChildren(n, f)
	}
}

func (b *blockBuilder) appendText(s string, f flow) {
	if b.text.Len() == 0 {
		b.current = f
	}
	if f.pre {
		b.text.WriteString(s)
		return
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		if s != "" && b.text.Len() > 0 {
			b.space = true
		}
		return
	}
	if b.text.Len() > 0 && (b.space || startsWithSpace(s)) && !strings.HasSuffix(b.text.String(), "\n") {
		b.text.WriteByte(' ')
	}
	b.text.WriteString(strings.Join(words, " "))
	b.space = endsWithSpace(s)
}

func (b *blockBuilder) flush() {
	text := b.text.String()
	b.text.Reset()
	b.space = false
	if b.current.pre {
		text = strings.Trim(text, "\n")
	} else {
		text = strings.TrimSpace(text)
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	b.blocks = append(b.blocks, Block{
		Kind:   b.current.kind,
		Level:  b.current.level,
		Text:   text,
		Marker: b.takeMarker(),
	})
}

// takeMarker hands the list marker to the first block of a list item only.
func (b *blockBuilder) takeMarker() string {
	if b.current.kind != BlockListItem {
		return ""
	}
	m := b.marker
	b.marker = ""
	if m == "" {
		return " "
	}
	return m
}

func isHeading(a atom.Atom) bool {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	default:
		return 6
	}
}

// listMarker is "•" for unordered items and "N." for ordered ones.
func listMarker(li *html.Node) string {
	parent := li.Parent
	if parent == nil || parent.DataAtom != atom.Ol {
		return "•"
	}
	n := 1
	if start, err := strconv.Atoi(attr(parent, "start")); err == nil {
		n = start
	}
	for c := parent.FirstChild; c != nil && c != li; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			n++
		}
	}
	return strconv.Itoa(n) + "."
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s[:1], " \t\r\n") == ""
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s[len(s)-1:], " \t\r\n") == ""
}
