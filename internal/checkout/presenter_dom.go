package checkout

import "strings"

// Node is a minimal element tree of the kind an imperative DOM API exposes.
type Node struct {
	Tag        string
	Attributes map[string]string
	Text       string
	Children   []*Node
	parent     *Node
}

func NewElement(tag string, attrs map[string]string) *Node {
	return &Node{Tag: tag, Attributes: attrs}
}

func NewText(text string) *Node {
	return &Node{Text: text}
}

func (n *Node) AppendChild(c *Node) {
	c.parent = n
	n.Children = append(n.Children, c)
}

func (n *Node) RemoveChild(c *Node) {
	for i, ch := range n.Children {
		if ch == c {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			c.parent = nil
			return
		}
	}
}

// TextContent concatenates every text node below n.
func (n *Node) TextContent() string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(x *Node) {
		b.WriteString(x.Text)
		for _, c := range x.Children {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// DOMPresenter mutates a root node in place: it appends the banner on
// HIDDEN->SHOWN, edits its text when the message changes and removes it on
// SHOWN->HIDDEN.
type DOMPresenter struct {
	Root   *Node
	banner *Node
	text   *Node
}

func NewDOMPresenter(root *Node) *DOMPresenter {
	if root == nil {
		root = NewElement("body", nil)
	}
	return &DOMPresenter{Root: root}
}

func (p *DOMPresenter) Present(v BannerView) error {
	if !v.Visible() {
		if p.banner != nil {
			p.Root.RemoveChild(p.banner)
			p.banner, p.text = nil, nil
		}
		return nil
	}
	if p.banner == nil {
		p.banner = NewElement("s-banner", map[string]string{"status": "info"})
		label := NewElement("s-text", nil)
		p.text = NewText(v.Message)
		label.AppendChild(p.text)
		p.banner.AppendChild(label)
		p.Root.AppendChild(p.banner)
		return nil
	}
	p.text.Text = v.Message
	return nil
}
