package checkout

// Component is a declarative element description, re-derived from scratch
// on every render.
type Component struct {
	Type     string
	Props    map[string]any
	Children []any // *Component or string
}

// ComponentPresenter renders the banner as a component tree; a hidden
// banner renders to nil.
type ComponentPresenter struct {
	// OnRender receives every rendered tree. Optional.
	OnRender func(*Component)

	last *Component
}

// Render is the pure view function.
func Render(v BannerView) *Component {
	if !v.Visible() {
		return nil
	}
	return &Component{
		Type:  "Banner",
		Props: map[string]any{"status": "info"},
		Children: []any{
			&Component{Type: "Text", Children: []any{v.Message}},
		},
	}
}

func (p *ComponentPresenter) Present(v BannerView) error {
	p.last = Render(v)
	if p.OnRender != nil {
		p.OnRender(p.last)
	}
	return nil
}

// Last returns the most recent tree.
func (p *ComponentPresenter) Last() *Component {
	return p.last
}
