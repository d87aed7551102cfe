package checkout

// BannerState is HIDDEN or SHOWN; there are no other states.
type BannerState int

const (
	BannerHidden BannerState = iota
	BannerShown
)

func (s BannerState) String() string {
	if s == BannerShown {
		return "SHOWN"
	}
	return "HIDDEN"
}

// BannerView is what a presenter draws.
type BannerView struct {
	State   BannerState
	Message string
}

func (v BannerView) Visible() bool { return v.State == BannerShown }

// ViewFor derives the banner from the current settings. The shopper cannot
// dismiss it; only a settings change moves it between states.
func ViewFor(cfg SaleModeConfig) BannerView {
	if !cfg.Enabled {
		return BannerView{State: BannerHidden}
	}
	return BannerView{State: BannerShown, Message: cfg.BannerMessage()}
}

// Presenter draws a BannerView with one UI API shape.
type Presenter interface {
	Present(v BannerView) error
}
