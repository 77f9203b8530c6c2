package window

import (
	webview "github.com/webview/webview_go"
)

// Webview presents the backend in a native window. The loaded page runs in
// the platform webview's content sandbox: no host capability is reachable
// from page script except the bindings installed below.
type Webview struct {
	cfg     Config
	version string
}

// NewWebview returns a Presenter backed by the system webview.
// version is exposed to the page through the one vetted bridge binding.
func NewWebview(cfg Config, version string) *Webview {
	return &Webview{cfg: cfg.withDefaults(), version: version}
}

// Present opens exactly one top-level window navigated to url and blocks
// until the operator closes it.
func (v *Webview) Present(url string) error {
	w := webview.New(v.cfg.Debug)
	defer w.Destroy()
	w.SetTitle(v.cfg.Title)
	w.SetSize(v.cfg.Width, v.cfg.Height, webview.HintNone)
	// The only privileged API exposed to page content.
	if err := w.Bind("officedeskVersion", func() string { return v.version }); err != nil {
		return err
	}
	w.Navigate(url)
	w.Run()
	return nil
}
