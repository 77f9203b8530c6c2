package window

import "fmt"

// Presenter opens the application window for a given URL and blocks until
// the window is closed by the operator.
type Presenter interface {
	Present(url string) error
}

// Decision is the operator's choice when the backend never reported ready.
type Decision int

const (
	DecisionProceed Decision = iota
	DecisionAbort
)

func (d Decision) String() string {
	if d == DecisionAbort {
		return "abort"
	}
	return "proceed"
}

// Default window geometry.
const (
	DefaultTitle  = "OfficeDesk"
	DefaultWidth  = 1200
	DefaultHeight = 800
)

// Config describes the application window.
type Config struct {
	Title  string `json:"title" mapstructure:"title"`
	Width  int    `json:"width" mapstructure:"width"`
	Height int    `json:"height" mapstructure:"height"`
	Debug  bool   `json:"debug" mapstructure:"debug"` // enable devtools in the webview
}

func (c Config) withDefaults() Config {
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	return c
}

// FailureMessage renders the operator-facing text for the fallback dialog.
func FailureMessage(url string, attempts int, lastStatus int) string {
	if lastStatus > 0 {
		return fmt.Sprintf("The office backend at %s answered with HTTP %d after %d attempts.\n\nOpen the window anyway?", url, lastStatus, attempts)
	}
	return fmt.Sprintf("The office backend at %s did not respond after %d attempts.\n\nOpen the window anyway?", url, attempts)
}
