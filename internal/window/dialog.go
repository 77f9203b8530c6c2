package window

import "github.com/ncruces/zenity"

// AskDegradedOpen shows the blocking proceed/abort dialog used when the
// readiness probe failed. It only reports the choice; acting on it is the
// lifecycle controller's job.
func AskDegradedOpen(title, message string) Decision {
	err := zenity.Question(message,
		zenity.Title(title),
		zenity.OKLabel("Open anyway"),
		zenity.CancelLabel("Quit"),
		zenity.WarningIcon,
	)
	if err != nil {
		// Covers zenity.ErrCanceled, a closed dialog, and a missing dialog
		// backend alike: without an explicit go-ahead we do not present.
		return DecisionAbort
	}
	return DecisionProceed
}
