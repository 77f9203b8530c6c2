//go:build !alwayspresent

package window

// DecideOnProbeFailure implements the default deployment profile: a failed
// readiness probe is surfaced to the operator, who chooses between opening
// the window anyway and quitting.
func DecideOnProbeFailure(title, message string) Decision {
	return AskDegradedOpen(title, message)
}
