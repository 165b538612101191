package services

import "github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"

// ViewMode is the month-relative mode of the viewing cursor. It is
// derived once from the month comparison instead of scattering ad hoc
// "is preview" checks through the handlers.
type ViewMode string

const (
	// ViewPast is a read-only archive view of an already rolled month.
	ViewPast ViewMode = "past"
	// ViewActive is the month currently being worked; normal editing.
	ViewActive ViewMode = "active"
	// ViewPreview is a future month: payments may be recorded in
	// advance but a rollover cannot be triggered from here.
	ViewPreview ViewMode = "preview"
)

// ViewModeFor derives the mode of viewingMonth relative to activeMonth.
func ViewModeFor(viewingMonth, activeMonth string) ViewMode {
	switch core.CompareMonths(viewingMonth, activeMonth) {
	case -1:
		return ViewPast
	case 1:
		return ViewPreview
	default:
		return ViewActive
	}
}

// viewModePolicy is the table of what each mode permits.
var viewModePolicy = map[ViewMode]struct {
	allowEdits    bool
	allowPayments bool
	allowRollover bool
}{
	ViewPast:    {allowEdits: false, allowPayments: false, allowRollover: false},
	ViewActive:  {allowEdits: true, allowPayments: true, allowRollover: true},
	ViewPreview: {allowEdits: false, allowPayments: true, allowRollover: false},
}

// AllowsEdits reports whether structural bill edits are permitted.
func (m ViewMode) AllowsEdits() bool { return viewModePolicy[m].allowEdits }

// AllowsPayments reports whether payments may be recorded.
func (m ViewMode) AllowsPayments() bool { return viewModePolicy[m].allowPayments }

// AllowsRollover reports whether a rollover may be triggered.
func (m ViewMode) AllowsRollover() bool { return viewModePolicy[m].allowRollover }
