package status

// Navigation is the view-selection context for one brand. It is built from
// the stored status on every read and is never persisted.
type Navigation struct {
	BrandID string
	Status  BrandStatus
	DevMode bool
}

// NewNavigation builds a navigation context for a brand.
func NewNavigation(brandID string, s BrandStatus, devMode bool) Navigation {
	return Navigation{BrandID: brandID, Status: s, DevMode: devMode}
}

// Route is the path of the screen the brand should be on.
func (n Navigation) Route() string { return RouteForStatus(n.BrandID, n.Status) }

// Step is the ordinal shown in the progress indicator.
func (n Navigation) Step() int { return StepNumberForStatus(n.Status, n.DevMode) }

// Known is false when the stored status is not one this build understands,
// in which case Route and Step describe the first stage.
func (n Navigation) Known() bool { return n.Status.IsValid() }

// StepInfo describes one entry of the progress display.
type StepInfo struct {
	Number     int         `json:"number"`
	Status     BrandStatus `json:"status"`
	Title      string      `json:"title"`
	Route      string      `json:"route,omitempty"`
	Revertible bool        `json:"revertible"`
	Current    bool        `json:"current"`
	Done       bool        `json:"done"`
}

// Steps lists the visible stages for the brand, marking the ones already
// passed and the current one. A brand parked on a hidden stage is shown on
// the visible stage that shares its step number.
func (n Navigation) Steps() []StepInfo {
	current := Normalize(n.Status)
	shown := displayedStatus(current, n.DevMode)
	out := make([]StepInfo, 0, len(stages))
	for _, st := range Visible(n.DevMode) {
		out = append(out, StepInfo{
			Number:     StepNumberForStatus(st.Status, n.DevMode),
			Status:     st.Status,
			Title:      st.Title,
			Route:      RouteForStatus(n.BrandID, st.Status),
			Revertible: IsRevertible(st.Status) && Compare(st.Status, current) < 0,
			Current:    st.Status == shown,
			Done:       st.Status != shown && Compare(st.Status, current) < 0,
		})
	}
	return out
}

// displayedStatus returns the nearest visible stage at or before s.
func displayedStatus(s BrandStatus, devMode bool) BrandStatus {
	for i := indexByStatus[s]; i > 0; i-- {
		if devMode || !stages[i].DevOnly {
			return stages[i].Status
		}
	}
	return stages[0].Status
}

// Visible returns the stages shown in the progress display for the given
// mode, in lifecycle order.
func Visible(devMode bool) []Stage {
	out := make([]Stage, 0, len(stages))
	for _, st := range stages {
		if st.DevOnly && !devMode {
			continue
		}
		out = append(out, st)
	}
	return out
}
