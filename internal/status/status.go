// Package status maps a brand's server-reported lifecycle status to the wizard
// screen that should be shown and to its ordinal in the progress display.
//
// Every lookup is derived from a single ordered stage table so the
// status→step, step→status and status→route directions cannot drift apart.
// Nothing in this package returns an error: unknown input degrades to the
// earliest well-defined value.
package status

import "fmt"

// BrandStatus is the lifecycle stage a brand currently occupies.
type BrandStatus string

const (
	NewBrand                BrandStatus = "new_brand"
	Questionnaire           BrandStatus = "questionnaire"
	Summary                 BrandStatus = "summary"
	JTBD                    BrandStatus = "jtbd"
	CreateSurvey            BrandStatus = "create_survey"
	CollectFeedback         BrandStatus = "collect_feedback"
	FeedbackReviewSummary   BrandStatus = "feedback_review_summary"
	FeedbackReviewJTBD      BrandStatus = "feedback_review_jtbd"
	FeedbackReviewArchetype BrandStatus = "feedback_review_archetype"
	PickName                BrandStatus = "pick_name"
	CreateAssets            BrandStatus = "create_assets"
	Testimonial             BrandStatus = "testimonial"
	Payment                 BrandStatus = "payment"
	Completed               BrandStatus = "completed"
)

// Stage is one entry of the lifecycle table.
type Stage struct {
	Status  BrandStatus
	Segment string
	Title   string
	// DevOnly stages are only surfaced when dev mode is on. When hidden they
	// share the ordinal of the preceding stage.
	DevOnly bool
}

// stages is the canonical lifecycle order. The index of a stage is its step
// number in dev mode.
var stages = []Stage{
	{Status: NewBrand, Segment: "questionnaire", Title: "Start"},
	{Status: Questionnaire, Segment: "questionnaire", Title: "Questionnaire"},
	{Status: Summary, Segment: "summary", Title: "Summary"},
	{Status: JTBD, Segment: "jtbd", Title: "Jobs to be done"},
	{Status: CreateSurvey, Segment: "survey", Title: "Survey"},
	{Status: CollectFeedback, Segment: "feedback", Title: "Collect feedback"},
	{Status: FeedbackReviewSummary, Segment: "feedback-review/summary", Title: "Feedback review: summary"},
	{Status: FeedbackReviewJTBD, Segment: "feedback-review/jtbd", Title: "Feedback review: jobs to be done"},
	{Status: FeedbackReviewArchetype, Segment: "feedback-review/archetype", Title: "Feedback review: archetype"},
	{Status: PickName, Segment: "naming", Title: "Pick a name"},
	{Status: CreateAssets, Segment: "assets", Title: "Create assets"},
	{Status: Testimonial, Segment: "testimonial", Title: "Testimonial"},
	{Status: Payment, Segment: "payment", Title: "Payment", DevOnly: true},
	{Status: Completed, Segment: "completed", Title: "Completed"},
}

var (
	indexByStatus = make(map[BrandStatus]int, len(stages))
	// statusByStep uses dev-mode numbering, where every stage has its own slot.
	statusByStep = make(map[int]BrandStatus, len(stages))
)

func init() {
	for i, st := range stages {
		if _, dup := indexByStatus[st.Status]; dup {
			panic(fmt.Sprintf("status: duplicate stage %q", st.Status))
		}
		indexByStatus[st.Status] = i
		if IsRevertible(st.Status) {
			statusByStep[i] = st.Status
		}
	}
}

// All returns every status in lifecycle order.
func All() []BrandStatus {
	out := make([]BrandStatus, len(stages))
	for i, st := range stages {
		out[i] = st.Status
	}
	return out
}

// Parse reports whether s names a known status.
func Parse(s string) (BrandStatus, bool) {
	st := BrandStatus(s)
	_, ok := indexByStatus[st]
	return st, ok
}

// IsValid reports whether the status is part of the lifecycle.
func (s BrandStatus) IsValid() bool {
	_, ok := indexByStatus[s]
	return ok
}

func (s BrandStatus) String() string { return string(s) }

// Normalize returns s when it is known and NewBrand otherwise.
func Normalize(s BrandStatus) BrandStatus {
	if s.IsValid() {
		return s
	}
	return NewBrand
}

// IsRevertible reports whether a brand may be reverted to s. The first and the
// terminal stage are never revert targets.
func IsRevertible(s BrandStatus) bool {
	i, ok := indexByStatus[s]
	return ok && i > 0 && i < len(stages)-1
}

// IsTerminal reports whether no stage follows s.
func IsTerminal(s BrandStatus) bool {
	return indexByStatus[s] == len(stages)-1 && s.IsValid()
}

// Compare orders two statuses by lifecycle position. Unknown statuses sort as
// NewBrand.
func Compare(a, b BrandStatus) int {
	ia, ib := indexByStatus[Normalize(a)], indexByStatus[Normalize(b)]
	switch {
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	default:
		return 0
	}
}

// StageFor returns the stage entry for s, falling back to the first stage.
func StageFor(s BrandStatus) Stage {
	return stages[indexByStatus[Normalize(s)]]
}

// RouteForStatus returns the wizard path for a brand at the given status.
// Unknown statuses route to the first stage.
func RouteForStatus(brandID string, s BrandStatus) string {
	return "/brands/" + brandID + "/" + StageFor(s).Segment
}

// StepNumberForStatus returns the progress ordinal of s. Unknown statuses
// yield 0. Outside dev mode the dev-only stages collapse onto their
// predecessor and every later stage moves down by one.
func StepNumberForStatus(s BrandStatus, devMode bool) int {
	i, ok := indexByStatus[s]
	if !ok {
		return 0
	}
	if devMode {
		return i
	}
	step := i
	for _, st := range stages[:i+1] {
		if st.DevOnly {
			step--
		}
	}
	return step
}

// StatusForStepNumber maps a step chosen in the history view back to the
// status a revert should target. Steps are read with dev-mode numbering.
// Anything that is not a revertible step resolves to Questionnaire.
func StatusForStepNumber(step int) BrandStatus {
	if s, ok := statusByStep[step]; ok {
		return s
	}
	return Questionnaire
}

// Next returns the stage that follows s. Dev-only stages are skipped when
// devMode is false. The second result is false when s is terminal.
func Next(s BrandStatus, devMode bool) (BrandStatus, bool) {
	for _, st := range stages[indexByStatus[Normalize(s)]+1:] {
		if st.DevOnly && !devMode {
			continue
		}
		return st.Status, true
	}
	return s, false
}
