package client

// Navigation is the route and progress position of a brand as reported by
// NavigatorService.
type Navigation struct {
	BrandID string `json:"brand_id"`
	Status  string `json:"status"`
	Route   string `json:"route"`
	Step    int    `json:"step"`
	Known   bool   `json:"known"`
	DevMode bool   `json:"dev_mode"`
	Steps   []Step `json:"steps"`
}

// Step is one entry of the progress display.
type Step struct {
	Number     int    `json:"number"`
	Status     string `json:"status"`
	Title      string `json:"title"`
	Route      string `json:"route,omitempty"`
	Revertible bool   `json:"revertible"`
	Current    bool   `json:"current"`
	Done       bool   `json:"done"`
}

// StepList is the ListSteps response.
type StepList struct {
	DevMode bool   `json:"dev_mode"`
	Steps   []Step `json:"steps"`
}
