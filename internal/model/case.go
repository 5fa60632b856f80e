package model

import "fmt"

// ResponseSlots is the number of model responses shown per case. Cases
// with fewer actual outputs are padded with synthetic placeholder slots.
const ResponseSlots = 3

// SyntheticResponseID returns the placeholder id for slot n (1-based).
func SyntheticResponseID(n int) string {
	return fmt.Sprintf("model-%d", n)
}

// GroundTruth is the reference report a radiologist wrote for the case
// image. The record API delivers it as a structured object, a
// JSON-encoded string, or free text; the record client normalizes all
// three into this shape.
type GroundTruth struct {
	Findings    string `json:"findings"`
	Impressions string `json:"impressions"`
}

// ModelOutput is one AI-generated report for a case.
type ModelOutput struct {
	ID          string       `json:"id"`
	Report      string       `json:"report"`
	Evaluations []Evaluation `json:"evaluations,omitempty"`
}

// CaseNav is optional prev/next navigation metadata returned alongside a
// case payload.
type CaseNav struct {
	PrevID string `json:"prevId,omitempty"`
	NextID string `json:"nextId,omitempty"`
	Index  int    `json:"index,omitempty"`
	Total  int    `json:"total,omitempty"`
}

// Case is one image-reporting task requiring evaluator scoring.
type Case struct {
	ID           string        `json:"id"`
	ImageURL     string        `json:"imageUrl"`
	GroundTruth  GroundTruth   `json:"groundTruth"`
	ModelOutputs []ModelOutput `json:"modelOutputs"`
	Metrics      []Metric      `json:"metrics,omitempty"`
	Evaluations  []Evaluation  `json:"evaluations,omitempty"`
	Nav          *CaseNav      `json:"nav,omitempty"`
}

// ResponseID returns the stable backend id for slot n (1-based), or the
// synthetic placeholder when the case has fewer actual outputs.
func (c *Case) ResponseID(n int) string {
	if n >= 1 && n <= len(c.ModelOutputs) && c.ModelOutputs[n-1].ID != "" {
		return c.ModelOutputs[n-1].ID
	}
	return SyntheticResponseID(n)
}

// User is an evaluator account as held by the record API.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
