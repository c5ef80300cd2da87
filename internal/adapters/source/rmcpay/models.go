package rmcpay

import "time"

// searchEnvelope is the top level search response
// a present key returns a single element data array, an absent key returns
// an empty or missing array with status 200
type searchEnvelope struct {
	Data []Violation `json:"data"`
}

// Violation is a partial violation document with the fields we use
// the operator overloads userdef slots per tenant, the labels say what a slot holds
type Violation struct {
	Userdef1Label string `json:"userdef1_label"`
	Userdef1      string `json:"userdef1"`
	Userdef8Label string `json:"userdef8_label"`
	Userdef8      string `json:"userdef8"`
	Description   string `json:"description"`
	DateUTC       string `json:"date_utc"`
	Date          string `json:"date"`
	ZoneNumber    string `json:"zonenumber"`
	LPN           string `json:"lpn"`
}

// issuedAtLayouts are the timestamp shapes the operator has been seen emitting
var issuedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// IssuedAt parses the violation timestamp, preferring date_utc over date
// returns the zero time when neither parses
func (v Violation) IssuedAt() time.Time {
	for _, raw := range []string{v.DateUTC, v.Date} {
		if raw == "" {
			continue
		}
		for _, layout := range issuedAtLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}
