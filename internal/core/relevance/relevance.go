// Package relevance classifies probed records and assembles their street addresses
//
// the upstream operator reuses its user defined fields across tenants, so a record
// only counts when the field labels match the layout our tenant uses and the
// violation description names an address bearing violation type
package relevance

import "strings"

// field labels the tenant configures on its violation records
const (
	labelLocation     = "Location"
	labelStreetNumber = "Street Number"
)

// Record carries the fields a relevance decision needs
type Record struct {
	LocationLabel  string
	StreetNumLabel string
	StreetName     string
	StreetNumber   string
	Description    string
}

// Options tunes the filter
type Options struct {
	// Keywords are matched case insensitively as substrings of the description
	Keywords []string
	// Region is appended to assembled addresses for geocoding
	Region string
}

// Default returns the shipped tenant configuration
func Default() Options {
	return Options{
		Keywords: []string{
			"resident permit only",
			"no stopping or standing",
			"meter fee unpaid",
			"no valid",
			"within 20 feet of intersection",
			"hydrant",
			"driveway",
			"sidewalk",
			"bike or bus lane",
			"over posted limit",
			"double parking",
			"no parking",
			"parking only",
			"street cleaning",
		},
		Region: "Boston, MA",
	}
}

// Filter decides record relevance for one tenant
type Filter struct {
	keywords []string
	region   string
}

// New builds a Filter with keywords lowered once up front
func New(opts Options) *Filter {
	f := &Filter{region: opts.Region}
	f.keywords = make([]string, 0, len(opts.Keywords))
	for _, kw := range opts.Keywords {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw != "" {
			f.keywords = append(f.keywords, kw)
		}
	}
	return f
}

// Relevant reports whether r belongs to this tenant and carries a usable address
// fee only record types (tow fees, penalties) carry no address and are rejected
// by the keyword check even when the labels line up
func (f *Filter) Relevant(r Record) bool {
	if r.LocationLabel != labelLocation {
		return false
	}
	if r.StreetNumLabel != labelStreetNumber {
		return false
	}
	if nullish(r.StreetName) || nullish(r.StreetNumber) {
		return false
	}
	desc := strings.ToLower(r.Description)
	for _, kw := range f.keywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

// Address assembles "number name, region" for geocoding
// returns "" when the record has no street fields at all
func (f *Filter) Address(r Record) string {
	addr := strings.TrimSpace(strings.TrimSpace(r.StreetNumber) + " " + strings.TrimSpace(r.StreetName))
	if addr == "" {
		return ""
	}
	if f.region != "" {
		addr += ", " + f.region
	}
	return addr
}

// nullish treats empty strings and the literal "null" the upstream emits as absent
func nullish(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "" || s == "null"
}
