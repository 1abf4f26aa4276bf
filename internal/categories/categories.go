// Package categories holds the study's classification taxonomy as data and
// resolves which categories a run should use.
//
// The selection is an explicit value resolved once from configuration or
// flags and threaded through calls; there is deliberately no process-wide
// cached selection state.
package categories

// Category is one code in the taxonomy.
type Category struct {
	// Code is the canonical short code, e.g. "D.I".
	Code string
	// Title is the human-readable name.
	Title string
	// Group is the phase the code belongs to.
	Group string
}

// Grouped taxonomy, in presentation order. Order is stable: selection
// indices and rendered listings both depend on it.
var groups = []struct {
	name  string
	codes []Category
}{
	{"Defining", []Category{
		{Code: "D.I", Title: "Identification", Group: "Defining"},
		{Code: "D.G", Title: "Goal Setting and Requirement Clarification", Group: "Defining"},
	}},
	{"Seeking", []Category{
		{Code: "S.S", Title: "Search", Group: "Seeking"},
		{Code: "S.SL", Title: "Select", Group: "Seeking"},
		{Code: "S.EQ", Title: "Evaluation of Information Quality", Group: "Seeking"},
	}},
	{"Engaging", []Category{
		{Code: "E.RV", Title: "Review", Group: "Engaging"},
		{Code: "E.O", Title: "Organise", Group: "Engaging"},
		{Code: "E.RF", Title: "Reformatting and Reworking", Group: "Engaging"},
		{Code: "E.RH", Title: "Rehearse", Group: "Engaging"},
	}},
	{"Reflecting", []Category{
		{Code: "R.ET", Title: "Task Evaluation", Group: "Reflecting"},
		{Code: "R.ES", Title: "Self Evaluation", Group: "Reflecting"},
	}},
	{"Other", []Category{
		{Code: "OTHER", Title: "Other", Group: "Other"},
	}},
}

// All returns every category in canonical order.
func All() []Category {
	var out []Category
	for _, g := range groups {
		out = append(out, g.codes...)
	}
	return out
}

// Codes returns the canonical code order.
func Codes() []string {
	all := All()
	out := make([]string, len(all))
	for i, c := range all {
		out[i] = c.Code
	}
	return out
}

// ByCode returns the category for a canonical code.
func ByCode(code string) (Category, bool) {
	for _, c := range All() {
		if c.Code == code {
			return c, true
		}
	}
	return Category{}, false
}
