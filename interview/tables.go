package interview

import (
	"strconv"
	"strings"
)

// Effect says how a filter treats the codes it lists.
type Effect int

const (
	// Keep retains only the listed codes.
	Keep Effect = iota + 1
	// Exclude drops the listed codes.
	Exclude
)

func (e Effect) String() string {
	switch e {
	case Keep:
		return "keep"
	case Exclude:
		return "exclude"
	default:
		return "none"
	}
}

// Filter is one row of a decision table.
type Filter struct {
	Effect Effect
	codes  map[string]struct{}
}

func newFilter(effect Effect, codes ...string) Filter {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[strings.ToUpper(c)] = struct{}{}
	}
	return Filter{Effect: effect, codes: set}
}

func keep(codes ...string) Filter    { return newFilter(Keep, codes...) }
func exclude(codes ...string) Filter { return newFilter(Exclude, codes...) }

// Allows reports whether a visa code survives the filter.
func (f Filter) Allows(code string) bool {
	_, listed := f.codes[strings.ToUpper(code)]
	switch f.Effect {
	case Keep:
		return listed
	case Exclude:
		return !listed
	default:
		return true
	}
}

// DecisionTable maps a normalized answer value to a filter. Values missing
// from the table apply no filter.
type DecisionTable map[string]Filter

// Lookup finds the filter for a raw answer value.
func (t DecisionTable) Lookup(value string) (Filter, bool) {
	f, ok := t[normalize(value)]
	return f, ok
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

var (
	sponsoredCodes  = []string{"H-1B", "H-2A", "H-2B", "L-1A", "L-1B", "O-1", "P-1", "EB-1", "EB-2", "EB-3"}
	shortStayCodes  = []string{"B-1", "B-2", "ESTA", "C-1", "C-2", "C-3"}
	investmentCodes = []string{"E-1", "E-2", "EB-5"}
	adoptionCodes   = []string{"IR-3", "IR-4"}
	familyOnlyCodes = []string{"IR-1", "IR-2", "IR-3", "IR-4", "IR-5", "K-1", "K-3", "F-2A", "F-2B", "F-3", "F-4"}

	// adultOnlyCodes are dropped for applicants who are not adults.
	adultOnlyCodes = exclude("E-1", "E-2", "L-1A", "L-1B", "EB-1", "EB-2", "EB-3", "EB-4", "EB-5")
)

var (
	purposeTable = DecisionTable{
		"tourism":     keep("B-1", "B-2", "ESTA", "C-1"),
		"business":    keep("B-1", "E-1", "E-2"),
		"employment":  keep("H-1B", "H-2A", "L-1A", "L-1B", "O-1", "EB-1", "EB-2"),
		"study":       keep("F-1", "J-1", "M-1"),
		"family":      keep("B-2", "IR-1", "K-1", "IR-3", "IR-4"),
		"investment":  keep(investmentCodes...),
		"immigration": keep("IR-1", "EB-1", "EB-2", "EB-5"),
		"adoption":    keep(adoptionCodes...),
		"medical":     keep("B-2"),
		"transit":     keep("C-1", "C-2", "C-3"),
	}

	sponsorTable = DecisionTable{
		"yes":   keep(sponsoredCodes...),
		"true":  keep(sponsoredCodes...),
		"no":    exclude(sponsoredCodes...),
		"false": exclude(sponsoredCodes...),
	}

	durationTable = DecisionTable{
		"short":     keep(shortStayCodes...),
		"medium":    keep("B-1", "B-2", "F-1", "J-1", "M-1", "H-1B", "H-2A", "H-2B", "L-1A", "L-1B", "O-1", "P-1"),
		"long":      exclude(shortStayCodes...),
		"permanent": keep("IR-1", "IR-2", "IR-3", "IR-4", "IR-5", "K-1", "K-3", "EB-1", "EB-2", "EB-3", "EB-4", "EB-5"),
	}

	familyTable = DecisionTable{
		"spouse":         keep("IR-1", "K-1", "K-3"),
		"parent":         keep("IR-5", "B-2"),
		"child":          keep("IR-2", "F-2B", "F-3", "F-4", "B-2"),
		"child_minor":    keep("IR-2", "F-2B", "B-2"),
		"sibling":        keep("F-4", "B-2"),
		"other_relative": keep("F-3", "F-4", "B-2"),
		"none":           exclude(familyOnlyCodes...),
	}

	investmentTable = DecisionTable{
		"none":   exclude(investmentCodes...),
		"small":  exclude("EB-5"),
		"medium": exclude("EB-5"),
	}

	adoptionTypeTable = DecisionTable{
		"international": keep(adoptionCodes...),
		"relative":      keep(adoptionCodes...),
		"domestic":      exclude(adoptionCodes...),
		"stepparent":    exclude(adoptionCodes...),
	}

	adoptionCompletedTable = DecisionTable{
		"yes":        keep("IR-3"),
		"no":         keep("IR-4"),
		"in_process": keep(adoptionCodes...),
	}

	currentStatusTable = DecisionTable{
		"permanent_resident":     keep("N-400"),
		"conditional_resident":   keep("N-400"),
		"derived_citizen":        keep("N-600"),
		"us_citizen_born_abroad": keep("N-600"),
	}
)

// minResidencyYears is the shortest permanent residency that still allows
// an N-400 filing.
const minResidencyYears = 3

func residencyYearsFilter(value string) (Filter, bool) {
	years, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || years >= minResidencyYears {
		return Filter{}, false
	}
	return exclude("N-400"), true
}

// answerFilter binds a question key to the lookup that turns its answer
// into a filter.
type answerFilter struct {
	key    string
	lookup func(value string) (Filter, bool)
}

// answerFilters are applied in order. Every filter intersects the
// candidate set, so the order never changes the result.
var answerFilters = []answerFilter{
	{"purpose", purposeTable.Lookup},
	{"hasEmployerSponsor", sponsorTable.Lookup},
	{"durationOfStay", durationTable.Lookup},
	{"familyRelationship", familyTable.Lookup},
	{"adoptionType", adoptionTypeTable.Lookup},
	{"adoptionCompleted", adoptionCompletedTable.Lookup},
	{"investmentAmount", investmentTable.Lookup},
	{"currentStatus", currentStatusTable.Lookup},
	{"residencyYears", residencyYearsFilter},
}

// FilterFor returns the filter a single answer implies. Blank answers and
// unknown keys or values yield no filter.
func FilterFor(key, value string) (Filter, bool) {
	if strings.TrimSpace(value) == "" {
		return Filter{}, false
	}
	for _, af := range answerFilters {
		if af.key == key {
			return af.lookup(value)
		}
	}
	return Filter{}, false
}
