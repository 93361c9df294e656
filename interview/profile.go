package interview

import (
	"strings"
	"time"
)

// adultAge is the age at which adult-only visa types become available.
const adultAge = 18

// Age returns completed years between dob and today. A future birth date
// yields a negative age.
func Age(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// IsAdult reports whether the profile belongs to an adult. A missing or
// future birth date counts as a minor.
func (p *UserProfile) IsAdult(today time.Time) bool {
	if p == nil || p.DateOfBirth == nil {
		return false
	}
	return Age(*p.DateOfBirth, today) >= adultAge
}

// Facts renders the profile for eligibility rule evaluation. A nil profile
// renders with no birth date and empty strings.
func (p *UserProfile) Facts(today time.Time) map[string]any {
	facts := map[string]any{
		"age":            int64(0),
		"adult":          false,
		"hasDateOfBirth": false,
		"nationality":    "",
		"maritalStatus":  "",
	}
	if p == nil {
		return facts
	}
	if p.DateOfBirth != nil {
		facts["age"] = int64(Age(*p.DateOfBirth, today))
		facts["hasDateOfBirth"] = true
	}
	facts["adult"] = p.IsAdult(today)
	facts["nationality"] = strings.ToUpper(strings.TrimSpace(p.Nationality))
	facts["maritalStatus"] = normalize(p.MaritalStatus)
	return facts
}
