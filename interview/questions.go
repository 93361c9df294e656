package interview

// Question types.
const (
	TypeSingleChoice = "single_choice"
	TypeDate         = "date"
	TypeComplete     = "complete"
)

type question struct {
	text    string
	kind    string
	options []Option
}

// canonicalOrder is the default question sequence.
var canonicalOrder = []string{
	"purpose",
	"hasEmployerSponsor",
	"durationOfStay",
	"familyRelationship",
	"investmentAmount",
	"educationLevel",
	"hasUsFamily",
	"previousVisaHistory",
}

// adoptionOrder is asked first while adoption visas remain for an adoption
// or family purpose.
var adoptionOrder = []string{
	"adoptionType",
	"adoptionCompleted",
	"childAge",
	"childCountry",
	"hasLegalCustody",
	"homeStudyCompleted",
	"agencyApproved",
}

// citizenshipOrder is asked first while naturalization filings remain for
// a citizenship purpose.
var citizenshipOrder = []string{
	"currentStatus",
	"greenCardDate",
	"residencyYears",
	"physicalPresenceMonths",
	"continuousResidence",
	"marriedToUSCitizen",
	"parentUSCitizen",
	"bornAbroad",
	"under18WhenParentNaturalized",
	"englishProficient",
	"civicsKnowledge",
	"goodMoralCharacter",
	"criminalHistory",
	"taxCompliance",
	"militaryService",
	"oathWillingness",
}

func choice(text string, pairs ...string) question {
	opts := make([]Option, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		opts = append(opts, Option{Value: pairs[i], Label: pairs[i+1]})
	}
	return question{text: text, kind: TypeSingleChoice, options: opts}
}

var questions = map[string]question{
	"purpose": choice("What is the primary purpose of your visit to the United States?",
		"tourism", "Tourism/Vacation",
		"business", "Business meetings/conferences",
		"employment", "Employment/Work",
		"study", "Education/Study",
		"family", "Visit family/relatives",
		"medical", "Medical treatment",
		"investment", "Investment/Business ownership",
		"immigration", "Permanent immigration",
		"adoption", "International adoption",
		"citizenship", "Citizenship/Naturalization",
		"transit", "Transit through US",
		"other", "Other",
	),
	"hasEmployerSponsor": choice("Do you have a US employer who will sponsor your visa?",
		"yes", "Yes, I have an employer sponsor",
		"no", "No, I do not have an employer sponsor",
		"seeking", "I am seeking employment",
	),
	"durationOfStay": choice("How long do you plan to stay in the United States?",
		"short", "Less than 90 days",
		"medium", "3-12 months",
		"long", "1-3 years",
		"permanent", "Permanently",
	),
	"familyRelationship": choice("Do you have immediate family members who are US citizens or permanent residents?",
		"spouse", "Spouse",
		"parent", "Parent",
		"child", "Child (over 21)",
		"child_minor", "Child (under 21)",
		"sibling", "Sibling",
		"other_relative", "Other relative",
		"none", "No immediate family in US",
	),
	"investmentAmount": choice("What is your planned investment amount in the US?",
		"none", "No investment planned",
		"small", "Under $100,000",
		"medium", "$100,000 - $500,000",
		"large", "$500,000 - $1,000,000",
		"eb5", "Over $1,000,000 (EB-5 eligible)",
	),
	"educationLevel": choice("What is your highest level of education?",
		"high_school", "High school diploma",
		"bachelor", "Bachelor's degree",
		"master", "Master's degree",
		"doctorate", "Doctorate (PhD)",
		"professional", "Professional degree (MD, JD, etc.)",
	),
	"hasUsFamily": choice("Do you have any family members in the United States?",
		"yes_citizen", "Yes, US citizens",
		"yes_resident", "Yes, permanent residents",
		"yes_visa", "Yes, on temporary visas",
		"no", "No family in the US",
	),
	"previousVisaHistory": choice("Have you previously held a US visa?",
		"never", "Never had a US visa",
		"tourist", "Tourist/visitor visa",
		"student", "Student visa",
		"work", "Work visa",
		"denied", "Previously denied a visa",
	),

	"adoptionType": choice("What type of adoption are you pursuing?",
		"international", "International adoption",
		"domestic", "Domestic adoption",
		"relative", "Relative adoption",
		"stepparent", "Stepparent adoption",
	),
	"adoptionCompleted": choice("Has the adoption been legally completed in the child's country of birth?",
		"yes", "Yes, the adoption is final",
		"no", "No, it will be completed in the US",
		"in_process", "It is in process",
	),
	"childAge": choice("What is the age of the child you are adopting?",
		"infant", "Infant (0-1 years)",
		"toddler", "Toddler (1-3 years)",
		"preschool", "Preschool (3-5 years)",
		"school_age", "School age (5-12 years)",
		"teenager", "Teenager (13-16 years)",
		"adult", "Over 16 years",
	),
	"childCountry": choice("What country is the child from?",
		"china", "China",
		"russia", "Russia",
		"south_korea", "South Korea",
		"ethiopia", "Ethiopia",
		"ukraine", "Ukraine",
		"colombia", "Colombia",
		"india", "India",
		"guatemala", "Guatemala",
		"other", "Other country",
	),
	"hasLegalCustody": choice("Do you have legal custody of the child?",
		"yes", "Yes, full legal custody",
		"no", "No legal custody yet",
		"guardianship", "Legal guardianship",
	),
	"homeStudyCompleted": choice("Have you completed a home study with an approved agency?",
		"yes", "Yes, completed and approved",
		"in_progress", "In progress",
		"no", "Not started",
		"expired", "Completed but expired",
	),
	"agencyApproved": choice("Are you working with a Hague-accredited adoption agency?",
		"yes", "Yes, Hague-accredited agency",
		"no", "No, not accredited",
		"independent", "Independent adoption",
		"unknown", "Not sure",
	),

	"currentStatus": choice("What is your current immigration status?",
		"permanent_resident", "Permanent Resident (Green Card holder)",
		"derived_citizen", "Derived US Citizen (through parent)",
		"us_citizen_born_abroad", "US Citizen born abroad",
		"conditional_resident", "Conditional Permanent Resident",
		"other", "Other status",
	),
	"greenCardDate": {
		text: "When did you become a permanent resident (Green Card date)?",
		kind: TypeDate,
	},
	"residencyYears": choice("How many years have you been a permanent resident?",
		"1", "1 year",
		"2", "2 years",
		"3", "3 years",
		"4", "4 years",
		"5", "5 years",
		"6", "6+ years",
	),
	"physicalPresenceMonths": choice("How many months have you been physically present in the US during your permanent residency?",
		"12", "12 months (1 year)",
		"18", "18 months (1.5 years)",
		"24", "24 months (2 years)",
		"30", "30 months (2.5 years)",
		"36", "36 months (3 years)",
		"42", "42+ months (3.5+ years)",
	),
	"continuousResidence": choice("Have you maintained continuous residence in the United States?",
		"yes", "Yes, continuous residence maintained",
		"no", "No, had breaks in residence",
		"unsure", "Not sure about continuous residence",
	),
	"marriedToUSCitizen": choice("Are you married to a US citizen?",
		"yes", "Yes, married to US citizen",
		"no", "No, not married to US citizen",
		"divorced", "Previously married to US citizen (divorced)",
		"widowed", "Previously married to US citizen (widowed)",
	),
	"parentUSCitizen": choice("Is at least one of your parents a US citizen?",
		"yes", "Yes, at least one parent is US citizen",
		"no", "No, parents are not US citizens",
		"naturalized", "Parent became US citizen after my birth",
		"unknown", "Unknown or uncertain",
	),
	"bornAbroad": choice("Were you born outside the United States?",
		"yes", "Yes, born outside the US",
		"no", "No, born in the US",
		"territory", "Born in US territory",
	),
	"under18WhenParentNaturalized": choice("Were you under 18 years old when your parent became a US citizen?",
		"yes", "Yes, under 18 when parent naturalized",
		"no", "No, 18 or older when parent naturalized",
		"not_applicable", "Parent was citizen at my birth",
	),
	"englishProficient": choice("Are you proficient in English (speaking, reading, and writing)?",
		"yes", "Yes, proficient in all areas",
		"partial", "Proficient in some areas",
		"no", "No, not proficient",
		"exempt", "May qualify for exemption due to age/disability",
	),
	"civicsKnowledge": choice("Do you have knowledge of US history and civics?",
		"yes", "Yes, knowledgeable about US history and civics",
		"studying", "Currently studying for the civics test",
		"no", "No, need to study",
		"exempt", "May qualify for exemption due to age/disability",
	),
	"goodMoralCharacter": choice("Do you have good moral character (no serious criminal history, tax issues, etc.)?",
		"yes", "Yes, good moral character",
		"no", "No, have issues that may affect moral character",
		"unsure", "Not sure about moral character requirements",
	),
	"criminalHistory": choice("Do you have any criminal history (arrests, citations, convictions)?",
		"no", "No criminal history",
		"minor", "Minor violations (traffic tickets, etc.)",
		"misdemeanor", "Misdemeanor convictions",
		"felony", "Felony convictions",
	),
	"taxCompliance": choice("Have you filed all required tax returns and paid taxes owed?",
		"yes", "Yes, fully tax compliant",
		"no", "No, have tax issues",
		"resolving", "Currently resolving tax issues",
		"exempt", "Not required to file taxes",
	),
	"militaryService": choice("Have you served in the US military?",
		"yes", "Yes, served in US military",
		"no", "No military service",
		"foreign", "Served in foreign military",
	),
	"oathWillingness": choice("Are you willing to take the Oath of Allegiance to the United States?",
		"yes", "Yes, willing to take oath",
		"no", "No, not willing",
		"religious_objection", "Religious objection to oath",
	),
}

const (
	earlyCompleteText = "Interview Complete"
	completeText      = "Based on your answers, we can provide a recommendation."
)

// KnownKey reports whether key is a question this engine can ask.
func KnownKey(key string) bool {
	_, ok := questions[key]
	return ok
}

func newResult(key string, codes []string) *QuestionResult {
	res := &QuestionResult{
		Key:                key,
		RemainingVisaTypes: len(codes),
		RemainingVisaCodes: codes,
	}
	if q, ok := questions[key]; ok {
		res.Question = q.text
		res.Type = q.kind
		res.Options = append([]Option(nil), q.options...)
	}
	return res
}

func completeResult(codes []string, early bool) *QuestionResult {
	res := newResult(KeyComplete, codes)
	res.Type = TypeComplete
	res.Question = completeText
	if early {
		res.Question = earlyCompleteText
	}
	return res
}
