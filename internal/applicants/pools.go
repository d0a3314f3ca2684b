package applicants

import "tycoon/internal/risk"

var femaleFirstNames = []string{
	"Maya", "Iris", "Tara", "Lea", "Nora", "Zara", "Lina", "Ava", "Sana", "Rhea",
	"Olivia", "Priya", "Elena", "Grace", "Hana", "Chloe", "Amara", "Leila", "Sofia", "Mei",
}

var maleFirstNames = []string{
	"Arun", "Noah", "Kian", "Ravi", "Evan", "Omar", "Kade", "Dion", "Milo", "Theo",
	"Lucas", "Mateo", "Jonah", "Hiro", "Samir", "Felix", "Diego", "Ethan", "Tariq", "Owen",
}

var lastNames = []string{
	"Lee", "Vale", "Knox", "Pike", "Sol", "Moss", "Rowe", "Jain", "Park", "Reid",
	"Cross", "Quill", "Stone", "Wren", "Bose", "Cho", "Kent", "Ford", "Hart", "Yoon",
	"Garcia", "Okafor", "Novak", "Silva", "Haddad", "Nguyen", "Schmidt", "Rossi", "Patel", "Kowalski",
}

var companyPrefixes = []string{"Summit", "Harbor", "Copper", "Pioneer", "Bluebird", "Granite", "Evergreen", "Northwind", "Atlas", "Meridian"}

var companySuffixes = []string{"Supply", "Logistics", "Bakery", "Dental", "Robotics", "Foods", "Builders", "Analytics", "Outfitters", "Holdings"}

var corporateEmployers = []string{"Cobalt Dynamics", "Nimbus Labs", "Rustic Systems", "Lumina Health", "Fusion Grid", "Zenith Retail", "Arcane Finance", "Vectra AI"}

var freelanceTrades = []string{"Consulting", "Design Studio", "Contracting", "Photography", "Tutoring", "Rideshare"}

// employerFor picks an employer name for the employment type. Every type has
// its own pool; unemployed borrowers have none.
func employerFor(g *Generator, e risk.EmploymentType, last string) string {
	switch e {
	case risk.Employed:
		return pick(g, corporateEmployers)
	case risk.SelfEmployed:
		return last + " " + pick(g, freelanceTrades)
	case risk.BusinessOwner:
		return pick(g, companyPrefixes) + " " + pick(g, companySuffixes)
	case risk.Retired:
		return "Pension"
	case risk.Unemployed:
		return ""
	default:
		panic("applicants: unhandled employment type " + string(e))
	}
}
