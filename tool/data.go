package tool

// Embedded reference data for the ERNI Gruppe domain tools. In production
// these would be fed from the CRM/ERP; the tables below are the documented
// defaults the tools fall back to.

// Project and construction types accepted by the cost estimator.
const (
	ProjectTypeEinfamilienhaus  = "Einfamilienhaus"
	ProjectTypeMehrfamilienhaus = "Mehrfamilienhaus"
	ProjectTypeAgrar            = "Agrar"
	ProjectTypeRenovation       = "Renovation"

	ConstructionTypeHolzbau   = "Holzbau"
	ConstructionTypeSystembau = "Systembau"
)

// basePricesCHF maps project type -> construction type -> price per m².
var basePricesCHF = map[string]map[string]float64{
	ProjectTypeEinfamilienhaus: {
		ConstructionTypeHolzbau:   3000,
		ConstructionTypeSystembau: 2500,
	},
	ProjectTypeMehrfamilienhaus: {
		ConstructionTypeHolzbau:   2800,
		ConstructionTypeSystembau: 2300,
	},
	ProjectTypeAgrar: {
		ConstructionTypeHolzbau:   2000,
		ConstructionTypeSystembau: 1800,
	},
	ProjectTypeRenovation: {
		ConstructionTypeHolzbau:   1500,
		ConstructionTypeSystembau: 1200,
	},
}

// specialistRoster maps specialist type to the consultants who cover it.
var specialistRoster = map[string][]string{
	"Architekt":         {"André Arnold", "Stefan Gisler"},
	"Holzbau-Ingenieur": {"Andreas Wermelinger", "Tobias Wili"},
	"Bauleiter":         {"Wolfgang Reinsch", "Marco Kaiser"},
	"Planner":           {"André Arnold", "Stefan Gisler"},
	"Engineer":          {"Andreas Wermelinger", "Tobias Wili"},
}

// consultationSlots are the bookable time windows on any business day.
var consultationSlots = []string{
	"09:00-10:00",
	"14:00-15:00",
	"16:00-17:00",
}

// officeAddress is the visiting address quoted in confirmations.
const officeAddress = "ERNI Gruppe, Guggibadstrasse 8, 6288 Schongau"

// officePhone is the public office number quoted when lookups fail.
const officePhone = "041 570 70 70"

type projectRecord struct {
	Type          string
	Location      string
	Stage         string
	Progress      int
	NextMilestone string
	Responsible   string
}

// projectRecords holds the demo project portfolio keyed by project number.
var projectRecords = map[string]projectRecord{
	"2024-156": {
		Type:          ProjectTypeEinfamilienhaus,
		Location:      "Muri",
		Stage:         "Production",
		Progress:      75,
		NextMilestone: "Assembly 15-19 May 2025",
		Responsible:   "Tobias Wili",
	},
	"2024-089": {
		Type:          ProjectTypeMehrfamilienhaus,
		Location:      "Schongau",
		Stage:         "Planning",
		Progress:      40,
		NextMilestone: "Building permit submission 10 June 2025",
		Responsible:   "André Arnold",
	},
	"2023-234": {
		Type:          ProjectTypeAgrar,
		Location:      "Hochdorf",
		Stage:         "Completed",
		Progress:      100,
		NextMilestone: "Final inspection completed",
		Responsible:   "Stefan Gisler",
	},
}

type knowledgeEntry struct {
	Title    string
	Keywords []string
	Body     string
}

// knowledgeBase backs both the FAQ lookup and the ranked knowledge search.
var knowledgeBase = []knowledgeEntry{
	{
		Title:    "Why Wood?",
		Keywords: []string{"holz", "wood", "timber", "material"},
		Body: "Wood is the ideal building material:\n" +
			"- Ecological and renewable\n" +
			"- Grows in Swiss forests\n" +
			"- Excellent thermal insulation\n" +
			"- Healthy indoor climate\n" +
			"- CO2-neutral\n" +
			"- Fast assembly (saves time)\n\n" +
			"ERNI is a certified Minergie partner.",
	},
	{
		Title:    "Construction Timeline",
		Keywords: []string{"zeit", "time", "dauer", "duration", "timeline"},
		Body: "Typical timelines for ERNI projects:\n" +
			"- Planning: 2-3 months\n" +
			"- Production: 4-6 weeks\n" +
			"- Assembly: 2-4 weeks\n" +
			"- Finishing: 4-8 weeks\n\n" +
			"Total duration: 6-9 months for a single-family house\n\n" +
			"Thanks to prefabrication in our workshop, on-site assembly takes only a few weeks!",
	},
	{
		Title:    "ERNI Certifications",
		Keywords: []string{"minergie", "certificate", "zertifikat", "certification"},
		Body: "- Minergie-Fachpartner Gebaeudehuelle\n" +
			"- Holzbau Plus (quality and innovation)\n\n" +
			"Minergie is the Swiss standard for energy efficiency.\n" +
			"Minergie houses consume 80% less energy!",
	},
	{
		Title:    "ERNI Warranties",
		Keywords: []string{"garantie", "warranty"},
		Body: "- Construction warranty: 5 years\n" +
			"- Roof warranty: 5 years\n" +
			"- Windows/doors warranty: 2 years\n\n" +
			"Plus regular maintenance through our Dachservice.",
	},
	{
		Title:    "Pricing",
		Keywords: []string{"preis", "cost", "price", "kosten"},
		Body: "For a detailed cost estimate, we need to know:\n" +
			"- Project type (single-family house, multi-family, agricultural)\n" +
			"- Area in m2\n" +
			"- Construction type (timber frame, system construction)\n" +
			"- Location\n\n" +
			"I can provide a preliminary estimate or arrange a consultation with our architect.",
	},
	{
		Title:    "ERNI Services",
		Keywords: []string{"service", "wartung", "maintenance", "services"},
		Body: "We offer comprehensive services:\n" +
			"- Planning & Architecture\n" +
			"- Timber Construction (Holzbau)\n" +
			"- Roofing & Sheet Metal Work (Spenglerei)\n" +
			"- Interior Finishing (Ausbau)\n" +
			"- General/Total Contracting (Realisation)\n" +
			"- Agricultural Buildings (Agrar)\n\n" +
			"Everything under one roof!",
	},
}
