package tool

import (
	"fmt"
	"sort"
	"strings"
)

// The building tools deliberately return user-facing text (including
// validation complaints) instead of errors: the model reads the result and
// corrects itself on the next step, so only infrastructure failures should
// surface as *ToolError.

// NewFAQLookupTool answers frequently asked questions about building with
// ERNI via keyword matching over the embedded knowledge base.
func NewFAQLookupTool() *FunctionTool {
	return NewFunctionTool(
		"faq_lookup_building",
		"Lookup frequently asked questions about building and construction.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{"type": "string", "description": "The customer's question"},
			},
			"required": []string{"question"},
		},
		func(_ *Context, args map[string]any) (any, error) {
			question := strings.ToLower(stringArg(args, "question"))
			for _, entry := range knowledgeBase {
				for _, kw := range entry.Keywords {
					if strings.Contains(question, kw) {
						return entry.Title + "\n\n" + entry.Body, nil
					}
				}
			}
			return "I'm sorry, I don't have an answer to that specific question. " +
				"Would you like to speak with one of our consultants?", nil
		},
	)
}

// NewKnowledgeSearchTool ranks knowledge base entries against a free-form
// query by keyword overlap and returns the best matching snippets.
func NewKnowledgeSearchTool() *FunctionTool {
	return NewFunctionTool(
		"search_knowledge_base",
		"Search the ERNI knowledge base for information about services, processes and standards.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Search terms"},
			},
			"required": []string{"query"},
		},
		func(_ *Context, args map[string]any) (any, error) {
			terms := strings.Fields(strings.ToLower(stringArg(args, "query")))

			type scored struct {
				entry knowledgeEntry
				score int
			}
			var hits []scored
			for _, entry := range knowledgeBase {
				haystack := strings.ToLower(entry.Title + " " + strings.Join(entry.Keywords, " ") + " " + entry.Body)
				score := 0
				for _, term := range terms {
					if strings.Contains(haystack, term) {
						score++
					}
				}
				if score > 0 {
					hits = append(hits, scored{entry: entry, score: score})
				}
			}
			if len(hits) == 0 {
				return "No knowledge base entries matched your query.", nil
			}
			sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
			if len(hits) > 3 {
				hits = hits[:3]
			}

			var b strings.Builder
			b.WriteString("Knowledge base results:\n")
			for i, hit := range hits {
				fmt.Fprintf(&b, "\n%d. %s\n%s\n", i+1, hit.entry.Title, hit.entry.Body)
			}
			return b.String(), nil
		},
	)
}

// NewCostEstimateTool produces a preliminary cost estimate and records the
// project parameters in the shared context.
func NewCostEstimateTool() *FunctionTool {
	return NewFunctionTool(
		"estimate_project_cost",
		"Provide a preliminary cost estimate for a building project.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project_type": map[string]any{
					"type":        "string",
					"description": "Type of project (Einfamilienhaus, Mehrfamilienhaus, Agrar, Renovation)",
				},
				"area_sqm": map[string]any{
					"type":        "number",
					"description": "Area in square meters",
				},
				"construction_type": map[string]any{
					"type":        "string",
					"description": "Construction method (Holzbau, Systembau)",
				},
			},
			"required": []string{"project_type", "area_sqm", "construction_type"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			projectType := stringArg(args, "project_type")
			constructionType := stringArg(args, "construction_type")
			areaSqm := floatArg(args, "area_sqm")

			if areaSqm <= 0 {
				return "Invalid area: Area must be greater than 0 m2.\n\n" +
					"Please provide a valid project area.", nil
			}
			prices, ok := basePricesCHF[projectType]
			if !ok {
				return fmt.Sprintf(
					"Unknown project type: %q\n\nValid project types are:\n- %s, %s, %s, %s\n\n"+
						"Please specify a valid project type.",
					projectType,
					ProjectTypeEinfamilienhaus, ProjectTypeMehrfamilienhaus,
					ProjectTypeAgrar, ProjectTypeRenovation,
				), nil
			}
			pricePerSqm, ok := prices[constructionType]
			if !ok {
				return fmt.Sprintf(
					"Unknown construction type: %q for %s\n\nValid construction types are:\n- %s, %s\n\n"+
						"Please specify a valid construction type.",
					constructionType, projectType,
					ConstructionTypeHolzbau, ConstructionTypeSystembau,
				), nil
			}

			estimated := areaSqm * pricePerSqm
			maxCost := estimated * 1.25

			pc := toolCtx.ProjectContext()
			pc.ProjectType = &projectType
			pc.ConstructionType = &constructionType
			pc.AreaSqm = &areaSqm
			pc.BudgetCHF = &estimated

			return fmt.Sprintf(
				"Preliminary Cost Estimate for %s (%.0f m2):\n\n"+
					"- Construction type: %s\n"+
					"- Estimated cost: CHF %s - %s\n"+
					"- Price per m2: CHF %.0f\n\n"+
					"This is a preliminary estimate. For an accurate calculation, "+
					"we recommend a consultation with our architect.",
				projectType, areaSqm, constructionType,
				formatAmount(estimated), formatAmount(maxCost), pricePerSqm,
			), nil
		},
	)
}

// NewAvailabilityTool reports which consultants of a given specialist type
// are available and the bookable time slots.
func NewAvailabilityTool() *FunctionTool {
	return NewFunctionTool(
		"check_specialist_availability",
		"Check availability of ERNI specialists for consultation.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"specialist_type": map[string]any{
					"type":        "string",
					"description": "Type of specialist (Architekt, Holzbau-Ingenieur, Bauleiter)",
				},
				"preferred_date": map[string]any{
					"type":        "string",
					"description": "Preferred consultation date",
				},
			},
			"required": []string{"specialist_type", "preferred_date"},
		},
		func(_ *Context, args map[string]any) (any, error) {
			specialistType := stringArg(args, "specialist_type")
			preferredDate := stringArg(args, "preferred_date")

			available, ok := specialistRoster[specialistType]
			if !ok {
				available = []string{"Specialist"}
			}

			var slots strings.Builder
			for _, slot := range consultationSlots {
				fmt.Fprintf(&slots, "- %s\n", slot)
			}

			return fmt.Sprintf(
				"Available %s:\n%s\n\nFree time slots on %s:\n%s\nOffice location: %s",
				specialistType, strings.Join(available, ", "), preferredDate,
				slots.String(), officeAddress,
			), nil
		},
	)
}

// NewBookConsultationTool books a consultation and records the customer
// contact data plus the booking in the shared context.
func NewBookConsultationTool() *FunctionTool {
	return NewFunctionTool(
		"book_consultation",
		"Book a consultation with an ERNI specialist. Requires customer contact information.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"specialist_type": map[string]any{
					"type":        "string",
					"description": "Type of specialist (Architekt, Holzbau-Ingenieur, Bauleiter)",
				},
				"date":           map[string]any{"type": "string", "description": "Consultation date"},
				"time":           map[string]any{"type": "string", "description": "Consultation time"},
				"customer_name":  map[string]any{"type": "string", "description": "Customer's full name"},
				"customer_email": map[string]any{"type": "string", "description": "Customer's email address"},
				"customer_phone": map[string]any{"type": "string", "description": "Customer's phone number"},
			},
			"required": []string{"specialist_type", "date", "time", "customer_name", "customer_email", "customer_phone"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			specialistType := stringArg(args, "specialist_type")
			date := stringArg(args, "date")
			timeSlot := stringArg(args, "time")
			name := stringArg(args, "customer_name")
			email := stringArg(args, "customer_email")
			phone := stringArg(args, "customer_phone")

			pc := toolCtx.ProjectContext()
			pc.CustomerName = &name
			pc.CustomerEmail = &email
			pc.CustomerPhone = &phone
			pc.ConsultationBooked = true
			pc.SpecialistAssigned = &specialistType

			return fmt.Sprintf(
				"Consultation Booked!\n\nDetails:\n"+
					"- Customer: %s\n"+
					"- Specialist: %s\n"+
					"- Date: %s\n"+
					"- Time: %s\n"+
					"- Location: %s\n\n"+
					"Confirmation sent to %s.\n"+
					"Phone: %s\n"+
					"We will contact you one day before the appointment.",
				name, specialistType, date, timeSlot, officeAddress, email, phone,
			), nil
		},
	)
}

// NewProjectStatusTool reports the status of an existing project and records
// the project number in the shared context.
func NewProjectStatusTool() *FunctionTool {
	return NewFunctionTool(
		"get_project_status",
		"Get the current status of a building project.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project_number": map[string]any{
					"type":        "string",
					"description": "Project number, e.g. 2024-156",
				},
			},
			"required": []string{"project_number"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			projectNumber := stringArg(args, "project_number")

			project, ok := projectRecords[projectNumber]
			if !ok {
				return fmt.Sprintf(
					"Project %s not found.\nPlease check the project number or contact us at %s.",
					projectNumber, officePhone,
				), nil
			}

			toolCtx.ProjectContext().ProjectNumber = &projectNumber

			return fmt.Sprintf(
				"Project Status #%s\n\n"+
					"Type: %s\n"+
					"Location: %s\n"+
					"Current stage: %s\n"+
					"Progress: %d%%\n"+
					"Next milestone: %s\n"+
					"Project manager: %s\n\n"+
					"Everything is on schedule!",
				projectNumber, project.Type, project.Location, project.Stage,
				project.Progress, project.NextMilestone, project.Responsible,
			), nil
		},
	)
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func floatArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// formatAmount renders a CHF amount with thousands separators, no decimals.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
