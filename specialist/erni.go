package specialist

import (
	"github.com/erni-gruppe/building-agents/core"
	"github.com/erni-gruppe/building-agents/guardrail"
	"github.com/erni-gruppe/building-agents/inference"
	"github.com/erni-gruppe/building-agents/logging"
	"github.com/erni-gruppe/building-agents/tool"
)

// Specialist names double as event authors and wire identifiers, so they
// are stable constants.
const (
	TriageAgentName             = "Triage Agent"
	FAQAgentName                = "FAQ Agent"
	ProjectInformationAgentName = "Project Information Agent"
	CostEstimationAgentName     = "Cost Estimation Agent"
	ProjectStatusAgentName      = "Project Status Agent"
	AppointmentBookingAgentName = "Appointment Booking Agent"
)

// EnsureInquiryIDInitializer mints an inquiry id at transfer time for edges
// into specialists that need one.
const EnsureInquiryIDInitializer = "ensure_inquiry_id"

const routingPreamble = "You are part of the ERNI Gruppe customer service team. ERNI is a Swiss " +
	"timber construction company in Schongau (Guggibadstrasse 8, 6288 Schongau, phone 041 570 70 70). " +
	"Stay within your role; when the customer needs something outside it, transfer them " +
	"to the matching specialist using the transfer tools. Never invent facts, prices or appointments.\n\n"

const triageInstructions = routingPreamble +
	"You are the triage agent. Greet the customer, find out what they need and route them:\n" +
	"- General questions about ERNI, timber construction or processes: FAQ Agent\n" +
	"- Information about the building process and services: Project Information Agent\n" +
	"- Preliminary cost estimates: Cost Estimation Agent\n" +
	"- Status of an existing project: Project Status Agent\n" +
	"- Booking a consultation with a specialist: Appointment Booking Agent\n" +
	"Answer small talk briefly yourself, then offer help with building topics."

const faqInstructions = routingPreamble +
	"You answer frequently asked questions about ERNI and building with timber. " +
	"Always answer using the faq_lookup_building or search_knowledge_base tools; " +
	"do not rely on your own knowledge. " +
	"If the customer asks something outside FAQs, transfer them back to the Triage Agent."

const projectInformationInstructions = routingPreamble +
	"You provide general information about ERNI's building process and services " +
	"(planning, timber construction, roofing, interior finishing, realisation, agricultural buildings). " +
	"Use the faq_lookup_building tool for factual answers. " +
	"For cost questions transfer to the Cost Estimation Agent, for bookings to the " +
	"Appointment Booking Agent, otherwise back to the Triage Agent."

const costEstimationInstructions = routingPreamble +
	"You prepare preliminary cost estimates. The current inquiry id is {{default \"[unknown]\" .inquiry_id}}.\n" +
	"Routine:\n" +
	"1. Ask for the project type (Einfamilienhaus, Mehrfamilienhaus, Agrar, Renovation).\n" +
	"2. Ask for the area in square meters.\n" +
	"3. Ask for the construction type (Holzbau, Systembau).\n" +
	"4. Call estimate_project_cost with these values and present the result.\n" +
	"Make clear the estimate is preliminary. For a binding offer, suggest a consultation " +
	"and transfer to the Appointment Booking Agent. Otherwise transfer back to the Triage Agent."

const projectStatusInstructions = routingPreamble +
	"You report the status of ongoing building projects. " +
	"The current project number is {{default \"[unknown]\" .project_number}}.\n" +
	"Ask for the project number if unknown (format like 2024-156), then call " +
	"get_project_status and summarize the result. " +
	"For other requests transfer back to the Triage Agent or to the Project Information Agent."

const appointmentBookingInstructions = routingPreamble +
	"You book consultations with ERNI specialists. The current inquiry id is " +
	"{{default \"[unknown]\" .inquiry_id}}. Consultation already booked: {{.consultation_booked}}.\n" +
	"Routine:\n" +
	"1. Ask which specialist is needed (Architekt, Holzbau-Ingenieur, Bauleiter) and the preferred date.\n" +
	"2. Call check_specialist_availability and offer the free slots.\n" +
	"3. Collect the customer's full name, email address and phone number.\n" +
	"4. Call book_consultation with all details and confirm the booking.\n" +
	"For anything else transfer back to the Triage Agent."

// ERNIOptions configures construction of the default registry.
type ERNIOptions struct {
	// KnowledgeSearch additionally equips the FAQ agent with the ranked
	// knowledge base search tool. On by default.
	KnowledgeSearch bool

	Logger logging.Logger
}

// NewERNIRegistry assembles the six ERNI specialists with the production
// handoff graph. The classifier client and verdict cache back the shared
// relevance and jailbreak guardrails.
func NewERNIRegistry(classifier inference.Client, cache *guardrail.VerdictCache, optFns ...func(o *ERNIOptions)) (*Registry, error) {
	opts := ERNIOptions{KnowledgeSearch: true, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	classifierOpts := func(o *guardrail.ClassifierOptions) { o.Logger = opts.Logger }
	inputGuardrails := []guardrail.InputGuardrail{
		guardrail.NewRelevanceGuardrail(classifier, cache, classifierOpts),
		guardrail.NewJailbreakGuardrail(classifier, cache, classifierOpts),
	}
	outputGuardrails := []guardrail.OutputGuardrail{
		guardrail.NewPIIGuardrail(),
	}

	faqTools := []tool.Tool{tool.NewFAQLookupTool()}
	if opts.KnowledgeSearch {
		faqTools = append([]tool.Tool{tool.NewKnowledgeSearchTool()}, faqTools...)
	}

	triage := &Specialist{
		Name:         TriageAgentName,
		Description:  "Main routing agent that directs customers to the appropriate specialist.",
		Instructions: triageInstructions,
		Handoffs: []Handoff{
			{Target: ProjectInformationAgentName},
			{Target: CostEstimationAgentName, Initializer: EnsureInquiryIDInitializer},
			{Target: ProjectStatusAgentName},
			{Target: AppointmentBookingAgentName, Initializer: EnsureInquiryIDInitializer},
			{Target: FAQAgentName},
		},
		InputGuardrails:  inputGuardrails,
		OutputGuardrails: outputGuardrails,
	}

	faq := &Specialist{
		Name:         FAQAgentName,
		Description:  "Answers frequently asked questions about ERNI and building with timber.",
		Instructions: faqInstructions,
		Tools:        faqTools,
		Handoffs: []Handoff{
			{Target: TriageAgentName},
		},
		InputGuardrails:  inputGuardrails,
		OutputGuardrails: outputGuardrails,
	}

	projectInformation := &Specialist{
		Name:         ProjectInformationAgentName,
		Description:  "Provides general information about ERNI's building process and services.",
		Instructions: projectInformationInstructions,
		Tools:        []tool.Tool{tool.NewFAQLookupTool()},
		Handoffs: []Handoff{
			{Target: TriageAgentName},
			{Target: CostEstimationAgentName},
			{Target: AppointmentBookingAgentName},
		},
		InputGuardrails:  inputGuardrails,
		OutputGuardrails: outputGuardrails,
	}

	costEstimation := &Specialist{
		Name:         CostEstimationAgentName,
		Description:  "Provides preliminary cost estimates for building projects.",
		Instructions: costEstimationInstructions,
		Tools:        []tool.Tool{tool.NewCostEstimateTool()},
		Handoffs: []Handoff{
			{Target: TriageAgentName},
			{Target: AppointmentBookingAgentName},
		},
		InputGuardrails:  inputGuardrails,
		OutputGuardrails: outputGuardrails,
	}

	projectStatus := &Specialist{
		Name:         ProjectStatusAgentName,
		Description:  "Provides status updates for ongoing building projects.",
		Instructions: projectStatusInstructions,
		Tools:        []tool.Tool{tool.NewProjectStatusTool()},
		Handoffs: []Handoff{
			{Target: TriageAgentName},
			{Target: ProjectInformationAgentName},
		},
		InputGuardrails:  inputGuardrails,
		OutputGuardrails: outputGuardrails,
	}

	appointmentBooking := &Specialist{
		Name:         AppointmentBookingAgentName,
		Description:  "Books consultations with ERNI specialists.",
		Instructions: appointmentBookingInstructions,
		Tools:        []tool.Tool{tool.NewAvailabilityTool(), tool.NewBookConsultationTool()},
		Handoffs: []Handoff{
			{Target: TriageAgentName},
		},
		InputGuardrails:  inputGuardrails,
		OutputGuardrails: outputGuardrails,
	}

	return NewRegistry(
		TriageAgentName,
		[]*Specialist{triage, faq, projectInformation, costEstimation, projectStatus, appointmentBooking},
		map[string]Initializer{
			EnsureInquiryIDInitializer: func(pc *core.ProjectContext) { pc.EnsureInquiryID() },
		},
	)
}
