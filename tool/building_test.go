package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erni-gruppe/building-agents/core"
)

func newTestContext() (*Context, *core.ProjectContext) {
	pc := core.NewProjectContext()
	return NewContext("conv-1", pc, "fc-1", nil), pc
}

// ---- FAQ Lookup Tests ----

func TestFAQLookupMatchesWoodQuestions(t *testing.T) {
	toolCtx, _ := newTestContext()

	result, err := NewFAQLookupTool().Call(toolCtx, map[string]any{"question": "Why build with wood?"})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "Why Wood?")
}

func TestFAQLookupFallsBackWhenUnknown(t *testing.T) {
	toolCtx, _ := newTestContext()

	result, err := NewFAQLookupTool().Call(toolCtx, map[string]any{"question": "favorite color?"})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "don't have an answer")
}

func TestFAQLookupRejectsMissingQuestion(t *testing.T) {
	toolCtx, _ := newTestContext()

	_, err := NewFAQLookupTool().Call(toolCtx, map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

// ---- Knowledge Search Tests ----

func TestKnowledgeSearchRanksMatches(t *testing.T) {
	toolCtx, _ := newTestContext()

	result, err := NewKnowledgeSearchTool().Call(toolCtx, map[string]any{"query": "minergie energy standard"})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "ERNI Certifications")
}

func TestKnowledgeSearchNoMatches(t *testing.T) {
	toolCtx, _ := newTestContext()

	result, err := NewKnowledgeSearchTool().Call(toolCtx, map[string]any{"query": "zzzz"})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "No knowledge base entries")
}

// ---- Cost Estimate Tests ----

func TestCostEstimateUpdatesContext(t *testing.T) {
	toolCtx, pc := newTestContext()

	result, err := NewCostEstimateTool().Call(toolCtx, map[string]any{
		"project_type":      "Einfamilienhaus",
		"area_sqm":          float64(150),
		"construction_type": "Holzbau",
	})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "CHF 450,000 - 562,500")
	require.NotNil(t, pc.BudgetCHF)
	assert.Equal(t, float64(450000), *pc.BudgetCHF)
	assert.Equal(t, "Einfamilienhaus", *pc.ProjectType)
	assert.Equal(t, "Holzbau", *pc.ConstructionType)
	assert.Equal(t, float64(150), *pc.AreaSqm)
}

func TestCostEstimateRejectsNonPositiveArea(t *testing.T) {
	toolCtx, pc := newTestContext()

	result, err := NewCostEstimateTool().Call(toolCtx, map[string]any{
		"project_type":      "Einfamilienhaus",
		"area_sqm":          float64(0),
		"construction_type": "Holzbau",
	})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "Invalid area")
	assert.Nil(t, pc.BudgetCHF)
}

func TestCostEstimateUnknownProjectType(t *testing.T) {
	toolCtx, _ := newTestContext()

	result, err := NewCostEstimateTool().Call(toolCtx, map[string]any{
		"project_type":      "Castle",
		"area_sqm":          float64(100),
		"construction_type": "Holzbau",
	})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "Unknown project type")
}

func TestCostEstimateUnknownConstructionType(t *testing.T) {
	toolCtx, _ := newTestContext()

	result, err := NewCostEstimateTool().Call(toolCtx, map[string]any{
		"project_type":      "Agrar",
		"area_sqm":          float64(100),
		"construction_type": "Stahlbau",
	})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "Unknown construction type")
}

// ---- Availability Tests ----

func TestAvailabilityListsRosterAndSlots(t *testing.T) {
	toolCtx, _ := newTestContext()

	result, err := NewAvailabilityTool().Call(toolCtx, map[string]any{
		"specialist_type": "Architekt",
		"preferred_date":  "2025-06-02",
	})

	require.NoError(t, err)
	text := result.(string)
	assert.Contains(t, text, "André Arnold, Stefan Gisler")
	assert.Contains(t, text, "09:00-10:00")
	assert.Contains(t, text, "Guggibadstrasse 8")
}

func TestAvailabilityUnknownTypeFallsBack(t *testing.T) {
	toolCtx, _ := newTestContext()

	result, err := NewAvailabilityTool().Call(toolCtx, map[string]any{
		"specialist_type": "Plumber",
		"preferred_date":  "2025-06-02",
	})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "Specialist")
}

// ---- Booking Tests ----

func TestBookConsultationUpdatesContext(t *testing.T) {
	toolCtx, pc := newTestContext()

	result, err := NewBookConsultationTool().Call(toolCtx, map[string]any{
		"specialist_type": "Architekt",
		"date":            "2025-06-02",
		"time":            "14:00-15:00",
		"customer_name":   "Anna Keller",
		"customer_email":  "anna@example.ch",
		"customer_phone":  "+41 79 123 45 67",
	})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "Consultation Booked!")
	assert.True(t, pc.ConsultationBooked)
	assert.Equal(t, "Anna Keller", *pc.CustomerName)
	assert.Equal(t, "Architekt", *pc.SpecialistAssigned)
}

// ---- Project Status Tests ----

func TestProjectStatusKnownProject(t *testing.T) {
	toolCtx, pc := newTestContext()

	result, err := NewProjectStatusTool().Call(toolCtx, map[string]any{"project_number": "2024-156"})

	require.NoError(t, err)
	text := result.(string)
	assert.Contains(t, text, "Progress: 75%")
	assert.Contains(t, text, "Tobias Wili")
	require.NotNil(t, pc.ProjectNumber)
	assert.Equal(t, "2024-156", *pc.ProjectNumber)
}

func TestProjectStatusUnknownProject(t *testing.T) {
	toolCtx, pc := newTestContext()

	result, err := NewProjectStatusTool().Call(toolCtx, map[string]any{"project_number": "1999-000"})

	require.NoError(t, err)
	assert.Contains(t, result.(string), "not found")
	assert.Contains(t, result.(string), "041 570 70 70")
	assert.Nil(t, pc.ProjectNumber)
}

// ---- Amount Formatting Tests ----

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "450,000", formatAmount(450000))
	assert.Equal(t, "999", formatAmount(999))
	assert.Equal(t, "1,000", formatAmount(1000))
	assert.Equal(t, "562,500", formatAmount(562500))
}
