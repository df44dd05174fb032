package core

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"reflect"
)

// ProjectContext is the shared per-conversation state visible to every
// specialist, tool and handoff initializer. Optional fields are pointers so
// "never provided" can be distinguished from a zero value; once set, a field
// is only ever overwritten with a new value, never silently cleared.
type ProjectContext struct {
	CustomerName       *string  `json:"customer_name"`
	CustomerEmail      *string  `json:"customer_email"`
	CustomerPhone      *string  `json:"customer_phone"`
	ProjectNumber      *string  `json:"project_number"`
	ProjectType        *string  `json:"project_type"`
	ConstructionType   *string  `json:"construction_type"`
	AreaSqm            *float64 `json:"area_sqm"`
	Location           *string  `json:"location"`
	BudgetCHF          *float64 `json:"budget_chf"`
	PreferredStartDate *string  `json:"preferred_start_date"`
	ConsultationBooked bool     `json:"consultation_booked"`
	SpecialistAssigned *string  `json:"specialist_assigned"`
	InquiryID          *string  `json:"inquiry_id"`
}

// NewProjectContext returns an empty context. The inquiry id is deliberately
// left unset; it is minted by a handoff initializer the first time a
// specialist that needs one takes over.
func NewProjectContext() *ProjectContext {
	return &ProjectContext{}
}

// EnsureInquiryID assigns a fresh inquiry id if none has been assigned yet.
func (c *ProjectContext) EnsureInquiryID() {
	if c.InquiryID == nil {
		id := fmt.Sprintf("INQ-%05d", 10000+rand.Intn(90000)) //nolint:gosec // display id, not a secret
		c.InquiryID = &id
	}
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing their internal state to mutation.
func (c *ProjectContext) Clone() *ProjectContext {
	if c == nil {
		return nil
	}
	cp := *c
	cp.CustomerName = cloneString(c.CustomerName)
	cp.CustomerEmail = cloneString(c.CustomerEmail)
	cp.CustomerPhone = cloneString(c.CustomerPhone)
	cp.ProjectNumber = cloneString(c.ProjectNumber)
	cp.ProjectType = cloneString(c.ProjectType)
	cp.ConstructionType = cloneString(c.ConstructionType)
	cp.AreaSqm = cloneFloat(c.AreaSqm)
	cp.Location = cloneString(c.Location)
	cp.BudgetCHF = cloneFloat(c.BudgetCHF)
	cp.PreferredStartDate = cloneString(c.PreferredStartDate)
	cp.SpecialistAssigned = cloneString(c.SpecialistAssigned)
	cp.InquiryID = cloneString(c.InquiryID)
	return &cp
}

// Snapshot renders the context as a flat field map keyed by the wire names.
// Unset optional fields appear as nil so diffs can detect first assignment.
func (c *ProjectContext) Snapshot() map[string]any {
	raw, err := json.Marshal(c)
	if err != nil {
		// All fields are plain scalars; marshalling cannot fail.
		panic(fmt.Sprintf("project context snapshot: %v", err))
	}
	var snap map[string]any
	if err := json.Unmarshal(raw, &snap); err != nil {
		panic(fmt.Sprintf("project context snapshot: %v", err))
	}
	return snap
}

// DiffSnapshots returns the fields of after whose values differ from before.
// The returned map carries the new values only.
func DiffSnapshots(before, after map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, val := range after {
		if !reflect.DeepEqual(before[key], val) {
			changes[key] = val
		}
	}
	return changes
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// String returns a pointer to s. Convenience for building contexts in tools
// and tests.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
