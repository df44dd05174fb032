package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- ProjectContext Tests ----

func TestProjectContextSnapshotIncludesUnsetFields(t *testing.T) {
	snap := NewProjectContext().Snapshot()

	assert.Contains(t, snap, "customer_name")
	assert.Nil(t, snap["customer_name"])
	assert.Equal(t, false, snap["consultation_booked"])
}

func TestDiffSnapshotsDetectsFirstAssignment(t *testing.T) {
	pc := NewProjectContext()
	before := pc.Snapshot()

	pc.ProjectType = String("Einfamilienhaus")
	pc.AreaSqm = Float(150)
	changes := DiffSnapshots(before, pc.Snapshot())

	require.Len(t, changes, 2)
	assert.Equal(t, "Einfamilienhaus", changes["project_type"])
	assert.Equal(t, float64(150), changes["area_sqm"])
}

func TestDiffSnapshotsEmptyWhenUnchanged(t *testing.T) {
	pc := NewProjectContext()
	pc.Location = String("Luzern")

	before := pc.Snapshot()
	assert.Empty(t, DiffSnapshots(before, pc.Snapshot()))
}

func TestProjectContextCloneIsIndependent(t *testing.T) {
	pc := NewProjectContext()
	pc.CustomerName = String("Anna Keller")

	cp := pc.Clone()
	*cp.CustomerName = "changed"
	cp.ConsultationBooked = true

	assert.Equal(t, "Anna Keller", *pc.CustomerName)
	assert.False(t, pc.ConsultationBooked)
}

func TestEnsureInquiryIDIsIdempotent(t *testing.T) {
	pc := NewProjectContext()
	require.Nil(t, pc.InquiryID)

	pc.EnsureInquiryID()
	require.NotNil(t, pc.InquiryID)
	assert.True(t, strings.HasPrefix(*pc.InquiryID, "INQ-"))

	first := *pc.InquiryID
	pc.EnsureInquiryID()
	assert.Equal(t, first, *pc.InquiryID)
}

// ---- Conversation Tests ----

func TestConversationCloneIsIndependent(t *testing.T) {
	conv := NewConversation(NewConversationID(), "Triage Agent")
	conv.Turns = append(conv.Turns, NewUserTurn("hello"))

	cp := conv.Clone()
	cp.Turns = append(cp.Turns, NewAssistantTurn("Triage Agent", "hi"))
	cp.Context.CustomerName = String("x")

	assert.Len(t, conv.Turns, 1)
	assert.Nil(t, conv.Context.CustomerName)
}

func TestNewConversationIDIsCompact(t *testing.T) {
	id := NewConversationID()

	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
}
