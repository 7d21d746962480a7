package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStatementAndPortalLifecycle(t *testing.T) {
	s := New()

	s.SetStatement("st", &PreparedStatement{Name: "st"})
	got, ok := s.GetStatement("st")
	require.True(t, ok)
	assert.Equal(t, "st", got.Name)

	s.SetPortal("p", "st", &Portal{Name: "p", StatementName: "st"})
	_, ok = s.GetPortal("p")
	require.True(t, ok)

	// Re-Parse under the same statement name invalidates dependent portals.
	s.SetStatement("st", &PreparedStatement{Name: "st"})
	_, ok = s.GetPortal("p")
	assert.False(t, ok)
}

func TestSessionRemoveStatementInvalidatesPortals(t *testing.T) {
	s := New()
	s.SetStatement("st", &PreparedStatement{Name: "st"})
	s.SetPortal("p1", "st", &Portal{Name: "p1"})
	s.SetPortal("p2", "st", &Portal{Name: "p2"})

	s.RemoveStatement("st")

	_, ok := s.GetStatement("st")
	assert.False(t, ok)
	_, ok = s.GetPortal("p1")
	assert.False(t, ok)
	_, ok = s.GetPortal("p2")
	assert.False(t, ok)
}

func TestSessionRemovePortalLeavesStatementAndOtherPortals(t *testing.T) {
	s := New()
	s.SetStatement("st", &PreparedStatement{Name: "st"})
	s.SetPortal("p1", "st", &Portal{Name: "p1"})
	s.SetPortal("p2", "st", &Portal{Name: "p2"})

	s.RemovePortal("p1")

	_, ok := s.GetStatement("st")
	assert.True(t, ok)
	_, ok = s.GetPortal("p1")
	assert.False(t, ok)
	_, ok = s.GetPortal("p2")
	assert.True(t, ok)
}

func TestSessionUnnamedStatementAndPortal(t *testing.T) {
	s := New()
	s.SetStatement("", &PreparedStatement{Name: ""})
	_, ok := s.GetStatement("")
	assert.True(t, ok)

	s.SetPortal("", "", &Portal{Name: ""})
	_, ok = s.GetPortal("")
	assert.True(t, ok)
}

func TestSessionProperties(t *testing.T) {
	s := New()
	_, ok := s.GetProperty("application_name")
	assert.False(t, ok)

	s.SetProperty("application_name", "psql")
	v, ok := s.GetProperty("application_name")
	require.True(t, ok)
	assert.Equal(t, "psql", v)
}

func TestSupervisorAllocVerifyFree(t *testing.T) {
	sup := NewSupervisor(1, 2)

	id, key, ok := sup.Alloc()
	require.True(t, ok)
	assert.True(t, sup.Verify(id, key))
	assert.False(t, sup.Verify(id, key+1))
	assert.False(t, sup.Verify(id+100, key))

	sup.Free(id)
	assert.False(t, sup.Verify(id, key))
}

func TestSupervisorExhaustion(t *testing.T) {
	sup := NewSupervisor(5, 6)

	id1, _, ok := sup.Alloc()
	require.True(t, ok)
	id2, _, ok := sup.Alloc()
	require.True(t, ok)
	assert.NotEqual(t, id1, id2)

	_, _, ok = sup.Alloc()
	assert.False(t, ok)

	sup.Free(id1)
	id3, _, ok := sup.Alloc()
	require.True(t, ok)
	assert.Equal(t, id1, id3)
}

func TestSupervisorFreeUnknownIDIsNoop(t *testing.T) {
	sup := NewSupervisor(1, 1)
	sup.Free(42)

	id, key, ok := sup.Alloc()
	require.True(t, ok)
	assert.True(t, sup.Verify(id, key))
}
