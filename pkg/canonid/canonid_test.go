package canonid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, "", Canonicalize(""))
	assert.Equal(t, "wheel slip", Canonicalize("  Wheel Slip"))
	assert.Equal(t, "a b", Canonicalize("A   \tB"))
}

func TestEntityIDStableAndCaseInsensitive(t *testing.T) {
	a := EntityID("embodied/wheel_slip", "robot-001")
	b := EntityID("embodied/wheel_slip", "Robot-001")
	assert.Equal(t, a, b)
	assert.True(t, len(a) > 2 && a[:2] == "e_")
}

func TestEntityIDDiffersByNamespace(t *testing.T) {
	a := EntityID("ns-a", "label")
	b := EntityID("ns-b", "label")
	assert.NotEqual(t, a, b)
}

func TestClaimIDEntityObjectNotCanonicalized(t *testing.T) {
	eid := EntityID("embodied/wheel_slip", "wheel_slip")
	c1 := ClaimID("s_subject", "observed", eid, "entity")
	c2 := ClaimID("s_subject", "OBSERVED", eid, "entity")
	assert.Equal(t, c1, c2, "predicate canonicalization should make these equal")

	c3 := ClaimID("s_subject", "observed", "E_X", "entity")
	c4 := ClaimID("s_subject", "observed", "e_x", "entity")
	assert.NotEqual(t, c3, c4, "entity objects are hashed as given, not canonicalized")
}

func TestClaimIDLiteralObjectCanonicalized(t *testing.T) {
	c1 := ClaimID("s_subject", "on_surface", "Ice", "literal:string")
	c2 := ClaimID("s_subject", "on_surface", "ice", "literal:string")
	assert.Equal(t, c1, c2)
}

func TestSpanIDAndProvenanceID(t *testing.T) {
	sid := SpanID("deadbeef", 10, 20, `{"evt":"wheel_slip"}`)
	assert.True(t, len(sid) > 2 && sid[:2] == "s_")

	cid := ClaimID("s_subject", "observed", "obj", "literal:string")
	pid := ProvenanceID(cid, sid)
	assert.True(t, len(pid) > 2 && pid[:2] == "p_")

	// Different byte ranges must not collide.
	other := SpanID("deadbeef", 10, 21, `{"evt":"wheel_slip"}`)
	assert.NotEqual(t, sid, other)
}
