package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeLinksBothWays(t *testing.T) {
	g := New()
	a, err := g.AddNode("first spark", "alice", 1, nil)
	require.NoError(t, err)
	b, err := g.AddNode("second spark", "bob", 2, []Edge{{Target: a, Weight: 0.4}, {Target: "missing", Weight: 1}})
	require.NoError(t, err)

	na, _ := g.Node(a)
	nb, _ := g.Node(b)
	wab, ok := na.Weight(b)
	require.True(t, ok)
	wba, ok := nb.Weight(a)
	require.True(t, ok)
	assert.Equal(t, 0.4, wab)
	assert.Equal(t, wab, wba)
	assert.Equal(t, 1, nb.EdgeCount(), "edges to unknown targets are skipped")
	assert.Equal(t, 2, g.TotalEdges())
	assert.Equal(t, 2, g.Len())
}

func TestAddNodeClampsWeights(t *testing.T) {
	g := New()
	a, _ := g.AddNode("a", "alice", 1, nil)
	b, _ := g.AddNode("b", "alice", 2, []Edge{{Target: a, Weight: 3}})
	nb, _ := g.Node(b)
	w, _ := nb.Weight(a)
	assert.Equal(t, 1.0, w)
}

func TestAddNodeDuplicateTargetCountsOnce(t *testing.T) {
	g := New()
	a, _ := g.AddNode("a", "alice", 1, nil)
	_, err := g.AddNode("b", "alice", 2, []Edge{{Target: a, Weight: 0.2}, {Target: a, Weight: 0.7}})
	require.NoError(t, err)
	assert.Equal(t, 2, g.TotalEdges())
}

func TestNodeIDIsContentAddressed(t *testing.T) {
	g := New()
	id, err := g.AddNode("hello", "alice", 42, nil)
	require.NoError(t, err)
	assert.Equal(t, NodeID("alice", "hello", 42), id)
	assert.NotEqual(t, NodeID("alice", "hello", 43), id)

	_, err = g.AddNode("hello", "alice", 42, nil)
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestValidateNode(t *testing.T) {
	g := New()
	id, _ := g.AddNode("x", "alice", 1, nil)
	require.NoError(t, g.ValidateNode(id, 0.8))
	require.NoError(t, g.ValidateNode(id, 0.1))

	n, _ := g.Node(id)
	assert.InDelta(t, 0.9, n.Coherence, 1e-9)
	assert.Equal(t, 2, n.ValidationCount)
	assert.InDelta(t, 0.9, g.TotalCoherence(), 1e-9)
	assert.Equal(t, 2, g.TotalValidations())

	err := g.ValidateNode("nope", 0.5)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Equal(t, 2, g.TotalValidations())
}

func TestEvolveNode(t *testing.T) {
	g := New()
	parent, _ := g.AddNode("seed", "alice", 1, nil)
	child, err := g.EvolveNode(parent, "sprout", "bob", 2)
	require.NoError(t, err)

	nc, _ := g.Node(child)
	w, ok := nc.Weight(parent)
	require.True(t, ok)
	assert.Equal(t, 1.0, w)
	assert.Equal(t, "bob", nc.Creator)

	_, err = g.EvolveNode("ghost", "sprout", "bob", 3)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Equal(t, 2, g.Len())
}

func TestGlobalCoherence(t *testing.T) {
	g := New()
	assert.Equal(t, 0.0, g.GlobalCoherence())

	a, _ := g.AddNode("a", "alice", 1, nil)
	assert.Equal(t, 0.0, g.GlobalCoherence())

	_, _ = g.AddNode("b", "bob", 2, []Edge{{Target: a, Weight: 1}})
	require.NoError(t, g.ValidateNode(a, 1))
	require.NoError(t, g.ValidateNode(a, 1))

	// edgeDensity = 2/4, validationDensity = 2/2, total = 2, n = 2
	assert.InDelta(t, 0.5*1*2/2, g.GlobalCoherence(), 1e-12)
}

func TestGlobalCoherenceIsCapped(t *testing.T) {
	g := New()
	a, _ := g.AddNode("a", "alice", 1, nil)
	_, _ = g.AddNode("b", "bob", 2, []Edge{{Target: a, Weight: 1}})
	for i := 0; i < 20; i++ {
		require.NoError(t, g.ValidateNode(a, 1))
	}
	assert.Equal(t, 1.0, g.GlobalCoherence())
}

func TestQuery(t *testing.T) {
	g := New()
	low, _ := g.AddNode("Collective awareness", "alice", 1, nil)
	high, _ := g.AddNode("the AWARENESS field", "bob", 2, nil)
	other, _ := g.AddNode("unrelated", "carol", 3, nil)
	require.NoError(t, g.ValidateNode(low, 0.3))
	require.NoError(t, g.ValidateNode(high, 0.9))
	require.NoError(t, g.ValidateNode(other, 1))

	res := g.Query("awareness", 0.2)
	require.Len(t, res, 2)
	assert.Equal(t, high, res[0].ID)
	assert.Equal(t, low, res[1].ID)

	assert.Len(t, g.Query("awareness", 0.5), 1)
	assert.Empty(t, g.Query("nothing", 0))
}

// TestCloneIsIndependent verifies that a snapshot is unaffected by later mutations
// of the graph it was taken from, and vice versa.
func TestCloneIsIndependent(t *testing.T) {
	g := New()
	a, _ := g.AddNode("a", "alice", 1, nil)
	snap := g.Clone()

	_, _ = g.AddNode("b", "bob", 2, []Edge{{Target: a, Weight: 0.5}})
	require.NoError(t, g.ValidateNode(a, 0.7))

	assert.Equal(t, 1, snap.Len())
	na, _ := snap.Node(a)
	assert.Equal(t, 0, na.EdgeCount())
	assert.Equal(t, 0.0, na.Coherence)
	assert.Equal(t, 0, snap.TotalEdges())

	c, _ := snap.AddNode("c", "carol", 3, nil)
	assert.Equal(t, 2, snap.Len())
	_, ok := g.Node(c)
	assert.False(t, ok)
}

func TestZeroGraphIsUsable(t *testing.T) {
	var g Graph
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Nodes())
	id, err := g.AddNode("x", "alice", 1, nil)
	require.NoError(t, err)
	_, ok := g.Node(id)
	assert.True(t, ok)
}

func TestNodesInCreationOrder(t *testing.T) {
	g := New()
	ids := make([]string, 0, 3)
	for i, c := range []string{"one", "two", "three"} {
		id, _ := g.AddNode(c, "alice", int64(i), nil)
		ids = append(ids, id)
	}
	nodes := g.Nodes()
	require.Len(t, nodes, 3)
	for i, n := range nodes {
		assert.Equal(t, ids[i], n.ID)
	}
}
