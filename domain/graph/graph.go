package graph

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/luca-patrignani/resonance/identity"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrDuplicateNode = errors.New("node already exists")
)

// Edge is a weighted link requested by a contribution.
type Edge struct {
	Target string  `json:"target" validate:"required"`
	Weight float64 `json:"weight" validate:"gte=0,lte=1"`
}

// Node is a content node. Values returned by the graph are copies.
type Node struct {
	ID              string
	Content         string
	Creator         string
	CreatedAt       int64
	Coherence       float64
	ValidationCount int
	edges           *immutable.Map[string, float64]
}

// Edges returns a copy of the neighbor map.
func (n Node) Edges() map[string]float64 {
	out := make(map[string]float64, n.EdgeCount())
	if n.edges == nil {
		return out
	}
	itr := n.edges.Iterator()
	for !itr.Done() {
		k, w, _ := itr.Next()
		out[k] = w
	}
	return out
}

// EdgeCount is the number of neighbors of the node.
func (n Node) EdgeCount() int {
	if n.edges == nil {
		return 0
	}
	return n.edges.Len()
}

// Weight returns the weight of the edge towards target.
func (n Node) Weight(target string) (float64, bool) {
	if n.edges == nil {
		return 0, false
	}
	return n.edges.Get(target)
}

func (n Node) withEdge(target string, w float64) Node {
	if n.edges == nil {
		n.edges = immutable.NewMap[string, float64](nil)
	}
	n.edges = n.edges.Set(target, w)
	return n
}

// Graph is the content graph. Copying a Graph value is O(1): all state lives in
// persistent maps, so mutating one copy never affects another.
type Graph struct {
	nodes            *immutable.Map[string, Node]
	order            *immutable.List[string]
	totalCoherence   float64
	totalEdges       int
	totalValidations int
}

// New returns an empty graph.
func New() Graph {
	return Graph{
		nodes: immutable.NewMap[string, Node](nil),
		order: immutable.NewList[string](),
	}
}

// Clone returns an independent snapshot sharing structure with g.
func (g Graph) Clone() Graph { return g }

func (g *Graph) init() {
	if g.nodes == nil {
		g.nodes = immutable.NewMap[string, Node](nil)
	}
	if g.order == nil {
		g.order = immutable.NewList[string]()
	}
}

// NodeID derives the content address of a node.
func NodeID(creator, content string, seq int64) string {
	return identity.Digest([]byte(creator), []byte(content), []byte(strconv.FormatInt(seq, 10)))
}

// AddNode inserts a node and links it both ways to every existing target.
// Targets that do not exist are skipped; weights are clamped to [0,1].
func (g *Graph) AddNode(content, creator string, seq int64, edges []Edge) (string, error) {
	g.init()
	id := NodeID(creator, content, seq)
	if _, ok := g.nodes.Get(id); ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	node := Node{ID: id, Content: content, Creator: creator, CreatedAt: seq}
	for _, e := range edges {
		target, ok := g.nodes.Get(e.Target)
		if !ok {
			continue
		}
		w := clamp(e.Weight)
		if _, seen := node.Weight(e.Target); !seen {
			g.totalEdges += 2
		}
		node = node.withEdge(e.Target, w)
		g.nodes = g.nodes.Set(e.Target, target.withEdge(id, w))
	}
	g.nodes = g.nodes.Set(id, node)
	g.order = g.order.Append(id)
	return id, nil
}

// ValidateNode adds score to the coherence of node id.
func (g *Graph) ValidateNode(id string, score float64) error {
	g.init()
	node, ok := g.nodes.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	score = clamp(score)
	node.Coherence += score
	node.ValidationCount++
	g.nodes = g.nodes.Set(id, node)
	g.totalCoherence += score
	g.totalValidations++
	return nil
}

// EvolveNode creates a child of parentID linked to it with weight 1.
func (g *Graph) EvolveNode(parentID, content, creator string, seq int64) (string, error) {
	g.init()
	if _, ok := g.nodes.Get(parentID); !ok {
		return "", fmt.Errorf("%w: parent %s", ErrNodeNotFound, parentID)
	}
	return g.AddNode(content, creator, seq, []Edge{{Target: parentID, Weight: 1.0}})
}

// Node looks up a node by id.
func (g Graph) Node(id string) (Node, bool) {
	if g.nodes == nil {
		return Node{}, false
	}
	return g.nodes.Get(id)
}

// Len is the number of nodes.
func (g Graph) Len() int {
	if g.nodes == nil {
		return 0
	}
	return g.nodes.Len()
}

// TotalCoherence is the sum of all validation scores.
func (g Graph) TotalCoherence() float64 { return g.totalCoherence }

// TotalEdges counts directed edge entries, two per link.
func (g Graph) TotalEdges() int { return g.totalEdges }

// TotalValidations counts applied validations.
func (g Graph) TotalValidations() int { return g.totalValidations }

// Nodes returns every node in creation order.
func (g Graph) Nodes() []Node {
	if g.order == nil {
		return nil
	}
	out := make([]Node, 0, g.order.Len())
	itr := g.order.Iterator()
	for !itr.Done() {
		_, id := itr.Next()
		n, _ := g.nodes.Get(id)
		out = append(out, n)
	}
	return out
}

// GlobalCoherence is min(1, edgeDensity × validationDensity × totalCoherence / n).
func (g Graph) GlobalCoherence() float64 {
	n := float64(g.Len())
	if n == 0 {
		return 0
	}
	edgeDensity := float64(g.totalEdges) / (n * n)
	validationDensity := float64(g.totalValidations) / n
	phi := edgeDensity * validationDensity * g.totalCoherence / n
	if phi > 1 {
		return 1
	}
	return phi
}

// Query returns the nodes whose content contains text (case-insensitive) and whose
// coherence is at least threshold, highest coherence first.
func (g Graph) Query(text string, threshold float64) []Node {
	needle := strings.ToLower(text)
	var out []Node
	for _, n := range g.Nodes() {
		if n.Coherence >= threshold && strings.Contains(strings.ToLower(n.Content), needle) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Coherence > out[j].Coherence })
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
