// Package validation computes the structural findings shown next to a
// strategy graph. Findings are advisory or blocking signals for the user;
// they are never returned as Go errors.
package validation

import (
	"strategy-editor/domain/config"
	"strategy-editor/domain/core/aggregates"
	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/entities"
	"strategy-editor/domain/core/logic"
)

// GraphKey groups findings that are not attributed to a node
const GraphKey = "__graph__"

// Severity of a finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Messages
const (
	MsgEmptyGraph       = "Strategy must have at least one component"
	MsgNoAssetSelector  = "Strategy must include an asset selector"
	MsgNoExecution      = "Strategy should include an execution component"
	MsgNoRiskManagement = "Consider adding risk management components"
	MsgNotConnected     = "Component is not connected to any other node"
	MsgMissingReference = "Logic references a component that no longer exists"
	MsgIncompleteLogic  = "Logic expression is incomplete"
)

// Finding is one validation result. An empty NodeID means graph-level.
type Finding struct {
	NodeID   string   `json:"nodeId,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Key returns the grouping key of the finding
func (f Finding) Key() string {
	if f.NodeID == "" {
		return GraphKey
	}
	return f.NodeID
}

// Report is the ordered result of one validation pass
type Report struct {
	Findings []Finding `json:"findings"`
}

// IsValid reports whether no error-severity finding exists
func (r Report) IsValid() bool {
	return r.Errors() == 0
}

// Errors counts error-severity findings
func (r Report) Errors() int { return r.count(SeverityError) }

// Warnings counts warning-severity findings
func (r Report) Warnings() int { return r.count(SeverityWarning) }

func (r Report) count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// ByNode groups findings by node id, graph-level ones under GraphKey
func (r Report) ByNode() map[string][]Finding {
	out := make(map[string][]Finding)
	for _, f := range r.Findings {
		out[f.Key()] = append(out[f.Key()], f)
	}
	return out
}

// ForNode returns the findings attributed to one node
func (r Report) ForNode(nodeID string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.NodeID == nodeID {
			out = append(out, f)
		}
	}
	return out
}

// Validate runs every rule against g. Rules never short-circuit each other
// and the output order is fixed: by rule, then by node order.
// A nil rules value uses the graph's own domain rules.
func Validate(g *aggregates.Graph, rules *config.DomainConfig) Report {
	if rules == nil {
		rules = g.Rules()
	}
	nodes := g.Nodes()
	findings := []Finding{}
	graphLevel := func(sev Severity, msg string) {
		findings = append(findings, Finding{Message: msg, Severity: sev})
	}

	if len(nodes) == 0 {
		graphLevel(SeverityError, MsgEmptyGraph)
	}

	if !hasType(nodes, catalog.TypeAssetSelector) {
		graphLevel(SeverityError, MsgNoAssetSelector)
	}

	if len(nodes) >= rules.ExecutionMinNodes && len(g.NodesOfCategory(catalog.CategoryOrder)) == 0 {
		graphLevel(SeverityWarning, MsgNoExecution)
	}

	if len(nodes) >= rules.RiskMinNodes && len(g.NodesOfCategory(catalog.CategoryRisk)) == 0 {
		graphLevel(SeverityWarning, MsgNoRiskManagement)
	}

	if len(nodes) > 0 && len(nodes) >= rules.DisconnectedMinNodes {
		for _, n := range nodes {
			if g.Degree(n.ID()) == 0 {
				findings = append(findings, Finding{NodeID: n.ID().String(), Message: MsgNotConnected, Severity: SeverityWarning})
			}
		}
	}

	for _, n := range nodes {
		findings = append(findings, checkLogic(g, n)...)
	}

	return Report{Findings: findings}
}

// checkLogic flags logic and comparison nodes whose operands point at nodes
// that are gone, or whose expression tree cannot be committed as is.
func checkLogic(g *aggregates.Graph, n *entities.Node) []Finding {
	var out []Finding
	for _, ref := range catalog.References(n.Config()) {
		if !hasNodeID(g, ref.NodeID) {
			out = append(out, Finding{NodeID: n.ID().String(), Message: MsgMissingReference, Severity: SeverityWarning})
			break
		}
	}
	if tree, ok := catalog.LogicTree(n.Config()); ok && !tree.IsEmpty() {
		if err := logic.Validate(tree.Root); err != nil {
			out = append(out, Finding{NodeID: n.ID().String(), Message: MsgIncompleteLogic, Severity: SeverityWarning})
		}
	}
	return out
}

func hasNodeID(g *aggregates.Graph, id string) bool {
	for _, n := range g.Nodes() {
		if n.ID().String() == id {
			return true
		}
	}
	return false
}

func hasType(nodes []*entities.Node, t catalog.NodeType) bool {
	for _, n := range nodes {
		if n.Type() == t {
			return true
		}
	}
	return false
}
