// Package graph validates pipeline graph documents before they are
// published or executed. A graph is a decoded JSON document carrying a
// "nodes" array and an "edges" array; validation checks structural
// well-formedness, id uniqueness, edge references and acyclicity.
package graph

import (
	"fmt"
)

// Result is the verdict for a validated graph document. Errors preserves
// discovery order: node problems first, then edge problems, then the
// cycle check.
type Result struct {
	Valid  bool
	Errors []string
}

// Validate checks a decoded graph document and reports every problem it
// finds instead of failing on the first one. It never panics or returns
// an error; an unexpected internal fault is reported as a single
// generic entry.
func Validate(doc any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Valid: false, Errors: []string{"Validation failed due to internal error"}}
		}
	}()

	graph, ok := doc.(map[string]any)
	if !ok || graph == nil {
		return Result{Valid: false, Errors: []string{"Graph must be a valid object"}}
	}

	var errs []string

	rawNodes, nodesOK := graph["nodes"].([]any)
	if !nodesOK {
		errs = append(errs, "Graph must contain a nodes array")
	}
	rawEdges, edgesOK := graph["edges"].([]any)
	if !edgesOK {
		errs = append(errs, "Graph must contain an edges array")
	}
	if !nodesOK || !edgesOK {
		return Result{Valid: false, Errors: errs}
	}

	nodeIDs := make(map[string]struct{}, len(rawNodes))
	orderedIDs := make([]string, 0, len(rawNodes))

	for _, rawNode := range rawNodes {
		node, _ := rawNode.(map[string]any)
		id, ok := node["id"].(string)
		if !ok {
			errs = append(errs, "Each node must have a string id")
			continue
		}
		if _, seen := nodeIDs[id]; seen {
			errs = append(errs, fmt.Sprintf("Duplicate node id: %s", id))
		} else {
			nodeIDs[id] = struct{}{}
			orderedIDs = append(orderedIDs, id)
		}
		if _, ok := node["type"].(string); !ok {
			errs = append(errs, fmt.Sprintf("Node %s must have a string type", id))
		}
	}

	adjacency := make(map[string][]string, len(nodeIDs))

	for _, rawEdge := range rawEdges {
		edge, _ := rawEdge.(map[string]any)
		source, ok := edge["source"].(string)
		if !ok {
			errs = append(errs, "Each edge must have a string source")
			continue
		}
		target, ok := edge["target"].(string)
		if !ok {
			errs = append(errs, "Each edge must have a string target")
			continue
		}
		_, sourceKnown := nodeIDs[source]
		if !sourceKnown {
			errs = append(errs, fmt.Sprintf("Edge references non-existent source node: %s", source))
		}
		_, targetKnown := nodeIDs[target]
		if !targetKnown {
			errs = append(errs, fmt.Sprintf("Edge references non-existent target node: %s", target))
		}
		if sourceKnown && targetKnown {
			adjacency[source] = append(adjacency[source], target)
		}
	}

	if hasCycle(orderedIDs, adjacency) {
		errs = append(errs, "Pipeline graph contains cycles")
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// hasCycle runs a depth-first search from every unvisited node, tracking
// the nodes on the current traversal stack. An edge into a node that is
// still on the stack is a back edge, which means a cycle. Runs in
// O(nodes + edges).
func hasCycle(ids []string, adjacency map[string][]string) bool {
	visited := make(map[string]bool, len(ids))
	onStack := make(map[string]bool, len(ids))

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, next := range adjacency[id] {
			if onStack[next] {
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, id := range ids {
		if !visited[id] && visit(id) {
			return true
		}
	}
	return false
}
