package ancestor

import (
	"github.com/goccy/go-json"
)

// Trace records how a property read was resolved along the ancestor chain.
type Trace struct {
	Property string `json:"property"`
	Value    any    `json:"value,omitempty"`
	Resolved bool   `json:"resolved"`
	// Source is the ID of the node that supplied Value.
	Source string `json:"source,omitempty"`
	Hops   []Hop  `json:"hops"`
}

// Hop is one node consulted during resolution.
type Hop struct {
	NodeID      string `json:"node_id"`
	Type        string `json:"type"`
	Declared    bool   `json:"declared"`
	Local       bool   `json:"local"`
	Overridden  bool   `json:"overridden,omitempty"`
	Inheritable bool   `json:"inheritable"`
	Value       any    `json:"value,omitempty"`
}

// Trace resolves name like Value and records every node consulted.
func (n *Node) Trace(name string) Trace {
	trace := Trace{Property: name}
	if !n.initialized() {
		return trace
	}
	value, _ := n.walk(name, func(h hop) {
		trace.Hops = append(trace.Hops, Hop{
			NodeID:      h.node.id,
			Type:        h.node.info.name,
			Declared:    h.declared,
			Local:       h.local,
			Overridden:  h.overridden,
			Inheritable: h.inheritable,
			Value:       h.value,
		})
		if h.local {
			trace.Source = h.node.id
		}
	})
	trace.Value = value
	trace.Resolved = value != nil
	return trace
}

// Depth returns the index of the hop that supplied the value, or -1.
func (t Trace) Depth() int {
	for i, h := range t.Hops {
		if h.Local && h.Value != nil {
			return i
		}
	}
	return -1
}

// ToJSON encodes the trace.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON decodes a payload produced by ToJSON. Values decode into
// their generic JSON forms.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
