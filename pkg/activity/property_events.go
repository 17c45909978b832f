package activity

import (
	"strings"
	"time"
)

// Verbs emitted for property changes.
const (
	VerbPropertyChanged          = "ancestor.property.changed"
	VerbPropertyInheritedChanged = "ancestor.property.inherited_changed"
)

// ObjectTypeNode is the object type of property change events.
const ObjectTypeNode = "ancestor.node"

// PropertyChange describes one resolved value change on a node.
type PropertyChange struct {
	ActorID    string
	TenantID   string
	NodeID     string
	TypeName   string
	Property   string
	Previous   any
	Current    any
	Inherited  bool
	SourceID   string
	Channel    string
	OccurredAt time.Time
}

// BuildPropertyChangedEvent converts a property change into an event. Changes
// re-emitted from an ancestor use VerbPropertyInheritedChanged.
func BuildPropertyChangedEvent(change PropertyChange) Event {
	verb := VerbPropertyChanged
	if change.Inherited {
		verb = VerbPropertyInheritedChanged
	}

	metadata := map[string]any{
		"property":  change.Property,
		"inherited": change.Inherited,
	}
	if change.TypeName != "" {
		metadata["type"] = change.TypeName
	}
	if change.SourceID != "" && change.SourceID != change.NodeID {
		metadata["source_id"] = change.SourceID
	}
	if change.Previous != nil {
		metadata["previous"] = change.Previous
	}
	if change.Current != nil {
		metadata["current"] = change.Current
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(change.ActorID),
		TenantID:   strings.TrimSpace(change.TenantID),
		ObjectType: ObjectTypeNode,
		ObjectID:   strings.TrimSpace(change.NodeID),
		Channel:    strings.TrimSpace(change.Channel),
		Metadata:   metadata,
		OccurredAt: change.OccurredAt,
	}
}
