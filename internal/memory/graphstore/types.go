// Package graphstore defines the wire-level types and storage contract for
// the context graph: typed events, their semantic links, and the
// paginated browsing/recall shapes the Memory Client builds on.
package graphstore

import "encoding/json"

// EventKind classifies a stored event; it is also the "type" half of a
// context id (context ids are "kind:name", e.g. "decision:decisions").
type EventKind string

const (
	EventFact        EventKind = "fact"
	EventAction      EventKind = "action"
	EventDecision    EventKind = "decision"
	EventObservation EventKind = "observation"
	EventFeedback    EventKind = "feedback"
)

// EventLinks groups the four directed semantic-link lists a stored event
// may carry. Each list holds context ids.
type EventLinks struct {
	RelatedTo   []string
	Extends     []string
	Reinforces  []string
	Contradicts []string
}

// NewEventLinks returns an empty EventLinks ready for chained appends.
func NewEventLinks() EventLinks { return EventLinks{} }

// AddRelatedTo appends to the related_to list and returns the receiver,
// for chaining.
func (l EventLinks) AddRelatedTo(contextID string) EventLinks {
	l.RelatedTo = append(l.RelatedTo, contextID)
	return l
}

// AddExtends appends to the extends list and returns the receiver.
func (l EventLinks) AddExtends(contextID string) EventLinks {
	l.Extends = append(l.Extends, contextID)
	return l
}

// AddReinforces appends to the reinforces list and returns the receiver.
func (l EventLinks) AddReinforces(contextID string) EventLinks {
	l.Reinforces = append(l.Reinforces, contextID)
	return l
}

// AddContradicts appends to the contradicts list and returns the receiver.
func (l EventLinks) AddContradicts(contextID string) EventLinks {
	l.Contradicts = append(l.Contradicts, contextID)
	return l
}

// Merge returns a new EventLinks combining the receiver with other,
// concatenating all four lists. The receiver's entries come first.
func (l EventLinks) Merge(other EventLinks) EventLinks {
	return EventLinks{
		RelatedTo:   append(append([]string{}, l.RelatedTo...), other.RelatedTo...),
		Extends:     append(append([]string{}, l.Extends...), other.Extends...),
		Reinforces:  append(append([]string{}, l.Reinforces...), other.Reinforces...),
		Contradicts: append(append([]string{}, l.Contradicts...), other.Contradicts...),
	}
}

// IsEmpty reports whether all four link lists are empty.
func (l EventLinks) IsEmpty() bool {
	return len(l.RelatedTo) == 0 && len(l.Extends) == 0 && len(l.Reinforces) == 0 && len(l.Contradicts) == 0
}

// CreateEventRequest is the payload used to store one event. ContextID
// and Source are set via the builder methods below; Payload carries the
// caller's arbitrary JSON body.
type CreateEventRequest struct {
	Kind      EventKind
	Payload   json.RawMessage
	ContextID string
	Source    string
	Links     EventLinks
	Timestamp int64 // unix seconds; zero means "server assigns"
}

// NewCreateEventRequest builds a request from a kind and an already
// JSON-encodable payload.
func NewCreateEventRequest(kind EventKind, payload any) CreateEventRequest {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = json.RawMessage(`{"error":"payload_marshal_failed"}`)
	}
	return CreateEventRequest{Kind: kind, Payload: raw}
}

// WithContextID sets the context id and returns the receiver, for chaining.
func (r CreateEventRequest) WithContextID(id string) CreateEventRequest {
	r.ContextID = id
	return r
}

// WithSource sets the source and returns the receiver.
func (r CreateEventRequest) WithSource(source string) CreateEventRequest {
	r.Source = source
	return r
}

// WithLinks sets the links and returns the receiver.
func (r CreateEventRequest) WithLinks(links EventLinks) CreateEventRequest {
	r.Links = links
	return r
}

// WithTimestamp sets an explicit unix-seconds timestamp and returns the
// receiver.
func (r CreateEventRequest) WithTimestamp(unixSeconds int64) CreateEventRequest {
	r.Timestamp = unixSeconds
	return r
}

// ContextResult is the degrade-capable response shape for memory recall:
// a rendered markdown digest, how many events contributed to it, and
// whether the underlying store was unreachable.
type ContextResult struct {
	Memories   string
	ItemsFound int
	Degraded   bool
}

// InsightResult is a generated summary used to decide whether to act
// (e.g. compress context) and with how much confidence.
type InsightResult struct {
	Insight        string
	Recommendation string
	Confidence     float64
}

// ContextType is one row of the list_context_types browse response.
type ContextType struct {
	ContextType string
	Count       int
}

// Context is one row of the list_contexts_by_type / search_contexts
// browse responses.
type Context struct {
	ContextID      string
	ContextType    string
	ContextName    string
	CreatedAt      int64
	UpdatedAt      int64
	ReferenceCount int
}

// ContextTypeFilter narrows retrieval to a specific context type, or all
// types when empty.
type ContextTypeFilter struct {
	ContextType string
}

// RetrieveOptions parameterises RetrieveMemories.
type RetrieveOptions struct {
	Limit       int
	ContextIDs  []string
	ContextType ContextTypeFilter
}

// InsightsOptions parameterises GenerateInsight.
type InsightsOptions struct {
	ContextIDs []string
}

// Page bounds a paginated browse call; PageSize<=0 means "store default".
type Page struct {
	Page     int
	PageSize int
}

// TurnSummary is a structured digest of one agent turn, suitable for
// storage as a decision/observation event or surfaced to a caller for
// diagnostics.
type TurnSummary struct {
	Title         string
	UserRequest   string
	ActionsTaken  []string
	Outcome       string
	Decisions     []string
	FilesRead     []string
	FilesModified []string
	EventCount    int
}
