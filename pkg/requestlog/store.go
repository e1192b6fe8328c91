package requestlog

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/getmockd/mockharness/pkg/harness"
)

// Loggable is implemented by request contexts that can describe themselves as
// a journal entry. ID, Sequence and Timestamp are filled in by the Collector.
type Loggable interface {
	LogEntry() *Entry
}

// Filter defines criteria for filtering journal entries.
type Filter struct {
	// Protocol filters by protocol (http, grpc, soap, graphql).
	Protocol string

	// Method filters by HTTP method (or gRPC method, SOAP operation).
	Method string

	// Path filters by path prefix.
	Path string

	// Route filters by exact route key.
	Route string

	// Limit is the maximum number of entries to return.
	Limit int

	// Offset is the number of entries to skip.
	Offset int

	// GRPCService filters gRPC by service name.
	GRPCService string

	// SOAPOperation filters SOAP by operation name.
	SOAPOperation string

	// GraphQLOpType filters GraphQL by operation type (query, mutation, subscription).
	GraphQLOpType string
}

func (f *Filter) matches(e *Entry) bool {
	if f.Protocol != "" && e.Protocol != f.Protocol {
		return false
	}
	if f.Method != "" && !strings.EqualFold(e.Method, f.Method) {
		return false
	}
	if f.Path != "" && !strings.HasPrefix(e.Path, f.Path) {
		return false
	}
	if f.Route != "" && e.Route != f.Route {
		return false
	}
	if f.GRPCService != "" && (e.GRPC == nil || e.GRPC.Service != f.GRPCService) {
		return false
	}
	if f.SOAPOperation != "" && (e.SOAP == nil || e.SOAP.Operation != f.SOAPOperation) {
		return false
	}
	if f.GraphQLOpType != "" && (e.GraphQL == nil || e.GraphQL.OperationType != f.GraphQLOpType) {
		return false
	}
	return true
}

// Journal is the finished, read-only record of a run.
type Journal struct {
	Entries []*Entry `json:"entries"`
}

// Get returns the entry with the given ID, or nil.
func (j *Journal) Get(id string) *Entry {
	for _, e := range j.Entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Filter returns entries matching filter in arrival order. A nil filter matches all.
func (j *Journal) Filter(filter *Filter) []*Entry {
	if filter == nil {
		return slices.Clone(j.Entries)
	}
	var out []*Entry
	skipped := 0
	for _, e := range j.Entries {
		if !filter.matches(e) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Count returns the number of entries matching filter, ignoring Limit and Offset.
func (j *Journal) Count(filter *Filter) int {
	if filter == nil {
		return len(j.Entries)
	}
	n := 0
	for _, e := range j.Entries {
		if filter.matches(e) {
			n++
		}
	}
	return n
}

// Collector is a harness.Collector that produces a Journal.
type Collector[C Loggable] struct {
	mu       sync.Mutex
	entries  []*Entry
	finished bool
}

// NewCollector creates an empty journal collector.
func NewCollector[C Loggable]() *Collector[C] {
	return &Collector[C]{}
}

// Record implements harness.Collector.
func (c *Collector[C]) Record(req harness.CollectedRequest[C]) {
	entry := req.Request.LogEntry()
	if entry == nil {
		return
	}
	entry.ID = req.ID
	entry.Sequence = req.Sequence
	entry.Timestamp = req.ReceivedAt

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return
	}
	c.entries = append(c.entries, entry)
}

// Finish implements harness.Collector. Subsequent calls return nil.
func (c *Collector[C]) Finish() *Journal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return nil
	}
	c.finished = true
	entries := c.entries
	c.entries = nil
	slices.SortStableFunc(entries, func(x, y *Entry) int {
		return cmp.Compare(x.Sequence, y.Sequence)
	})
	if entries == nil {
		entries = []*Entry{}
	}
	return &Journal{Entries: entries}
}
