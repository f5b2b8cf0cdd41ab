// Package events provides a publish/subscribe event bus for operational
// observability. Events flow from components (responder, tool dispatcher,
// delivery pacer, memory store) to subscribers (the MQTT ops publisher,
// future metrics collectors). The bus is nil-safe: calling Publish on a
// nil *Bus is a no-op, so components do not need guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceAPI identifies events from the HTTP request pipeline.
	SourceAPI = "api"
	// SourceResponder identifies events from the completion loop.
	SourceResponder = "responder"
	// SourceTools identifies events from the tool dispatcher.
	SourceTools = "tools"
	// SourceMemory identifies events from the conversation memory store.
	SourceMemory = "memory"
	// SourceWhatsApp identifies events from the delivery pacer and
	// gateway listener.
	SourceWhatsApp = "whatsapp"
)

// Kind constants describe the type of event within a source.
const (
	// KindRequestStart signals the beginning of a chat unit of work.
	// Data: request_id, user.
	KindRequestStart = "request_start"
	// KindRouteDecision signals the router picked an agent.
	// Data: request_id, agent, user_type.
	KindRouteDecision = "route_decision"
	// KindLLMCall signals the start of a completion API call.
	// Data: request_id, phase, model.
	KindLLMCall = "llm_call"
	// KindLLMResponse signals completion of a completion API call.
	// Data: request_id, phase, model, tokens_in, tokens_out, tool_calls.
	KindLLMResponse = "llm_response"
	// KindToolCall signals the start of a tool execution.
	// Data: request_id, tool.
	KindToolCall = "tool_call"
	// KindToolDone signals completion of a tool execution.
	// Data: request_id, tool, ok, duration_ms.
	KindToolDone = "tool_done"
	// KindPromiseCorrected signals the promise corrector replaced a
	// deferred-action response with an executed one.
	// Data: request_id, domain.
	KindPromiseCorrected = "promise_corrected"
	// KindSegmentSent signals one outbound segment was delivered.
	// Data: request_id, index, length.
	KindSegmentSent = "segment_sent"
	// KindDeliveryComplete signals the pacer finished a response.
	// Data: request_id, segments, sent, aborted.
	KindDeliveryComplete = "delivery_complete"
	// KindMemoryDegraded signals the memory backend was unreachable and
	// the turn proceeded without history.
	// Data: user, op.
	KindMemoryDegraded = "memory_degraded"
	// KindRequestComplete signals the end of a chat unit of work.
	// Data: request_id, agent, tokens_in, tokens_out, elapsed_ms.
	KindRequestComplete = "request_complete"
)

// Event represents a single operational event published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs. This allows
	// Unsubscribe to accept <-chan Event (the caller's view) without
	// an illegal type conversion.
	recvToSend map[<-chan Event]chan Event
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber. Safe to call on a nil receiver (no-op).
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full — drop the event rather than block.
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid resource leaks.
// bufSize controls the channel buffer; 64 is a reasonable default for
// background consumers.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
