package events

import (
	"time"

	"go.uber.org/zap"
)

// Event is one entry of the reconciliation audit trail
type Event interface {
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

// Handler reacts to appended events. Handlers run synchronously, in append order.
type Handler interface {
	Handle(event Event) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(event Event) error

func (f HandlerFunc) Handle(event Event) error {
	return f(event)
}

// Publisher is the write side of the store used by the reconciliation services
type Publisher interface {
	AppendEvent(streamID string, event Event) error
}

type EventStore interface {
	Publisher
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler Handler) (unsubscribe func())
}

// Record is the stored form of an event. Version is the 1-based position within its stream.
type Record struct {
	Kind    string      `json:"type"`
	Stream  string      `json:"stream"`
	Payload interface{} `json:"data"`
	At      time.Time   `json:"time"`
	Seq     int         `json:"version"`
}

func (r Record) Type() string { return r.Kind }
func (r Record) StreamID() string { return r.Stream }
func (r Record) Data() interface{} { return r.Payload }
func (r Record) Timestamp() time.Time { return r.At }
func (r Record) Version() int { return r.Seq }

// NewEvent creates an unversioned event stamped with the given time
func NewEvent(eventType, streamID string, data interface{}, at time.Time) Event {
	return Record{Kind: eventType, Stream: streamID, Payload: data, At: at}
}

// Stream names. Every aggregate writes to its own stream.
func DemandStream(id string) string { return "demand-" + id }
func LineStream(id string) string { return "line-" + id }
func LotStream(id string) string { return "lot-" + id }
func ReportStream(company string) string { return "report-" + company }

const ProcurementStream = "procurement"

// Publish appends event when a publisher is configured
func Publish(p Publisher, event Event) error {
	if p == nil {
		return nil
	}
	return p.AppendEvent(event.StreamID(), event)
}

// LogHandler writes every event it receives to logger at debug level
func LogHandler(logger *zap.Logger) Handler {
	return HandlerFunc(func(event Event) error {
		logger.Debug("event",
			zap.String("type", event.Type()),
			zap.String("stream", event.StreamID()),
			zap.Int("version", event.Version()),
			zap.Any("data", event.Data()),
		)
		return nil
	})
}
