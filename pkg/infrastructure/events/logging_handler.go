package events

import (
	"go.uber.org/zap"
)

// LoggingHandler writes every event it receives to a structured log
type LoggingHandler struct {
	logger *zap.Logger
	types  map[string]bool
}

// NewLoggingHandler logs the given event types, or every type when none are given
func NewLoggingHandler(logger *zap.Logger, eventTypes ...string) *LoggingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	return &LoggingHandler{logger: logger, types: types}
}

// Handle logs the event at debug level
func (h *LoggingHandler) Handle(event Event) error {
	h.logger.Debug("market event",
		zap.String("event_type", event.Type()),
		zap.String("stream_id", event.StreamID()),
		zap.Int("version", event.Version()),
		zap.Time("at", event.Timestamp()),
		zap.Any("data", event.Data()))
	return nil
}

// CanHandle reports whether the event type is logged
func (h *LoggingHandler) CanHandle(eventType string) bool {
	return len(h.types) == 0 || h.types[eventType]
}
