package service

// Broadcaster interface for WebSocket status events (avoids import cycle)
type Broadcaster interface {
	BroadcastToEvaluator(evaluatorID string, msgType string, payload interface{})
}
