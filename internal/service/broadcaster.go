package service

// Broadcaster pushes live events to websocket subscribers (avoids import cycle)
type Broadcaster interface {
	BroadcastToSurvey(surveyID string, msgType string, payload interface{})
}
