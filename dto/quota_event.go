package dto

import (
	"github.com/mailvault/mailvault/internal/models"
)

// Event is the envelope every published message travels in.
type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id        string      `json:"id"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uberTraceId"`
	Timestamp   string `json:"timestamp"`
}

// QuotaStateChanged is published whenever the quota monitor broadcasts
// a new state.
type QuotaStateChanged struct {
	State models.QuotaState `json:"state"`
}
