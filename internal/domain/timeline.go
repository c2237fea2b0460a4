package domain

import "time"

// TimelineEntry описывает запись в истории заказа.
type TimelineEntry struct {
	Status   OrderStatus
	Message  string
	ActorID  string
	Occurred time.Time
}
