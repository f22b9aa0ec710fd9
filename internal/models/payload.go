package models

type AddEventPayload struct {
	Text string `json:"text" form:"text" binding:"required"`
}

type AskPayload struct {
	Text string `json:"text" form:"text" binding:"required"`
}

// UpdateEventPayload replaces every editable field of an event.
type UpdateEventPayload struct {
	Name            string  `json:"name" form:"name" binding:"required"`
	Start           string  `json:"start" form:"start" binding:"required"`
	End             *string `json:"end" form:"end"`
	Location        *string `json:"location" form:"location"`
	ReminderMinutes *int    `json:"reminder_minutes" form:"reminder_minutes"`
}

type AskResponse struct {
	Intent  string `json:"intent"`
	Message string `json:"message"`
	Event   *Event `json:"event,omitempty"`
}
