package model

// ActiveReminder is what the rendering side receives for each reminder
// that is currently showing. Message may contain markup; rendering it is
// the renderer's concern.
type ActiveReminder struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}
