package live

import "time"

// Transcript is the running transcript of the current turn.
type Transcript struct {
	User  string
	Model string
}

// Empty reports whether nothing has been transcribed.
func (t Transcript) Empty() bool {
	return t.User == "" && t.Model == ""
}

// Turn is a finalized exchange.
type Turn struct {
	RunID       string    `json:"run_id" msgpack:"run_id"`
	Index       int       `json:"index" msgpack:"index"`
	User        string    `json:"user" msgpack:"user"`
	Model       string    `json:"model" msgpack:"model"`
	CompletedAt time.Time `json:"completed_at" msgpack:"completed_at"`
}
