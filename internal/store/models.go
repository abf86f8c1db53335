package store

import "time"

// Vane is a trackable habit record. The completion log is embedded in the
// document, one entry per logged calendar day.
type Vane struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Log       []LogEntry `json:"log"`
	CreatedAt time.Time  `json:"_createdAt"`
}

// LogEntry records that a vane was completed on a calendar day. Key is only a
// store-level address for the entry; Day is the business key.
type LogEntry struct {
	Key       string `json:"_key"`
	Timestamp string `json:"timestamp"`
	Day       string `json:"day"`
}

type User struct {
	UID       string    `json:"uid"`
	GithubID  string    `json:"github_id"`
	AuthToken string    `json:"auth_token"`
	CreatedAt time.Time `json:"-"`
}
