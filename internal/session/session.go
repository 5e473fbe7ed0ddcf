package session

import (
	"fmt"
	"time"
)

// Session binds an opaque id to an authenticated trading-account context.
type Session struct {
	ID           string    `json:"session_id"`
	Login        int64     `json:"login"`
	Server       string    `json:"server"`
	CreatedAt    time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewID builds a session id from epoch seconds and the account login.
// The format matches what downstream clients already parse.
func NewID(login int64) string {
	return fmt.Sprintf("mt5_%d_%d", time.Now().Unix(), login)
}
