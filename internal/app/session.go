package app

import "fmt"

type sessionKey string

const (
	SessionKeyGuest = sessionKey("guest")
)

func (s sessionKey) String() string {
	return string(s)
}

// holdSessionKey is the Redis key binding a session to its single active hold.
func holdSessionKey(sessionID string) string {
	return fmt.Sprintf("hold:%s", sessionID)
}
