package models

import (
	"time"
)

// Access token issued by TokenManager
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}
