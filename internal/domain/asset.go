package domain

import "time"

// Asset is read-only inventory metadata tickets may reference. The asset
// catalogue is maintained elsewhere; this service never mutates it.
type Asset struct {
	ID        int64
	Name      string
	Code      string
	Category  string
	Active    bool
	CreatedAt time.Time
}
