package shortener

import "time"

// TopicURLExpired carries requests to mark a short URL as expired.
const TopicURLExpired = "short_url.expired"

// ExpiredEvent is emitted when a redirect finds a paid short URL past its access window.
type ExpiredEvent struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	ExpiredAt time.Time `json:"expiredAt"`
}
