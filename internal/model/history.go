package model

import "time"

// History is the diary record of one user for one calendar day.
// At most one row exists per (UserID, RecordDate).
type History struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	RecordDate Date      `json:"record_date"`
	Tags       []string  `json:"tags,omitempty"`
	S3Key      *string   `json:"s3_key,omitempty"`
	TextURL    *string   `json:"text_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
