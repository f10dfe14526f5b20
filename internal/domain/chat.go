package domain

import "time"

const MaxChatLength = 500

type ChatMessage struct {
	ID        string    `db:"id" json:"id"`
	From      string    `db:"from_uid" json:"from"`
	FromName  string    `db:"from_name" json:"fromName"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
