package models

import "time"

type Chat struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	IsAdmin   bool
	CreatedAt time.Time
}

func (Chat) TableName() string {
	return "chats"
}

const GreetingID = 1

type Greeting struct {
	ID   int
	Text string
}

// Post is an ad-hoc message an admin broadcasts to subscribers. Nil CityID or
// CategoryID means "any".
type Post struct {
	ID         int
	Text       string `gorm:"not null"`
	CityID     *int
	CategoryID *int
	SentAt     *time.Time
	CreatedAt  time.Time
}

func (p Post) IsSent() bool {
	return p.SentAt != nil
}

type Action string

const (
	ActionStart        Action = "start"
	ActionSubscribed   Action = "subscribed"
	ActionUnsubscribed Action = "unsubscribed"
)

type Statistic struct {
	ID        int
	Action    Action `gorm:"index"`
	ChatID    int64  `gorm:"index"`
	Meta      string
	CreatedAt time.Time
}

type ArbitraryData struct {
	ID    string `gorm:"primaryKey"`
	Value []byte
}
