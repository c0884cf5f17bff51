package models

import "time"

type Review struct {
	ID       string    `json:"id"`
	TitleID  string    `json:"titleId"`
	AuthorID string    `json:"authorId"`
	Author   string    `json:"author"`
	Score    int       `json:"score"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pubDate"`
}

type Comment struct {
	ID       string    `json:"id"`
	ReviewID string    `json:"reviewId"`
	AuthorID string    `json:"authorId"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pubDate"`
}
