package types

import "time"

// Post represents one of the user's own X posts scraped from their profile
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Time      time.Time `json:"time"`
	URL       string    `json:"url"`
	Stats     Stats     `json:"stats"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Stats holds engagement counts parsed from the post's action bar
type Stats struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
	Replies  int `json:"replies"`
}

// Comment represents a reply left under one of the user's posts
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id,omitempty"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url,omitempty"`
	Debug     *Debug    `json:"debug,omitempty"`
}

// Debug records how a comment was extracted from the page
type Debug struct {
	ElementIndex  int  `json:"elementIndex"`
	FoundUsername bool `json:"foundUsername"`
	TextLength    int  `json:"textLength"`
}

// Reply is a reply the bot posted on the user's behalf
type Reply struct {
	ID        int64     `json:"id"`
	PostURL   string    `json:"post_url"`
	CommentID string    `json:"comment_id,omitempty"`
	Text      string    `json:"text"`
	PostedAt  time.Time `json:"posted_at"`
}

// Status is the dashboard-visible bot state
type Status struct {
	Connected bool    `json:"connected"`
	Username  *string `json:"username"`
	Replies   int     `json:"replies"`
}
