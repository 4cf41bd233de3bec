package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/selectbot/internal/types"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer; the bot serialises its own work anyway
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		posted_at DATETIME,
		url TEXT,
		likes INTEGER,
		retweets INTEGER,
		replies INTEGER,
		scraped_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS comments (
		id TEXT NOT NULL,
		post_id TEXT NOT NULL,
		author TEXT,
		content TEXT NOT NULL,
		timestamp DATETIME,
		url TEXT,
		scraped_at DATETIME NOT NULL,
		PRIMARY KEY (post_id, id)
	);

	CREATE TABLE IF NOT EXISTS replies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_url TEXT NOT NULL,
		comment_id TEXT,
		content TEXT NOT NULL,
		posted_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_scraped_at ON posts(scraped_at);
	CREATE INDEX IF NOT EXISTS idx_replies_posted_at ON replies(posted_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SavePosts inserts or refreshes scraped posts
func (s *Store) SavePosts(posts []types.Post) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range posts {
		_, err := tx.Exec(`
			INSERT INTO posts (id, content, posted_at, url, likes, retweets, replies, scraped_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				content = excluded.content,
				url = excluded.url,
				likes = excluded.likes,
				retweets = excluded.retweets,
				replies = excluded.replies,
				scraped_at = excluded.scraped_at
		`, p.ID, p.Text, p.Time, p.URL, p.Stats.Likes, p.Stats.Retweets, p.Stats.Replies, p.ScrapedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetPost returns a previously scraped post, or types.ErrPostNotFound
func (s *Store) GetPost(id string) (types.Post, error) {
	var p types.Post
	err := s.db.QueryRow(`
		SELECT id, content, posted_at, url, likes, retweets, replies, scraped_at
		FROM posts WHERE id = ?
	`, id).Scan(&p.ID, &p.Text, &p.Time, &p.URL, &p.Stats.Likes, &p.Stats.Retweets, &p.Stats.Replies, &p.ScrapedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Post{}, types.ErrPostNotFound
	}
	return p, err
}

// SaveComments stores the replies found under postID
func (s *Store) SaveComments(postID string, comments []types.Comment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, c := range comments {
		_, err := tx.Exec(`
			INSERT INTO comments (id, post_id, author, content, timestamp, url, scraped_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(post_id, id) DO UPDATE SET
				author = excluded.author,
				content = excluded.content,
				scraped_at = excluded.scraped_at
		`, c.ID, postID, c.Author, c.Text, c.Timestamp, c.URL, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetComments returns the stored replies under postID
func (s *Store) GetComments(postID string) ([]types.Comment, error) {
	rows, err := s.db.Query(`
		SELECT id, post_id, author, content, timestamp, url
		FROM comments WHERE post_id = ?
		ORDER BY timestamp
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []types.Comment
	for rows.Next() {
		var c types.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Author, &c.Text, &c.Timestamp, &c.URL); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// RecordReply stores a reply the bot posted and returns its id
func (s *Store) RecordReply(r types.Reply) (int64, error) {
	if r.PostedAt.IsZero() {
		r.PostedAt = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO replies (post_url, comment_id, content, posted_at)
		VALUES (?, ?, ?, ?)
	`, r.PostURL, r.CommentID, r.Text, r.PostedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListReplies returns the most recent replies, newest first
func (s *Store) ListReplies(limit int) ([]types.Reply, error) {
	rows, err := s.db.Query(`
		SELECT id, post_url, comment_id, content, posted_at
		FROM replies
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	replies := []types.Reply{}
	for rows.Next() {
		var r types.Reply
		var commentID sql.NullString
		if err := rows.Scan(&r.ID, &r.PostURL, &commentID, &r.Text, &r.PostedAt); err != nil {
			return nil, err
		}
		r.CommentID = commentID.String
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

// ReplyCount returns how many replies have been posted
func (s *Store) ReplyCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM replies`).Scan(&n)
	return n, err
}
