package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/replier"
	"github.com/ibeckermayer/selectbot/internal/types"
)

//go:embed static/index.html
var dashboardHTML []byte

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	if err != nil {
		s.logger.Error(msg, zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return types.InvalidInput("Invalid request body")
	}
	return nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(dashboardHTML)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Status())
}

type startBotRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleStartBot(w http.ResponseWriter, r *http.Request) {
	var req startBotRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	s.logger.Info("Starting bot", zap.String("username", req.Username))
	msg, err := s.backend.Connect(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}

func (s *Server) handleStopBot(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Disconnect(); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Disconnected"})
}

func (s *Server) handleGetPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.backend.Posts(r.Context())
	if errors.Is(err, types.ErrNotConnected) {
		s.fail(w, r, http.StatusUnauthorized, msgNotConnected, nil)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "posts": posts})
}

func (s *Server) handleGetComments(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["postId"]
	comments, err := s.backend.Comments(r.Context(), postID)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	s.logger.Info("Comments retrieved", zap.String("post_id", postID), zap.Int("count", len(comments)))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "comments": comments})
}

type postRef struct {
	Text string `json:"text"`
}

type commentRef struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

type generateReplyRequest struct {
	OriginalPost postRef    `json:"originalPost"`
	Comment      commentRef `json:"comment"`
	APIKey       string     `json:"apiKey"`
	Instructions string     `json:"instructions"`
}

func (s *Server) handleGenerateReply(w http.ResponseWriter, r *http.Request) {
	var req generateReplyRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	reply, err := s.backend.GenerateReply(r.Context(), replier.Request{
		PostText:      req.OriginalPost.Text,
		CommentAuthor: req.Comment.Author,
		CommentText:   req.Comment.Text,
		APIKey:        req.APIKey,
		Instructions:  req.Instructions,
	})
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reply": reply})
}

type generateRepliesRequest struct {
	OriginalPost postRef      `json:"originalPost"`
	Comments     []commentRef `json:"comments"`
	APIKey       string       `json:"apiKey"`
	Instructions string       `json:"instructions"`
}

func (s *Server) handleGenerateReplies(w http.ResponseWriter, r *http.Request) {
	var req generateRepliesRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if len(req.Comments) == 0 {
		s.fail(w, r, http.StatusBadRequest, "At least one comment is required", nil)
		return
	}

	comments := make([]types.Comment, len(req.Comments))
	for i, c := range req.Comments {
		comments[i] = types.Comment{ID: c.ID, Author: c.Author, Text: c.Text}
	}
	replies, err := s.backend.GenerateReplies(r.Context(), replier.BatchRequest{
		PostText:     req.OriginalPost.Text,
		Comments:     comments,
		APIKey:       req.APIKey,
		Instructions: req.Instructions,
	})
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "replies": replies})
}

type postReplyRequest struct {
	ReplyText string `json:"replyText"`
	PostURL   string `json:"postUrl"`
	CommentID string `json:"commentId"`
}

func (s *Server) handlePostReply(w http.ResponseWriter, r *http.Request) {
	var req postReplyRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	s.logger.Info("Processing reply request", zap.String("url", req.PostURL))
	_, err := s.backend.PostReply(r.Context(), req.PostURL, req.ReplyText, req.CommentID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msgReplyPosted})
	case errors.Is(err, types.ErrNotConnected):
		s.fail(w, r, http.StatusUnauthorized, msgReplyNotConnected, nil)
	case errors.Is(err, types.ErrInvalidInput):
		s.fail(w, r, http.StatusBadRequest, err.Error(), nil)
	default:
		s.logger.Error("Post reply failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   friendlyPostError(err),
			"details": err.Error(),
		})
	}
}

func (s *Server) handleReplies(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.fail(w, r, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	replies, err := s.backend.Replies(limit)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "replies": replies})
}

func (s *Server) handleReloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.ReloadConfig(); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Configuration reloaded"})
}
