package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"qna-agents/internal/app"
	"qna-agents/internal/httputil"
	"qna-agents/internal/presenter"
	"qna-agents/internal/session"
	"qna-agents/internal/store"
)

const defaultHistoryLimit = 20

type createSessionRequest struct {
	Paragraph *string `json:"paragraph" validate:"omitnil,max=200000,plaintext"`
	Question  *string `json:"question" validate:"omitnil,max=1000,plaintext"`
}

type paragraphRequest struct {
	Paragraph string `json:"paragraph" validate:"max=200000,plaintext"`
}

type questionRequest struct {
	Question string `json:"question" validate:"max=1000,plaintext"`
}

type historyQuery struct {
	Limit  int    `validate:"min=1,max=100"`
	Answer string `validate:"max=1000"`
}

type sessionResponse struct {
	ID string `json:"id"`
	presenter.Summary
}

type answersResponse struct {
	Title   string `json:"title"`
	Answers any    `json:"answers"`
}

func view(o *session.Orchestrator) sessionResponse {
	return sessionResponse{ID: o.ID().String(), Summary: presenter.Summarize(o.Snapshot())}
}

func createSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				httputil.Fail(deps.Log, w, "invalid JSON body", err, http.StatusBadRequest)
				return
			}
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		paragraph, question := session.DefaultParagraph, session.DefaultQuestion
		if req.Paragraph != nil {
			paragraph = *req.Paragraph
		}
		if req.Question != nil {
			question = *req.Question
		}

		o, err := deps.Sessions.Create(r.Context(), paragraph, question)
		if errors.Is(err, session.ErrTooManySessions) {
			httputil.Fail(deps.Log, w, "too many sessions, try again later", err, http.StatusTooManyRequests)
			return
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to create session", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, view(o))
	}
}

func getSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, view(o))
	}
}

func deleteSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		if err := deps.Sessions.Delete(o.ID()); err != nil {
			httputil.Fail(deps.Log, w, "session not found", err, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func setParagraphHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		var req paragraphRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid JSON body", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		o.SetParagraph(req.Paragraph)
		httputil.WriteJSON(w, http.StatusOK, view(o))
	}
}

func setQuestionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		var req questionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid JSON body", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		o.SetQuestion(req.Question)
		httputil.WriteJSON(w, http.StatusOK, view(o))
	}
}

func uploadParagraphHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := lookup(deps, w, r)
		if !ok {
			return
		}

		// Validate file size before parsing
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			switch strings.ToLower(filepath.Ext(header.Filename)) {
			case ".txt":
				contentType = "text/plain"
			case ".pdf":
				contentType = "application/pdf"
			}
		}
		if contentType != "text/plain" && contentType != "application/pdf" {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF and TXT allowed)", nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		text, err := extractText(contentType, content)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to extract text", err, http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(text) == "" {
			httputil.Fail(deps.Log, w, "file contains no text", nil, http.StatusBadRequest)
			return
		}
		req := paragraphRequest{Paragraph: text}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		o.SetParagraph(req.Paragraph)
		httputil.WriteJSON(w, http.StatusOK, view(o))
	}
}

func predictHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		started := o.Predict(r.Context())
		if !started {
			resp := view(o)
			httputil.WriteJSON(w, http.StatusOK, map[string]any{"started": false, "status": resp.Status})
			return
		}
		if r.URL.Query().Get("wait") != "true" {
			httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"started": true})
			return
		}
		if err := o.Wait(r.Context()); err != nil {
			// Client went away; the call keeps running.
			deps.Log.Debug("predict wait abandoned", "session_id", o.ID(), "err", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, view(o))
	}
}

func answersHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		cands, ok := presenter.RevealAll(o.Snapshot())
		if !ok {
			httputil.Fail(deps.Log, w, "no additional answers", nil, http.StatusNotFound)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, answersResponse{
			Title:   presenter.Title(len(cands)),
			Answers: cands,
		})
	}
}

func historyHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		if deps.Store == nil {
			httputil.Fail(deps.Log, w, "prediction history is not enabled", nil, http.StatusNotFound)
			return
		}

		q := historyQuery{Limit: defaultHistoryLimit, Answer: r.URL.Query().Get("answer")}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				httputil.Fail(deps.Log, w, "limit must be a number", err, http.StatusBadRequest)
				return
			}
			q.Limit = n
		}
		if err := httputil.Validator.Struct(&q); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		preds, err := deps.Store.ListPredictions(r.Context(), o.ID(), store.ListOptions{Limit: q.Limit, Answer: q.Answer})
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load history", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"session_id":  o.ID().String(),
			"predictions": preds,
		})
	}
}

func predictionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		if deps.Store == nil {
			httputil.Fail(deps.Log, w, "prediction history is not enabled", nil, http.StatusNotFound)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "predictionID"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid prediction id", err, http.StatusBadRequest)
			return
		}
		p, err := deps.Store.GetPrediction(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			httputil.Fail(deps.Log, w, "prediction not found", err, http.StatusNotFound)
			return
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load prediction", err, http.StatusInternalServerError)
			return
		}
		// Predictions of other sessions are not reachable through this one.
		if p.SessionID != o.ID() {
			httputil.Fail(deps.Log, w, "prediction not found", nil, http.StatusNotFound)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, p)
	}
}

func flushCacheHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cache == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err := deps.Cache.Flush(r.Context()); err != nil {
			httputil.Fail(deps.Log, w, "failed to flush answer cache", err, http.StatusInternalServerError)
			return
		}
		deps.Log.Info("answer cache flushed")
		w.WriteHeader(http.StatusNoContent)
	}
}

func lookup(deps app.Deps, w http.ResponseWriter, r *http.Request) (*session.Orchestrator, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(deps.Log, w, "invalid session id", err, http.StatusBadRequest)
		return nil, false
	}
	o, err := deps.Sessions.Get(id)
	if err != nil {
		httputil.Fail(deps.Log, w, "session not found", err, http.StatusNotFound)
		return nil, false
	}
	return o, true
}
