package server

import (
	"encoding/json"
	"net/http"

	"github.com/matheuskafuri/feedview/internal/ai"
	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/cache"
)

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req api.TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.TargetLanguage == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	if !s.needsWork(req.Title, req.TargetLanguage) {
		s.log.Debug("title already in target language", "article_id", req.ArticleID, "lang", req.TargetLanguage)
		s.storeTranslation(w, req.ArticleID, api.TranslateResponse{TranslatedTitle: req.Title, Skipped: true})
		return
	}

	var (
		translated   string
		limitReached bool
		err          error
	)
	switch {
	case s.tracker.LimitReached():
		s.log.Info("AI usage limit reached, passing titles through")
		limitReached = true
		translated, err = ai.Passthrough{}.Translate(r.Context(), req.Title, req.TargetLanguage)
	default:
		translated, err = s.translator.Translate(r.Context(), req.Title, req.TargetLanguage)
		if err == nil {
			s.tracker.Track()
		}
	}
	if err != nil {
		s.log.Error("translating title", "article_id", req.ArticleID, "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.storeTranslation(w, req.ArticleID, api.TranslateResponse{
		TranslatedTitle: translated,
		LimitReached:    limitReached,
		Skipped:         translated == req.Title,
	})
}

func (s *Server) storeTranslation(w http.ResponseWriter, id int64, resp api.TranslateResponse) {
	if err := s.store.UpdateTranslation(id, resp.TranslatedTitle); err != nil {
		s.log.Error("storing translation", "article_id", id, "err", err)
		storeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var req api.ReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.SetFlag(req.ArticleID, cache.FlagRead, req.Read); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
