package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/matheuskafuri/feedview/internal/api"
)

// SeedSettings stores initial settings without overwriting existing values.
func SeedSettings(st interface {
	SetSettingDefault(key, value string) error
}, translationEnabled bool, targetLanguage string) error {
	if err := st.SetSettingDefault(SettingTranslationEnabled, fmt.Sprint(translationEnabled)); err != nil {
		return err
	}
	return st.SetSettingDefault(SettingTargetLanguage, targetLanguage)
}

func (s *Server) settings() (api.Settings, error) {
	enabled, err := s.store.GetSetting(SettingTranslationEnabled)
	if err != nil {
		return api.Settings{}, err
	}
	lang, err := s.store.GetSetting(SettingTargetLanguage)
	if err != nil {
		return api.Settings{}, err
	}
	return api.Settings{TranslationEnabled: enabled, TargetLanguage: lang}, nil
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings()
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, st)
}

// handlePutSettings updates the fields present in the body; empty fields are
// left unchanged.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req api.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch req.TranslationEnabled {
	case "", "true", "false":
	default:
		http.Error(w, fmt.Sprintf("translation_enabled must be true or false, got %q", req.TranslationEnabled), http.StatusBadRequest)
		return
	}

	if req.TranslationEnabled != "" {
		if err := s.store.SetSetting(SettingTranslationEnabled, req.TranslationEnabled); err != nil {
			storeError(w, err)
			return
		}
	}
	if req.TargetLanguage != "" {
		if err := s.store.SetSetting(SettingTargetLanguage, req.TargetLanguage); err != nil {
			storeError(w, err)
			return
		}
	}
	s.log.Info("settings updated", "translation_enabled", req.TranslationEnabled, "target_language", req.TargetLanguage)
	s.handleGetSettings(w, r)
}
