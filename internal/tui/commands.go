package tui

import (
	"context"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/store"
	"github.com/matheuskafuri/feedview/internal/toast"
)

const (
	requestTimeout = 30 * time.Second
	toastDuration  = 4 * time.Second
)

func (a *App) loadSettingsCmd() tea.Cmd {
	sched := a.sched
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return settingsLoadedMsg{err: sched.LoadSettings(ctx)}
	}
}

// applyFilterCmd starts over with conds from page 1.
func (a *App) applyFilterCmd(conds []api.Condition) tea.Cmd {
	session := a.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := session.SetConditions(ctx, conds)
		return filterLoadedMsg{state: session.State(), err: err}
	}
}

func (a *App) loadMoreCmd() tea.Cmd {
	session := a.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := session.LoadMore(ctx)
		return filterLoadedMsg{state: session.State(), appended: true, err: err}
	}
}

func (a *App) toggleTranslationCmd() tea.Cmd {
	st := a.sched.Settings()
	backend := a.backend
	next := api.Settings{
		TranslationEnabled: strconv.FormatBool(!st.Enabled),
		TargetLanguage:     st.TargetLang,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := backend.UpdateSettings(ctx, next)
		return settingsChangedMsg{settings: next, err: err}
	}
}

// openArticleCmd opens the article link and marks the article read once the
// browser was launched.
func (a *App) openArticleCmd(art store.Article) tea.Cmd {
	open := a.openURL
	backend := a.backend
	log := a.log
	return func() tea.Msg {
		if err := open(art.URL); err != nil {
			return linkOpenedMsg{articleID: art.ID, err: err}
		}
		if !art.IsRead {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			if err := backend.MarkRead(ctx, art.ID, true); err != nil {
				log.Warn("marking article read", "article_id", art.ID, "err", err)
			}
		}
		return linkOpenedMsg{articleID: art.ID}
	}
}

func (a *App) probeImageCmd(art store.Article, force bool) tea.Cmd {
	if art.ImageURL == "" {
		return nil
	}
	loader := a.loader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		display, st := loader.Load(ctx, art.ImageURL, force)
		return imageLoadedMsg{articleID: art.ID, url: art.ImageURL, displayURL: display, state: st}
	}
}

func waitForChange(ch <-chan store.Change) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		return collectionChangedMsg{change: c, ok: ok}
	}
}

func waitForToast(ch <-chan toast.Toast) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		return toastMsg{toast: t, ok: ok}
	}
}

func expireToastCmd(seq int) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}
