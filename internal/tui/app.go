package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/browser"
	"github.com/matheuskafuri/feedview/internal/config"
	"github.com/matheuskafuri/feedview/internal/filter"
	"github.com/matheuskafuri/feedview/internal/imagecache"
	"github.com/matheuskafuri/feedview/internal/logging"
	"github.com/matheuskafuri/feedview/internal/store"
	"github.com/matheuskafuri/feedview/internal/toast"
	"github.com/matheuskafuri/feedview/internal/translate"
	"github.com/matheuskafuri/feedview/internal/visibility"
)

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeHome mode = iota
	modeNormal
	modeFilter
	modeHelp
)

// Each list item is 2 lines + 1 blank line.
const itemHeight = 3

// loadMoreThreshold is how close to the end of the loaded results the cursor
// gets before the next page is requested.
const loadMoreThreshold = 5

// Backend is everything the browser asks of the feedview backend.
type Backend interface {
	filter.Searcher
	translate.Client
	UpdateSettings(ctx context.Context, s api.Settings) error
	MarkRead(ctx context.Context, id int64, read bool) error
}

type imageStatus struct {
	url        string
	displayURL string
	state      imagecache.LoadState
}

type App struct {
	cfg     *config.Config
	backend Backend
	log     logging.Logger
	openURL func(string) error

	coll    *store.Collection
	session *filter.Session
	sched   *translate.Scheduler
	region  *visibility.Region
	images  *imagecache.Cache
	loader  *imagecache.Loader
	toasts  *toast.Bus

	changes <-chan store.Change
	toastCh <-chan toast.Toast
	unsubs  []func()

	defaultConds []api.Condition

	ids    []int64
	state  filter.State
	cursor int
	offset int
	focus  focusPane
	mode   mode

	width  int
	height int

	filterInput textinput.Model
	spinner     spinner.Model

	loading       bool
	previewScroll int
	currentDate   string
	updateVersion string
	err           error

	toast    *toast.Toast
	toastSeq int

	imageStates map[int64]imageStatus
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Cfg     *config.Config
	Backend Backend
	Log     logging.Logger
	// OpenURL opens a link; browser.Open when nil.
	OpenURL func(string) error
	// UpdateVersion is a newer release to mention on the home screen.
	UpdateVersion string
}

func NewApp(opts RunOpts) *App {
	log := logging.OrNop(opts.Log)
	cfg := opts.Cfg

	ti := textinput.New()
	ti.Placeholder = `feed="Go Blog" title~release after=7d`
	ti.Prompt = searchPromptStyle.Render("filter ")
	ti.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	open := opts.OpenURL
	if open == nil {
		open = browser.Open
	}

	coll := store.NewCollection()
	bus := toast.NewBus()
	images := imagecache.New(
		imagecache.WithTTL(cfg.ImageTTL()),
		imagecache.WithCleanupDelay(cfg.ImageCleanupDelay()),
	)

	a := &App{
		cfg:     cfg,
		backend: opts.Backend,
		log:     log,
		openURL: open,
		coll:    coll,
		session: filter.New(opts.Backend, coll,
			filter.WithPageSize(cfg.PageSize()),
			filter.WithLogger(log.With("component", "filter")),
		),
		sched: translate.New(opts.Backend, coll, bus,
			translate.WithLogger(log.With("component", "translate")),
			translate.WithObserverOptions(visibility.Options{
				Threshold: cfg.Translation.Threshold,
				Margin:    cfg.Translation.MarginLines,
			}),
		),
		region:        visibility.NewRegion(),
		images:        images,
		loader:        imagecache.NewLoader(images, cfg.Timeout(), log.With("component", "images")),
		toasts:        bus,
		filterInput:   ti,
		spinner:       sp,
		currentDate:   time.Now().Format("Jan 2"),
		updateVersion: opts.UpdateVersion,
		imageStates:   make(map[int64]imageStatus),
		mode:          modeHome,
	}

	changes, unsubColl := coll.Subscribe()
	toasts, unsubToasts := bus.Subscribe()
	a.changes, a.toastCh = changes, toasts
	a.unsubs = []func(){unsubColl, unsubToasts}

	if expr := strings.TrimSpace(cfg.Filter.Default); expr != "" {
		conds, err := filter.ParseConditions(expr)
		if err != nil {
			log.Warn("ignoring default filter", "expr", expr, "err", err)
		} else {
			a.defaultConds = conds
			a.mode = modeNormal
		}
	}
	return a
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		a.loadSettingsCmd(),
		waitForChange(a.changes),
		waitForToast(a.toastCh),
	}
	if a.mode == modeNormal && len(a.defaultConds) > 0 {
		cmds = append(cmds, a.startFilter(a.defaultConds))
	}
	return tea.Batch(cmds...)
}

// Close releases the observer, outstanding translations, the image cache and
// the subscriptions. The App must not be used afterwards.
func (a *App) Close() {
	a.sched.Close()
	a.images.Close()
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil
}

func (a *App) startFilter(conds []api.Condition) tea.Cmd {
	a.loading = true
	a.err = nil
	return tea.Batch(a.applyFilterCmd(conds), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.scrollList()
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case settingsLoadedMsg:
		if msg.err != nil {
			a.log.Warn("using default translation settings", "err", msg.err)
		}
		a.sched.Attach(a.region)
		return a, nil

	case filterLoadedMsg:
		return a, a.applyFilterState(msg)

	case collectionChangedMsg:
		if !msg.ok {
			return a, nil
		}
		return a, waitForChange(a.changes)

	case toastMsg:
		if !msg.ok {
			return a, nil
		}
		t := msg.toast
		a.toast = &t
		a.toastSeq++
		return a, tea.Batch(expireToastCmd(a.toastSeq), waitForToast(a.toastCh))

	case toastExpiredMsg:
		if msg.seq == a.toastSeq {
			a.toast = nil
		}
		return a, nil

	case settingsChangedMsg:
		if msg.err != nil {
			a.log.Error("updating translation settings", "err", msg.err)
			a.err = fmt.Errorf("updating settings: %w", msg.err)
			return a, nil
		}
		enabled := msg.settings.TranslationEnabled == "true"
		a.sched.OnSettingsChanged(enabled, msg.settings.TargetLanguage)
		if enabled {
			a.toasts.Show(toast.KeyTranslationEnabled, toast.Success)
		} else {
			a.toasts.Show(toast.KeyTranslationDisabled, toast.Success)
		}
		return a, nil

	case imageLoadedMsg:
		a.imageStates[msg.articleID] = imageStatus{url: msg.url, displayURL: msg.displayURL, state: msg.state}
		if msg.state.Status == imagecache.StatusError {
			a.toasts.Show(toast.KeyImageFailed, toast.Warning)
		}
		return a, nil

	case linkOpenedMsg:
		if msg.err != nil {
			a.log.Warn("opening link", "article_id", msg.articleID, "err", msg.err)
			a.toasts.Show(toast.KeyLinkOpenFailed, toast.Error)
			return a, nil
		}
		if art, ok := a.coll.Get(msg.articleID); ok && !art.IsRead {
			art.IsRead = true
			a.coll.Merge(art)
		}
		return a, nil

	case spinner.TickMsg:
		if a.loading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

// applyFilterState adopts the session snapshot carried by msg and lays the
// results out for visibility tracking.
func (a *App) applyFilterState(msg filterLoadedMsg) tea.Cmd {
	// A newer filter is still out; its own message brings the results.
	if msg.state.Loading && msg.err == nil {
		a.loading = true
		return nil
	}
	a.loading = false
	a.state = msg.state
	if msg.err != nil {
		a.toasts.Show(toast.KeyFilterFailed, toast.Error)
		if msg.appended {
			return nil
		}
	}

	a.ids = a.ids[:0]
	for _, art := range msg.state.Results {
		a.ids = append(a.ids, art.ID)
	}
	if !msg.appended {
		a.cursor = 0
		a.previewScroll = 0
	}
	if a.cursor >= len(a.ids) {
		a.cursor = max(0, len(a.ids)-1)
	}

	a.region.Layout(visibility.ListLayout(a.ids, itemHeight))
	a.scrollList()
	for _, id := range a.ids {
		a.sched.ObserveElement(id)
	}
	return a.probeSelected(false)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	}

	// Mode-specific handling
	switch a.mode {
	case modeHome:
		return a.handleHomeKey(msg)
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	// Normal mode
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.ids)-1 {
			a.cursor++
			return a, a.cursorMoved()
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			return a, a.cursorMoved()
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
		return a, nil
	case "g", "home":
		if len(a.ids) > 0 {
			a.cursor = 0
			return a, a.cursorMoved()
		}
		return a, nil
	case "G", "end":
		if len(a.ids) > 0 {
			a.cursor = len(a.ids) - 1
			return a, a.cursorMoved()
		}
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "o", "enter":
		if art, ok := a.selected(); ok {
			return a, a.openArticleCmd(art)
		}
		return a, nil
	case "/":
		return a, a.openFilterPrompt()
	case "x":
		a.clearFilter()
		return a, nil
	case "r":
		if conds := a.session.Conditions(); len(conds) > 0 && !a.loading {
			return a, a.startFilter(conds)
		}
		return a, nil
	case "t":
		return a, a.toggleTranslationCmd()
	case "i":
		return a, a.probeSelected(true)
	case "h":
		a.mode = modeHome
		return a, nil
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "e", "enter":
		a.mode = modeNormal
		if len(a.session.Conditions()) == 0 && len(a.defaultConds) > 0 && !a.loading {
			return a, a.startFilter(a.defaultConds)
		}
		return a, nil
	case "/":
		a.mode = modeNormal
		return a, a.openFilterPrompt()
	case "t":
		return a, a.toggleTranslationCmd()
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.filterInput.Blur()
		return a, nil
	case "enter":
		conds, err := filter.ParseConditions(a.filterInput.Value())
		if err != nil {
			a.err = err
			return a, nil
		}
		a.mode = modeNormal
		a.filterInput.Blur()
		if len(conds) == 0 {
			a.clearFilter()
			return a, nil
		}
		return a, a.startFilter(conds)
	}

	var cmd tea.Cmd
	a.filterInput, cmd = a.filterInput.Update(msg)
	return a, cmd
}

func (a *App) openFilterPrompt() tea.Cmd {
	a.mode = modeFilter
	a.filterInput.SetValue(filter.Describe(a.session.Conditions()))
	a.filterInput.CursorEnd()
	a.filterInput.Focus()
	return textinput.Blink
}

func (a *App) clearFilter() {
	a.session.ClearAll()
	a.state = a.session.State()
	a.ids = nil
	a.cursor = 0
	a.previewScroll = 0
	a.region.Layout(nil)
	a.scrollList()
}

func (a *App) cursorMoved() tea.Cmd {
	a.previewScroll = 0
	a.scrollList()
	return tea.Batch(a.maybeLoadMore(), a.probeSelected(false))
}

// scrollList keeps the cursor in view and moves the observed viewport with
// the rendered rows.
func (a *App) scrollList() {
	rows := a.listRows()
	a.offset = scrollStart(a.cursor, rows, len(a.ids))
	a.region.Scroll(a.offset*itemHeight, rows*itemHeight)
}

func (a *App) maybeLoadMore() tea.Cmd {
	if a.loading || !a.state.HasMore || len(a.ids) == 0 {
		return nil
	}
	if a.cursor < len(a.ids)-loadMoreThreshold {
		return nil
	}
	if len(a.session.Conditions()) == 0 {
		return nil
	}
	a.loading = true
	return tea.Batch(a.loadMoreCmd(), a.spinner.Tick)
}

// probeSelected checks the selected article's image unless it was already
// checked. force re-checks a failed image.
func (a *App) probeSelected(force bool) tea.Cmd {
	art, ok := a.selected()
	if !ok || art.ImageURL == "" {
		return nil
	}
	if st, seen := a.imageStates[art.ID]; seen && !force && st.url == art.ImageURL {
		return nil
	}
	a.imageStates[art.ID] = imageStatus{url: art.ImageURL, state: imagecache.LoadState{Status: imagecache.StatusLoading}}
	return a.probeImageCmd(art, force)
}

// articles returns the current version of every listed article.
func (a *App) articles() []store.Article {
	return a.coll.Lookup(a.ids)
}

func (a *App) selected() (store.Article, bool) {
	if a.cursor < 0 || a.cursor >= len(a.ids) {
		return store.Article{}, false
	}
	return a.coll.Get(a.ids[a.cursor])
}

func (a *App) contentHeight() int {
	// header, filter, status and the pane borders
	h := a.height - 3 - 4
	if h < 3 {
		h = 3
	}
	return h
}

func (a *App) listRows() int {
	return max(1, a.contentHeight()/itemHeight)
}

func (a *App) withBottomBar(content string, hints string) string {
	bar := renderBottomBar(a.toast, hints, a.width)
	lines := strings.Split(content, "\n")
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	if len(lines) >= a.height {
		lines = lines[:a.height-1]
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  feedview")
	}

	if a.mode == modeHome {
		return a.withBottomBar(
			renderHomeScreen(a.width, a.height, a.sched.Settings(), a.updateVersion),
			"e browse  / filter  t translation  q quit",
		)
	}

	if a.mode == modeHelp {
		return a.withBottomBar(a.renderHelp(), "? close  h home  q quit")
	}

	contentHeight := a.contentHeight()
	listWidth := int(float64(a.width) * 0.4)
	previewWidth := a.width - listWidth - 1 // gap

	// Header
	headerLeft := headerStyle.Render("feedview")
	headerRight := renderTranslationBadge(a.sched.Settings()) + headerDateStyle.Render("  "+a.currentDate)
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	// Filter bar, or the prompt while editing
	filterLine := renderFilterBar(a.session.Conditions(), a.width)
	if a.mode == modeFilter {
		filterLine = a.filterInput.View()
	}

	articles := a.articles()

	// List pane
	innerListW := listWidth - 4 // border + padding
	listContent := renderList(articles, a.cursor, a.offset, contentHeight, innerListW, a.sched.InFlight)

	var listPane string
	if a.focus == focusList {
		listPane = listPaneActiveStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)
	} else {
		listPane = listPaneStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)
	}

	// Preview pane
	var sel *store.Article
	var img *imageStatus
	if art, ok := a.selected(); ok {
		sel = &art
		if st, ok := a.imageStates[art.ID]; ok {
			img = &st
		}
	}
	innerPreviewW := previewWidth - 4
	previewContent := renderPreview(sel, img, innerPreviewW, contentHeight, a.previewScroll)

	var previewPane string
	if a.focus == focusPreview {
		previewPane = previewPaneActiveStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)
	} else {
		previewPane = previewPaneStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	status := renderStatusBar(statusInfo{
		shown:       len(a.ids),
		total:       a.state.Total,
		hasMore:     a.state.HasMore && len(a.session.Conditions()) > 0,
		translating: a.sched.InFlightCount(),
		editing:     a.mode == modeFilter,
		loading:     a.loading,
		toast:       a.toast,
	}, a.width)

	if a.loading {
		status = a.spinner.View() + " " + status
	}

	// Error display
	if a.err != nil {
		status = lipgloss.NewStyle().Foreground(colorAccent).Render(a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, filterLine, content, status)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("feedview")
	dim := helpDimStyle

	help := title + dim.Render(" keyboard shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓     Navigate article list\n" +
		"  g/G           Jump to first / last article\n" +
		"  tab           Switch focus between list and preview\n\n" +
		dim.Render("Actions") + "\n" +
		"  o, enter      Open article in browser\n" +
		"  /             Edit filter\n" +
		"  x             Clear filter\n" +
		"  r             Reload filter\n" +
		"  t             Toggle title translation\n" +
		"  i             Retry article image\n\n" +
		dim.Render("Filter syntax") + "\n" +
		"  feed=a,b  category=x  type=rss  title~word  title==\"exact\"\n" +
		"  title/regex/  after=7d  before=2026-01-02  read=false\n" +
		"  fav=true  hidden=true  later=true  images=true\n" +
		"  join with and / or, prefix ! to negate\n\n" +
		dim.Render("General") + "\n" +
		"  h             Go to home screen\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c    Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	defer app.Close()
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
