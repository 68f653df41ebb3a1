package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/filter"
	"github.com/matheuskafuri/feedview/internal/logging"
	"github.com/matheuskafuri/feedview/internal/store"
	"github.com/matheuskafuri/feedview/internal/toast"
	"github.com/matheuskafuri/feedview/internal/translate"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentTranslations = 4

var (
	flagPages     int
	flagTranslate bool
	flagJSON      bool
)

var filterCmd = &cobra.Command{
	Use:   "filter EXPR",
	Short: "Print the articles matching a filter expression",
	Long: `Run a filter against the backend and print the matching articles.

Expressions use the same syntax as the browser's filter prompt, for example:

  feedview filter 'feed="Go Blog",Cloudflare and title~release'
  feedview filter after=7d !read=true --pages 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logging.New(cmd.ErrOrStderr(), logging.Options{Level: cfg.Log.Level})
		client := api.New(serverURL(cfg), cfg.Timeout(), api.WithLogger(log))

		return runFilter(cmd.Context(), cmd.OutOrStdout(), client, strings.Join(args, " "), filterOpts{
			pages:     flagPages,
			pageSize:  cfg.PageSize(),
			translate: flagTranslate,
			json:      flagJSON,
			log:       log,
		})
	},
}

func init() {
	filterCmd.Flags().IntVar(&flagPages, "pages", 1, "number of pages to load")
	filterCmd.Flags().BoolVar(&flagTranslate, "translate", false, "translate titles into the backend's target language")
	filterCmd.Flags().BoolVar(&flagJSON, "json", false, "print articles as JSON")
}

type filterBackend interface {
	filter.Searcher
	translate.Client
}

type filterOpts struct {
	pages     int
	pageSize  int
	translate bool
	json      bool
	log       logging.Logger
}

func runFilter(ctx context.Context, w io.Writer, backend filterBackend, expr string, opts filterOpts) error {
	log := logging.OrNop(opts.log)
	conds, err := filter.ParseConditions(expr)
	if err != nil {
		return err
	}
	if len(conds) == 0 {
		return errors.New("filter expression is empty")
	}

	coll := store.NewCollection()
	session := filter.New(backend, coll, filter.WithPageSize(opts.pageSize), filter.WithLogger(log))
	if err := session.SetConditions(ctx, conds); err != nil {
		return err
	}
	for page := 1; page < opts.pages && session.State().HasMore; page++ {
		if err := session.LoadMore(ctx); err != nil {
			return err
		}
	}
	st := session.State()

	var untranslated int
	if opts.translate {
		failed, err := translateAll(ctx, backend, coll, st.Results, log)
		if err != nil {
			return err
		}
		if failed > 0 && failed == len(st.Results) {
			return fmt.Errorf("translating titles: all %d requests failed", failed)
		}
		untranslated = failed
	}

	ids := make([]int64, len(st.Results))
	for i, a := range st.Results {
		ids[i] = a.ID
	}
	articles := coll.Lookup(ids)

	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(api.FilterResponse{Articles: articles, HasMore: st.HasMore, Total: st.Total})
	}
	printArticles(w, articles, st.Total, st.HasMore, untranslated)
	return nil
}

// translateAll translates every title it is given and returns how many
// failed. A failed title is reported and left untranslated.
func translateAll(ctx context.Context, backend translate.Client, coll *store.Collection, articles []store.Article, log logging.Logger) (int, error) {
	notify := toast.NotifierFunc(func(key string, sev toast.Severity) {
		log.Warn(toast.Message(key), "severity", sev)
	})
	sched := translate.New(backend, coll, notify, translate.WithLogger(log))
	defer sched.Close()
	if err := sched.LoadSettings(ctx); err != nil {
		return 0, err
	}

	var failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTranslations)
	for _, a := range articles {
		g.Go(func() error {
			if err := sched.Translate(ctx, a); err != nil {
				failed.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	return int(failed.Load()), err
}

func printArticles(w io.Writer, articles []store.Article, total int, hasMore bool, untranslated int) {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles match this filter.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "PUBLISHED", "FEED", "TITLE")
	for _, a := range articles {
		title := a.DisplayTitle()
		if a.IsRead {
			title = "· " + title
		}
		t.Row(
			strconv.FormatInt(a.ID, 10),
			a.PublishedAt.Local().Format("2006-01-02"),
			a.FeedTitle,
			truncate(title, 80),
		)
	}
	fmt.Fprintln(w, t.Render())

	footer := fmt.Sprintf("%d of %d articles", len(articles), total)
	if hasMore {
		footer += " (more available, use --pages)"
	}
	if untranslated == 1 {
		footer += ", 1 title could not be translated"
	} else if untranslated > 1 {
		footer += fmt.Sprintf(", %d titles could not be translated", untranslated)
	}
	fmt.Fprintln(w, footer)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
