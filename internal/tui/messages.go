package tui

import (
	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/filter"
	"github.com/matheuskafuri/feedview/internal/imagecache"
	"github.com/matheuskafuri/feedview/internal/store"
	"github.com/matheuskafuri/feedview/internal/toast"
)

type settingsLoadedMsg struct {
	err error
}

// filterLoadedMsg carries the session state after a fetch settled.
type filterLoadedMsg struct {
	state    filter.State
	appended bool
	err      error
}

type settingsChangedMsg struct {
	settings api.Settings
	err      error
}

// collectionChangedMsg is delivered for every change to the shared
// collection, such as a title translation landing.
type collectionChangedMsg struct {
	change store.Change
	ok     bool
}

type toastMsg struct {
	toast toast.Toast
	ok    bool
}

type toastExpiredMsg struct {
	seq int
}

type imageLoadedMsg struct {
	articleID  int64
	url        string
	displayURL string
	state      imagecache.LoadState
}

type linkOpenedMsg struct {
	articleID int64
	err       error
}
