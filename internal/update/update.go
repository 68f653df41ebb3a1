// Package update checks GitHub releases for a newer feedview version.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultReleasesURL = "https://api.github.com/repos/matheuskafuri/feedview/releases/latest"

// Result holds the outcome of a version check.
type Result struct {
	LatestVersion string
	Newer         bool
}

type ghRelease struct {
	TagName string `json:"tag_name"`
}

// Check fetches the latest release from releasesURL and compares it with
// currentVersion.
func Check(ctx context.Context, client *http.Client, releasesURL, currentVersion string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checking for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checking for updates: github returned %d", resp.StatusCode)
	}

	var release ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	current := strings.TrimPrefix(currentVersion, "v")
	return &Result{
		LatestVersion: latest,
		Newer:         latest != "" && current != "dev" && newer(latest, current),
	}, nil
}

// newer compares dotted numeric versions; non-numeric parts compare as
// strings.
func newer(latest, current string) bool {
	lp, cp := strings.Split(latest, "."), strings.Split(current, ".")
	for i := 0; i < max(len(lp), len(cp)); i++ {
		var l, c string
		if i < len(lp) {
			l = lp[i]
		}
		if i < len(cp) {
			c = cp[i]
		}
		if l == c {
			continue
		}
		var ln, cn int
		_, lerr := fmt.Sscanf(l, "%d", &ln)
		_, cerr := fmt.Sscanf(c, "%d", &cn)
		if lerr == nil && cerr == nil {
			return ln > cn
		}
		return l > c
	}
	return false
}
