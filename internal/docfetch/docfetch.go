// Package docfetch retrieves documentation pages for shell commands,
// first from local man pages, then from the tldr-pages project over
// HTTP. Fetched pages are meant to be stored in the documentation cache
// so repeat lookups never leave the machine.
package docfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/AndrewHuffman/hey-ai/internal/doccache"
)

const (
	// DefaultTldrBaseURL serves raw tldr-pages markdown
	DefaultTldrBaseURL = "https://raw.githubusercontent.com/tldr-pages/tldr/main/pages"

	manTimeout = 10 * time.Second
)

// tldr pages are organized by platform; common is tried first
var tldrPlatforms = []string{"common", "linux", "osx"}

// Fetcher retrieves documentation for a command from man pages or the
// tldr-pages mirror.
type Fetcher struct {
	tldrBaseURL string
	httpClient  *http.Client
}

// NewFetcher creates a Fetcher. An empty baseURL uses the public
// tldr-pages mirror.
func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultTldrBaseURL
	}
	return &Fetcher{
		tldrBaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Canonicalize reduces a raw command line to its cache key: the first
// token, stripped of any leading path.
func Canonicalize(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return filepath.Base(fields[0])
}

// Fetch returns documentation for the command, preferring the local man
// page and falling back to tldr. The returned source tells the caller
// which one succeeded.
func (f *Fetcher) Fetch(ctx context.Context, command string) (string, doccache.Source, error) {
	name := Canonicalize(command)
	if name == "" {
		return "", "", fmt.Errorf("empty command")
	}

	if content, err := f.fetchMan(ctx, name); err == nil {
		return content, doccache.SourceMan, nil
	}

	content, err := f.fetchTldr(ctx, name)
	if err != nil {
		return "", "", fmt.Errorf("no documentation found for %q: %w", name, err)
	}
	return content, doccache.SourceTldr, nil
}

// fetchMan shells out to man(1) with pagination disabled
func (f *Fetcher) fetchMan(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, manTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "man", name)
	cmd.Env = append(cmd.Environ(), "MANPAGER=cat", "PAGER=cat", "MANWIDTH=80")

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("man %s: %w", name, err)
	}
	if len(strings.TrimSpace(string(out))) == 0 {
		return "", fmt.Errorf("man %s: empty page", name)
	}
	return string(out), nil
}

// fetchTldr tries each tldr platform directory in order
func (f *Fetcher) fetchTldr(ctx context.Context, name string) (string, error) {
	var lastErr error
	for _, platform := range tldrPlatforms {
		url := fmt.Sprintf("%s/%s/%s.md", f.tldrBaseURL, platform, name)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("tldr %s/%s: status %d", platform, name, resp.StatusCode)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read tldr page: %w", err)
			continue
		}

		return string(body), nil
	}
	return "", lastErr
}
