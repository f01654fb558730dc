// Package extract turns URLs and uploaded PDFs into plain text.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

const (
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

	maxPageBytes = 10 << 20
)

// Renderer returns the fully rendered HTML of a page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Fetcher returns the raw HTML served at url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type WebConfig struct {
	RenderTimeout time.Duration
	FetchTimeout  time.Duration
}

// Web extracts the readable text of a web page. It tries a headless browser
// first and falls back to a plain HTTP fetch. Extract never fails: when both
// strategies yield nothing it returns "".
type Web struct {
	renderer Renderer
	fetcher  Fetcher
	cfg      WebConfig
}

// NewWeb builds a Web extractor. renderer may be nil to skip browser rendering.
func NewWeb(renderer Renderer, fetcher Fetcher, cfg WebConfig) *Web {
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 20 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 25 * time.Second
	}
	return &Web{renderer: renderer, fetcher: fetcher, cfg: cfg}
}

func (w *Web) Extract(ctx context.Context, url string) string {
	logger := log.With().Str("url", url).Logger()

	if w.renderer != nil {
		renderCtx, cancel := context.WithTimeout(ctx, w.cfg.RenderTimeout)
		html, err := w.renderer.Render(renderCtx, url)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("rendered fetch failed, falling back to http")
		} else if text := MainText(html); text != "" {
			return text
		}
	}

	if w.fetcher == nil {
		return ""
	}

	fetchCtx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
	defer cancel()
	html, err := w.fetcher.Fetch(fetchCtx, url)
	if err != nil {
		logger.Error().Err(err).Msg("http fetch failed")
		return ""
	}
	return MainText(html)
}

// HTTPFetcher fetches pages with a browser user agent.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ChromeRenderer renders pages in a headless Chrome via the DevTools protocol.
type ChromeRenderer struct {
	execPath string
}

// NewChromeRenderer uses the Chrome binary at execPath, or the one found on PATH when empty.
func NewChromeRenderer(execPath string) *ChromeRenderer {
	return &ChromeRenderer{execPath: execPath}
}

func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(BrowserUserAgent),
		chromedp.DisableGPU,
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("empty document")
	}
	return html, nil
}
