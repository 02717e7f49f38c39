package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/charset"
	"github.com/ternarybob/reperio/internal/models"
)

// ErrNotFound is returned when every applicable search strategy was
// exhausted without reaching a detail page. Its text is the job's terminal
// failure reason.
var ErrNotFound = errors.New("Business not found with any search strategy")

// Config holds the engine's navigation timing knobs.
type Config struct {
	NavigationTimeout time.Duration
	ClickTimeout      time.Duration
	SettleDelay       time.Duration
}

// DefaultConfig returns the standard timing profile.
func DefaultConfig() Config {
	return Config{
		NavigationTimeout: 30 * time.Second,
		ClickTimeout:      8 * time.Second,
		SettleDelay:       2 * time.Second,
	}
}

// Engine drives a headless-browser tab through the per-record state machine:
// locale pick -> ordered search strategies -> detail-page detection ->
// extraction -> normalization -> classification.
type Engine struct {
	cfg    Config
	logger arbor.ILogger
}

// New creates a scrape engine.
func New(cfg Config, logger arbor.ILogger) *Engine {
	if cfg.NavigationTimeout <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Scrape processes one record inside the given browser tab context. It
// returns a classified result, or an error when the whole page failed
// (search exhaustion, navigation breakdown). Per-field extraction errors are
// swallowed into the result's status.
func (e *Engine) Scrape(ctx context.Context, rec models.InputRecord) (*models.ScrapeResult, error) {
	loc := DetectLocale(rec)

	reached, err := e.reachDetailPage(ctx, rec, loc)
	if err != nil {
		return nil, err
	}
	if !reached {
		return nil, ErrNotFound
	}

	doc, err := e.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("detail page snapshot failed: %w", err)
	}

	e.expandHours(ctx)
	if refreshed, snapErr := e.snapshot(ctx); snapErr == nil {
		doc = refreshed
	}

	result, fieldErrors := ExtractFields(doc, loc)

	if lat, lng, ok := e.extractCoordinates(ctx, doc); ok {
		result.Latitude = lat
		result.Longitude = lng
	} else {
		fieldErrors = append(fieldErrors, "coordinates")
	}

	classify(result, fieldErrors)

	e.logger.Debug().
		Str("name", result.FullName).
		Str("status", string(result.Status)).
		Strs("missing_fields", fieldErrors).
		Msg("Record extraction finished")

	return result, nil
}

// reachDetailPage walks the ordered strategy list. Strategies that use the
// business name are retried with the folded search variants before moving
// on. Returns false when every strategy is exhausted.
func (e *Engine) reachDetailPage(ctx context.Context, rec models.InputRecord, loc Locale) (bool, error) {
	for _, strategy := range BuildStrategies(rec) {
		for _, query := range strategyQueries(strategy, rec) {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}

			target := SearchURL(query, loc, rec.City)
			e.logger.Debug().
				Str("strategy", strategy.Name).
				Str("query", query).
				Msg("Trying search strategy")

			if err := e.navigate(ctx, target); err != nil {
				e.logger.Debug().Err(err).Str("strategy", strategy.Name).Msg("Navigation failed, moving on")
				continue
			}

			onDetail, err := e.onDetailPage(ctx)
			if err != nil {
				continue
			}
			if onDetail {
				return true, nil
			}

			if e.openFirstResult(ctx) {
				if onDetail, err = e.onDetailPage(ctx); err == nil && onDetail {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// strategyQueries expands one strategy into its retry queries: the original
// first, then the same query with each folded name variant substituted.
func strategyQueries(s Strategy, rec models.InputRecord) []string {
	queries := []string{s.Query}
	name := strings.TrimSpace(rec.Name)
	if name == "" || !strings.Contains(s.Query, name) {
		return queries
	}
	for _, variant := range charset.SearchVariants(name) {
		if variant == name {
			continue
		}
		queries = append(queries, strings.Replace(s.Query, name, variant, 1))
	}
	return queries
}

func (e *Engine) navigate(ctx context.Context, target string) error {
	navCtx, cancel := context.WithTimeout(ctx, e.cfg.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation_timeout: %w", err)
	}

	// Short settle for the late-rendered panels.
	settleCtx, settleCancel := context.WithTimeout(ctx, e.cfg.SettleDelay)
	defer settleCancel()
	<-settleCtx.Done()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (e *Engine) onDetailPage(ctx context.Context) (bool, error) {
	doc, err := e.snapshot(ctx)
	if err != nil {
		return false, err
	}
	return IsDetailHTML(doc), nil
}

// openFirstResult tries the result-link selectors: direct navigation to the
// place URL when the href matches the detail-path pattern, otherwise a
// scroll-and-click on the entry.
func (e *Engine) openFirstResult(ctx context.Context) bool {
	doc, err := e.snapshot(ctx)
	if err != nil {
		return false
	}

	href, selector, ok := FirstResultHref(doc)
	if !ok {
		return false
	}

	if strings.Contains(href, "/maps/place/") {
		if resolved := e.resolveHref(ctx, href); resolved != "" {
			if err := e.navigate(ctx, resolved); err == nil {
				return true
			}
		}
	}

	clickCtx, cancel := context.WithTimeout(ctx, e.cfg.ClickTimeout)
	defer cancel()
	err = chromedp.Run(clickCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	return err == nil
}

func (e *Engine) resolveHref(ctx context.Context, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	var current string
	if err := chromedp.Run(ctx, chromedp.Location(&current)); err != nil {
		return ""
	}
	base, err := url.Parse(current)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// expandHours clicks the hours affordance when collapsed. Failure is fine;
// some profiles render the table expanded.
func (e *Engine) expandHours(ctx context.Context) {
	for _, sel := range hoursExpandSelectors {
		clickCtx, cancel := context.WithTimeout(ctx, e.cfg.ClickTimeout)
		err := chromedp.Run(clickCtx, chromedp.Click(sel, chromedp.ByQuery, chromedp.AtLeast(0)))
		cancel()
		if err == nil {
			return
		}
	}
}

// extractCoordinates applies the four ordered strategies: pinned !3d/!4d
// markers, the @lat,lng viewport, the script/meta scan, and finally the
// share-dialog URL.
func (e *Engine) extractCoordinates(ctx context.Context, doc *goquery.Document) (string, string, bool) {
	var current string
	if err := chromedp.Run(ctx, chromedp.Location(&current)); err == nil {
		if lat, lng, ok := ParseBangCoords(current); ok {
			return lat, lng, true
		}
		if lat, lng, ok := ParseCoordsFromURL(current); ok {
			return lat, lng, true
		}
	}

	if html, err := doc.Html(); err == nil {
		if lat, lng, ok := ScanHTMLForCoords(html); ok {
			return lat, lng, true
		}
	}

	if shareURL := e.readShareURL(ctx); shareURL != "" {
		if lat, lng, ok := ParseBangCoords(shareURL); ok {
			return lat, lng, true
		}
		if lat, lng, ok := ParseCoordsFromURL(shareURL); ok {
			return lat, lng, true
		}
	}

	return "", "", false
}

func (e *Engine) readShareURL(ctx context.Context) string {
	clickCtx, cancel := context.WithTimeout(ctx, e.cfg.ClickTimeout)
	defer cancel()

	for _, sel := range shareButtonSelectors {
		if err := chromedp.Run(clickCtx, chromedp.Click(sel, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
			return ""
		}
	}
	for _, sel := range shareURLSelectors {
		var value string
		if err := chromedp.Run(clickCtx, chromedp.Value(sel, &value, chromedp.ByQuery, chromedp.AtLeast(0))); err == nil && value != "" {
			return value
		}
	}
	return ""
}

func (e *Engine) snapshot(ctx context.Context) (*goquery.Document, error) {
	var html string
	snapCtx, cancel := context.WithTimeout(ctx, e.cfg.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(snapCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// classify applies the result rule: success needs name and address plus one
// of {phone, hours, rating}; a name alone with recoverable errors is
// partial; everything else is failed.
func classify(result *models.ScrapeResult, fieldErrors []string) {
	switch {
	case result.FullName != "" && result.FullAddress != "" &&
		(result.Phone != "" || result.HasHours() || result.Rating != ""):
		result.Status = models.ScrapeStatusSuccess
	case result.FullName != "":
		result.Status = models.ScrapeStatusPartial
		result.Error = extractionError(fieldErrors)
	default:
		result.Status = models.ScrapeStatusFailed
		result.Error = extractionError(fieldErrors)
	}
}

func extractionError(fieldErrors []string) string {
	if len(fieldErrors) == 0 {
		return ""
	}
	return "extraction incomplete: " + strings.Join(fieldErrors, ", ")
}
