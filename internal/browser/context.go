package browser

import (
	"context"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// JobProfile describes the per-job context setup. The interface language is
// pinned to en-US for stable extraction; only the timezone and UA follow the
// detected locale.
type JobProfile struct {
	UserAgent string
	Timezone  string
}

// Static resource patterns blocked inside job contexts. Profile scraping
// needs DOM text and attributes only; images, fonts, stylesheets and media
// are dead weight.
var blockedURLPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.css",
	"*.mp4", "*.webm", "*.avi", "*.mp3",
}

// NewJobContext opens a fresh isolated tab context on a pooled browser and
// applies the job profile: en-US locale headers, UA/timezone overrides, and
// network-level blocking of static resources. The returned cancel func must
// run on every exit path.
func NewJobContext(inst *Instance, profile JobProfile) (context.Context, context.CancelFunc, error) {
	tabCtx, cancel := chromedp.NewContext(inst.Context())

	tasks := chromedp.Tasks{
		network.Enable(),
		network.SetBlockedURLs(blockedURLPatterns),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
		}),
	}
	if profile.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(profile.UserAgent).
			WithAcceptLanguage("en-US,en;q=0.9"))
	}
	if profile.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(profile.Timezone))
	}

	if err := chromedp.Run(tabCtx, tasks); err != nil {
		cancel()
		return nil, nil, err
	}

	return tabCtx, cancel, nil
}
