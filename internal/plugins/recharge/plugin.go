package recharge

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"carebot/internal/plugins"
)

const defaultQuoteURL = "https://zenquotes.io/api/random"

const (
	quoteConnectTimeout = 4 * time.Second
	quoteTimeout        = 8 * time.Second
)

// Resource is one curated entry in the motivation library.
type Resource struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// Quote is one motivational quote, fetched upstream or served from the
// local fallback when the feed is unreachable.
type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
	Source string `json:"source"`
}

// Plugin backs the resources library: curated articles, videos, and
// audio picks, plus a quote feed. It adds nothing to the chat context;
// the library is served through its own endpoints.
type Plugin struct {
	client   *http.Client
	quoteURL string
	logger   zerolog.Logger
}

type Config struct {
	Client   *http.Client
	QuoteURL string
	Logger   zerolog.Logger
}

func New(cfg Config) *Plugin {
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: quoteTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: quoteConnectTimeout}).DialContext,
				TLSHandshakeTimeout: quoteConnectTimeout,
			},
		}
	}
	quoteURL := cfg.QuoteURL
	if quoteURL == "" {
		quoteURL = defaultQuoteURL
	}
	return &Plugin{client: client, quoteURL: quoteURL, logger: cfg.Logger}
}

var _ plugins.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string  { return "recharge" }
func (p *Plugin) Title() string { return "Motivation & Recharge" }
func (p *Plugin) Description() string {
	return "Curated motivation hub with uplifting articles, videos, audio picks, and a quote feed to help you recharge."
}

func (p *Plugin) Context(ctx context.Context, userID int64) (string, error) {
	return "", nil
}

func (p *Plugin) Articles() []Resource {
	return []Resource{
		{
			Title:   "How to Build Better Habits",
			Source:  "James Clear",
			URL:     "https://jamesclear.com/three-steps-habit-change",
			Summary: "Practical habit framework for small, sustainable progress.",
		},
		{
			Title:   "Resilience Guide",
			Source:  "Mind UK",
			URL:     "https://www.mind.org.uk/information-support/tips-for-everyday-living/wellbeing/wellbeing/",
			Summary: "Actionable tips for wellbeing, energy, and emotional resilience.",
		},
		{
			Title:   "Self-care for Stress",
			Source:  "CDC",
			URL:     "https://www.cdc.gov/howrightnow/taking-care/index.html",
			Summary: "Evidence-based stress management and self-care recommendations.",
		},
		{
			Title:   "Tiny Joy Practices",
			Source:  "Greater Good Science Center",
			URL:     "https://greatergood.berkeley.edu/topic/happiness/definition",
			Summary: "Science-backed ideas to add small moments of joy each day.",
		},
	}
}

func (p *Plugin) Videos() []Resource {
	return []Resource{
		{
			Title:   "How to Make Stress Your Friend",
			Source:  "TED",
			URL:     "https://www.ted.com/talks/kelly_mcgonigal_how_to_make_stress_your_friend",
			Summary: "Reframing stress can improve confidence and outcomes.",
		},
		{
			Title:   "The Happy Secret to Better Work",
			Source:  "TED",
			URL:     "https://www.ted.com/talks/shawn_achor_the_happy_secret_to_better_work",
			Summary: "Positive habits can unlock focus, creativity, and productivity.",
		},
		{
			Title:   "Guided Breathing for Calm",
			Source:  "YouTube",
			URL:     "https://www.youtube.com/watch?v=SEfs5TJZ6Nk",
			Summary: "Short breathing video for grounding and mental reset.",
		},
	}
}

func (p *Plugin) Audio() []Resource {
	return []Resource{
		{
			Title:   "Meditation Minis",
			Source:  "Podcast",
			URL:     "https://meditationminis.com/podcast/",
			Summary: "Short guided meditations for stress, sleep, and recharge.",
		},
		{
			Title:   "The Happiness Lab",
			Source:  "Podcast",
			URL:     "https://www.pushkin.fm/podcasts/the-happiness-lab-with-dr-laurie-santos",
			Summary: "Psychology-based episodes on happiness and healthy habits.",
		},
		{
			Title:   "Nature Soundscapes",
			Source:  "YouTube Music",
			URL:     "https://music.youtube.com/search?q=nature+sounds+relax",
			Summary: "Ambient audio for focus, rest, and decompression.",
		},
	}
}

// Quote fetches a random quote from the upstream feed. Any failure
// falls back to the local quote, so the endpoint never errors.
func (p *Plugin) Quote(ctx context.Context) Quote {
	fallback := Quote{
		Text:   "Small steps every day still move you forward.",
		Author: "Carebot",
		Source: "local",
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.quoteURL, nil)
	if err != nil {
		return fallback
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug().Err(err).Msg("quote feed unreachable")
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Debug().Int("status", resp.StatusCode).Msg("quote feed rejected request")
		return fallback
	}

	var data []struct {
		Q string `json:"q"`
		A string `json:"a"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&data); err != nil || len(data) == 0 {
		return fallback
	}

	q := Quote{Text: data[0].Q, Author: data[0].A, Source: "zenquotes"}
	if q.Text == "" {
		return fallback
	}
	if q.Author == "" {
		q.Author = "Unknown"
	}
	return q
}
