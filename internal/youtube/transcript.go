package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"ytrag/internal/domain"
)

const (
	defaultBaseURL   = "https://www.youtube.com"
	browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	maxWatchPageBytes = 6 * 1024 * 1024
	maxPlayerBytes    = 3 * 1024 * 1024
	maxTimedTextBytes = 2 * 1024 * 1024
)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// Client fetches caption segments from YouTube. It implements domain.TranscriptSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL points the client at a different YouTube host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a caption client with a 30 second request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch returns the caption segments of the best track for languages, tried in order.
// Manually created tracks win over auto-generated ones within a language, and
// tracks that need a proof-of-origin token are skipped. When the watch page
// fails or offers only such tracks, the innertube player is asked instead.
// Failures are never retried.
func (c *Client) Fetch(ctx context.Context, videoID string, languages []string) ([]domain.Segment, error) {
	if len(languages) == 0 {
		languages = []string{"en"}
	}

	var track captionTrack
	player, err := c.playerFromWatchPage(ctx, videoID)
	if err == nil {
		track, err = resolveTrack(player, videoID, languages)
	}
	if err != nil && ctx.Err() == nil && (player == nil || errors.Is(err, errPoTokenOnly)) {
		c.logger.Warn("youtube: no usable track on watch page, trying innertube",
			slog.String("video_id", videoID), slog.Any("err", err))
		track, err = c.innertubeTrack(ctx, videoID, languages, err)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrFetch) && !errors.Is(err, domain.ErrCaptionsDisabled) &&
			!errors.Is(err, domain.ErrNoTranscriptInLanguage) {
			err = fmt.Errorf("%w: %w", domain.ErrFetch, err)
		}
		return nil, err
	}

	segments, err := c.timedText(ctx, track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	c.logger.Debug("youtube: captions fetched",
		slog.String("video_id", videoID),
		slog.String("language", track.LanguageCode),
		slog.Bool("generated", track.generated()),
		slog.Int("segments", len(segments)))
	return segments, nil
}

func (c *Client) innertubeTrack(ctx context.Context, videoID string, languages []string, pageErr error) (captionTrack, error) {
	player, err := c.playerFromInnertube(ctx, videoID)
	if err != nil {
		return captionTrack{}, fmt.Errorf("%w: %w (after watch page: %v)", domain.ErrFetch, err, pageErr)
	}
	return resolveTrack(player, videoID, languages)
}

// resolveTrack picks the track to download from a player response.
func resolveTrack(player *playerResponse, videoID string, languages []string) (captionTrack, error) {
	tracks, err := captionTracks(player, videoID)
	if err != nil {
		return captionTrack{}, err
	}
	if track, ok := pickTrack(tracks, languages); ok {
		return track, nil
	}
	if hasGatedTrack(tracks, languages) {
		return captionTrack{}, fmt.Errorf("%w: video %s, languages %s", errPoTokenOnly, videoID, strings.Join(languages, ","))
	}
	return captionTrack{}, fmt.Errorf("%w: video %s has %s, wanted %s", domain.ErrNoTranscriptInLanguage,
		videoID, strings.Join(trackLanguages(tracks), ","), strings.Join(languages, ","))
}

// playerFromWatchPage scrapes ytInitialPlayerResponse out of the watch page HTML.
func (c *Client) playerFromWatchPage(ctx context.Context, videoID string) (*playerResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/watch?v="+videoID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.New("watch page: too many requests, YouTube is blocking this IP")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch page: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWatchPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}
	idx := bytes.Index(body, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errNoPlayerResponse
	}
	data := extractJSON(body[idx+len(playerResponseMarker):])
	if data == nil {
		return nil, errors.New("malformed ytInitialPlayerResponse")
	}

	var player playerResponse
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &player, nil
}

func captionTracks(player *playerResponse, videoID string) ([]captionTrack, error) {
	if player.Captions == nil {
		if ps := player.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
			reason := ps.Reason
			if reason == "" {
				reason = ps.Status
			}
			return nil, fmt.Errorf("%w: video %s is unplayable: %s", domain.ErrFetch, videoID, reason)
		}
		return nil, fmt.Errorf("%w: video %s", domain.ErrCaptionsDisabled, videoID)
	}
	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: video %s has no caption tracks", domain.ErrCaptionsDisabled, videoID)
	}
	return tracks, nil
}

// pickTrack walks languages in priority order, preferring a manual track to an
// auto-generated one for the same language code. Tracks needing a PoToken are
// never picked.
func pickTrack(tracks []captionTrack, languages []string) (captionTrack, bool) {
	for _, lang := range languages {
		var generated *captionTrack
		for i, t := range tracks {
			if t.LanguageCode != lang || needsPoToken(t.BaseURL) {
				continue
			}
			if !t.generated() {
				return t, true
			}
			if generated == nil {
				generated = &tracks[i]
			}
		}
		if generated != nil {
			return *generated, true
		}
	}
	return captionTrack{}, false
}

func trackLanguages(tracks []captionTrack) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		code := t.LanguageCode
		if t.generated() {
			code += "(auto)"
		}
		out = append(out, code)
	}
	return out
}

func hasGatedTrack(tracks []captionTrack, languages []string) bool {
	for _, t := range tracks {
		if needsPoToken(t.BaseURL) && slices.Contains(languages, t.LanguageCode) {
			return true
		}
	}
	return false
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

type timedTextDoc struct {
	Lines      []timedTextLine `xml:"text"`
	Paragraphs []srv3Paragraph `xml:"body>p"`
}

type timedTextLine struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Text     string  `xml:",chardata"`
}

// srv3Paragraph is the format-3 variant with millisecond timings.
type srv3Paragraph struct {
	T     int    `xml:"t,attr"`
	D     int    `xml:"d,attr"`
	Text  string `xml:",chardata"`
	Spans []struct {
		Text string `xml:",chardata"`
	} `xml:"s"`
}

func (c *Client) timedText(ctx context.Context, trackURL string) ([]domain.Segment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch timedtext: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTimedTextBytes))
	if err != nil {
		return nil, err
	}
	var doc timedTextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	segments := make([]domain.Segment, 0, len(doc.Lines)+len(doc.Paragraphs))
	for _, line := range doc.Lines {
		if text := cleanCaption(line.Text); text != "" {
			segments = append(segments, domain.Segment{Text: text, Start: line.Start, Duration: line.Duration})
		}
	}
	for _, p := range doc.Paragraphs {
		raw := p.Text
		for _, s := range p.Spans {
			raw += s.Text
		}
		if text := cleanCaption(raw); text != "" {
			segments = append(segments, domain.Segment{
				Text:     text,
				Start:    float64(p.T) / 1000,
				Duration: float64(p.D) / 1000,
			})
		}
	}
	return segments, nil
}

// cleanCaption unescapes entities, drops markup and collapses whitespace.
func cleanCaption(s string) string {
	s = html.UnescapeString(s)
	s = htmlTagRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
