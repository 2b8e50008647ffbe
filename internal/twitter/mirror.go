package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

const (
	MirrorAName = "fxtwitter"
	MirrorBName = "vxtwitter"

	maxMirrorBody = 2 << 20
)

var errNotObject = errors.New("payload is not a JSON object")

// Mirror A schema.
type fxResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Tweet   *fxTweet `json:"tweet"`
}

type fxAuthor struct {
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
}

type fxQuote struct {
	Text   string   `json:"text"`
	Author fxAuthor `json:"author"`

	// present is set when the quote object carries at least one key.
	present bool
}

func (q *fxQuote) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	type plain fxQuote
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = fxQuote(p)
	q.present = len(fields) > 0
	return nil
}

type fxMedia struct {
	Photos []json.RawMessage `json:"photos"`
	Videos []json.RawMessage `json:"videos"`
}

type fxTweet struct {
	Text      string   `json:"text"`
	Author    fxAuthor `json:"author"`
	Quote     *fxQuote `json:"quote"`
	Media     *fxMedia `json:"media"`
	Likes     int      `json:"likes"`
	Retweets  int      `json:"retweets"`
	CreatedAt string   `json:"created_at"`
}

func (t *fxTweet) record() models.TweetRecord {
	rec := models.TweetRecord{
		AuthorName:   t.Author.Name,
		AuthorHandle: t.Author.ScreenName,
		Text:         t.Text,
		Likes:        t.Likes,
		Retweets:     t.Retweets,
		CreatedAt:    t.CreatedAt,
		SourceMirror: MirrorAName,
	}
	if t.Quote != nil {
		rec.Quoted = t.Quote.present
		rec.QuotedText = t.Quote.Text
		rec.QuotedAuthor = t.Quote.Author.Name
		rec.QuotedHandle = t.Quote.Author.ScreenName
	}
	if t.Media != nil {
		rec.MediaCount = len(t.Media.Photos)
		rec.HasVideo = len(t.Media.Videos) > 0
	}
	return rec
}

// Mirror B schema.
type vxResponse struct {
	Text           string            `json:"text"`
	UserName       string            `json:"user_name"`
	UserScreenName string            `json:"user_screen_name"`
	MediaURLs      []string          `json:"mediaURLs"`
	MediaExtended  []json.RawMessage `json:"media_extended"`
	Likes          int               `json:"likes"`
	Retweets       int               `json:"retweets"`
	Date           string            `json:"date"`
}

func (v *vxResponse) record() models.TweetRecord {
	return models.TweetRecord{
		AuthorName:   v.UserName,
		AuthorHandle: v.UserScreenName,
		Text:         v.Text,
		MediaCount:   max(len(v.MediaURLs), len(v.MediaExtended)),
		Likes:        v.Likes,
		Retweets:     v.Retweets,
		CreatedAt:    v.Date,
		SourceMirror: MirrorBName,
	}
}

// mirrorURL swaps the host of a tweet URL for a mirror host, keeping the path.
func mirrorURL(rawURL, host string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.Scheme = "https"
	u.Host = host
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// getJSON fetches target and decodes it into dst. The returned outcome is
// OutcomeAbsent for transport problems and OutcomeMalformed for decode problems.
func (e *Extractor) getJSON(ctx context.Context, tier, target string, dst interface{}) (Outcome, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		e.logger.Warn("Failed to build mirror request", zap.String("tier", tier), zap.Error(err))
		return OutcomeAbsent, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Warn("Mirror request failed", zap.String("tier", tier), zap.Error(err))
		return OutcomeAbsent, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Info("Mirror returned non-2xx",
			zap.String("tier", tier),
			zap.Int("status", resp.StatusCode))
		return OutcomeAbsent, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMirrorBody))
	if err != nil {
		e.logger.Warn("Failed to read mirror body", zap.String("tier", tier), zap.Error(err))
		return OutcomeAbsent, false
	}

	if err := decodeObject(body, dst); err != nil {
		e.logger.Warn("Mirror payload malformed", zap.String("tier", tier), zap.Error(err))
		return OutcomeMalformed, false
	}
	return OutcomeValid, true
}

func decodeObject(body []byte, dst interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	return json.Unmarshal(trimmed, dst)
}

// mirrorA accepts any tweet with text, a quote object or media.
func (e *Extractor) mirrorA(ctx context.Context, rawURL string) tierResult {
	target, err := mirrorURL(rawURL, e.mirrorAHost)
	if err != nil {
		return absent()
	}

	var payload fxResponse
	outcome, ok := e.getJSON(ctx, MirrorAName, target, &payload)
	if !ok {
		return tierResult{outcome: outcome}
	}
	if payload.Tweet == nil {
		return malformed()
	}

	rec := payload.Tweet.record()
	if primaryContent(rec) == "" {
		return absent()
	}
	return tierResult{outcome: OutcomeValid, result: Normalize(rec)}
}

// mirrorB needs media or more than MinTextLength characters; anything less
// is returned as thin so the caller can keep it as a last resort.
func (e *Extractor) mirrorB(ctx context.Context, rawURL string) tierResult {
	target, err := mirrorURL(rawURL, e.mirrorBHost)
	if err != nil {
		return absent()
	}

	var payload vxResponse
	outcome, ok := e.getJSON(ctx, MirrorBName, target, &payload)
	if !ok {
		return tierResult{outcome: outcome}
	}

	rec := payload.record()
	res := tierResult{outcome: OutcomeThin, result: Normalize(rec)}
	if rec.MediaCount > 0 || utf8.RuneCountInString(rec.Text) > e.policy.MinTextLength {
		res.outcome = OutcomeValid
	}
	return res
}
