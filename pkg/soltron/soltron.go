// Package soltron contains the core domain types for the Soltron posting bot.
package soltron

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used by the daily counter and metric documents.
const DateLayout = "2006-01-02"

// Strategy names one content-generation recipe.
type Strategy string

const (
	StrategyHype      Strategy = "hype"
	StrategyPersona   Strategy = "persona"
	StrategyJoke      Strategy = "joke"
	StrategyCharacter Strategy = "character" // Text only, never posted
	StrategyMarket    Strategy = "market"
	StrategyCreator   Strategy = "creator"
)

// PostingStrategies lists the strategies that publish a post.
var PostingStrategies = []Strategy{StrategyHype, StrategyPersona, StrategyJoke, StrategyMarket, StrategyCreator}

// ParseStrategy maps a case-insensitive name onto a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	switch s {
	case StrategyHype, StrategyPersona, StrategyJoke, StrategyCharacter, StrategyMarket, StrategyCreator:
		return s, true
	default:
		return "", false
	}
}

// Draft is a composed post prior to publishing.
type Draft struct {
	Strategy     Strategy
	Text         string
	MediaQuery   string // Search term for the media resolver; empty skips media
	MediaCaption string // Appended to Text only when media is attached
}

// TextWithMedia returns the post text used when media is attached.
func (d Draft) TextWithMedia() string {
	if d.MediaCaption == "" {
		return d.Text
	}
	return d.Text + " " + d.MediaCaption
}

// PostCount is the persisted daily post counter.
type PostCount struct {
	Date   string `json:"date"`   // Calendar day, YYYY-MM-DD
	Tweets int    `json:"tweets"` // Attempts recorded on Date
}

// PostHandle identifies a published post.
type PostHandle struct {
	ID  string
	URL string
}

// PostRecord is the metric written to the document store after a publish.
type PostRecord struct {
	At            time.Time
	Strategy      Strategy
	Text          string
	PostID        string
	PostURL       string
	MediaURL      string
	MediaAttached bool
}

// MediaExample is one entry of the daily gifExamples array.
type MediaExample struct {
	URL      string `json:"url" firestore:"url"`
	TweetURL string `json:"tweetUrl" firestore:"tweetUrl"`
}

// TextExample is one entry of the jokes and creatorMemes arrays.
type TextExample struct {
	Text     string `json:"text" firestore:"text"`
	TweetURL string `json:"tweetUrl" firestore:"tweetUrl"`
}

// BotMetrics is the nested per-day bot counters.
type BotMetrics struct {
	Tweets       int            `json:"tweets" firestore:"tweets"`
	Followers    int            `json:"followers" firestore:"followers"`
	Jokes        []TextExample  `json:"jokes" firestore:"jokes"`
	CreatorMemes []TextExample  `json:"creatorMemes" firestore:"creatorMemes"`
	GIFsPosted   int            `json:"gifsPosted" firestore:"gifsPosted"`
	GIFExamples  []MediaExample `json:"gifExamples" firestore:"gifExamples"`
}

// DailyMetric is one day of metrics in the document store.
type DailyMetric struct {
	Timestamp  time.Time  `json:"timestamp" firestore:"timestamp"`
	Price      float64    `json:"price" firestore:"price"`
	Volume     float64    `json:"volume" firestore:"volume"`
	Burns      float64    `json:"burns" firestore:"burns"`
	Airdrops   float64    `json:"airdrops" firestore:"airdrops"`
	XFollowers int        `json:"xFollowers" firestore:"xFollowers"`
	BotMetrics BotMetrics `json:"botMetrics" firestore:"botMetrics"`
}

// Error kinds. Call sites wrap these with fmt.Errorf("%w: ...: %w", kind, cause).
var (
	ErrPersistenceRead  = errors.New("persistence read")
	ErrPersistenceWrite = errors.New("persistence write")
	ErrMediaFetch       = errors.New("media fetch")
	ErrMediaUpload      = errors.New("media upload")
	ErrPublish          = errors.New("publish")
)

// ErrNotFound indicates a persisted object does not exist yet.
var ErrNotFound = errors.New("storage: object doesn't exist")
