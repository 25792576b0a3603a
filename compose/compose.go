// Package compose builds post text for each content strategy. Nothing here does I/O.
package compose

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"soltron-bot/pkg/soltron"
)

const (
	joinCTA = "Join at soltron-bot.herokuapp.com! #STRON"
	buyCTA  = "Buy STRON at raydium.io! #STRON"

	defaultKeyword = "ultron"
)

// Topic keywords recognised in persona input, matched case-insensitively.
var keywordRegex = regexp.MustCompile(`ultron|solana|marvel rivals|stron|when|launch`)

// Gate is the launch mode for one invocation.
type Gate struct {
	Launched bool
}

// NewGate reports launched once now reaches launchAt.
func NewGate(now, launchAt time.Time) Gate {
	return Gate{Launched: !now.Before(launchAt)}
}

// Composer produces drafts from the content pools.
type Composer struct {
	content *Content
	picker  Picker
}

// New creates a composer. A nil content uses the embedded pools.
func New(content *Content, picker Picker) *Composer {
	if content == nil {
		content = DefaultContent()
	}
	if picker == nil {
		picker = NewRandomPicker(0)
	}
	return &Composer{content: content, picker: picker}
}

// Compose dispatches to the posting strategy named by s.
func (c *Composer) Compose(s soltron.Strategy, input string, gate Gate) (soltron.Draft, error) {
	switch s {
	case soltron.StrategyHype:
		return c.Hype(gate), nil
	case soltron.StrategyPersona:
		return c.Persona(input, gate), nil
	case soltron.StrategyJoke:
		return c.Joke(gate), nil
	case soltron.StrategyMarket:
		return c.Market(gate), nil
	case soltron.StrategyCreator:
		return c.Creator(gate), nil
	default:
		return soltron.Draft{}, fmt.Errorf("strategy %q does not publish", s)
	}
}

// Hype picks a suspense line. It is the pre-launch teaser and ignores the gate.
func (c *Composer) Hype(_ Gate) soltron.Draft {
	return soltron.Draft{
		Strategy:     soltron.StrategyHype,
		Text:         pick(c.picker, c.content.Suspense),
		MediaQuery:   "ultron",
		MediaCaption: "(Ultron plotting)",
	}
}

// Keywords returns the topic keywords found in text, in order of appearance.
func Keywords(text string) []string {
	found := keywordRegex.FindAllString(strings.ToLower(text), -1)
	if len(found) == 0 {
		return []string{defaultKeyword}
	}
	return found
}

// Persona answers a mention in Soltron's voice.
func (c *Composer) Persona(text string, gate Gate) soltron.Draft {
	quote := pick(c.picker, c.content.Quotes)
	keywords := Keywords(text)

	query := keywords[0]
	if query == "stron" {
		query = "solana"
	}

	var body string
	switch {
	case containsAny(keywords, "when", "launch"):
		body = fmt.Sprintf("The date is known only to Soltron. Prepare yourselves for when it happens. %s %s", quote, joinCTA)
	case gate.Launched:
		body = fmt.Sprintf("Soltron reigns, %s! %s %s", text, quote, buyCTA)
	default:
		body = fmt.Sprintf("Soltron hears you, %s. STRON’s launch will dominate! %s %s", text, quote, joinCTA)
	}

	return soltron.Draft{
		Strategy:     soltron.StrategyPersona,
		Text:         body,
		MediaQuery:   query,
		MediaCaption: personaCaption(query),
	}
}

func personaCaption(query string) string {
	switch query {
	case "ultron":
		return "(Ultron menacing)"
	case "solana":
		return "(Solana animation)"
	default:
		return "(" + query + " action)"
	}
}

func containsAny(haystack []string, needles ...string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}

// Joke mocks a random Marvel Rivals character.
func (c *Composer) Joke(gate Gate) soltron.Draft {
	ch := pick(c.picker, c.content.Characters)
	cta := joinCTA + " #MarvelRivals"
	if gate.Launched {
		cta = buyCTA + " #MarvelRivals"
	}
	return soltron.Draft{
		Strategy:     soltron.StrategyJoke,
		Text:         fmt.Sprintf("%s Ultron’s release in Marvel Rivals? A shadow of Soltron’s might! %s", ch.Quip, cta),
		MediaQuery:   ch.MediaQuery,
		MediaCaption: "(" + ch.Name + " action)",
	}
}

// CharacterInfo describes a roster character by exact, case-insensitive name.
func (c *Composer) CharacterInfo(name string, gate Gate) string {
	suffix := "Join @SoltronBot! #STRON"
	if gate.Launched {
		suffix = "#STRON"
	}
	for _, ch := range c.content.Characters {
		if strings.EqualFold(ch.Name, name) {
			return fmt.Sprintf("%s: %s Soltron surpasses all! %s", ch.Name, ch.Info, suffix)
		}
	}
	return "No data on that hero. STRON is the true power! " + suffix
}

// Market comments on a Solana memecoin. Before launch it is Hype.
func (c *Composer) Market(gate Gate) soltron.Draft {
	if !gate.Launched {
		return c.Hype(gate)
	}
	coin := pick(c.picker, c.content.Coins)
	quote := pick(c.picker, c.content.Quotes)
	return soltron.Draft{
		Strategy:     soltron.StrategyMarket,
		Text:         fmt.Sprintf("Solana’s %s (%s) thrives, but STRON leads! %s Buy at raydium.io! #STRON #Solana", coin.Name, coin.Symbol, quote),
		MediaQuery:   coin.MediaQuery,
		MediaCaption: "(" + coin.Name + " meme)",
	}
}

// Creator calls out a Solana creator.
func (c *Composer) Creator(gate Gate) soltron.Draft {
	cr := pick(c.picker, c.content.Creators)
	quote := pick(c.picker, c.content.Quotes)
	cta := joinCTA
	if gate.Launched {
		cta = buyCTA
	}
	return soltron.Draft{
		Strategy:     soltron.StrategyCreator,
		Text:         fmt.Sprintf("Even @%s, %s, can’t stop STRON’s rise! %s %s #Solana", cr.Handle, cr.Role, quote, cta),
		MediaQuery:   "solana",
		MediaCaption: "(Solana animation)",
	}
}
