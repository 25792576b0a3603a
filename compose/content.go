package compose

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

// Character is a Marvel Rivals roster entry.
type Character struct {
	Name       string `yaml:"name"`
	Quip       string `yaml:"quip"`
	Info       string `yaml:"info"`
	MediaQuery string `yaml:"media_query"`
}

// Coin is a Solana memecoin roster entry.
type Coin struct {
	Name       string `yaml:"name"`
	Symbol     string `yaml:"symbol"`
	Desc       string `yaml:"desc"`
	MediaQuery string `yaml:"media_query"`
}

// Creator is a Solana creator roster entry.
type Creator struct {
	Handle string `yaml:"handle"`
	Name   string `yaml:"name"`
	Role   string `yaml:"role"`
}

// Content holds the fixed pools the composer draws from.
type Content struct {
	Suspense   []string    `yaml:"suspense"`
	Quotes     []string    `yaml:"quotes"`
	Characters []Character `yaml:"characters"`
	Coins      []Coin      `yaml:"coins"`
	Creators   []Creator   `yaml:"creators"`
}

// LoadContent parses and validates a YAML content document.
func LoadContent(r io.Reader) (*Content, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadContentFile loads content from path, or the embedded pools when path is empty.
func LoadContentFile(path string) (*Content, error) {
	if path == "" {
		return DefaultContent(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return LoadContent(f)
}

// DefaultContent returns the embedded content pools.
func DefaultContent() *Content {
	var c Content
	if err := yaml.Unmarshal(defaultContent, &c); err != nil {
		panic(fmt.Sprintf("compose: embedded content: %v", err))
	}
	if err := c.validate(); err != nil {
		panic(fmt.Sprintf("compose: embedded content: %v", err))
	}
	return &c
}

func (c *Content) validate() error {
	switch {
	case len(c.Suspense) == 0:
		return errors.New("content: suspense pool is empty")
	case len(c.Quotes) == 0:
		return errors.New("content: quotes pool is empty")
	case len(c.Characters) == 0:
		return errors.New("content: characters roster is empty")
	case len(c.Coins) == 0:
		return errors.New("content: coins roster is empty")
	case len(c.Creators) == 0:
		return errors.New("content: creators roster is empty")
	}
	for _, ch := range c.Characters {
		if ch.Name == "" {
			return errors.New("content: character without name")
		}
	}
	return nil
}
