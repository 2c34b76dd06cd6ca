package feed

// Feed processing types

type Metadata struct {
	Title    string
	Link     string
	Language string
}

// Entry is one item of a parsed feed. Missing fields are empty strings.
type Entry struct {
	Title     string
	Content   string
	Link      string
	Published string // as written in the feed, never reparsed
}

type Keyword struct {
	ID   int64
	Word string
}

// Seed file types

type Seed struct {
	Sources  []SeedSource  `yaml:"sources"`
	Keywords []SeedKeyword `yaml:"keywords"`
}

type SeedSource struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Active *bool  `yaml:"active"`
}

type SeedKeyword struct {
	Word   string `yaml:"word"`
	Active *bool  `yaml:"active"`
}
