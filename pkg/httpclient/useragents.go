package httpclient

import (
	_ "embed"

	"github.com/waymap/waymap/pkg/wordlist"
)

//go:embed data/ua.txt
var builtinUserAgents string

// DefaultUserAgents returns the embedded browser user-agent list used when
// no -user-agents file is given.
func DefaultUserAgents() []string {
	return wordlist.Parse(builtinUserAgents, wordlist.Options{SkipComments: true})
}

// LoadUserAgents reads a newline-delimited user-agent list.
func LoadUserAgents(path string) ([]string, error) {
	wl, err := wordlist.LoadFile(path, wordlist.Options{SkipComments: true})
	if err != nil {
		return nil, err
	}
	return wl.Words, nil
}
