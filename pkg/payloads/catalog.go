// Package payloads provides injection payload catalogs and the sampler that
// draws a bounded random subset of them for each target URL.
package payloads

import (
	"embed"
	"fmt"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/finding"
	"github.com/waymap/waymap/pkg/wordlist"
)

//go:embed data/*.txt
var builtin embed.FS

var builtinFiles = map[string]string{
	defaults.KindSQL:  "data/sqli.txt",
	defaults.KindCMDI: "data/cmdi.txt",
}

// catalogOptions keeps '#' lines since they are valid SQL comment payloads.
var catalogOptions = wordlist.Options{}

// LoadCatalog loads a newline-delimited payload catalog in full.
// Sampling happens at scan time, not here.
func LoadCatalog(path string) ([]string, error) {
	wl, err := wordlist.LoadFile(path, catalogOptions)
	if err != nil {
		return nil, err
	}
	return wl.Words, nil
}

// DefaultCatalog returns the embedded catalog for a scan kind.
func DefaultCatalog(kind string) ([]string, error) {
	name, ok := builtinFiles[kind]
	if !ok {
		return nil, finding.NewDefinitionLoadError("builtin:"+kind, fmt.Errorf("no built-in payloads for scan kind %q", kind))
	}
	data, err := builtin.ReadFile(name)
	if err != nil {
		return nil, finding.NewDefinitionLoadError("builtin:"+name, err)
	}
	return wordlist.Parse(string(data), catalogOptions), nil
}
