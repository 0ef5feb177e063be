package signatures

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/finding"
)

//go:embed data/*.xml
var builtin embed.FS

var builtinFiles = map[string]string{
	defaults.KindSQL:  "data/errors.xml",
	defaults.KindCMDI: "data/cmdi.xml",
}

// Default loads the embedded definitions for a scan kind.
func Default(kind string) (*Store, error) {
	name, ok := builtinFiles[kind]
	if !ok {
		return nil, finding.NewDefinitionLoadError("builtin:"+kind, fmt.Errorf("no built-in signatures for scan kind %q", kind))
	}
	data, err := builtin.ReadFile(name)
	if err != nil {
		return nil, finding.NewDefinitionLoadError("builtin:"+name, err)
	}
	store, err := decode(bytes.NewReader(data), FormatXML)
	if err != nil {
		return nil, finding.NewDefinitionLoadError("builtin:"+name, err)
	}
	return store, nil
}
