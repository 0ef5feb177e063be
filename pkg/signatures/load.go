package signatures

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/waymap/waymap/pkg/finding"
	"gopkg.in/yaml.v3"
)

// Format identifies a definition document syntax.
type Format string

const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown signature format for %q (want .xml, .yaml or .yml)", path)
	}
}

// LoadFile reads a definition document from disk.
func LoadFile(path string) (*Store, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, finding.NewDefinitionLoadError(path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, finding.NewDefinitionLoadError(path, err)
	}
	defer f.Close()

	store, err := decode(f, format)
	if err != nil {
		return nil, finding.NewDefinitionLoadError(path, err)
	}
	return store, nil
}

// Load reads a definition document from r.
func Load(r io.Reader, format Format) (*Store, error) {
	store, err := decode(r, format)
	if err != nil {
		return nil, finding.NewDefinitionLoadError(string(format)+" signatures", err)
	}
	return store, nil
}

func decode(r io.Reader, format Format) (*Store, error) {
	var (
		store *Store
		err   error
	)
	switch format {
	case FormatXML:
		store, err = decodeXML(r)
	case FormatYAML:
		store, err = decodeYAML(r)
	default:
		return nil, fmt.Errorf("unsupported signature format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(store.groups) == 0 {
		return nil, errors.New("no signature groups defined")
	}
	return store, nil
}

// decodeXML walks the token stream so group order is exactly document
// order. Any element directly under the root carrying a value (or name)
// attribute opens a group; its error (or pattern) children carry the
// expression in a regexp attribute.
//
//	<root>
//	    <dbms value="MySQL">
//	        <error regexp="SQL syntax.*MySQL"/>
//	    </dbms>
//	</root>
func decodeXML(r io.Reader) (*Store, error) {
	store := New()
	dec := xml.NewDecoder(r)

	depth := 0
	backend := ""
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				backend = attr(el, "value", "name")
				if backend == "" {
					return nil, fmt.Errorf("parse xml: <%s> without value attribute", el.Name.Local)
				}
			case 3:
				pattern := attr(el, "regexp", "pattern")
				if pattern == "" {
					return nil, fmt.Errorf("parse xml: backend %q: <%s> without regexp attribute", backend, el.Name.Local)
				}
				if err := store.Add(backend, pattern); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if depth == 2 {
				backend = ""
			}
			depth--
		}
	}

	if depth != 0 {
		return nil, errors.New("parse xml: unbalanced document")
	}
	return store, nil
}

func attr(el xml.StartElement, names ...string) string {
	for _, name := range names {
		for _, a := range el.Attr {
			if a.Name.Local == name {
				return strings.TrimSpace(a.Value)
			}
		}
	}
	return ""
}

// decodeYAML reads a mapping of backend name to a pattern or list of
// patterns. Mapping key order is the load order.
//
//	MySQL:
//	  - 'SQL syntax.*MySQL'
//	  - 'Warning.*mysql_'
//	Oracle: '\bORA-\d{5}'
func decodeYAML(r io.Reader) (*Store, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, errors.New("parse yaml: empty document")
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse yaml: line %d: expected a mapping of backend to patterns", root.Line)
	}

	store := New()
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		backend := strings.TrimSpace(key.Value)

		var patterns []string
		switch val.Kind {
		case yaml.ScalarNode:
			patterns = []string{val.Value}
		case yaml.SequenceNode:
			for _, item := range val.Content {
				if item.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("parse yaml: line %d: backend %q: pattern must be a string", item.Line, backend)
				}
				patterns = append(patterns, item.Value)
			}
		default:
			return nil, fmt.Errorf("parse yaml: line %d: backend %q: expected a pattern or list of patterns", val.Line, backend)
		}

		if len(patterns) == 0 {
			return nil, fmt.Errorf("parse yaml: backend %q has no patterns", backend)
		}
		for _, p := range patterns {
			if err := store.Add(backend, p); err != nil {
				return nil, err
			}
		}
	}
	return store, nil
}
