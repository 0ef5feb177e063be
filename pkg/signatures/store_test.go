package signatures

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/finding"
)

const overlapXML = `<?xml version="1.0"?>
<root>
    <dbms value="MySQL">
        <error regexp="syntax error"/>
        <error regexp="mysql_fetch"/>
    </dbms>
    <dbms value="PostgreSQL">
        <error regexp="syntax error at or near"/>
    </dbms>
</root>`

func TestLoadXML_OrderAndMatch(t *testing.T) {
	store, err := Load(strings.NewReader(overlapXML), FormatXML)
	require.NoError(t, err)

	assert.Equal(t, []string{"MySQL", "PostgreSQL"}, store.Backends())
	assert.Equal(t, 3, store.Len())
	assert.Len(t, store.Rules("MySQL"), 2)
	assert.Nil(t, store.Rules("Oracle"))

	// Both groups match; the first-loaded group wins.
	backend, ok := store.Match(`ERROR: syntax error at or near "'"`)
	require.True(t, ok)
	assert.Equal(t, "MySQL", backend)
}

func TestMatch_FirstLoadedGroupWinsEitherWay(t *testing.T) {
	doc := `<root>
    <dbms value="PostgreSQL"><error regexp="syntax error at or near"/></dbms>
    <dbms value="MySQL"><error regexp="syntax error"/></dbms>
</root>`
	store, err := Load(strings.NewReader(doc), FormatXML)
	require.NoError(t, err)

	backend, ok := store.Match(`syntax error at or near "x"`)
	require.True(t, ok)
	assert.Equal(t, "PostgreSQL", backend)
}

func TestMatch_Deterministic(t *testing.T) {
	store, err := Default(defaults.KindSQL)
	require.NoError(t, err)

	body := "Warning: mysql_fetch_array() expects parameter 1; ORA-01756: quoted string not properly terminated"
	first, ok := store.Match(body)
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		got, _ := store.Match(body)
		assert.Equal(t, first, got)
	}
	assert.Equal(t, "MySQL", first)
}

func TestMatch_CaseInsensitive(t *testing.T) {
	store, err := Load(strings.NewReader(overlapXML), FormatXML)
	require.NoError(t, err)

	backend, ok := store.Match("SYNTAX ERROR")
	assert.True(t, ok)
	assert.Equal(t, "MySQL", backend)
}

func TestMatch_NoMatch(t *testing.T) {
	store, err := Load(strings.NewReader(overlapXML), FormatXML)
	require.NoError(t, err)

	backend, ok := store.Match("<html>welcome</html>")
	assert.False(t, ok)
	assert.Empty(t, backend)
}

func TestLoadYAML_KeyOrder(t *testing.T) {
	doc := `
Oracle: '\bORA-\d{5}'
MySQL:
  - 'SQL syntax.*MySQL'
  - 'Warning.*mysql_'
SQLite:
  - 'SQLite error \d+:'
`
	store, err := Load(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, []string{"Oracle", "MySQL", "SQLite"}, store.Backends())
	assert.Equal(t, 4, store.Len())

	backend, ok := store.Match("ORA-00933: SQL command not properly ended")
	require.True(t, ok)
	assert.Equal(t, "Oracle", backend)
}

func TestAdd_MergesRepeatedBackend(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("MySQL", "a"))
	require.NoError(t, s.Add("Oracle", "b"))
	require.NoError(t, s.Add("MySQL", "c"))

	assert.Equal(t, []string{"MySQL", "Oracle"}, s.Backends())
	assert.Len(t, s.Rules("MySQL"), 2)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		format Format
	}{
		{"truncated xml", `<root><dbms value="MySQL"><error regexp="x"/>`, FormatXML},
		{"group without name", `<root><dbms><error regexp="x"/></dbms></root>`, FormatXML},
		{"rule without regexp", `<root><dbms value="MySQL"><error/></dbms></root>`, FormatXML},
		{"invalid regexp", `<root><dbms value="MySQL"><error regexp="(unclosed"/></dbms></root>`, FormatXML},
		{"no groups", `<root></root>`, FormatXML},
		{"yaml sequence root", "- a\n- b\n", FormatYAML},
		{"yaml nested map", "MySQL:\n  x: y\n", FormatYAML},
		{"yaml empty list", "MySQL: []\n", FormatYAML},
		{"yaml empty", "", FormatYAML},
		{"unknown format", "x", Format("json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc), tt.format)
			require.Error(t, err)
			assert.True(t, errors.Is(err, finding.ErrDefinitionLoad), "got %v", err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	xmlPath := filepath.Join(dir, "errors.xml")
	require.NoError(t, os.WriteFile(xmlPath, []byte(overlapXML), 0o644))
	store, err := LoadFile(xmlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"MySQL", "PostgreSQL"}, store.Backends())

	yamlPath := filepath.Join(dir, "errors.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("MySQL: x\n"), 0o644))
	store, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"MySQL"}, store.Backends())

	_, err = LoadFile(filepath.Join(dir, "errors.json"))
	assert.True(t, errors.Is(err, finding.ErrDefinitionLoad))

	_, err = LoadFile(filepath.Join(dir, "missing.xml"))
	var dle *finding.DefinitionLoadError
	require.True(t, errors.As(err, &dle))
	assert.Equal(t, filepath.Join(dir, "missing.xml"), dle.Source)
}

func TestDefault(t *testing.T) {
	sql, err := Default(defaults.KindSQL)
	require.NoError(t, err)
	assert.Equal(t, "MySQL", sql.Backends()[0])

	backend, ok := sql.Match("You have an error in your SQL syntax; check the manual that corresponds to your MySQL server version")
	require.True(t, ok)
	assert.Equal(t, "MySQL", backend)

	backend, ok = sql.Match("Unclosed quotation mark after the character string ''.")
	require.True(t, ok)
	assert.Equal(t, "Microsoft SQL Server", backend)

	cmdi, err := Default(defaults.KindCMDI)
	require.NoError(t, err)
	backend, ok = cmdi.Match("uid=33(www-data) gid=33(www-data) groups=33(www-data)")
	require.True(t, ok)
	assert.Equal(t, "Unix", backend)

	_, err = Default("xss")
	assert.True(t, errors.Is(err, finding.ErrDefinitionLoad))
}
