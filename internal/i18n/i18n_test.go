package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BundledCatalogs(t *testing.T) {
	m, err := Load("fi")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fi", "en"}, m.Languages())

	fi := m.Translator("fi")
	assert.Equal(t, "Sisäänkirjaus lisätty", fi.T("clock_in.ok"))
	assert.Equal(t, "Maaliskuu", fi.T("months.3"))
	assert.Equal(t, "Teit työtä 2 tuntia ja 15 minuuttia!", fi.Tf("worked", 2, 15))

	en := m.Translator("en-GB")
	assert.Equal(t, "en", en.Lang())
	assert.Equal(t, "December", en.T("months.12"))
}

func TestBundledCatalogs_HaveSameKeys(t *testing.T) {
	m, err := Load("fi")
	require.NoError(t, err)

	for key := range m.translations["fi"] {
		assert.Contains(t, m.translations["en"], key)
	}
	for key := range m.translations["en"] {
		assert.Contains(t, m.translations["fi"], key)
	}
}

func TestTranslator_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"l/fi.yaml": {Data: []byte("fi:\n  a: \"A fi\"\n  b: \"B fi\"\n")},
		"l/en.yml":  {Data: []byte("en:\n  a: \"A en\"\n")},
		"l/notes":   {Data: []byte("ignored")},
	}

	m, err := LoadFromFS(fsys, "l", "fi")
	require.NoError(t, err)

	en := m.Translator("en")
	assert.Equal(t, "A en", en.T("a"))
	assert.Equal(t, "B fi", en.T("b"))
	assert.Equal(t, "missing.key", en.T("missing.key"))

	unknown := m.Translator("sv")
	assert.Equal(t, "fi", unknown.Lang())
}

func TestLoadFromFS_Errors(t *testing.T) {
	_, err := LoadFromFS(fstest.MapFS{"l/x.txt": {Data: []byte("x")}}, "l", "fi")
	assert.Error(t, err)

	_, err = LoadFromFS(fstest.MapFS{"l/en.yaml": {Data: []byte("en:\n  a: b\n")}}, "l", "fi")
	assert.Error(t, err)
}

func TestNilManager(t *testing.T) {
	var m *Manager
	tr := m.Translator("fi")
	assert.Equal(t, "key", tr.T("key"))
}

func TestLoadFromFS_FlattensNestedKeys(t *testing.T) {
	fsys := fstest.MapFS{
		"l/fi.yaml": {Data: []byte("fi:\n  report:\n    total: \"Yhteensä\"\n    rows: 3\n  months:\n    \"1\": \"Tammikuu\"\n")},
	}

	m, err := LoadFromFS(fsys, "l", "fi")
	require.NoError(t, err)

	fi := m.Translator("fi")
	assert.Equal(t, "Yhteensä", fi.T("report.total"))
	assert.Equal(t, "Tammikuu", fi.T("months.1"))
	assert.Equal(t, "report.rows", fi.T("report.rows"))
}
