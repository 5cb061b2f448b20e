package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frenchYAML = `
parcours:
  - id: B
    domaine: Bourse
    niveau: debutant
    ordre: 2
    titre: Lire un graphique
    videoIds: [V3]
    quizId: Q2
  - id: A
    theme: Bourse
    niveau: debutant
    ordre: 1
    videos:
      - id: V2
        ordre: 2
        duree: 240
      - id: V1
        ordre: 1
        duree: "180"
        lien: https://cdn.example/v1.mp4
    quiz:
      id: Q1
      seuil: 80
`

const englishJSON = `[
  {"id": "X", "domain": "Crypto", "level": "debutant", "order": 1,
   "videos": ["VX"], "quiz": {"id": "QX"}}
]`

func TestParseFrenchYAML(t *testing.T) {
	entries, err := Parse([]byte(frenchYAML), false)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	a := entries[0]
	assert.Equal(t, "A", a.ID)
	assert.Equal(t, "Bourse", a.Domain)
	assert.Equal(t, "debutant", a.Level)
	assert.Equal(t, 1, a.Order)
	require.Len(t, a.Videos, 2)
	assert.Equal(t, Video{ID: "V1", Order: 1, Duration: 180, URL: "https://cdn.example/v1.mp4"}, a.Videos[0])
	assert.Equal(t, "V2", a.Videos[1].ID)
	require.NotNil(t, a.Quiz)
	assert.Equal(t, Quiz{ID: "Q1", PassingScore: 80}, *a.Quiz)

	b := entries[1]
	assert.Equal(t, "Lire un graphique", b.Title)
	assert.Equal(t, []Video{{ID: "V3", Order: 1}}, b.Videos)
	assert.Equal(t, &Quiz{ID: "Q2", PassingScore: 70}, b.Quiz)
}

func TestParseEnglishJSON(t *testing.T) {
	entries, err := Parse([]byte(englishJSON), true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Crypto", entries[0].Domain)
	assert.Equal(t, []Video{{ID: "VX", Order: 1}}, entries[0].Videos)
	assert.Equal(t, "QX", entries[0].Quiz.ID)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	for name, doc := range map[string]string{
		"no list":          `foo: bar`,
		"missing domain":   `[{"id": "A", "level": "1"}]`,
		"fractional order": `[{"id": "A", "domain": "d", "level": "1", "order": 1.5}]`,
		"negative length":  `[{"id": "A", "domain": "d", "level": "1", "videos": [{"id": "v", "duration": -3}]}]`,
		"bad score":        `[{"id": "A", "domain": "d", "level": "1", "quiz": {"id": "q", "passingScore": 120}}]`,
		"reused id":        `[{"id": "A", "domain": "d", "level": "1", "videos": ["A"]}]`,
		"empty parcours":   `[{"id": "A", "domain": "d", "level": "1"}]`,
	} {
		_, err := Parse([]byte(doc), false)
		assert.Error(t, err, name)
	}
}

func TestParseAcceptsQuizOnlyParcours(t *testing.T) {
	entries, err := Parse([]byte(`[{"id": "A", "domain": "d", "level": "1", "quiz": "QA"}]`), true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Videos)
	assert.Equal(t, "QA", entries[0].Quiz.ID)
}

func TestLoadPicksDecoderByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "catalog.json")
	yamlPath := filepath.Join(dir, "catalog.yml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(englishJSON), 0o600))
	require.NoError(t, os.WriteFile(yamlPath, []byte(frenchYAML), 0o600))

	fromJSON, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Len(t, fromJSON, 1)

	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Len(t, fromYAML, 2)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestRows(t *testing.T) {
	entries, err := Parse([]byte(frenchYAML), false)
	require.NoError(t, err)

	p, videos, quiz := entries[0].Rows()
	assert.Equal(t, "A", p.ID)
	assert.Equal(t, 1, p.SortOrder)
	assert.Equal(t, "Q1", p.QuizID)
	require.Len(t, videos, 2)
	assert.Equal(t, "A", videos[0].ParcoursID)
	assert.Equal(t, "https://cdn.example/v1.mp4", videos[0].VideoURL)
	require.NotNil(t, quiz)
	assert.Equal(t, 80.0, quiz.PassingScore)
}
