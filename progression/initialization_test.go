package progression_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dodje/progression"
	"dodje/store/memstore"
)

func TestInitializeUserSeedsFirstOfEachGroup(t *testing.T) {
	h := newHarness(t, bourseCatalog()).initialized(t)

	want := map[progression.Kind]map[string]progression.Status{
		progression.KindParcours: {
			"A": progression.StatusUnblocked,
			"B": progression.StatusBlocked,
			"C": progression.StatusBlocked,
			"X": progression.StatusUnblocked,
		},
		progression.KindVideo: {
			"V1": progression.StatusUnblocked,
			"V2": progression.StatusBlocked,
			"V3": progression.StatusBlocked,
			"V4": progression.StatusBlocked,
			"VX": progression.StatusUnblocked,
		},
		progression.KindQuiz: {
			"Q1": progression.StatusBlocked,
			"Q2": progression.StatusBlocked,
			"Q3": progression.StatusBlocked,
			"QX": progression.StatusBlocked,
		},
	}
	for kind, byID := range want {
		for id, status := range byID {
			assert.Equal(t, status, h.status(t, kind, id), "%s %s", kind, id)
		}
	}

	rec, err := h.store.Get(context.Background(), testUser, progression.KindVideo, "V2")
	require.NoError(t, err)
	assert.Equal(t, "A", rec.ParcoursID)
	rec, err = h.store.Get(context.Background(), testUser, progression.KindParcours, "X")
	require.NoError(t, err)
	assert.Equal(t, "Crypto", rec.Domain)
}

func TestInitializeUserIsRepeatable(t *testing.T) {
	h := newHarness(t, bourseCatalog()).initialized(t)
	writes := h.store.Writes()

	require.NoError(t, h.seeder.InitializeUser(context.Background(), testUser))
	assert.Equal(t, writes, h.store.Writes(), "second run changes nothing")
}

func TestInitializeUserAfterProgress(t *testing.T) {
	h := newHarness(t, bourseCatalog()).initialized(t)
	h.watch(t, "V1", 100, 100)
	h.watch(t, "V2", 100, 100)
	h.answer(t, "Q1", 9, 10)

	require.NoError(t, h.seeder.InitializeUser(context.Background(), testUser))

	assert.Equal(t, progression.StatusCompleted, h.status(t, progression.KindParcours, "A"))
	assert.Equal(t, progression.StatusCompleted, h.status(t, progression.KindQuiz, "Q1"))
	assert.Equal(t, progression.StatusUnblocked, h.status(t, progression.KindParcours, "B"))
	assert.Equal(t, progression.StatusUnblocked, h.status(t, progression.KindVideo, "V3"))
}

func TestInitializeUserErrors(t *testing.T) {
	h := newHarness(t, bourseCatalog())
	err := h.seeder.InitializeUser(context.Background(), " ")
	assert.True(t, progression.IsInvalidInput(err))

	h.store.FailNext("upsert", errors.New("disk full"))
	err = h.seeder.InitializeUser(context.Background(), testUser)
	assert.True(t, progression.IsPersistence(err))
}

// videolessCatalog: A has only a quiz, B follows it with V2/Q2, C is another
// quiz-only parcours after B.
func videolessCatalog() *memstore.Catalog {
	c := memstore.NewCatalog()
	c.AddParcours(progression.CatalogParcours{ID: "A", Domain: "Bourse", Level: "expert", Order: 1}, nil, &progression.CatalogQuiz{ID: "Q1"})
	c.AddParcours(progression.CatalogParcours{ID: "B", Domain: "Bourse", Level: "expert", Order: 2}, []progression.CatalogVideo{{ID: "V2", Duration: 100}}, &progression.CatalogQuiz{ID: "Q2"})
	c.AddParcours(progression.CatalogParcours{ID: "C", Domain: "Bourse", Level: "expert", Order: 3}, nil, &progression.CatalogQuiz{ID: "Q3"})
	return c
}

func TestInitializeUserOpensQuizOfParcoursWithoutVideos(t *testing.T) {
	h := newHarness(t, videolessCatalog()).initialized(t)

	assert.Equal(t, progression.StatusUnblocked, h.status(t, progression.KindParcours, "A"))
	assert.Equal(t, progression.StatusUnblocked, h.status(t, progression.KindQuiz, "Q1"))
	assert.Equal(t, progression.StatusBlocked, h.status(t, progression.KindParcours, "C"))
	assert.Equal(t, progression.StatusBlocked, h.status(t, progression.KindQuiz, "Q3"))

	// C reached before its quiz could open: a re-run heals it.
	h.store.Put(progression.Record{UserID: testUser, Kind: progression.KindParcours, EntityID: "C", Status: progression.StatusUnblocked})
	require.NoError(t, h.seeder.InitializeUser(context.Background(), testUser))
	assert.Equal(t, progression.StatusUnblocked, h.status(t, progression.KindQuiz, "Q3"))
}
