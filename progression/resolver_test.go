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

func unlock(kind progression.Kind, id, parcoursID, domain string) progression.Directive {
	return progression.Directive{Action: progression.ActionUnlock, Kind: kind, EntityID: id, ParcoursID: parcoursID, Domain: domain}
}

func TestResolveNextVideoUnlocksSuccessor(t *testing.T) {
	h := newHarness(t, bourseCatalog()).initialized(t)
	ctx := context.Background()

	got, err := h.resolver.ResolveNext(ctx, testUser, progression.KindVideo, "V1")
	require.NoError(t, err)
	assert.Equal(t, []progression.Directive{unlock(progression.KindVideo, "V2", "A", "")}, got)

	again, err := h.resolver.ResolveNext(ctx, testUser, progression.KindVideo, "V1")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestResolveNextLastVideoNeedsEveryVideo(t *testing.T) {
	h := newHarness(t, bourseCatalog()).initialized(t)
	ctx := context.Background()

	h.store.Put(progression.Record{UserID: testUser, Kind: progression.KindVideo, EntityID: "V2", ParcoursID: "A", Status: progression.StatusCompleted})
	got, err := h.resolver.ResolveNext(ctx, testUser, progression.KindVideo, "V2")
	require.NoError(t, err)
	assert.Empty(t, got, "V1 is not completed yet")

	h.store.Put(progression.Record{UserID: testUser, Kind: progression.KindVideo, EntityID: "V1", ParcoursID: "A", Status: progression.StatusCompleted})
	got, err = h.resolver.ResolveNext(ctx, testUser, progression.KindVideo, "V2")
	require.NoError(t, err)
	assert.Equal(t, []progression.Directive{unlock(progression.KindQuiz, "Q1", "A", "")}, got)
}

func TestResolveNextQuizCompletesParcoursAndOpensNext(t *testing.T) {
	h := newHarness(t, bourseCatalog())

	got, err := h.resolver.ResolveNext(context.Background(), testUser, progression.KindQuiz, "Q1")
	require.NoError(t, err)
	assert.Equal(t, []progression.Directive{
		{Action: progression.ActionComplete, Kind: progression.KindParcours, EntityID: "A", Domain: "Bourse"},
		unlock(progression.KindParcours, "B", "", "Bourse"),
		unlock(progression.KindVideo, "V3", "B", ""),
	}, got)
}

func TestResolveNextEndOfGroup(t *testing.T) {
	h := newHarness(t, bourseCatalog())
	ctx := context.Background()

	got, err := h.resolver.ResolveNext(ctx, testUser, progression.KindParcours, "C")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = h.resolver.ResolveNext(ctx, testUser, progression.KindQuiz, "QX")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, progression.ActionComplete, got[0].Action)
}

func TestResolveNextSparseOrderAndDuplicates(t *testing.T) {
	c := memstore.NewCatalog()
	c.AddParcours(progression.CatalogParcours{ID: "p1", Domain: "Bourse", Level: "1", Order: 10}, []progression.CatalogVideo{{ID: "v1"}}, &progression.CatalogQuiz{ID: "q1"})
	c.AddParcours(progression.CatalogParcours{ID: "p-zeta", Domain: "Bourse", Level: "1", Order: 30}, []progression.CatalogVideo{{ID: "vz"}}, nil)
	c.AddParcours(progression.CatalogParcours{ID: "p-beta", Domain: "Bourse", Level: "1", Order: 30}, []progression.CatalogVideo{{ID: "vb"}}, nil)
	c.AddParcours(progression.CatalogParcours{ID: "p-far", Domain: "Bourse", Level: "1", Order: 40}, nil, nil)
	c.AddParcours(progression.CatalogParcours{ID: "other-level", Domain: "Bourse", Level: "2", Order: 20}, nil, nil)
	h := newHarness(t, c)

	got, err := h.resolver.ResolveNext(context.Background(), testUser, progression.KindParcours, "p1")
	require.NoError(t, err)
	assert.Equal(t, []progression.Directive{
		unlock(progression.KindParcours, "p-beta", "", "Bourse"),
		unlock(progression.KindVideo, "vb", "p-beta", ""),
	}, got)
}

func TestResolveNextOpensQuizWhenParcoursHasNoVideos(t *testing.T) {
	h := newHarness(t, videolessCatalog())

	got, err := h.resolver.ResolveNext(context.Background(), testUser, progression.KindQuiz, "Q2")
	require.NoError(t, err)
	assert.Equal(t, []progression.Directive{
		{Action: progression.ActionComplete, Kind: progression.KindParcours, EntityID: "B", Domain: "Bourse"},
		unlock(progression.KindParcours, "C", "", "Bourse"),
		unlock(progression.KindQuiz, "Q3", "C", ""),
	}, got)
}

func TestResolveNextToleratesCatalogGaps(t *testing.T) {
	h := newHarness(t, bourseCatalog())
	ctx := context.Background()

	for _, kind := range []progression.Kind{progression.KindVideo, progression.KindQuiz, progression.KindParcours} {
		got, err := h.resolver.ResolveNext(ctx, testUser, kind, "missing")
		require.NoError(t, err, kind)
		assert.Empty(t, got, kind)
	}

	_, err := h.resolver.ResolveNext(ctx, testUser, progression.Kind("lesson"), "x")
	assert.True(t, progression.IsInvalidInput(err))
}

func TestResolveNextSurfacesStoreFailure(t *testing.T) {
	h := newHarness(t, bourseCatalog())
	boom := errors.New("connection reset")
	h.store.FailNext("query", boom)

	_, err := h.resolver.ResolveNext(context.Background(), testUser, progression.KindVideo, "V2")
	require.Error(t, err)
	assert.True(t, progression.IsPersistence(err))
	assert.ErrorIs(t, err, boom)
}
