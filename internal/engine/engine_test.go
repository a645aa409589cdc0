package engine_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmfarley/labeld/internal/engine"
	"github.com/dmfarley/labeld/internal/storage"
	"github.com/dmfarley/labeld/internal/storage/sqlite"
)

// fakeEmbedder returns canned vectors keyed by exact text. Unknown texts get
// a fixed off-axis vector so they never accidentally match a label.
type fakeEmbedder struct {
	vectors  map[string][]float64
	calls    int
	failFrom int // fail every call numbered >= failFrom (1-based, 0 = never)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if f.failFrom > 0 && f.calls >= f.failFrom {
		return nil, fmt.Errorf("embedder down")
	}
	if v, ok := f.vectors[text]; ok {
		return append([]float64(nil), v...), nil
	}
	return []float64{0, 0, 1}, nil
}

const (
	animalsDef = "texts about animals and pets"
	colorsDef  = "texts about colors and shades"
)

func newTestEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float64{
		animalsDef:     {1, 0, 0},
		colorsDef:      {0, 1, 0},
		"a furry dog":  {0.8, 0.2, 0},
		"a sleepy cat": {0.9, 0.1, 0},
		"deep crimson": {0.1, 0.9, 0},
	}}
}

// newTestEngine builds an engine over an in-memory SQLite store with the
// canned embedder and the given threshold.
func newTestEngine(t *testing.T, embedder engine.Embedder, threshold float64) (*engine.Engine, storage.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	eng := engine.New(store, embedder, engine.Config{SimilarityThreshold: threshold})
	return eng, store
}

func vectorNorm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func TestCreateLabelNormalizesCentroid(t *testing.T) {
	embedder := newTestEmbedder()
	// Definition vector is deliberately not unit length.
	embedder.vectors[animalsDef] = []float64{3, 0, 4}
	eng, store := newTestEngine(t, embedder, 0.5)
	ctx := context.Background()

	label, err := eng.CreateLabel(ctx, "Animals", animalsDef)
	require.NoError(t, err)
	assert.Equal(t, "animals", label.Name)
	assert.Equal(t, 0, label.UsageCount)

	stored, err := store.GetLabelByName(ctx, "animals")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vectorNorm(stored.Centroid), 1e-9,
		"centroid must be unit length after creation")
	assert.InDelta(t, 0.6, stored.Centroid[0], 1e-9)
	assert.InDelta(t, 0.8, stored.Centroid[2], 1e-9)
}

func TestCreateLabelDuplicateAfterNormalization(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "Animals", animalsDef)
	require.NoError(t, err)

	_, err = eng.CreateLabel(ctx, "  animals  ", animalsDef)
	assert.ErrorIs(t, err, storage.ErrDuplicateName)
}

func TestCreateLabelEmptyName(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)

	_, err := eng.CreateLabel(context.Background(), "!!!", animalsDef)
	assert.ErrorIs(t, err, engine.ErrEmptyLabelName)
}

func TestClassifyBySimilarity(t *testing.T) {
	eng, store := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)
	_, err = eng.CreateLabel(ctx, "colors", colorsDef)
	require.NoError(t, err)

	result, err := eng.Classify(ctx, "a furry dog", engine.LabelRef{})
	require.NoError(t, err)

	assert.Equal(t, "animals", result.AssignedLabel)
	assert.Equal(t, engine.ReasonMatched, result.Reason)
	assert.False(t, result.CreatedNewLabel)
	// cos([0.8 0.2 0], [1 0 0]) = 0.8/sqrt(0.68), rounded to 4 decimals.
	assert.InDelta(t, 0.9701, result.SimilarityScore, 1e-9)
	require.NotNil(t, result.BestMatchLabel)
	assert.Equal(t, "animals", *result.BestMatchLabel)

	entry, err := eng.GetEntry(ctx, result.EntryID)
	require.NoError(t, err)
	require.NotNil(t, entry.SimilarityScore)
	// Stored score keeps full precision.
	assert.InDelta(t, 0.8/math.Sqrt(0.68), *entry.SimilarityScore, 1e-12)
	assert.Equal(t, "high", entry.Confidence)

	label, err := store.GetLabelByName(ctx, "animals")
	require.NoError(t, err)
	assert.Equal(t, 1, label.UsageCount)
	assert.InDelta(t, 1.0, vectorNorm(label.Centroid), 1e-9,
		"centroid must stay unit length after membership change")
	assert.Greater(t, label.Centroid[0], label.Centroid[1],
		"centroid must stay dominated by the definition axis")
}

func TestClassifyNoLabelFit(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)
	_, err = eng.CreateLabel(ctx, "colors", colorsDef)
	require.NoError(t, err)

	before, err := eng.Stats(ctx)
	require.NoError(t, err)

	_, err = eng.Classify(ctx, "quantum chromodynamics", engine.LabelRef{})
	var noFit *engine.NoLabelFitError
	require.ErrorAs(t, err, &noFit)

	// Both labels score 0; the tie breaks to the first in listing order.
	require.NotNil(t, noFit.BestMatchLabel)
	assert.Equal(t, "animals", *noFit.BestMatchLabel)
	require.NotNil(t, noFit.BestMatchScore)
	assert.Equal(t, 0.0, *noFit.BestMatchScore)

	after, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a failed classification must not store anything")
}

func TestClassifyNoLabelsExist(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)

	_, err := eng.Classify(context.Background(), "a furry dog", engine.LabelRef{})
	var noFit *engine.NoLabelFitError
	require.ErrorAs(t, err, &noFit)
	assert.Nil(t, noFit.BestMatchLabel)
	assert.Nil(t, noFit.BestMatchScore)
}

func TestClassifyForced(t *testing.T) {
	eng, store := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "colors", colorsDef)
	require.NoError(t, err)

	// The text is nothing like the colors definition; forcing wins anyway.
	result, err := eng.Classify(ctx, "quantum chromodynamics", engine.LabelRef{Name: "Colors"})
	require.NoError(t, err)
	assert.Equal(t, "colors", result.AssignedLabel)
	assert.Equal(t, engine.ReasonForced, result.Reason)
	assert.Equal(t, 0.0, result.SimilarityScore)

	entry, err := eng.GetEntry(ctx, result.EntryID)
	require.NoError(t, err)
	assert.Equal(t, "forced", entry.Confidence)

	label, err := store.GetLabelByName(ctx, "colors")
	require.NoError(t, err)
	assert.Equal(t, 1, label.UsageCount)
}

func TestClassifyForcedUnknownLabel(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)

	_, err := eng.Classify(context.Background(), "a furry dog", engine.LabelRef{Name: "nope"})
	assert.ErrorIs(t, err, engine.ErrLabelNotFound)

	_, err = eng.Classify(context.Background(), "a furry dog", engine.LabelRef{ID: "no-such-id"})
	assert.ErrorIs(t, err, engine.ErrLabelNotFound)
}

func TestClassifyWhitespaceLabelUsesSimilarity(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)

	// A blank forced label is treated as absent, not as a lookup failure.
	result, err := eng.Classify(ctx, "a furry dog", engine.LabelRef{Name: "   "})
	require.NoError(t, err)
	assert.Equal(t, engine.ReasonMatched, result.Reason)
}

func TestClassifyProviderFailureRollsBack(t *testing.T) {
	embedder := newTestEmbedder()
	eng, _ := newTestEngine(t, embedder, 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)

	// First call in this classification embeds the text; the second embeds
	// the definition during centroid recomputation. Failing there leaves a
	// created entry pending in the transaction, which must roll back.
	embedder.failFrom = embedder.calls + 2
	_, err = eng.Classify(ctx, "a furry dog", engine.LabelRef{})
	require.Error(t, err)

	stats, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Classified)
	assert.Equal(t, 0, stats.Unclassified)
}

func TestDeleteEntryRecomputesCentroid(t *testing.T) {
	eng, store := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)
	result, err := eng.Classify(ctx, "a furry dog", engine.LabelRef{})
	require.NoError(t, err)

	require.NoError(t, eng.DeleteEntry(ctx, result.EntryID))

	label, err := store.GetLabelByName(ctx, "animals")
	require.NoError(t, err)
	assert.Equal(t, 0, label.UsageCount)
	// With no members left the centroid falls back to the definition alone.
	assert.InDelta(t, 1.0, label.Centroid[0], 1e-9)
	assert.InDelta(t, 0.0, label.Centroid[1], 1e-9)

	_, err = eng.GetEntry(ctx, result.EntryID)
	assert.ErrorIs(t, err, engine.ErrEntryNotFound)
}

func TestDeleteEntryNotFound(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)

	err := eng.DeleteEntry(context.Background(), "missing")
	assert.ErrorIs(t, err, engine.ErrEntryNotFound)
}

func TestDeleteLabelInUse(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)
	_, err = eng.Classify(ctx, "a furry dog", engine.LabelRef{})
	require.NoError(t, err)

	err = eng.DeleteLabel(ctx, "animals", false)
	assert.ErrorIs(t, err, engine.ErrLabelInUse)

	// Force-delete detaches the member entry instead of deleting it.
	require.NoError(t, eng.DeleteLabel(ctx, "animals", true))

	stats, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Labels)
	assert.Equal(t, 0, stats.Classified)
	assert.Equal(t, 1, stats.Unclassified)
}

func TestDeleteEmptyLabel(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)

	require.NoError(t, eng.DeleteLabel(ctx, "animals", false))

	err = eng.DeleteLabel(ctx, "animals", false)
	assert.ErrorIs(t, err, engine.ErrLabelNotFound)
}

func TestReclassifyForced(t *testing.T) {
	eng, store := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)
	_, err = eng.CreateLabel(ctx, "colors", colorsDef)
	require.NoError(t, err)

	result, err := eng.Classify(ctx, "a furry dog", engine.LabelRef{})
	require.NoError(t, err)
	require.Equal(t, "animals", result.AssignedLabel)

	moved, err := eng.Reclassify(ctx, result.EntryID, engine.LabelRef{Name: "colors"})
	require.NoError(t, err)
	assert.Equal(t, "colors", moved.AssignedLabel)
	assert.Equal(t, engine.ReasonForced, moved.Reason)
	assert.Equal(t, "a furry dog", moved.Text)

	animals, err := store.GetLabelByName(ctx, "animals")
	require.NoError(t, err)
	assert.Equal(t, 0, animals.UsageCount, "vacated label must lose the member")

	colors, err := store.GetLabelByName(ctx, "colors")
	require.NoError(t, err)
	assert.Equal(t, 1, colors.UsageCount)
	assert.InDelta(t, 1.0, vectorNorm(colors.Centroid), 1e-9)
}

func TestReclassifySameLabel(t *testing.T) {
	eng, store := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)

	result, err := eng.Classify(ctx, "a furry dog", engine.LabelRef{})
	require.NoError(t, err)
	require.Equal(t, "animals", result.AssignedLabel)

	// Reclassifying into the current label is a no-op move: detach,
	// recompute, reattach, recompute again.
	moved, err := eng.Reclassify(ctx, result.EntryID, engine.LabelRef{Name: "animals"})
	require.NoError(t, err)
	assert.Equal(t, "animals", moved.AssignedLabel)
	assert.Equal(t, engine.ReasonForced, moved.Reason)

	label, err := store.GetLabelByName(ctx, "animals")
	require.NoError(t, err)

	entry, err := eng.GetEntry(ctx, result.EntryID)
	require.NoError(t, err)
	require.NotNil(t, entry.LabelID)
	assert.Equal(t, label.ID, *entry.LabelID)

	assert.Equal(t, 1, label.UsageCount, "membership count must be unchanged")
	assert.InDelta(t, 1.0, vectorNorm(label.Centroid), 1e-9,
		"centroid must stay unit length after a same-label move")
}

func TestReclassifyBySimilarity(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)
	_, err = eng.CreateLabel(ctx, "colors", colorsDef)
	require.NoError(t, err)

	// Force crimson into the wrong label, then let similarity correct it.
	result, err := eng.Classify(ctx, "deep crimson", engine.LabelRef{Name: "animals"})
	require.NoError(t, err)

	moved, err := eng.Reclassify(ctx, result.EntryID, engine.LabelRef{})
	require.NoError(t, err)
	assert.Equal(t, "colors", moved.AssignedLabel)
	assert.Equal(t, engine.ReasonMatched, moved.Reason)
}

func TestReclassifyNoFitLeavesEntryUntouched(t *testing.T) {
	eng, store := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "colors", colorsDef)
	require.NoError(t, err)

	result, err := eng.Classify(ctx, "quantum chromodynamics", engine.LabelRef{Name: "colors"})
	require.NoError(t, err)

	_, err = eng.Reclassify(ctx, result.EntryID, engine.LabelRef{})
	var noFit *engine.NoLabelFitError
	require.ErrorAs(t, err, &noFit)

	// The transaction rolled back; the entry keeps its prior assignment.
	entry, err := eng.GetEntry(ctx, result.EntryID)
	require.NoError(t, err)
	require.NotNil(t, entry.LabelID)

	colors, err := store.GetLabelByName(ctx, "colors")
	require.NoError(t, err)
	assert.Equal(t, 1, colors.UsageCount)
}

func TestReclassifyUnknownEntry(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)

	_, err := eng.Reclassify(context.Background(), "missing", engine.LabelRef{})
	assert.ErrorIs(t, err, engine.ErrEntryNotFound)
}

func TestGetLabelDetailExamples(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "colors", colorsDef)
	require.NoError(t, err)

	texts := make(map[string]bool)
	for i := 0; i < 7; i++ {
		text := fmt.Sprintf("swatch number %d", i)
		texts[text] = true
		_, err := eng.Classify(ctx, text, engine.LabelRef{Name: "colors"})
		require.NoError(t, err)
	}

	detail, err := eng.GetLabel(ctx, "Colors")
	require.NoError(t, err)
	assert.Equal(t, "colors", detail.Name)
	assert.Equal(t, 7, detail.UsageCount)
	require.Len(t, detail.Examples, 5)
	for _, example := range detail.Examples {
		assert.True(t, texts[example], "unexpected example %q", example)
	}
}

func TestGetLabelNotFound(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)

	_, err := eng.GetLabel(context.Background(), "missing")
	assert.True(t, errors.Is(err, engine.ErrLabelNotFound))
}

func TestStats(t *testing.T) {
	eng, _ := newTestEngine(t, newTestEmbedder(), 0.5)
	ctx := context.Background()

	stats, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &engine.Stats{}, stats)

	_, err = eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)
	_, err = eng.Classify(ctx, "a furry dog", engine.LabelRef{})
	require.NoError(t, err)
	_, err = eng.Classify(ctx, "a sleepy cat", engine.LabelRef{})
	require.NoError(t, err)

	stats, err = eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Labels)
	assert.Equal(t, 2, stats.Classified)
	assert.Equal(t, 0, stats.Unclassified)
}

func TestClassifyAntipodalTextReportsBestMatch(t *testing.T) {
	// Even the worst possible score (exactly -1 against the only label)
	// must surface that label as the best candidate; nulls are reserved
	// for an empty label set.
	embedder := newTestEmbedder()
	embedder.vectors["anti-animal text"] = []float64{-1, 0, 0}
	eng, _ := newTestEngine(t, embedder, 0.5)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)

	_, err = eng.Classify(ctx, "anti-animal text", engine.LabelRef{})
	var noFit *engine.NoLabelFitError
	require.ErrorAs(t, err, &noFit)
	require.NotNil(t, noFit.BestMatchLabel)
	assert.Equal(t, "animals", *noFit.BestMatchLabel)
	require.NotNil(t, noFit.BestMatchScore)
	assert.Equal(t, -1.0, *noFit.BestMatchScore)
}

func TestClassifyThresholdBoundary(t *testing.T) {
	// cos("a furry dog", animals) ≈ 0.9701; a threshold just above it
	// must reject, one below must accept.
	embedder := newTestEmbedder()
	eng, _ := newTestEngine(t, embedder, 0.98)
	ctx := context.Background()

	_, err := eng.CreateLabel(ctx, "animals", animalsDef)
	require.NoError(t, err)

	_, err = eng.Classify(ctx, "a furry dog", engine.LabelRef{})
	var noFit *engine.NoLabelFitError
	assert.ErrorAs(t, err, &noFit)
}
