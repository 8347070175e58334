package repository_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/repository/firestore"
	"github.com/secmon-lab/gapcheck/pkg/repository/memory"
)

var testFingerprint = model.EmbeddingFingerprint{Provider: "test", Model: "unit", Dimension: 3}

func newDocumentChunks(sourceID, hash string, n int) []*model.Chunk {
	chunks := make([]*model.Chunk, n)
	for i := range chunks {
		chunks[i] = &model.Chunk{
			ID:          model.NewChunkID(model.SourceKindLocal, sourceID, i),
			Source:      model.SourceKindLocal,
			SourceID:    sourceID,
			Index:       i,
			Title:       "Checkout guide",
			URL:         "https://docs.example.com/" + sourceID,
			Scope:       "storefront",
			UpdatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			ContentHash: hash,
			Text:        fmt.Sprintf("chunk %d of %s", i, sourceID),
		}
	}
	return chunks
}

func randomEmbeddings(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{rand.Float32() + 0.01, rand.Float32() + 0.01, rand.Float32() + 0.01}
	}
	return out
}

func runChunkRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Upsert then Query returns the identical vector first", func(t *testing.T) {
		repo := newRepo(t).Chunk()
		ctx := context.Background()

		sourceID := fmt.Sprintf("doc-%d", time.Now().UnixNano())
		chunks := newDocumentChunks(sourceID, "h1", 3)
		embeddings := randomEmbeddings(3)

		gt.NoError(t, repo.Upsert(ctx, chunks, embeddings)).Required()

		results, err := repo.Query(ctx, embeddings[1], 2)
		gt.NoError(t, err).Required()
		gt.Bool(t, len(results) > 0).True()
		gt.Value(t, results[0].Chunk.ID).Equal(chunks[1].ID)
		gt.Bool(t, results[0].Distance < 1e-4).True()
		gt.Value(t, results[0].Chunk.Text).Equal(chunks[1].Text)
		gt.Value(t, results[0].Chunk.Title).Equal("Checkout guide")
		gt.Value(t, results[0].Chunk.ContentHash).Equal("h1")
		gt.Number(t, results[0].Chunk.Index).Equal(1)
		gt.Bool(t, len(results) <= 2).True()
		for i := 1; i < len(results); i++ {
			gt.Bool(t, results[i-1].Distance <= results[i].Distance).True()
		}
	})

	t.Run("Upsert with empty input is a no-op", func(t *testing.T) {
		repo := newRepo(t).Chunk()
		ctx := context.Background()

		before, err := repo.Count(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Upsert(ctx, nil, nil))
		after, err := repo.Count(ctx)
		gt.NoError(t, err).Required()
		gt.Number(t, after).Equal(before)
	})

	t.Run("Upsert rejects a vector of another dimension", func(t *testing.T) {
		repo := newRepo(t).Chunk()
		ctx := context.Background()

		sourceID := fmt.Sprintf("doc-%d", time.Now().UnixNano())
		err := repo.Upsert(ctx, newDocumentChunks(sourceID, "h", 1), [][]float32{{0.1, 0.2}})
		gt.Error(t, err)
		gt.Error(t, err).Is(model.ErrEmbeddingMismatch)
	})

	t.Run("Upsert rejects mismatched lengths", func(t *testing.T) {
		repo := newRepo(t).Chunk()
		ctx := context.Background()

		err := repo.Upsert(ctx, newDocumentChunks("len", "h", 2), randomEmbeddings(1))
		gt.Error(t, err).Is(model.ErrInvalidInput)
	})

	t.Run("Upsert twice keeps ids and count", func(t *testing.T) {
		repo := newRepo(t).Chunk()
		ctx := context.Background()

		sourceID := fmt.Sprintf("doc-%d", time.Now().UnixNano())
		chunks := newDocumentChunks(sourceID, "h", 2)

		gt.NoError(t, repo.Upsert(ctx, chunks, randomEmbeddings(2))).Required()
		before, err := repo.Count(ctx)
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Upsert(ctx, chunks, randomEmbeddings(2))).Required()
		after, err := repo.Count(ctx)
		gt.NoError(t, err).Required()
		gt.Number(t, after).Equal(before)

		listed, err := repo.ListByDocument(ctx, model.SourceKindLocal, sourceID)
		gt.NoError(t, err).Required()
		gt.A(t, listed).Length(2)
		gt.Value(t, listed[0].ID).Equal(chunks[0].ID)
		gt.Value(t, listed[1].ID).Equal(chunks[1].ID)
	})

	t.Run("ExistsWithHash matches only the stored hash", func(t *testing.T) {
		repo := newRepo(t).Chunk()
		ctx := context.Background()

		sourceID := fmt.Sprintf("doc-%d", time.Now().UnixNano())
		gt.NoError(t, repo.Upsert(ctx, newDocumentChunks(sourceID, "hash-a", 2), randomEmbeddings(2))).Required()

		ok, err := repo.ExistsWithHash(ctx, model.SourceKindLocal, sourceID, "hash-a")
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).True()

		ok, err = repo.ExistsWithHash(ctx, model.SourceKindLocal, sourceID, "hash-b")
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).False()

		ok, err = repo.ExistsWithHash(ctx, model.SourceKindNotion, sourceID, "hash-a")
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).False()
	})

	t.Run("ReplaceDocument drops stale chunks", func(t *testing.T) {
		repo := newRepo(t).Chunk()
		ctx := context.Background()

		sourceID := fmt.Sprintf("doc-%d", time.Now().UnixNano())
		gt.NoError(t, repo.ReplaceDocument(ctx, model.SourceKindLocal, sourceID,
			newDocumentChunks(sourceID, "v1", 3), randomEmbeddings(3))).Required()

		gt.NoError(t, repo.ReplaceDocument(ctx, model.SourceKindLocal, sourceID,
			newDocumentChunks(sourceID, "v2", 1), randomEmbeddings(1))).Required()

		listed, err := repo.ListByDocument(ctx, model.SourceKindLocal, sourceID)
		gt.NoError(t, err).Required()
		gt.A(t, listed).Length(1)
		gt.Value(t, listed[0].ContentHash).Equal("v2")

		ok, err := repo.ExistsWithHash(ctx, model.SourceKindLocal, sourceID, "v1")
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).False()

		ok, err = repo.ExistsWithHash(ctx, model.SourceKindLocal, sourceID, "v2")
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).True()
	})

	t.Run("ReplaceDocument rejects chunks of another document", func(t *testing.T) {
		repo := newRepo(t).Chunk()
		ctx := context.Background()

		err := repo.ReplaceDocument(ctx, model.SourceKindLocal, "a", newDocumentChunks("b", "h", 1), randomEmbeddings(1))
		gt.Error(t, err).Is(model.ErrInvalidInput)
	})

	t.Run("DeleteByDocument removes only that document", func(t *testing.T) {
		repo := newRepo(t).Chunk()
		ctx := context.Background()

		keep := fmt.Sprintf("keep-%d", time.Now().UnixNano())
		drop := fmt.Sprintf("drop-%d", time.Now().UnixNano())
		gt.NoError(t, repo.Upsert(ctx, newDocumentChunks(keep, "h", 2), randomEmbeddings(2))).Required()
		gt.NoError(t, repo.Upsert(ctx, newDocumentChunks(drop, "h", 2), randomEmbeddings(2))).Required()

		gt.NoError(t, repo.DeleteByDocument(ctx, model.SourceKindLocal, drop)).Required()

		dropped, err := repo.ListByDocument(ctx, model.SourceKindLocal, drop)
		gt.NoError(t, err).Required()
		gt.A(t, dropped).Length(0)

		kept, err := repo.ListByDocument(ctx, model.SourceKindLocal, keep)
		gt.NoError(t, err).Required()
		gt.A(t, kept).Length(2)

		ok, err := repo.ExistsWithHash(ctx, model.SourceKindLocal, drop, "h")
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).False()
	})

	t.Run("Query rejects a vector of another dimension", func(t *testing.T) {
		repo := newRepo(t).Chunk()
		_, err := repo.Query(context.Background(), []float32{1, 2, 3, 4}, 3)
		gt.Error(t, err).Is(model.ErrEmbeddingMismatch)
	})
}

func TestMemoryChunkRepository(t *testing.T) {
	runChunkRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New(testFingerprint)
	})
}

func TestMemoryChunkRepository_Collection(t *testing.T) {
	gt.Value(t, memory.New(testFingerprint).Chunk().Collection()).Equal("chunks_test_unit_3")
	gt.Value(t, memory.New(testFingerprint, memory.WithCollection("custom")).Chunk().Collection()).Equal("custom")
}

func TestMemoryChunkRepository_QueryLimit(t *testing.T) {
	repo := memory.New(testFingerprint).Chunk()
	ctx := context.Background()

	gt.NoError(t, repo.Upsert(ctx, newDocumentChunks("a", "h", 5), randomEmbeddings(5))).Required()

	results, err := repo.Query(ctx, []float32{1, 0, 0}, 3)
	gt.NoError(t, err).Required()
	gt.A(t, results).Length(3)

	results, err = repo.Query(ctx, []float32{1, 0, 0}, 50)
	gt.NoError(t, err).Required()
	gt.A(t, results).Length(5)

	results, err = repo.Query(ctx, []float32{1, 0, 0}, 0)
	gt.NoError(t, err).Required()
	gt.A(t, results).Length(0)
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	repo, err := firestore.New(ctx, projectID, databaseID, testFingerprint, firestore.WithCollectionPrefix("test_"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func TestFirestoreChunkRepository(t *testing.T) {
	runChunkRepositoryTest(t, newFirestoreRepository)
}

func TestFirestoreChunkRepository_FingerprintMismatch(t *testing.T) {
	newFirestoreRepository(t)

	ctx := context.Background()
	other := model.EmbeddingFingerprint{Provider: "test", Model: "other", Dimension: 3}
	_, err := firestore.New(ctx,
		os.Getenv("TEST_FIRESTORE_PROJECT_ID"),
		os.Getenv("TEST_FIRESTORE_DATABASE_ID"),
		other,
		firestore.WithCollectionPrefix("test_"),
		firestore.WithCollection(testFingerprint.CollectionName()),
	)
	gt.Error(t, err).Is(model.ErrEmbeddingMismatch)
}
