package firestore

import (
	"cmp"
	"context"
	"net/url"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionsMetadata = "collections"
	distanceField       = "Distance"
	// Firestore caps FindNearest results
	maxNearestLimit = 1000
)

// chunkDoc is the Firestore document representation of model.Chunk.
// Embedding is stored as firestore.Vector32 so that FindNearest vector search works.
type chunkDoc struct {
	ID          string             `firestore:"ID"`
	Source      string             `firestore:"Source"`
	SourceID    string             `firestore:"SourceID"`
	Index       int                `firestore:"Index"`
	Title       string             `firestore:"Title"`
	URL         string             `firestore:"URL"`
	Scope       string             `firestore:"Scope"`
	UpdatedAt   time.Time          `firestore:"UpdatedAt"`
	ContentHash string             `firestore:"ContentHash"`
	Text        string             `firestore:"Text"`
	Embedding   firestore.Vector32 `firestore:"Embedding"`
}

// documentDoc indexes chunks by parent document so that hash checks are point reads
type documentDoc struct {
	Source      string    `firestore:"Source"`
	SourceID    string    `firestore:"SourceID"`
	ContentHash string    `firestore:"ContentHash"`
	Chunks      int       `firestore:"Chunks"`
	IndexedAt   time.Time `firestore:"IndexedAt"`
}

// collectionDoc records which embedding space a chunk collection was built with
type collectionDoc struct {
	Provider  string    `firestore:"Provider"`
	Model     string    `firestore:"Model"`
	Dimension int       `firestore:"Dimension"`
	CreatedAt time.Time `firestore:"CreatedAt"`
}

func toChunkDoc(c *model.Chunk, embedding []float32) *chunkDoc {
	return &chunkDoc{
		ID:          string(c.ID),
		Source:      string(c.Source),
		SourceID:    c.SourceID,
		Index:       c.Index,
		Title:       c.Title,
		URL:         c.URL,
		Scope:       c.Scope,
		UpdatedAt:   c.UpdatedAt,
		ContentHash: c.ContentHash,
		Text:        c.Text,
		Embedding:   firestore.Vector32(embedding),
	}
}

func fromChunkDoc(d *chunkDoc) *model.Chunk {
	return &model.Chunk{
		ID:          model.ChunkID(d.ID),
		Source:      model.SourceKind(d.Source),
		SourceID:    d.SourceID,
		Index:       d.Index,
		Title:       d.Title,
		URL:         d.URL,
		Scope:       d.Scope,
		UpdatedAt:   d.UpdatedAt,
		ContentHash: d.ContentHash,
		Text:        d.Text,
	}
}

// docID escapes identifiers that may contain '/', which Firestore reserves for paths
func docID(id string) string {
	return url.PathEscape(id)
}

func documentID(source model.SourceKind, sourceID string) string {
	return docID(string(source) + ":" + sourceID)
}

type chunkRepository struct {
	client           *firestore.Client
	fingerprint      model.EmbeddingFingerprint
	collection       string
	collectionPrefix string
}

func newChunkRepository(client *firestore.Client, fp model.EmbeddingFingerprint) *chunkRepository {
	return &chunkRepository{
		client:      client,
		fingerprint: fp,
		collection:  fp.CollectionName(),
	}
}

func (r *chunkRepository) Collection() string {
	return r.collectionPrefix + r.collection
}

func (r *chunkRepository) chunksCollection() *firestore.CollectionRef {
	return r.client.Collection(r.Collection())
}

func (r *chunkRepository) documentsCollection() *firestore.CollectionRef {
	return r.client.Collection(r.Collection() + "_documents")
}

func (r *chunkRepository) metadataRef() *firestore.DocumentRef {
	return r.client.Collection(r.collectionPrefix + collectionsMetadata).Doc(docID(r.collection))
}

// ensureCollection records the fingerprint on first use and rejects a collection built
// with a different provider, model or dimension
func (r *chunkRepository) ensureCollection(ctx context.Context) error {
	ref := r.metadataRef()
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return tx.Set(ref, &collectionDoc{
					Provider:  r.fingerprint.Provider,
					Model:     r.fingerprint.Model,
					Dimension: r.fingerprint.Dimension,
					CreatedAt: time.Now().UTC(),
				})
			}
			return goerr.Wrap(err, "failed to get collection metadata", goerr.V("collection", r.Collection()))
		}

		var meta collectionDoc
		if err := doc.DataTo(&meta); err != nil {
			return goerr.Wrap(err, "failed to unmarshal collection metadata", goerr.V("collection", r.Collection()))
		}

		existing := model.EmbeddingFingerprint{Provider: meta.Provider, Model: meta.Model, Dimension: meta.Dimension}
		return existing.CheckCompatible(r.Collection(), r.fingerprint)
	})
}

func (r *chunkRepository) validate(chunks []*model.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return goerr.Wrap(model.ErrInvalidInput, "chunks and embeddings differ in length",
			goerr.V("chunks", len(chunks)),
			goerr.V("embeddings", len(embeddings)))
	}
	for _, emb := range embeddings {
		if err := r.fingerprint.CheckDimension(r.Collection(), emb); err != nil {
			return err
		}
	}
	return nil
}

func (r *chunkRepository) Upsert(ctx context.Context, chunks []*model.Chunk, embeddings [][]float32) error {
	if len(chunks) == 0 && len(embeddings) == 0 {
		return nil
	}
	if err := r.validate(chunks, embeddings); err != nil {
		return err
	}

	now := time.Now().UTC()
	documents := make(map[string]*documentDoc)

	bulkWriter := r.client.BulkWriter(ctx)
	defer bulkWriter.End()

	jobs := make([]*firestore.BulkWriterJob, 0, len(chunks))
	for i, chunk := range chunks {
		ref := r.chunksCollection().Doc(docID(string(chunk.ID)))
		job, err := bulkWriter.Set(ref, toChunkDoc(chunk, embeddings[i]))
		if err != nil {
			return goerr.Wrap(err, "failed to add Set operation to bulk writer", goerr.V("chunk_id", chunk.ID))
		}
		jobs = append(jobs, job)

		key := documentID(chunk.Source, chunk.SourceID)
		if d, ok := documents[key]; ok {
			d.Chunks++
			d.ContentHash = chunk.ContentHash
			continue
		}
		documents[key] = &documentDoc{
			Source:      string(chunk.Source),
			SourceID:    chunk.SourceID,
			ContentHash: chunk.ContentHash,
			Chunks:      1,
			IndexedAt:   now,
		}
	}

	for key, d := range documents {
		job, err := bulkWriter.Set(r.documentsCollection().Doc(key), d)
		if err != nil {
			return goerr.Wrap(err, "failed to add document index to bulk writer", goerr.V("document", key))
		}
		jobs = append(jobs, job)
	}

	bulkWriter.Flush()
	return checkJobs("upsert", r.Collection(), jobs)
}

func (r *chunkRepository) Query(ctx context.Context, embedding []float32, limit int) ([]*model.ScoredChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	if err := r.fingerprint.CheckDimension(r.Collection(), embedding); err != nil {
		return nil, err
	}
	limit = min(limit, maxNearestLimit)

	vq := r.chunksCollection().
		FindNearest("Embedding", firestore.Vector32(embedding), limit, firestore.DistanceMeasureCosine,
			&firestore.FindNearestOptions{DistanceResultField: distanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	results := make([]*model.ScoredChunk, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results", goerr.V("collection", r.Collection()))
		}

		var d chunkDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal chunk from vector search")
		}

		distance, _ := doc.Data()[distanceField].(float64)
		results = append(results, &model.ScoredChunk{
			Chunk:    fromChunkDoc(&d),
			Distance: distance,
		})
	}

	return results, nil
}

func (r *chunkRepository) ExistsWithHash(ctx context.Context, source model.SourceKind, sourceID, contentHash string) (bool, error) {
	doc, err := r.documentsCollection().Doc(documentID(source, sourceID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get document index",
			goerr.V("source", source),
			goerr.V("source_id", sourceID))
	}

	var d documentDoc
	if err := doc.DataTo(&d); err != nil {
		return false, goerr.Wrap(err, "failed to unmarshal document index")
	}
	return d.ContentHash == contentHash, nil
}

func (r *chunkRepository) documentQuery(source model.SourceKind, sourceID string) firestore.Query {
	return r.chunksCollection().
		Where("Source", "==", string(source)).
		Where("SourceID", "==", sourceID)
}

func (r *chunkRepository) DeleteByDocument(ctx context.Context, source model.SourceKind, sourceID string) error {
	iter := r.documentQuery(source, sourceID).Documents(ctx)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to iterate chunks for deletion",
				goerr.V("source", source),
				goerr.V("source_id", sourceID))
		}
		refs = append(refs, doc.Ref)
	}
	refs = append(refs, r.documentsCollection().Doc(documentID(source, sourceID)))

	bulkWriter := r.client.BulkWriter(ctx)
	defer bulkWriter.End()

	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bulkWriter.Delete(ref)
		if err != nil {
			return goerr.Wrap(err, "failed to add Delete operation to bulk writer")
		}
		jobs = append(jobs, job)
	}

	bulkWriter.Flush()
	return checkJobs("delete_by_document", r.Collection(), jobs)
}

type bulkJob interface {
	Results() (*firestore.WriteResult, error)
}

// checkJobs reports the first failed write of a flushed bulk writer with the failure count
func checkJobs[J bulkJob](op, collection string, jobs []J) error {
	var first error
	failed := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	if first == nil {
		return nil
	}
	return goerr.Wrap(first, "bulk write failed",
		goerr.V("op", op),
		goerr.V("collection", collection),
		goerr.V("failed", failed),
		goerr.V("total", len(jobs)))
}

func (r *chunkRepository) ReplaceDocument(ctx context.Context, source model.SourceKind, sourceID string, chunks []*model.Chunk, embeddings [][]float32) error {
	if err := r.validate(chunks, embeddings); err != nil {
		return err
	}

	writes := make(map[string]struct{}, len(chunks))
	contentHash := ""
	for _, chunk := range chunks {
		if chunk.Source != source || chunk.SourceID != sourceID {
			return goerr.Wrap(model.ErrInvalidInput, "chunk belongs to another document",
				goerr.V("chunk_id", chunk.ID),
				goerr.V("source", source),
				goerr.V("source_id", sourceID))
		}
		writes[docID(string(chunk.ID))] = struct{}{}
		contentHash = chunk.ContentHash
	}

	indexRef := r.documentsCollection().Doc(documentID(source, sourceID))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(r.documentQuery(source, sourceID)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to read existing chunks")
		}

		for _, doc := range existing {
			if _, overwritten := writes[doc.Ref.ID]; overwritten {
				continue
			}
			if err := tx.Delete(doc.Ref); err != nil {
				return goerr.Wrap(err, "failed to delete stale chunk", goerr.V("ref", doc.Ref.ID))
			}
		}

		for i, chunk := range chunks {
			ref := r.chunksCollection().Doc(docID(string(chunk.ID)))
			if err := tx.Set(ref, toChunkDoc(chunk, embeddings[i])); err != nil {
				return goerr.Wrap(err, "failed to set chunk", goerr.V("chunk_id", chunk.ID))
			}
		}

		if len(chunks) == 0 {
			return tx.Delete(indexRef)
		}
		return tx.Set(indexRef, &documentDoc{
			Source:      string(source),
			SourceID:    sourceID,
			ContentHash: contentHash,
			Chunks:      len(chunks),
			IndexedAt:   time.Now().UTC(),
		})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to replace document chunks",
			goerr.V("collection", r.Collection()),
			goerr.V("source", source),
			goerr.V("source_id", sourceID))
	}

	return nil
}

func (r *chunkRepository) ListByDocument(ctx context.Context, source model.SourceKind, sourceID string) ([]*model.Chunk, error) {
	iter := r.documentQuery(source, sourceID).Documents(ctx)
	defer iter.Stop()

	chunks := make([]*model.Chunk, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate chunks",
				goerr.V("source", source),
				goerr.V("source_id", sourceID))
		}

		var d chunkDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal chunk")
		}
		chunks = append(chunks, fromChunkDoc(&d))
	}

	slices.SortFunc(chunks, func(a, b *model.Chunk) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return chunks, nil
}

func (r *chunkRepository) Count(ctx context.Context) (int, error) {
	res, err := r.chunksCollection().NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count chunks", goerr.V("collection", r.Collection()))
	}

	v, ok := res["count"].(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected count result", goerr.V("result", res))
	}
	return int(v.GetIntegerValue()), nil
}
