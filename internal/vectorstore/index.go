package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// storedRecord is the on-disk shape of a vector record. DocumentID is
// indexed so deletion by owning document avoids a full scan.
type storedRecord struct {
	ID         string `badgerhold:"key"`
	DocumentID string `badgerholdIndex:"DocumentID"`
	ChunkID    string
	PageNum    int
	Text       string
	Embedding  []float32
	Metadata   map[string]string
}

// Index is a brute-force cosine-distance vector index over a badgerhold
// store. Search scans every record; for library-sized collections this
// stays well inside interactive latency.
type Index struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Upsert inserts or replaces records by ID.
func (idx *Index) Upsert(ctx context.Context, records []interfaces.VectorRecord) error {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rec.ID == "" {
			return fmt.Errorf("vector record ID is required")
		}
		stored := storedRecord{
			ID:         rec.ID,
			DocumentID: rec.DocumentID,
			ChunkID:    rec.ChunkID,
			PageNum:    rec.PageNum,
			Text:       rec.Text,
			Embedding:  rec.Embedding,
			Metadata:   rec.Metadata,
		}
		if err := idx.store.Upsert(rec.ID, &stored); err != nil {
			return fmt.Errorf("failed to upsert vector record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Query returns up to k records nearest to the embedding, ordered by
// ascending cosine distance.
func (idx *Index) Query(ctx context.Context, embedding []float32, k int) ([]interfaces.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}

	var results []interfaces.SearchResult
	err := idx.store.ForEach(nil, func(rec *storedRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(rec.Embedding) != len(embedding) {
			return fmt.Errorf("dimension mismatch: record %s has %d, query has %d",
				rec.ID, len(rec.Embedding), len(embedding))
		}
		results = append(results, interfaces.SearchResult{
			Record: interfaces.VectorRecord{
				ID:         rec.ID,
				DocumentID: rec.DocumentID,
				ChunkID:    rec.ChunkID,
				PageNum:    rec.PageNum,
				Text:       rec.Text,
				Embedding:  rec.Embedding,
				Metadata:   rec.Metadata,
			},
			Distance: cosineDistance(embedding, rec.Embedding),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// DeleteByDocument removes every record owned by the document.
func (idx *Index) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	query := badgerhold.Where("DocumentID").Eq(documentID).Index("DocumentID")

	count, err := idx.store.Count(&storedRecord{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count vector records for document %s: %w", documentID, err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := idx.store.DeleteMatching(&storedRecord{}, query); err != nil {
		return 0, fmt.Errorf("failed to delete vector records for document %s: %w", documentID, err)
	}
	return int(count), nil
}

// Count returns the number of stored records.
func (idx *Index) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count, err := idx.store.Count(&storedRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count vector records: %w", err)
	}
	return int(count), nil
}
