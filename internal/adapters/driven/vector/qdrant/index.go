// Package qdrant implements the vector index against a Qdrant server over
// gRPC.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragline-cli/internal/logger"
)

// scrollPageSize bounds one page of the ListIDs scroll.
const scrollPageSize = 1000

// pointNamespace derives deterministic point UUIDs from chunk IDs. Qdrant
// point IDs must be integers or UUIDs; the chunk ID itself travels in the
// payload.
var pointNamespace = uuid.MustParse("8a9e6fd3-7c41-4ab8-9f2e-3d5b09c1a77e")

// Index is a Qdrant-backed vector index scoped to one collection.
type Index struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
}

var _ driven.VectorIndex = (*Index)(nil)

// NewIndex connects to a Qdrant server and ensures the collection exists
// with the given vector dimensions and cosine distance.
func NewIndex(addr, collection string, dimensions int) (*Index, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s: %w", addr, err)
	}

	idx := &Index{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  collection,
	}

	if err := idx.ensureCollection(context.Background(), dimensions); err != nil {
		conn.Close()
		return nil, err
	}
	return idx, nil
}

// ensureCollection creates the collection if it does not exist.
func (idx *Index) ensureCollection(ctx context.Context, dimensions int) error {
	list, err := idx.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	for _, col := range list.GetCollections() {
		if col.GetName() == idx.collection {
			return nil
		}
	}

	logger.Info("Creating qdrant collection %q (dim=%d)", idx.collection, dimensions)
	_, err = idx.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: idx.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimensions),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", idx.collection, err)
	}
	return nil
}

// Upsert inserts or replaces the vector for a chunk.
func (idx *Index) Upsert(ctx context.Context, chunkID string, vector []float32, metadata map[string]string) error {
	payload := map[string]*qdrantclient.Value{
		"chunk_id": {Kind: &qdrantclient.Value_StringValue{StringValue: chunkID}},
	}
	for k, v := range metadata {
		payload["meta_"+k] = &qdrantclient.Value{
			Kind: &qdrantclient.Value_StringValue{StringValue: v},
		}
	}

	point := &qdrantclient.PointStruct{
		Id: pointID(chunkID),
		Vectors: &qdrantclient.Vectors{
			VectorsOptions: &qdrantclient.Vectors_Vector{
				Vector: &qdrantclient.Vector{Data: vector},
			},
		},
		Payload: payload,
	}

	_, err := idx.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: idx.collection,
		Points:         []*qdrantclient.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upserting point for %s: %w", chunkID, err)
	}
	return nil
}

// Delete removes vectors by chunk ID. Unknown IDs are ignored by the server.
func (idx *Index) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	ids := make([]*qdrantclient.PointId, len(chunkIDs))
	for i, chunkID := range chunkIDs {
		ids[i] = pointID(chunkID)
	}

	_, err := idx.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: idx.collection,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Points{
				Points: &qdrantclient.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting %d points: %w", len(chunkIDs), err)
	}
	return nil
}

// Query returns up to topN nearest neighbours, most similar first.
func (idx *Index) Query(ctx context.Context, vector []float32, topN int) ([]driven.VectorHit, error) {
	resp, err := idx.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: idx.collection,
		Vector:         vector,
		Limit:          uint64(topN),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", idx.collection, err)
	}

	hits := make([]driven.VectorHit, 0, len(resp.GetResult()))
	for _, scored := range resp.GetResult() {
		chunkID, metadata := decodePayload(scored.GetPayload())
		if chunkID == "" {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:  chunkID,
			Score:    float64(scored.GetScore()),
			Metadata: metadata,
		})
	}
	return hits, nil
}

// ListIDs scrolls the whole collection and returns every chunk ID.
func (idx *Index) ListIDs(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		offset *qdrantclient.PointId
	)

	for {
		resp, err := idx.points.Scroll(ctx, &qdrantclient.ScrollPoints{
			CollectionName: idx.collection,
			Limit:          ptr(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload: &qdrantclient.WithPayloadSelector{
				SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("scrolling collection %s: %w", idx.collection, err)
		}

		for _, point := range resp.GetResult() {
			chunkID, _ := decodePayload(point.GetPayload())
			if chunkID != "" {
				ids = append(ids, chunkID)
			}
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			return ids, nil
		}
	}
}

// Close tears down the gRPC connection.
func (idx *Index) Close() error {
	return idx.conn.Close()
}

// pointID maps a chunk ID onto a stable UUID point identifier.
func pointID(chunkID string) *qdrantclient.PointId {
	return &qdrantclient.PointId{
		PointIdOptions: &qdrantclient.PointId_Uuid{
			Uuid: uuid.NewSHA1(pointNamespace, []byte(chunkID)).String(),
		},
	}
}

// decodePayload extracts the chunk ID and metadata from a point payload.
func decodePayload(payload map[string]*qdrantclient.Value) (string, map[string]string) {
	var chunkID string
	var metadata map[string]string

	for k, v := range payload {
		s := v.GetStringValue()
		switch {
		case k == "chunk_id":
			chunkID = s
		case len(k) > 5 && k[:5] == "meta_":
			if metadata == nil {
				metadata = make(map[string]string)
			}
			metadata[k[5:]] = s
		}
	}
	return chunkID, metadata
}

func ptr[T any](v T) *T {
	return &v
}
