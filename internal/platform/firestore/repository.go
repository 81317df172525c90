package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Document is a decoded snapshot plus its metadata.
type Document[T any] struct {
	ID         string
	Data       T
	UpdateTime time.Time
}

// Decoder hydrates T from a snapshot.
type Decoder[T any] func(ctx context.Context, snap *firestore.DocumentSnapshot) (T, error)

// QueryBuilder narrows a collection query.
type QueryBuilder func(query firestore.Query) firestore.Query

// Reader offers typed read access to one collection.
type Reader[T any] struct {
	provider   *Provider
	collection string
	decode     Decoder[T]
}

// NewReader binds a Reader to collection.
func NewReader[T any](provider *Provider, collection string, decode Decoder[T]) (*Reader[T], error) {
	if provider == nil {
		return nil, errors.New("firestore: provider is required")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, errors.New("firestore: collection name is required")
	}
	if decode == nil {
		return nil, errors.New("firestore: decoder is required")
	}
	return &Reader[T]{provider: provider, collection: collection, decode: decode}, nil
}

// Get fetches and decodes the document id.
func (r *Reader[T]) Get(ctx context.Context, id string) (Document[T], error) {
	if strings.TrimSpace(id) == "" {
		return Document[T]{}, NotFound(r.op("get"), errors.New("document id is required"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return Document[T]{}, err
	}
	snap, err := client.Collection(r.collection).Doc(id).Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(r.op("get"), err)
	}
	return r.decodeDocument(ctx, snap)
}

// Query runs build against the collection and decodes every result.
func (r *Reader[T]) Query(ctx context.Context, build QueryBuilder) ([]Document[T], error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	query := client.Collection(r.collection).Query
	if build != nil {
		query = build(query)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []Document[T]
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, WrapError(r.op("query"), err)
		}
		doc, err := r.decodeDocument(ctx, snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *Reader[T]) decodeDocument(ctx context.Context, snap *firestore.DocumentSnapshot) (Document[T], error) {
	data, err := r.decode(ctx, snap)
	if err != nil {
		return Document[T]{}, fmt.Errorf("%s: decode %s: %w", r.op("decode"), snap.Ref.ID, err)
	}
	return Document[T]{ID: snap.Ref.ID, Data: data, UpdateTime: snap.UpdateTime}, nil
}

func (r *Reader[T]) op(action string) string {
	return r.collection + "." + action
}

// MapDecoder returns the raw field map of a snapshot.
func MapDecoder() Decoder[map[string]any] {
	return func(_ context.Context, snap *firestore.DocumentSnapshot) (map[string]any, error) {
		data := snap.Data()
		if data == nil {
			data = map[string]any{}
		}
		return data, nil
	}
}
