// Package dynamodb keeps documents in a single DynamoDB table keyed by
// collection and id. Subscriptions poll.
package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
)

// maxTransactItems is the DynamoDB limit on actions per transaction.
const maxTransactItems = 100

// item is the table row. Table requirements:
//   - PK: collection (string)
//   - SK: id (string)
type item struct {
	Collection string         `dynamodbav:"collection"`
	ID         string         `dynamodbav:"id"`
	Data       map[string]any `dynamodbav:"data"`
	Version    int64          `dynamodbav:"version"`
}

// Options tune a Store.
type Options struct {
	Table        string
	PollInterval time.Duration
	Buffer       int
}

// Store is a document.Store backed by DynamoDB.
type Store struct {
	api    API
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	streams map[*document.Stream]struct{}
	closed  bool
}

var _ document.Store = (*Store)(nil)

// New creates a store over api.
func New(api API, opts Options, logger *slog.Logger) *Store {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Store{api: api, opts: opts, logger: logger, streams: make(map[*document.Stream]struct{})}
}

func (s *Store) key(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"collection": &types.AttributeValueMemberS{Value: collection},
		"id":         &types.AttributeValueMemberS{Value: id},
	}
}

// Get returns a single document using a consistent read.
func (s *Store) Get(ctx context.Context, collection, id string) (document.Document, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.opts.Table),
		Key:            s.key(collection, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return document.Document{}, err
	}
	if len(out.Item) == 0 {
		return document.Document{}, fmt.Errorf("%s/%s: %w", collection, id, domainErrors.ErrNotFound)
	}
	return decodeItem(out.Item)
}

// Query pages through the collection partition. Filters are pushed down as a
// filter expression and re-checked locally.
func (s *Store) Query(ctx context.Context, collection string, filters ...document.Filter) ([]document.Document, error) {
	input, err := buildQuery(s.opts.Table, collection, filters)
	if err != nil {
		return nil, err
	}

	var result []document.Document
	for {
		out, err := s.api.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, raw := range out.Items {
			doc, err := decodeItem(raw)
			if err != nil {
				s.logger.Warn("undecodable item skipped", slog.String("collection", collection), slog.String("error", err.Error()))
				continue
			}
			if document.MatchAll(filters, doc.Data) {
				result = append(result, doc)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func buildQuery(table, collection string, filters []document.Filter) (*dynamodb.QueryInput, error) {
	names := map[string]string{"#c": "collection"}
	values := map[string]types.AttributeValue{":c": &types.AttributeValueMemberS{Value: collection}}

	var filterExpr string
	for i, f := range filters {
		name := "#f" + strconv.Itoa(i)
		names["#d"] = "data"
		names[name] = f.Field
		placeholders := make([]string, 0, len(f.Values))
		for j, v := range f.Values {
			av, err := attributevalue.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode filter %s: %w", f, err)
			}
			ph := fmt.Sprintf(":f%dv%d", i, j)
			values[ph] = av
			placeholders = append(placeholders, ph)
		}
		if len(placeholders) == 0 {
			return nil, fmt.Errorf("filter %s has no values", f)
		}
		clause := fmt.Sprintf("#d.%s = %s", name, placeholders[0])
		if len(placeholders) > 1 {
			clause = fmt.Sprintf("#d.%s IN (%s)", name, joinPlaceholders(placeholders))
		}
		if filterExpr != "" {
			filterExpr += " AND "
		}
		filterExpr += clause
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String("#c = :c"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConsistentRead:            aws.Bool(true),
	}
	if filterExpr != "" {
		input.FilterExpression = aws.String(filterExpr)
	}
	return input, nil
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += ", " + p
	}
	return out
}

// Close ends open subscriptions. The SDK client holds no connections to release.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for stream := range s.streams {
		stream.Fail(domainErrors.ErrSubscriptionClosed)
	}
	clear(s.streams)
	return nil
}

func encodeData(data map[string]any) (types.AttributeValue, error) {
	if data == nil {
		data = map[string]any{}
	}
	return encodeValue(data)
}

// encodeValue marshals using json tags so struct values such as
// document.Timestamp keep the field names the normalizer reads.
func encodeValue(v any) (types.AttributeValue, error) {
	av, err := attributevalue.MarshalWithOptions(v, func(o *attributevalue.EncoderOptions) {
		o.TagKey = "json"
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrUnsupportedDocument, err)
	}
	return av, nil
}

func decodeItem(raw map[string]types.AttributeValue) (document.Document, error) {
	var it item
	err := attributevalue.UnmarshalMapWithOptions(raw, &it, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: %w", domainErrors.ErrMalformedRecord, err)
	}
	if it.ID == "" {
		return document.Document{}, fmt.Errorf("%w: item without id", domainErrors.ErrMalformedRecord)
	}
	data, _ := jsonNumbers(it.Data).(map[string]any)
	if data == nil {
		data = map[string]any{}
	}
	return document.Document{ID: it.ID, Data: data, Version: it.Version}, nil
}

// jsonNumbers rewrites attributevalue numbers as json.Number so every backend
// hands the normalizer the same numeric representation.
func jsonNumbers(v any) any {
	switch t := v.(type) {
	case attributevalue.Number:
		return json.Number(t)
	case map[string]any:
		for k, e := range t {
			t[k] = jsonNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = jsonNumbers(e)
		}
		return t
	}
	return v
}
