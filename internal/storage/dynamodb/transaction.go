package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
)

// pending is the net effect of a transaction's writes on one document.
type pending struct {
	key    document.Key
	set    bool
	data   map[string]any
	fields map[string]any
}

// action remembers what each transact item guards so cancellation reasons can
// be mapped back to domain errors.
type action struct {
	key       document.Key
	mergeOnly bool
	read      bool
}

// RunTransaction runs fn against consistent reads and commits its writes
// with TransactWriteItems, conditioning every read document on its version.
func (s *Store) RunTransaction(ctx context.Context, fn document.TxFunc) error {
	tx := &dynamoTx{store: s, TxBuffer: document.NewTxBuffer()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(tx.Writes) == 0 {
		return nil
	}

	items, actions, err := s.buildTransaction(tx.TxBuffer)
	if err != nil {
		return err
	}
	_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	return classify(err, actions)
}

func collapse(writes []document.Write) []*pending {
	byKey := make(map[document.Key]*pending)
	var order []*pending
	for _, w := range writes {
		p, ok := byKey[w.Key]
		if !ok {
			p = &pending{key: w.Key}
			byKey[w.Key] = p
			order = append(order, p)
		}
		switch {
		case !w.Merge:
			p.set, p.data, p.fields = true, document.CloneData(w.Data), nil
		case p.set:
			p.data = document.MergeData(p.data, w.Data)
		default:
			p.fields = document.MergeData(p.fields, w.Data)
		}
	}
	return order
}

func (s *Store) buildTransaction(buf *document.TxBuffer) ([]types.TransactWriteItem, []action, error) {
	writes := collapse(buf.Writes)
	written := make(map[document.Key]struct{}, len(writes))

	var (
		items   []types.TransactWriteItem
		actions []action
	)
	for _, p := range writes {
		written[p.key] = struct{}{}
		readVersion, read := buf.Reads[p.key]
		if !p.set && read && readVersion == 0 {
			return nil, nil, fmt.Errorf("update %s: %w", p.key, domainErrors.ErrNotFound)
		}
		update, err := s.updateFor(p, readVersion, read)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, types.TransactWriteItem{Update: update})
		actions = append(actions, action{key: p.key, mergeOnly: !p.set, read: read})
	}

	var checks []document.Key
	for key := range buf.Reads {
		if _, ok := written[key]; !ok {
			checks = append(checks, key)
		}
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].String() < checks[j].String() })
	for _, key := range checks {
		cond, names, values := versionCondition(buf.Reads[key])
		items = append(items, types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
			TableName:                 aws.String(s.opts.Table),
			Key:                       s.key(key.Collection, key.ID),
			ConditionExpression:       aws.String(cond),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}})
		actions = append(actions, action{key: key, read: true})
	}

	if len(items) > maxTransactItems {
		return nil, nil, fmt.Errorf("transaction touches %d documents, limit is %d", len(items), maxTransactItems)
	}
	return items, actions, nil
}

func versionCondition(version int64) (string, map[string]string, map[string]types.AttributeValue) {
	names := map[string]string{"#v": "version"}
	if version == 0 {
		return "attribute_not_exists(#v)", names, nil
	}
	values := map[string]types.AttributeValue{
		":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
	}
	return "#v = :expected", names, values
}

func (s *Store) updateFor(p *pending, readVersion int64, read bool) (*types.Update, error) {
	names := map[string]string{"#v": "version", "#d": "data"}
	values := map[string]types.AttributeValue{
		":one": &types.AttributeValueMemberN{Value: "1"},
	}

	var expr string
	if p.set {
		data, err := encodeData(p.data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", p.key, err)
		}
		values[":d"] = data
		values[":zero"] = &types.AttributeValueMemberN{Value: "0"}
		expr = "SET #d = :d, #v = if_not_exists(#v, :zero) + :one"
	} else {
		fields := make([]string, 0, len(p.fields))
		for f := range p.fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		expr = "SET "
		for i, f := range fields {
			av, err := encodeValue(p.fields[f])
			if err != nil {
				return nil, fmt.Errorf("encode %s.%s: %w", p.key, f, err)
			}
			name, ph := "#m"+strconv.Itoa(i), ":m"+strconv.Itoa(i)
			names[name] = f
			values[ph] = av
			expr += fmt.Sprintf("#d.%s = %s, ", name, ph)
		}
		expr += "#v = #v + :one"
	}

	var cond string
	switch {
	case read:
		c, _, v := versionCondition(readVersion)
		cond = c
		for k, av := range v {
			values[k] = av
		}
	case !p.set:
		cond = "attribute_exists(#v)"
	}

	update := &types.Update{
		TableName:                 aws.String(s.opts.Table),
		Key:                       s.key(p.key.Collection, p.key.ID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
	if cond != "" {
		update.ConditionExpression = aws.String(cond)
	}
	return update, nil
}

func classify(err error, actions []action) error {
	if err == nil {
		return nil
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for i, reason := range canceled.CancellationReasons {
			code := aws.ToString(reason.Code)
			if code == "" || code == "None" || i >= len(actions) {
				continue
			}
			a := actions[i]
			if code == "ConditionalCheckFailed" && a.mergeOnly && !a.read {
				return fmt.Errorf("update %s: %w", a.key, domainErrors.ErrNotFound)
			}
			return fmt.Errorf("%s: %s: %w", a.key, code, domainErrors.ErrConflict)
		}
		return fmt.Errorf("%s: %w", canceled.ErrorMessage(), domainErrors.ErrConflict)
	}
	var conflict *types.TransactionConflictException
	if errors.As(err, &conflict) {
		return fmt.Errorf("%s: %w", conflict.ErrorMessage(), domainErrors.ErrConflict)
	}
	return err
}

type dynamoTx struct {
	*document.TxBuffer
	store *Store
}

func (tx *dynamoTx) Get(ctx context.Context, collection, id string) (document.Document, error) {
	doc, err := tx.store.Get(ctx, collection, id)
	key := document.Key{Collection: collection, ID: id}
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			tx.RecordRead(key, 0)
		}
		return document.Document{}, err
	}
	tx.RecordRead(key, doc.Version)
	return doc, nil
}
