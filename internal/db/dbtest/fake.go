// Package dbtest provides an in-memory stand-in for the DynamoDB calls the
// stores make. Only single-attribute "PK" keys and the
// attribute_not_exists(PK) condition are supported.
package dbtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Fake struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue

	// Err, when set, is returned by every call.
	Err error
}

func New() *Fake {
	return &Fake{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func pkOf(item map[string]types.AttributeValue) (string, error) {
	s, ok := item["PK"].(*types.AttributeValueMemberS)
	if !ok || s.Value == "" {
		return "", errors.New("dbtest: missing PK")
	}
	return s.Value, nil
}

func (f *Fake) table(name string) map[string]map[string]types.AttributeValue {
	t, ok := f.tables[name]
	if !ok {
		t = map[string]map[string]types.AttributeValue{}
		f.tables[name] = t
	}
	return t
}

func (f *Fake) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	pk, err := pkOf(in.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: f.table(aws.ToString(in.TableName))[pk]}, nil
}

func (f *Fake) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	pk, err := pkOf(in.Item)
	if err != nil {
		return nil, err
	}
	t := f.table(aws.ToString(in.TableName))
	if strings.Contains(aws.ToString(in.ConditionExpression), "attribute_not_exists(PK)") {
		if _, exists := t[pk]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	t[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *Fake) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	pk, err := pkOf(in.Key)
	if err != nil {
		return nil, err
	}
	delete(f.table(aws.ToString(in.TableName)), pk)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Item returns the stored item or nil.
func (f *Fake) Item(table, pk string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.table(table)[pk]
}

// Len reports how many items a table holds.
func (f *Fake) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.table(table))
}
