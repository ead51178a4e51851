// Package ddb maps catalog records between DynamoDB and the search model.
package ddb

import (
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/shopsearch"
)

// Table key attribute names.
const (
	PartitionKey = "pk"
	SortKey      = "sk"
)

// Record is one catalog row: the item keyed by its ID, stored under the name
// of the search index it belongs to.
type Record struct {
	ID        string          `dynamodbav:"pk"`
	IndexName string          `dynamodbav:"sk"`
	Object    shopsearch.Item `dynamodbav:"object"`
}

// NewRecord builds the row for it in indexName.
func NewRecord(indexName string, it shopsearch.Item) Record {
	return Record{ID: it.ID, IndexName: indexName, Object: it}
}

// MarshalRecord converts a record into a DynamoDB item.
func MarshalRecord(r Record) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal record %s", r.ID)
	}
	return item, nil
}

// UnmarshalRecord converts a stream image (a new image or just the keys) into
// a Record.
func UnmarshalRecord(image map[string]events.DynamoDBAttributeValue) (Record, error) {
	item, err := FromStreamImage(image)
	if err != nil {
		return Record{}, err
	}

	var record Record
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return Record{}, errors.Wrap(err, "failed to unmarshal record")
	}
	return record, nil
}

// FromStreamImage converts the attribute values of a stream record into the
// SDK representation understood by attributevalue.
func FromStreamImage(image map[string]events.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(image))
	for name, av := range image {
		v, err := fromStreamValue(av)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", name)
		}
		out[name] = v
	}
	return out, nil
}

func fromStreamValue(av events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch av.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: av.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: av.Number()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: av.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: av.Binary()}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: av.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: av.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: av.BinarySet()}, nil
	case events.DataTypeList:
		list := av.List()
		values := make([]types.AttributeValue, 0, len(list))
		for i, elem := range list {
			v, err := fromStreamValue(elem)
			if err != nil {
				return nil, errors.Wrapf(err, "list element %d", i)
			}
			values = append(values, v)
		}
		return &types.AttributeValueMemberL{Value: values}, nil
	case events.DataTypeMap:
		m, err := FromStreamImage(av.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, errors.Newf("unsupported attribute type %v", av.DataType())
	}
}
