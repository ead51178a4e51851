package ddb

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/go-cmp/cmp"
	"github.com/letmevibethatforyou/shopsearch"
)

const streamEvent = `{
	"Records": [
		{
			"eventID": "1",
			"eventName": "INSERT",
			"eventSource": "aws:dynamodb",
			"awsRegion": "us-east-1",
			"dynamodb": {
				"Keys": {
					"pk": {"S": "p1"},
					"sk": {"S": "products"}
				},
				"NewImage": {
					"pk": {"S": "p1"},
					"sk": {"S": "products"},
					"object": {
						"M": {
							"id": {"S": "p1"},
							"title": {"S": "Desk Lamp"},
							"description": {"S": "Warm light"},
							"category": {"S": "Furniture"},
							"tags": {"L": [{"S": "lighting"}, {"S": "office"}]},
							"price": {"N": "25.5"},
							"rating": {"N": "4.2"},
							"createdAt": {"S": "2024-06-25T00:00:00Z"},
							"featured": {"BOOL": true}
						}
					}
				},
				"SequenceNumber": "111",
				"SizeBytes": 256,
				"StreamViewType": "NEW_AND_OLD_IMAGES"
			}
		},
		{
			"eventID": "2",
			"eventName": "REMOVE",
			"eventSource": "aws:dynamodb",
			"awsRegion": "us-east-1",
			"dynamodb": {
				"Keys": {
					"pk": {"S": "p2"},
					"sk": {"S": "products"}
				},
				"SequenceNumber": "112",
				"SizeBytes": 64,
				"StreamViewType": "NEW_AND_OLD_IMAGES"
			}
		}
	]
}`

func decodeEvent(t *testing.T) events.DynamoDBEvent {
	t.Helper()
	var event events.DynamoDBEvent
	if err := json.Unmarshal([]byte(streamEvent), &event); err != nil {
		t.Fatalf("Failed to unmarshal DynamoDBEvent: %v", err)
	}
	if len(event.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(event.Records))
	}
	return event
}

func TestUnmarshalRecord(t *testing.T) {
	event := decodeEvent(t)

	tests := map[string]struct {
		image    map[string]events.DynamoDBAttributeValue
		expected Record
	}{
		"insert_new_image": {
			image: event.Records[0].Change.NewImage,
			expected: Record{
				ID:        "p1",
				IndexName: "products",
				Object: shopsearch.Item{
					ID:          "p1",
					Title:       "Desk Lamp",
					Description: "Warm light",
					Category:    "Furniture",
					Tags:        []string{"lighting", "office"},
					Price:       shopsearch.Float(25.5),
					Rating:      shopsearch.Float(4.2),
					CreatedAt:   "2024-06-25T00:00:00Z",
					Featured:    shopsearch.Bool(true),
				},
			},
		},
		"remove_keys_only": {
			image:    event.Records[1].Change.Keys,
			expected: Record{ID: "p2", IndexName: "products"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			record, err := UnmarshalRecord(tc.image)
			if err != nil {
				t.Fatalf("UnmarshalRecord returned error: %v", err)
			}
			if diff := cmp.Diff(tc.expected, record); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStreamEventNames(t *testing.T) {
	event := decodeEvent(t)

	if got := events.DynamoDBOperationType(event.Records[0].EventName); got != events.DynamoDBOperationTypeInsert {
		t.Errorf("Expected INSERT, got %s", got)
	}
	if got := events.DynamoDBOperationType(event.Records[1].EventName); got != events.DynamoDBOperationTypeRemove {
		t.Errorf("Expected REMOVE, got %s", got)
	}
	if event.Records[1].Change.NewImage != nil {
		t.Error("Expected REMOVE record to carry no new image")
	}
}

func TestFromStreamImage(t *testing.T) {
	var image map[string]events.DynamoDBAttributeValue
	err := json.Unmarshal([]byte(`{
		"s": {"S": "text"},
		"n": {"N": "42"},
		"b": {"BOOL": false},
		"null": {"NULL": true},
		"ss": {"SS": ["a", "b"]},
		"ns": {"NS": ["1", "2"]},
		"l": {"L": [{"S": "x"}, {"N": "1"}]},
		"m": {"M": {"inner": {"S": "y"}}}
	}`), &image)
	if err != nil {
		t.Fatalf("Failed to unmarshal image: %v", err)
	}

	out, err := FromStreamImage(image)
	if err != nil {
		t.Fatalf("FromStreamImage returned error: %v", err)
	}

	tests := map[string]func(types.AttributeValue) bool{
		"s": func(v types.AttributeValue) bool {
			s, ok := v.(*types.AttributeValueMemberS)
			return ok && s.Value == "text"
		},
		"n": func(v types.AttributeValue) bool {
			n, ok := v.(*types.AttributeValueMemberN)
			return ok && n.Value == "42"
		},
		"b": func(v types.AttributeValue) bool {
			b, ok := v.(*types.AttributeValueMemberBOOL)
			return ok && !b.Value
		},
		"null": func(v types.AttributeValue) bool {
			n, ok := v.(*types.AttributeValueMemberNULL)
			return ok && n.Value
		},
		"ss": func(v types.AttributeValue) bool {
			ss, ok := v.(*types.AttributeValueMemberSS)
			return ok && cmp.Equal(ss.Value, []string{"a", "b"})
		},
		"ns": func(v types.AttributeValue) bool {
			ns, ok := v.(*types.AttributeValueMemberNS)
			return ok && cmp.Equal(ns.Value, []string{"1", "2"})
		},
		"l": func(v types.AttributeValue) bool {
			l, ok := v.(*types.AttributeValueMemberL)
			return ok && len(l.Value) == 2
		},
		"m": func(v types.AttributeValue) bool {
			m, ok := v.(*types.AttributeValueMemberM)
			if !ok {
				return false
			}
			inner, ok := m.Value["inner"].(*types.AttributeValueMemberS)
			return ok && inner.Value == "y"
		},
	}

	for name, check := range tests {
		t.Run(name, func(t *testing.T) {
			v, ok := out[name]
			if !ok {
				t.Fatalf("Attribute %q missing", name)
			}
			if !check(v) {
				t.Errorf("Attribute %q converted to unexpected value %#v", name, v)
			}
		})
	}
}

func TestMarshalRecordRoundTrip(t *testing.T) {
	record := NewRecord("products", shopsearch.Item{
		ID:         "p3",
		Title:      "Office Chair",
		Category:   "Furniture",
		Tags:       []string{"office"},
		Price:      shopsearch.Float(189),
		CreatedAt:  "2023-12-01T00:00:00Z",
		BestSeller: shopsearch.Bool(true),
	})

	item, err := MarshalRecord(record)
	if err != nil {
		t.Fatalf("MarshalRecord returned error: %v", err)
	}

	pk, ok := item[PartitionKey].(*types.AttributeValueMemberS)
	if !ok || pk.Value != "p3" {
		t.Errorf("Expected pk p3, got %#v", item[PartitionKey])
	}
	sk, ok := item[SortKey].(*types.AttributeValueMemberS)
	if !ok || sk.Value != "products" {
		t.Errorf("Expected sk products, got %#v", item[SortKey])
	}

	var back Record
	if err := attributevalue.UnmarshalMap(item, &back); err != nil {
		t.Fatalf("UnmarshalMap returned error: %v", err)
	}
	if diff := cmp.Diff(record, back); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}
