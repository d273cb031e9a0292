package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/kvmux/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Set request
		*common.NewSetRequest("users", "test-key", []byte("test-value")),

		// Delete request (set without value)
		*common.NewSetRequest("users", "test-key", nil),

		// Get response
		*common.NewGetResponse([]byte("test-value"), true, nil),

		// ListKeys request and response
		*common.NewListKeysRequest("users"),
		*common.NewListKeysResponse([]string{"a", "b", "grüße"}, nil),

		// Error response
		*common.NewErrorResponse("test error message"),

		// Message with all fields filled
		{
			MsgType:   common.MsgTKVGet,
			Namespace: "ns",
			Key:       "key",
			Value:     []byte{0, 1, 2, 255},
			Ok:        true,
			Keys:      []string{"x"},
			Err:       "err",
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTSuccess; msgType <= common.MsgTKVListKeys; msgType++ {
				msg := common.Message{MsgType: msgType}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestEmptyValueIsPresent checks that a present empty value survives every serializer
// through the Ok flag, even where the encoding drops the empty slice.
func TestEmptyValueIsPresent(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for _, msg := range []common.Message{
				*common.NewSetRequest("ns", "k", []byte{}),
				*common.NewGetResponse([]byte{}, true, nil),
			} {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Fatalf("Failed to serialize: %v", err)
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Fatalf("Failed to deserialize: %v", err)
				}

				if !result.Ok {
					t.Errorf("%s: empty value lost its presence flag", msg.MsgType)
				}
				if len(result.Value) != 0 {
					t.Errorf("%s: expected empty value, got %v", msg.MsgType, result.Value)
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Empty value slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTKVSet,
				Key:     "test",
				Value:   []byte{},
				Ok:      true,
			},
		},
		{
			name: "Ok without value",
			msg: common.Message{
				MsgType: common.MsgTKVGet,
				Ok:      true,
			},
		},
		{
			name: "Empty key list but not nil",
			msg: common.Message{
				MsgType: common.MsgTKVListKeys,
				Keys:    []string{},
			},
		},
		{
			name: "Empty strings in key list",
			msg: common.Message{
				MsgType: common.MsgTKVListKeys,
				Keys:    []string{"", "a", ""},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// DeepEqual distinguishes nil and empty slices
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Mismatch after round trip:\nOriginal: %#v\nResult: %#v", tc.msg, result)
			}
		})
	}
}

// TestBinaryDeserializeResetsFields checks that decoding into a used message clears absent fields
func TestBinaryDeserializeResetsFields(t *testing.T) {
	serializer := NewBinarySerializer()

	data, err := serializer.Serialize(common.Message{MsgType: common.MsgTSuccess})
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	msg := common.Message{Namespace: "ns", Key: "k", Value: []byte("v"), Ok: true, Keys: []string{"a"}, Err: "e"}
	if err := serializer.Deserialize(data, &msg); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}

	if !reflect.DeepEqual(common.Message{MsgType: common.MsgTSuccess}, msg) {
		t.Errorf("Fields were not reset: %#v", msg)
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, hasKey, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{1, hasValue, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Too many keys",
			data:        []byte{1, hasKeys, 0xff, 0xff, 0xff, 0xff}, // Claims 4 billion keys
			expectError: true,
		},
		{
			name:        "Missing namespace length",
			data:        []byte{1, hasNamespace, 0, 0},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
