package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Namespace string `json:"ns,omitempty"`    // Used for: Get, Set, ListKeys
	Key       string `json:"key,omitempty"`   // Used for: Get, Set
	Value     []byte `json:"value,omitempty"` // Used for: Set (request), Get (response)

	// Ok carries a presence flag: on a Set request it is true if Value is set
	// (false means delete), on a Get response it is true if the key was found.
	Ok bool `json:"ok,omitempty"`

	// Response only fields
	Keys []string `json:"keys,omitempty"` // Used for: ListKeys responses
	Err  string   `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewSetRequest creates a new Set request. A nil value requests deletion of the key.
func NewSetRequest(namespace, key string, value []byte) *Message {
	msg := &Message{
		MsgType:   MsgTKVSet,
		Namespace: namespace,
		Key:       key,
		Ok:        value != nil,
	}
	if value != nil {
		msg.Value = value
	}
	return msg
}

// NewSetResponse creates a new Set response
func NewSetResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVSet,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewGetRequest creates a new Get request
func NewGetRequest(namespace, key string) *Message {
	return &Message{
		MsgType:   MsgTKVGet,
		Namespace: namespace,
		Key:       key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVGet,
		Ok:      ok,
		Value:   value,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewListKeysRequest creates a new ListKeys request
func NewListKeysRequest(namespace string) *Message {
	return &Message{
		MsgType:   MsgTKVListKeys,
		Namespace: namespace,
	}
}

// NewListKeysResponse creates a new ListKeys response
func NewListKeysResponse(keys []string, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVListKeys,
		Keys:    keys,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTKVSet:
		return "set"
	case MsgTKVGet:
		return "get"
	case MsgTKVListKeys:
		return "listKeys"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "set":
		*t = MsgTKVSet
	case "get":
		*t = MsgTKVGet
	case "listKeys":
		*t = MsgTKVListKeys
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Key-value operations

	MsgTKVGet      // Get a value by key
	MsgTKVSet      // Set (or, without a value, delete) a key
	MsgTKVListKeys // List the keys of a namespace
)
