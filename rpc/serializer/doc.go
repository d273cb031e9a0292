// Package serializer converts rpc messages to and from bytes.
//
// Three implementations of IRPCSerializer exist:
//
//   - binary: a flag based format that only encodes the fields that are
//     present. It is the smallest and fastest and the default of kvmux.
//
//   - json: human readable, useful for debugging with curl.
//
//   - gob: Go's gob encoding, mainly kept for comparison.
//
// JSON and gob do not distinguish a nil from an empty byte slice. The protocol
// therefore never relies on it: presence of a value is always carried by the
// Ok flag of the message.
//
// All serializers are stateless and safe for concurrent use.
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.Serialize(msg)
//	...
//	var received common.Message
//	err = s.Deserialize(data, &received)
package serializer
