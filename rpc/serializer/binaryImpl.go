package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/kvmux/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Layout: 1 byte MsgType, 1 byte flags, then the present fields in flag order.
// Strings and byte slices are prefixed with a uint32 length, Keys with a uint32
// count. Ok has no payload, the flag is the value.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasNamespace byte = 1 << 0
	hasKey       byte = 1 << 1
	hasValue     byte = 1 << 2
	hasOk        byte = 1 << 3
	hasKeys      byte = 1 << 4
	hasErr       byte = 1 << 5
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, 2, b.sizeBytes(msg))
	result[0] = byte(msg.MsgType)

	var flags byte = 0

	if msg.Namespace != "" {
		flags |= hasNamespace
		result = appendBytes(result, []byte(msg.Namespace))
	}

	if msg.Key != "" {
		flags |= hasKey
		result = appendBytes(result, []byte(msg.Key))
	}

	// an empty (non nil) value is kept
	if msg.Value != nil {
		flags |= hasValue
		result = appendBytes(result, msg.Value)
	}

	if msg.Ok {
		flags |= hasOk
	}

	if msg.Keys != nil {
		flags |= hasKeys
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Keys)))
		for _, k := range msg.Keys {
			result = appendBytes(result, []byte(k))
		}
	}

	if msg.Err != "" {
		flags |= hasErr
		result = appendBytes(result, []byte(msg.Err))
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := data[1]
	r := reader{data: data, pos: 2}

	msg.Namespace = ""
	if flags&hasNamespace != 0 {
		ns, err := r.bytes("namespace")
		if err != nil {
			return err
		}
		msg.Namespace = string(ns)
	}

	msg.Key = ""
	if flags&hasKey != 0 {
		key, err := r.bytes("key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
	}

	msg.Value = nil
	if flags&hasValue != 0 {
		value, err := r.bytes("value")
		if err != nil {
			return err
		}
		// copy, data may be a reused buffer
		msg.Value = make([]byte, len(value))
		copy(msg.Value, value)
	}

	msg.Ok = flags&hasOk != 0

	msg.Keys = nil
	if flags&hasKeys != 0 {
		count, err := r.uint32("key count")
		if err != nil {
			return err
		}
		// every key needs at least its length prefix
		if int(count) > (len(data)-r.pos)/4 {
			return fmt.Errorf("data too short for %d keys", count)
		}
		msg.Keys = make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			k, err := r.bytes("keys")
			if err != nil {
				return err
			}
			msg.Keys = append(msg.Keys, string(k))
		}
	}

	msg.Err = ""
	if flags&hasErr != 0 {
		e, err := r.bytes("error")
		if err != nil {
			return err
		}
		msg.Err = string(e)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Namespace != "" {
		size += 4 + len(msg.Namespace)
	}
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Keys != nil {
		size += 4
		for _, k := range msg.Keys {
			size += 4 + len(k)
		}
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}

	return size
}

// appendBytes appends a length prefixed byte slice
func appendBytes(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

// reader reads length prefixed fields from a serialized message
type reader struct {
	data []byte
	pos  int
}

func (r *reader) uint32(field string) (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s length", field)
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// bytes returns the next length prefixed field. The result aliases the input.
func (r *reader) bytes(field string) ([]byte, error) {
	n, err := r.uint32(field)
	if err != nil {
		return nil, err
	}
	if uint64(r.pos)+uint64(n) > uint64(len(r.data)) {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}
