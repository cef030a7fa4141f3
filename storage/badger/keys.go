package badger

import (
	"encoding/binary"

	"github.com/poiesic/retrievio/core"
)

const (
	vectorRecordPrefix = "vecrec:"
	flowPrefix         = "flow:"
)

// makeVectorKey lays out prefix | BLAKE2b-64(id) big-endian | id.
// The trailing id keeps keys unique when two ids share a hash.
func makeVectorKey(id string) []byte {
	buf := make([]byte, len(vectorRecordPrefix)+8+len(id))
	offset := copy(buf, vectorRecordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(id)))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

func makeFlowKey(flowID string) []byte {
	return []byte(flowPrefix + flowID)
}
