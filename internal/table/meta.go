package table

import (
	"errors"

	"github.com/aalhour/lsmkv/internal/encoding"
)

// ErrBadMeta is returned when a meta-index byte region cannot be
// decoded as a well-formed sequence of BlockMeta records.
var ErrBadMeta = errors.New("table: malformed meta-index")

// BlockMeta describes one block's position and key range within an
// SST file. Across a table's meta list, Offset, FirstKey, and LastKey
// are monotonically non-decreasing.
type BlockMeta struct {
	Offset   uint32
	FirstKey []byte
	LastKey  []byte
}

// encodeMetaList serializes metas using the recommended self-delimiting
// layout: first_key_len_u16 | first_key | last_key_len_u16 | last_key |
// offset_u32, one record per block, concatenated with no record count
// (a decoder reads until it exhausts the meta region, bounded by
// meta_offset and file_len-4).
func encodeMetaList(metas []BlockMeta) []byte {
	var out []byte
	for _, m := range metas {
		out = encoding.AppendFixed16(out, uint16(len(m.FirstKey)))
		out = append(out, m.FirstKey...)
		out = encoding.AppendFixed16(out, uint16(len(m.LastKey)))
		out = append(out, m.LastKey...)
		out = encoding.AppendFixed32(out, m.Offset)
	}
	return out
}

// decodeMetaList parses the byte region between meta_offset and
// file_len-4 back into BlockMeta records.
func decodeMetaList(data []byte) ([]BlockMeta, error) {
	var metas []BlockMeta
	for len(data) > 0 {
		if len(data) < 2 {
			return nil, ErrBadMeta
		}
		firstLen := int(encoding.DecodeFixed16(data))
		data = data[2:]
		if len(data) < firstLen+2 {
			return nil, ErrBadMeta
		}
		firstKey := data[:firstLen]
		data = data[firstLen:]

		lastLen := int(encoding.DecodeFixed16(data))
		data = data[2:]
		if len(data) < lastLen+4 {
			return nil, ErrBadMeta
		}
		lastKey := data[:lastLen]
		data = data[lastLen:]

		offset := encoding.DecodeFixed32(data)
		data = data[4:]

		metas = append(metas, BlockMeta{Offset: offset, FirstKey: firstKey, LastKey: lastKey})
	}
	return metas, nil
}
