package imaging

import "encoding/binary"

// JPEG markers used while scanning frame headers.
const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerEOI    = 0xD9
	markerSOS    = 0xDA
	markerDHT    = 0xC4
	markerTEM    = 0x01
	markerRST0   = 0xD0
	markerRST7   = 0xD7
)

// huffmanTable is one table of a DHT segment: class and id packed as in
// the Tc/Th byte, code counts per length 1-16, then the symbols.
type huffmanTable struct {
	classID byte
	counts  [16]byte
	symbols []byte
}

// standardTables are the JPEG Annex K.3 tables UVC cameras assume when
// they leave DHT out of MJPEG frames.
var standardTables = [...]huffmanTable{
	{
		classID: 0x00, // luminance DC
		counts:  [16]byte{0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0},
		symbols: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	},
	{
		classID: 0x10, // luminance AC
		counts:  [16]byte{0, 2, 1, 3, 3, 2, 4, 3, 5, 5, 4, 4, 0, 0, 1, 125},
		symbols: []byte{
			0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12,
			0x21, 0x31, 0x41, 0x06, 0x13, 0x51, 0x61, 0x07,
			0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xa1, 0x08,
			0x23, 0x42, 0xb1, 0xc1, 0x15, 0x52, 0xd1, 0xf0,
			0x24, 0x33, 0x62, 0x72, 0x82, 0x09, 0x0a, 0x16,
			0x17, 0x18, 0x19, 0x1a, 0x25, 0x26, 0x27, 0x28,
			0x29, 0x2a, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39,
			0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48, 0x49,
			0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59,
			0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69,
			0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79,
			0x7a, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89,
			0x8a, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98,
			0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7,
			0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6,
			0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3, 0xc4, 0xc5,
			0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2, 0xd3, 0xd4,
			0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xe1, 0xe2,
			0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea,
			0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
			0xf9, 0xfa,
		},
	},
	{
		classID: 0x01, // chrominance DC
		counts:  [16]byte{0, 3, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0},
		symbols: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	},
	{
		classID: 0x11, // chrominance AC
		counts:  [16]byte{0, 2, 1, 2, 4, 4, 3, 4, 7, 5, 4, 4, 0, 1, 2, 119},
		symbols: []byte{
			0x00, 0x01, 0x02, 0x03, 0x11, 0x04, 0x05, 0x21,
			0x31, 0x06, 0x12, 0x41, 0x51, 0x07, 0x61, 0x71,
			0x13, 0x22, 0x32, 0x81, 0x08, 0x14, 0x42, 0x91,
			0xa1, 0xb1, 0xc1, 0x09, 0x23, 0x33, 0x52, 0xf0,
			0x15, 0x62, 0x72, 0xd1, 0x0a, 0x16, 0x24, 0x34,
			0xe1, 0x25, 0xf1, 0x17, 0x18, 0x19, 0x1a, 0x26,
			0x27, 0x28, 0x29, 0x2a, 0x35, 0x36, 0x37, 0x38,
			0x39, 0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48,
			0x49, 0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58,
			0x59, 0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68,
			0x69, 0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78,
			0x79, 0x7a, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
			0x88, 0x89, 0x8a, 0x92, 0x93, 0x94, 0x95, 0x96,
			0x97, 0x98, 0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5,
			0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4,
			0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3,
			0xc4, 0xc5, 0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2,
			0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda,
			0xe2, 0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9,
			0xea, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
			0xf9, 0xfa,
		},
	},
}

// standardDHT is the encoded DHT segment, marker included.
var standardDHT = buildDHT(standardTables[:])

func buildDHT(tables []huffmanTable) []byte {
	length := 2
	for _, t := range tables {
		length += 1 + len(t.counts) + len(t.symbols)
	}

	seg := make([]byte, 4, 2+length)
	seg[0], seg[1] = markerPrefix, markerDHT
	binary.BigEndian.PutUint16(seg[2:4], uint16(length)) //nolint:gosec // fixed tables, well under 64k
	for _, t := range tables {
		seg = append(seg, t.classID)
		seg = append(seg, t.counts[:]...)
		seg = append(seg, t.symbols...)
	}
	return seg
}

// withHuffmanTables returns raw with the standard DHT segment inserted
// before the first SOS when no DHT precedes it. Frames that already carry
// tables, or whose headers cannot be walked, are returned unchanged.
func withHuffmanTables(raw []byte) []byte {
	if len(raw) < 4 || raw[0] != markerPrefix || raw[1] != markerSOI {
		return raw
	}

	for i := 2; i+1 < len(raw); {
		if raw[i] != markerPrefix {
			return raw
		}
		marker := raw[i+1]
		switch {
		case marker == markerPrefix:
			// Fill byte.
			i++
			continue
		case marker == markerDHT, marker == markerEOI:
			return raw
		case marker == markerSOS:
			out := make([]byte, 0, len(raw)+len(standardDHT))
			out = append(out, raw[:i]...)
			out = append(out, standardDHT...)
			return append(out, raw[i:]...)
		case marker == markerTEM, marker >= markerRST0 && marker <= markerRST7:
			i += 2
			continue
		}

		if i+4 > len(raw) {
			return raw
		}
		length := int(binary.BigEndian.Uint16(raw[i+2 : i+4]))
		if length < 2 {
			return raw
		}
		i += 2 + length
	}
	return raw
}
