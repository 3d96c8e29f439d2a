package merge

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
)

// WriteEXR writes img as an uncompressed, single-part scanline OpenEXR
// file: one FLOAT channel per named buffer, increasing-Y line order.
// No library in the reference corpus reads or writes OpenEXR (the
// closest hit, sudorandom-bgp-stream's engine, only imports
// encoding/csv) — see DESIGN.md for why this is written directly
// against the file format rather than against a third-party package.
func WriteEXR(path string, img Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(img.Buffers))
	for name := range img.Buffers {
		names = append(names, name)
	}
	sort.Strings(names)

	header := buildHeader(img.Width, img.Height, names)

	w := bufio.NewWriter(f)
	if _, err := w.Write([]byte{0x76, 0x2f, 0x31, 0x01}); err != nil { // magic
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(2)); err != nil { // version 2, no flags
		return err
	}
	if _, err := w.Write(header); err != nil {
		return err
	}

	rowBytes := int64(len(names)) * int64(img.Width) * 4
	preambleSize := int64(8 + len(header)) // magic+version, then header
	offsetTableSize := int64(img.Height) * 8
	firstScanline := preambleSize + offsetTableSize

	for y := uint32(0); y < img.Height; y++ {
		offset := firstScanline + int64(y)*(8+rowBytes)
		if err := binary.Write(w, binary.LittleEndian, offset); err != nil {
			return err
		}
	}

	for y := uint32(0); y < img.Height; y++ {
		if err := binary.Write(w, binary.LittleEndian, int32(y)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, int32(rowBytes)); err != nil {
			return err
		}
		for _, name := range names {
			row := img.Buffers[name][y*img.Width : (y+1)*img.Width]
			for _, v := range row {
				if err := binary.Write(w, binary.LittleEndian, v); err != nil {
					return err
				}
			}
		}
	}

	return w.Flush()
}

// buildHeader renders the OpenEXR attribute list (everything between
// the version field and the offset table) as a single byte slice, so
// its length is known before any of it is written to the file.
func buildHeader(width, height uint32, channelNames []string) []byte {
	var b attrBuffer
	b.attr("channels", "chlist", encodeChannels(channelNames))
	b.attr("compression", "compression", []byte{0}) // NO_COMPRESSION
	b.attr("dataWindow", "box2i", encodeBox2i(0, 0, int32(width)-1, int32(height)-1))
	b.attr("displayWindow", "box2i", encodeBox2i(0, 0, int32(width)-1, int32(height)-1))
	b.attr("lineOrder", "lineOrder", []byte{0}) // INCREASING_Y
	b.attr("pixelAspectRatio", "float", encodeFloat32(1.0))
	b.attr("screenWindowCenter", "v2f", encodeV2f(0, 0))
	b.attr("screenWindowWidth", "float", encodeFloat32(1.0))
	b.data = append(b.data, 0) // end-of-header marker
	return b.data
}

type attrBuffer struct {
	data []byte
}

func (b *attrBuffer) cstring(s string) {
	b.data = append(b.data, []byte(s)...)
	b.data = append(b.data, 0)
}

func (b *attrBuffer) int32(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	b.data = append(b.data, tmp[:]...)
}

func (b *attrBuffer) attr(name, typ string, value []byte) {
	b.cstring(name)
	b.cstring(typ)
	b.int32(int32(len(value)))
	b.data = append(b.data, value...)
}

// encodeChannels renders the chlist attribute value: one entry per
// FLOAT channel, in ascending name order as OpenEXR requires,
// terminated by a null byte.
func encodeChannels(names []string) []byte {
	var b attrBuffer
	for _, name := range names {
		b.cstring(name)
		b.int32(2)                                 // pixel type: FLOAT
		b.data = append(b.data, 0, 0, 0, 0)         // pLinear + 3 reserved bytes
		b.int32(1)                                  // xSampling
		b.int32(1)                                  // ySampling
	}
	b.data = append(b.data, 0)
	return b.data
}

func encodeBox2i(xMin, yMin, xMax, yMax int32) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out[0:4], uint32(xMin))
	binary.LittleEndian.PutUint32(out[4:8], uint32(yMin))
	binary.LittleEndian.PutUint32(out[8:12], uint32(xMax))
	binary.LittleEndian.PutUint32(out[12:16], uint32(yMax))
	return out
}

func encodeFloat32(v float32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, math.Float32bits(v))
	return out
}

func encodeV2f(x, y float32) []byte {
	return append(encodeFloat32(x), encodeFloat32(y)...)
}
