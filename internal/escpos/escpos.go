// Package escpos builds ESC/POS command buffers for thermal receipt
// printers. Sequences target the common Epson dialect; vendor quirks are
// out of scope.
package escpos

import (
	"bytes"
	"fmt"
	"image"
	"strings"
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

var characterSetMap = map[string]byte{
	"PC437_USA":             0,
	"PC850_MULTILINGUAL":    2,
	"PC860_PORTUGUESE":      3,
	"PC863_CANADIAN_FRENCH": 4,
	"PC865_NORDIC":          5,
	"WPC1252":               16,
	"PC852_LATIN2":          18,
	"PC858_EURO":            19,
}

// Buffer accumulates ESC/POS commands. Zero value is not usable; call
// NewBuffer.
type Buffer struct {
	buf         bytes.Buffer
	charPerLine int
}

func NewBuffer(charPerLine int) *Buffer {
	if charPerLine <= 0 {
		charPerLine = 48
	}
	b := &Buffer{charPerLine: charPerLine}
	b.Init()
	return b
}

// Init resets the printer to its power-on state.
func (b *Buffer) Init() {
	b.buf.Write([]byte{esc, '@'})
}

func (b *Buffer) CharacterSet(name string) {
	code, ok := characterSetMap[name]
	if !ok {
		code = characterSetMap["PC852_LATIN2"]
	}
	b.buf.Write([]byte{esc, 't', code})
}

func (b *Buffer) Println(s string) {
	b.buf.WriteString(s)
	b.buf.WriteByte(lf)
}

func (b *Buffer) NewLine() {
	b.buf.WriteByte(lf)
}

func (b *Buffer) Bold(on bool) {
	b.buf.Write([]byte{esc, 'E', flag(on)})
}

func (b *Buffer) Underline(on bool) {
	b.buf.Write([]byte{esc, '-', flag(on)})
}

func (b *Buffer) Invert(on bool) {
	b.buf.Write([]byte{gs, 'B', flag(on)})
}

// Align takes "left", "center" or "right"; anything else is left.
func (b *Buffer) Align(align string) {
	var n byte
	switch align {
	case "center":
		n = 1
	case "right":
		n = 2
	}
	b.buf.Write([]byte{esc, 'a', n})
}

// TextSize sets character magnification, 1-8 in both axes.
func (b *Buffer) TextSize(width, height int) {
	w := clampScale(width)
	h := clampScale(height)
	b.buf.Write([]byte{gs, '!', byte((w-1)<<4 | (h - 1))})
}

// ResetStyle restores normal text and left alignment.
func (b *Buffer) ResetStyle() {
	b.Bold(false)
	b.Underline(false)
	b.Invert(false)
	b.buf.Write([]byte{gs, '!', 0})
	b.Align("left")
}

func (b *Buffer) DrawLine() {
	b.Println(strings.Repeat("-", b.charPerLine))
}

// Cut performs a partial cut after feeding past the cutter.
func (b *Buffer) Cut() {
	b.buf.Write([]byte{gs, 'V', 66, 3})
}

func (b *Buffer) Beep() {
	b.buf.Write([]byte{esc, 'B', 2, 2})
}

// CashDrawer pulses drawer kick-out connector pin 2.
func (b *Buffer) CashDrawer() {
	b.buf.Write([]byte{esc, 'p', 0, 25, 250})
}

// Barcode128 prints data as CODE128 with HRI text below.
func (b *Buffer) Barcode128(data string) {
	b.buf.Write([]byte{gs, 'H', 2})
	b.buf.Write([]byte{gs, 'h', 80})
	b.buf.Write([]byte{gs, 'w', 2})

	payload := "{B" + data
	b.buf.Write([]byte{gs, 'k', 73, byte(len(payload))})
	b.buf.WriteString(payload)
	b.buf.WriteByte(lf)
}

// QR prints value as a model-2 QR symbol. size is the module size, 1-8.
func (b *Buffer) QR(value string, size int) {
	if size < 1 || size > 8 {
		size = 6
	}

	// Model 2.
	b.buf.Write([]byte{gs, '(', 'k', 4, 0, 49, 65, 50, 0})
	// Module size.
	b.buf.Write([]byte{gs, '(', 'k', 3, 0, 49, 67, byte(size)})
	// Error correction level M.
	b.buf.Write([]byte{gs, '(', 'k', 3, 0, 49, 69, 49})

	data := []byte(value)
	n := len(data) + 3
	b.buf.Write([]byte{gs, '(', 'k', byte(n & 0xFF), byte(n >> 8), 49, 80, 48})
	b.buf.Write(data)

	// Print the stored symbol.
	b.buf.Write([]byte{gs, '(', 'k', 3, 0, 49, 81, 48})
	b.buf.WriteByte(lf)
}

// TableRow lays cells out in equal-width columns across the line.
func (b *Buffer) TableRow(cells []string) {
	if len(cells) == 0 {
		return
	}

	colWidth := b.charPerLine / len(cells)
	if colWidth < 1 {
		colWidth = 1
	}

	var line strings.Builder
	for _, cell := range cells {
		if len(cell) > colWidth {
			cell = cell[:colWidth]
		}
		line.WriteString(cell)
		line.WriteString(strings.Repeat(" ", colWidth-len(cell)))
	}
	b.Println(strings.TrimRight(line.String(), " "))
}

// Raster prints the image as a GS v 0 raster, thresholding luminance at
// 50%. Width is capped at 8 dots per character column.
func (b *Buffer) Raster(img image.Image) error {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("empty image")
	}

	maxWidth := b.charPerLine * 8
	if width > maxWidth {
		return fmt.Errorf("image width %d exceeds printable width %d", width, maxWidth)
	}

	bytesPerRow := (width + 7) / 8
	data := make([]byte, bytesPerRow*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if a == 0 {
				continue
			}
			// ITU-R BT.601 luma.
			luma := (299*r + 587*g + 114*bl) / 1000
			if luma < 0x8000 {
				data[y*bytesPerRow+x/8] |= 0x80 >> uint(x%8)
			}
		}
	}

	b.buf.Write([]byte{gs, 'v', '0', 0,
		byte(bytesPerRow & 0xFF), byte(bytesPerRow >> 8),
		byte(height & 0xFF), byte(height >> 8),
	})
	b.buf.Write(data)
	b.buf.WriteByte(lf)
	return nil
}

func (b *Buffer) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *Buffer) Len() int {
	return b.buf.Len()
}

func flag(on bool) byte {
	if on {
		return 1
	}
	return 0
}

func clampScale(n int) int {
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
