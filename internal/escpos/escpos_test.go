package escpos_test

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpertbrdev/thermal-print-service/internal/escpos"
)

func TestNewBufferInitializes(t *testing.T) {
	b := escpos.NewBuffer(48)
	assert.Equal(t, []byte{0x1B, '@'}, b.Bytes())
}

func TestCharacterSet(t *testing.T) {
	b := escpos.NewBuffer(48)
	before := b.Len()
	b.CharacterSet("PC852_LATIN2")
	assert.Equal(t, []byte{0x1B, 't', 18}, b.Bytes()[before:])

	// Unknown names fall back to latin2.
	b2 := escpos.NewBuffer(48)
	before = b2.Len()
	b2.CharacterSet("KLINGON")
	assert.Equal(t, []byte{0x1B, 't', 18}, b2.Bytes()[before:])
}

func TestPrintln(t *testing.T) {
	b := escpos.NewBuffer(48)
	before := b.Len()
	b.Println("hello")
	assert.Equal(t, []byte("hello\n"), b.Bytes()[before:])
}

func TestStyleCommands(t *testing.T) {
	b := escpos.NewBuffer(48)
	before := b.Len()

	b.Bold(true)
	b.Underline(true)
	b.Invert(true)
	b.Align("center")
	b.Align("right")
	b.Align("left")

	assert.Equal(t, []byte{
		0x1B, 'E', 1,
		0x1B, '-', 1,
		0x1D, 'B', 1,
		0x1B, 'a', 1,
		0x1B, 'a', 2,
		0x1B, 'a', 0,
	}, b.Bytes()[before:])
}

func TestTextSize(t *testing.T) {
	b := escpos.NewBuffer(48)
	before := b.Len()

	b.TextSize(1, 1)
	b.TextSize(2, 3)
	b.TextSize(99, -4)

	assert.Equal(t, []byte{
		0x1D, '!', 0x00,
		0x1D, '!', 0x12,
		0x1D, '!', 0x70,
	}, b.Bytes()[before:])
}

func TestDrawLineUsesLineWidth(t *testing.T) {
	b := escpos.NewBuffer(10)
	before := b.Len()
	b.DrawLine()
	assert.Equal(t, []byte("----------\n"), b.Bytes()[before:])
}

func TestControlCommands(t *testing.T) {
	b := escpos.NewBuffer(48)
	before := b.Len()

	b.Cut()
	b.Beep()
	b.CashDrawer()

	assert.Equal(t, []byte{
		0x1D, 'V', 66, 3,
		0x1B, 'B', 2, 2,
		0x1B, 'p', 0, 25, 250,
	}, b.Bytes()[before:])
}

func TestBarcode128(t *testing.T) {
	b := escpos.NewBuffer(48)
	before := b.Len()
	b.Barcode128("12345")

	data := b.Bytes()[before:]
	// Code set prefix {B plus the payload, length byte covers both.
	assert.Contains(t, string(data), "{B12345")
	idx := bytes.Index(data, []byte{0x1D, 'k', 73})
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, byte(7), data[idx+3])
}

func TestQREncodesValue(t *testing.T) {
	b := escpos.NewBuffer(48)
	before := b.Len()
	b.QR("https://example.com", 6)

	data := b.Bytes()[before:]
	assert.Contains(t, string(data), "https://example.com")
	// Module size command carries the requested size.
	assert.True(t, bytes.Contains(data, []byte{0x1D, '(', 'k', 3, 0, 49, 67, 6}))
	// Print command is present.
	assert.True(t, bytes.Contains(data, []byte{0x1D, '(', 'k', 3, 0, 49, 81, 48}))
}

func TestQRSizeOutOfRangeDefaults(t *testing.T) {
	b := escpos.NewBuffer(48)
	b.QR("x", 99)
	assert.True(t, bytes.Contains(b.Bytes(), []byte{0x1D, '(', 'k', 3, 0, 49, 67, 6}))
}

func TestTableRowColumns(t *testing.T) {
	b := escpos.NewBuffer(12)
	before := b.Len()
	b.TableRow([]string{"ab", "cd", "ef"})
	assert.Equal(t, []byte("ab  cd  ef\n"), b.Bytes()[before:])
}

func TestTableRowTruncatesLongCells(t *testing.T) {
	b := escpos.NewBuffer(8)
	before := b.Len()
	b.TableRow([]string{"abcdefgh", "xy"})
	assert.Equal(t, []byte("abcdxy\n"), b.Bytes()[before:])
}

func TestRasterDimensions(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	for x := 0; x < 16; x++ {
		img.SetGray(x, 0, color.Gray{Y: 0})
	}

	b := escpos.NewBuffer(48)
	before := b.Len()
	require.NoError(t, b.Raster(img))

	data := b.Bytes()[before:]
	require.GreaterOrEqual(t, len(data), 8)
	assert.Equal(t, []byte{0x1D, 'v', '0', 0, 2, 0, 4, 0}, data[:8])
	// Top row is all black, second row is untouched white.
	assert.Equal(t, byte(0xFF), data[8])
	assert.Equal(t, byte(0xFF), data[9])
	assert.Equal(t, byte(0x00), data[10])
}

func TestRasterRejectsOversizedImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 500, 2))
	b := escpos.NewBuffer(48)
	assert.Error(t, b.Raster(img))
}
