package escpos_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpertbrdev/thermal-print-service/internal/core"
	"github.com/xpertbrdev/thermal-print-service/internal/escpos"
	"github.com/xpertbrdev/thermal-print-service/internal/printers"
)

func testPrinter() *printers.Printer {
	return &printers.Printer{
		ID:           "p1",
		Name:         "Counter",
		CharPerLine:  48,
		CharacterSet: "PC852_LATIN2",
	}
}

func TestRenderText(t *testing.T) {
	r := escpos.NewRenderer()

	data, err := r.Render(testPrinter(), []core.ContentItem{
		{Type: core.ContentText, Value: "hello receipt"},
	})
	require.NoError(t, err)

	// Init, character set, then the text.
	assert.True(t, bytes.HasPrefix(data, []byte{0x1B, '@', 0x1B, 't', 18}))
	assert.Contains(t, string(data), "hello receipt\n")
}

func TestRenderStyledText(t *testing.T) {
	r := escpos.NewRenderer()

	data, err := r.Render(testPrinter(), []core.ContentItem{
		{Type: core.ContentText, Value: "TOTAL", Style: &core.TextStyle{
			Bold:   true,
			Align:  core.AlignCenter,
			Width:  2,
			Height: 2,
		}},
	})
	require.NoError(t, err)

	assert.True(t, bytes.Contains(data, []byte{0x1B, 'E', 1}), "bold on")
	assert.True(t, bytes.Contains(data, []byte{0x1B, 'a', 1}), "centered")
	assert.True(t, bytes.Contains(data, []byte{0x1D, '!', 0x11}), "double size")
	// Style is reset after the text.
	assert.True(t, bytes.Contains(data, []byte{0x1B, 'E', 0}), "bold off")
}

func TestRenderTableWithHeaders(t *testing.T) {
	r := escpos.NewRenderer()

	data, err := r.Render(testPrinter(), []core.ContentItem{
		{Type: core.ContentTable, Table: &core.Table{
			Headers: []string{"Item", "Qty"},
			Rows: []core.TableRow{
				{Cells: []string{"Coffee", "2"}},
				{Cells: []string{"Cake", "1"}},
			},
		}},
	})
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "Item")
	assert.Contains(t, text, "Coffee")
	assert.Contains(t, text, "Cake")
}

func TestRenderFullReceipt(t *testing.T) {
	r := escpos.NewRenderer()

	data, err := r.Render(testPrinter(), []core.ContentItem{
		{Type: core.ContentText, Value: "STORE"},
		{Type: core.ContentLine},
		{Type: core.ContentQRCode, QRCode: &core.QRCode{Value: "order-42"}},
		{Type: core.ContentBarcode, Value: "4711"},
		{Type: core.ContentNewLine},
		{Type: core.ContentCut},
	})
	require.NoError(t, err)

	assert.Contains(t, string(data), "order-42")
	assert.Contains(t, string(data), "{B4711")
	assert.True(t, bytes.HasSuffix(data, []byte{0x1D, 'V', 66, 3}), "ends with cut")
}

func TestRenderPDFWithRasterizedPayload(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	r := escpos.NewRenderer()
	data, err := r.Render(testPrinter(), []core.ContentItem{
		{Type: core.ContentPDF, Value: inline},
	})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte{0x1D, 'v', '0', 0, 1, 0, 8, 0}))
}

func TestRenderUndecodablePDFIsSkipped(t *testing.T) {
	r := escpos.NewRenderer()

	// A raw PDF document is not decodable as an image; the item is
	// skipped without failing the rest of the job.
	raw := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 not an image"))
	data, err := r.Render(testPrinter(), []core.ContentItem{
		{Type: core.ContentPDF, Value: raw},
		{Type: core.ContentText, Value: "after"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), "after")
}

func TestRenderInlineImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	r := escpos.NewRenderer()
	data, err := r.Render(testPrinter(), []core.ContentItem{
		{Type: core.ContentImage, Value: inline},
	})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte{0x1D, 'v', '0', 0, 1, 0, 8, 0}))
}

func TestRenderBadImageFails(t *testing.T) {
	r := escpos.NewRenderer()

	_, err := r.Render(testPrinter(), []core.ContentItem{
		{Type: core.ContentImage, Value: "not base64 at all!!!"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content[0]")
}

func TestRenderMissingImageFileFails(t *testing.T) {
	r := escpos.NewRenderer()

	_, err := r.Render(testPrinter(), []core.ContentItem{
		{Type: core.ContentImage, Path: "/nonexistent/image.png"},
	})
	assert.Error(t, err)
}
