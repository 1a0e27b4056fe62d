package escpos

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"strings"

	"github.com/xpertbrdev/thermal-print-service/internal/core"
	"github.com/xpertbrdev/thermal-print-service/internal/printers"
)

// Renderer turns a job's content list into the command buffer for one
// printer. It is stateless; physical parameters come from the printer
// configuration per call.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(p *printers.Printer, content []core.ContentItem) ([]byte, error) {
	buf := NewBuffer(p.CharPerLine)
	buf.CharacterSet(p.CharacterSet)

	for i, item := range content {
		if err := r.renderItem(buf, item); err != nil {
			return nil, fmt.Errorf("content[%d] (%s): %w", i, item.Type, err)
		}
	}

	return buf.Bytes(), nil
}

func (r *Renderer) renderItem(buf *Buffer, item core.ContentItem) error {
	switch item.Type {
	case core.ContentText:
		renderText(buf, item)
	case core.ContentImage:
		return renderImage(buf, item)
	case core.ContentTable:
		renderTable(buf, item)
	case core.ContentBarcode:
		buf.Barcode128(item.Value)
	case core.ContentQRCode:
		renderQR(buf, item)
	case core.ContentPDF:
		return renderPDF(buf, item)
	case core.ContentCut:
		buf.Cut()
	case core.ContentBeep:
		buf.Beep()
	case core.ContentCashDrawer:
		buf.CashDrawer()
	case core.ContentLine:
		buf.DrawLine()
	case core.ContentNewLine:
		buf.NewLine()
	default:
		log.Printf("[escpos] unsupported content type: %s", item.Type)
	}
	return nil
}

func renderText(buf *Buffer, item core.ContentItem) {
	style := item.Style
	if style != nil {
		if style.Bold {
			buf.Bold(true)
		}
		if style.Underline {
			buf.Underline(true)
		}
		if style.Invert {
			buf.Invert(true)
		}
		if style.Align != "" {
			buf.Align(style.Align)
		}
		if style.Width > 0 && style.Height > 0 {
			buf.TextSize(style.Width, style.Height)
		}
	}

	buf.Println(item.Value)

	if style != nil {
		buf.ResetStyle()
	}
}

func renderTable(buf *Buffer, item core.ContentItem) {
	table := item.Table
	if table == nil {
		return
	}

	if len(table.Headers) > 0 {
		buf.Bold(true)
		buf.TableRow(table.Headers)
		buf.Bold(false)
		buf.DrawLine()
	}

	for _, row := range table.Rows {
		buf.TableRow(row.Cells)
	}
}

func renderQR(buf *Buffer, item core.ContentItem) {
	value := item.Value
	size := 6
	align := ""
	if item.QRCode != nil {
		if item.QRCode.Value != "" {
			value = item.QRCode.Value
		}
		if item.QRCode.Size > 0 {
			size = item.QRCode.Size
		}
		align = item.QRCode.Align
	}
	if value == "" {
		return
	}

	if align != "" {
		buf.Align(align)
	}
	buf.QR(value, size)
	if align != "" && align != core.AlignLeft {
		buf.Align(core.AlignLeft)
	}
}

// renderPDF handles pdf items whose payload was already rasterized
// upstream into a decodable image. Still-binary PDF documents cannot be
// printed and are skipped with a log line rather than failing the job.
func renderPDF(buf *Buffer, item core.ContentItem) error {
	img, err := loadImage(item)
	if err != nil {
		log.Printf("[escpos] skipping pdf content item: %v", err)
		return nil
	}
	return buf.Raster(img)
}

func renderImage(buf *Buffer, item core.ContentItem) error {
	img, err := loadImage(item)
	if err != nil {
		return err
	}
	return buf.Raster(img)
}

// loadImage accepts a local file path or an inline base64 payload,
// optionally wrapped in a data: URI. PNG and JPEG are supported.
func loadImage(item core.ContentItem) (image.Image, error) {
	var reader *bytes.Reader

	switch {
	case item.Path != "":
		data, err := os.ReadFile(item.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		reader = bytes.NewReader(data)
	case item.Value != "":
		payload := item.Value
		if idx := strings.Index(payload, ";base64,"); idx >= 0 {
			payload = payload[idx+len(";base64,"):]
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode inline image: %w", err)
		}
		reader = bytes.NewReader(data)
	default:
		return nil, fmt.Errorf("image requires a path or inline value")
	}

	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
