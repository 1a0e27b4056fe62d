package core

import "fmt"

type ContentType string

const (
	ContentText       ContentType = "text"
	ContentImage      ContentType = "image"
	ContentTable      ContentType = "table"
	ContentBarcode    ContentType = "barcode"
	ContentQRCode     ContentType = "qr-code"
	ContentPDF        ContentType = "pdf"
	ContentCut        ContentType = "cut"
	ContentBeep       ContentType = "beep"
	ContentCashDrawer ContentType = "cash-drawer"
	ContentLine       ContentType = "line"
	ContentNewLine    ContentType = "new-line"
)

const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

type TextStyle struct {
	Bold      bool   `json:"bold,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Invert    bool   `json:"invert,omitempty"`
	Align     string `json:"align,omitempty" binding:"omitempty,oneof=left center right"`
	Width     int    `json:"width,omitempty" binding:"omitempty,min=1,max=8"`
	Height    int    `json:"height,omitempty" binding:"omitempty,min=1,max=8"`
}

type QRCode struct {
	Value  string `json:"value" binding:"required"`
	Size   int    `json:"size,omitempty" binding:"omitempty,min=1,max=8"`
	Align  string `json:"align,omitempty" binding:"omitempty,oneof=left center right"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type TableRow struct {
	Cells []string `json:"cells" binding:"required"`
}

type Table struct {
	Headers []string   `json:"headers,omitempty"`
	Rows    []TableRow `json:"rows" binding:"required"`
}

// ContentItem is the tagged union over everything a print request can
// carry. Type selects the variant; the other fields are variant-specific.
type ContentItem struct {
	Type      ContentType `json:"type" binding:"required"`
	Value     string      `json:"value,omitempty"`
	Path      string      `json:"path,omitempty"`
	Style     *TextStyle  `json:"style,omitempty"`
	Table     *Table      `json:"table,omitempty"`
	QRCode    *QRCode     `json:"qrCode,omitempty"`
	Symbology string      `json:"symbology,omitempty"`
}

var knownContentTypes = map[ContentType]bool{
	ContentText:       true,
	ContentImage:      true,
	ContentTable:      true,
	ContentBarcode:    true,
	ContentQRCode:     true,
	ContentPDF:        true,
	ContentCut:        true,
	ContentBeep:       true,
	ContentCashDrawer: true,
	ContentLine:       true,
	ContentNewLine:    true,
}

// ValidateContent checks the type-specific required fields of each item.
// Validation errors surface synchronously at the HTTP boundary; invalid
// content is never enqueued.
func ValidateContent(items []ContentItem) error {
	if len(items) == 0 {
		return fmt.Errorf("content must contain at least one item")
	}

	for i, item := range items {
		if !knownContentTypes[item.Type] {
			return fmt.Errorf("content[%d]: unknown type %q", i, item.Type)
		}

		switch item.Type {
		case ContentText, ContentBarcode:
			if item.Value == "" {
				return fmt.Errorf("content[%d]: %s requires a value", i, item.Type)
			}
		case ContentImage, ContentPDF:
			if item.Path == "" && item.Value == "" {
				return fmt.Errorf("content[%d]: %s requires a path or inline value", i, item.Type)
			}
		case ContentTable:
			if item.Table == nil || len(item.Table.Rows) == 0 {
				return fmt.Errorf("content[%d]: table requires at least one row", i)
			}
		case ContentQRCode:
			if (item.QRCode == nil || item.QRCode.Value == "") && item.Value == "" {
				return fmt.Errorf("content[%d]: qr-code requires a value", i)
			}
		}
	}

	return nil
}
