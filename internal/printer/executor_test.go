package printer_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpertbrdev/thermal-print-service/internal/config"
	"github.com/xpertbrdev/thermal-print-service/internal/core"
	"github.com/xpertbrdev/thermal-print-service/internal/printer"
	"github.com/xpertbrdev/thermal-print-service/internal/printers"
)

type singlePrinterResolver struct {
	printer *printers.Printer
}

func (r *singlePrinterResolver) Get(_ context.Context, id string) (*printers.Printer, error) {
	if r.printer == nil || r.printer.ID != id {
		return nil, printers.ErrNotFound
	}
	return r.printer, nil
}

func (r *singlePrinterResolver) List(_ context.Context) ([]*printers.Printer, error) {
	if r.printer == nil {
		return nil, nil
	}
	return []*printers.Printer{r.printer}, nil
}

func listen(t *testing.T) (net.Listener, chan []byte) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	return ln, received
}

func TestPrintTransmitsRenderedContent(t *testing.T) {
	ln, received := listen(t)

	resolver := &singlePrinterResolver{printer: &printers.Printer{
		ID:             "p1",
		Name:           "Counter",
		ConnectionType: printers.ConnectionNetwork,
		Address:        ln.Addr().String(),
		CharPerLine:    48,
		CharacterSet:   "PC852_LATIN2",
		Timeout:        2 * time.Second,
	}}

	exec := printer.NewExecutor(resolver, config.PrintingConfig{})

	err := exec.Print(context.Background(), "p1", []core.ContentItem{
		{Type: core.ContentText, Value: "hello"},
	})
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Contains(t, string(data), "hello")
		// Starts with the printer init sequence.
		assert.Equal(t, []byte{0x1B, '@'}, data[:2])
	case <-time.After(2 * time.Second):
		t.Fatal("printer never received data")
	}
}

func TestPrintUnknownPrinter(t *testing.T) {
	exec := printer.NewExecutor(&singlePrinterResolver{}, config.PrintingConfig{})

	err := exec.Print(context.Background(), "ghost", []core.ContentItem{
		{Type: core.ContentText, Value: "x"},
	})
	assert.ErrorIs(t, err, printers.ErrNotFound)
}

func TestPrintConnectionRefused(t *testing.T) {
	// Reserve a port and close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	resolver := &singlePrinterResolver{printer: &printers.Printer{
		ID:             "p1",
		ConnectionType: printers.ConnectionNetwork,
		Address:        addr,
		Timeout:        500 * time.Millisecond,
	}}

	exec := printer.NewExecutor(resolver, config.PrintingConfig{})
	err = exec.Print(context.Background(), "p1", []core.ContentItem{
		{Type: core.ContentText, Value: "x"},
	})
	assert.Error(t, err)
}

func TestTestConnection(t *testing.T) {
	ln, _ := listen(t)

	resolver := &singlePrinterResolver{printer: &printers.Printer{
		ID:             "p1",
		ConnectionType: printers.ConnectionNetwork,
		Address:        ln.Addr().String(),
		Timeout:        time.Second,
	}}

	exec := printer.NewExecutor(resolver, config.PrintingConfig{})

	ok, err := exec.TestConnection(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = exec.TestConnection(context.Background(), "ghost")
	assert.ErrorIs(t, err, printers.ErrNotFound)
}

func TestUnsupportedConnectionType(t *testing.T) {
	resolver := &singlePrinterResolver{printer: &printers.Printer{
		ID:             "p1",
		ConnectionType: "bluetooth",
		Address:        "whatever",
	}}

	exec := printer.NewExecutor(resolver, config.PrintingConfig{})
	err := exec.Print(context.Background(), "p1", []core.ContentItem{
		{Type: core.ContentText, Value: "x"},
	})
	assert.ErrorIs(t, err, printer.ErrUnsupportedConnection)
}
