// Package printer transmits rendered command buffers to physical
// printers over network, USB or serial transports.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/xpertbrdev/thermal-print-service/internal/config"
	"github.com/xpertbrdev/thermal-print-service/internal/core"
	"github.com/xpertbrdev/thermal-print-service/internal/escpos"
	"github.com/xpertbrdev/thermal-print-service/internal/printers"
)

var (
	ErrUnsupportedConnection = errors.New("unsupported connection type")
	ErrConnectionFailed      = errors.New("connection failed")
	ErrTransmissionFailed    = errors.New("transmission failed")
)

// Executor implements core.Executor. Each print renders the content for
// the target printer and opens a fresh connection for the transmission;
// the printer's configured timeout bounds both dial and write.
type Executor struct {
	resolver core.PrinterResolver
	renderer *escpos.Renderer
	cfg      config.PrintingConfig
}

func NewExecutor(resolver core.PrinterResolver, cfg config.PrintingConfig) *Executor {
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}
	if cfg.DefaultPort == 0 {
		cfg.DefaultPort = 9100
	}

	return &Executor{
		resolver: resolver,
		renderer: escpos.NewRenderer(),
		cfg:      cfg,
	}
}

func (e *Executor) Print(ctx context.Context, printerID string, content []core.ContentItem) error {
	p, err := e.resolver.Get(ctx, printerID)
	if err != nil {
		return fmt.Errorf("failed to resolve printer %s: %w", printerID, err)
	}

	data, err := e.renderer.Render(p, content)
	if err != nil {
		return fmt.Errorf("failed to render job: %w", err)
	}

	conn, err := e.open(ctx, p)
	if err != nil {
		return err
	}
	defer conn.Close()

	if nc, ok := conn.(net.Conn); ok {
		_ = nc.SetDeadline(time.Now().Add(e.timeout(p)))
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransmissionFailed, err)
	}

	log.Printf("[printer] sent %d bytes to %s (%s %s)", len(data), p.ID, p.ConnectionType, p.Address)
	return nil
}

// TestConnection probes whether the printer's transport can be opened.
func (e *Executor) TestConnection(ctx context.Context, printerID string) (bool, error) {
	p, err := e.resolver.Get(ctx, printerID)
	if err != nil {
		return false, err
	}

	conn, err := e.open(ctx, p)
	if err != nil {
		return false, nil
	}
	conn.Close()
	return true, nil
}

func (e *Executor) open(ctx context.Context, p *printers.Printer) (io.WriteCloser, error) {
	switch p.ConnectionType {
	case printers.ConnectionNetwork:
		dialer := net.Dialer{Timeout: e.timeout(p)}
		conn, err := dialer.DialContext(ctx, "tcp", e.networkAddress(p.Address))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		return conn, nil

	case printers.ConnectionUSB, printers.ConnectionSerial:
		f, err := os.OpenFile(p.Address, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		return f, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConnection, p.ConnectionType)
	}
}

func (e *Executor) timeout(p *printers.Printer) time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return e.cfg.ConnectionTimeout
}

func (e *Executor) networkAddress(address string) string {
	if strings.Contains(address, ":") {
		return address
	}
	return fmt.Sprintf("%s:%d", address, e.cfg.DefaultPort)
}
