// Package printers is the printer configuration store. It maps a printer id
// to the connection and physical parameters the execution adapter needs.
package printers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("printer not found")

const (
	TypeEpson   = "epson"
	TypeStar    = "star"
	TypeBrother = "brother"
	TypeTanca   = "tanca"
	TypeDaruma  = "daruma"
	TypeCustom  = "custom"
)

const (
	ConnectionNetwork = "network"
	ConnectionUSB     = "usb"
	ConnectionSerial  = "serial"
)

type Printer struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Type             string        `json:"type"`
	ConnectionType   string        `json:"connectionType"`
	Address          string        `json:"address"`
	WidthMM          int           `json:"width"`
	PrintableWidthMM int           `json:"printableWidth"`
	CharPerLine      int           `json:"charPerLine"`
	CharacterSet     string        `json:"characterSet"`
	Timeout          time.Duration `json:"-"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// DefaultSettings are applied to printers that omit physical parameters.
type DefaultSettings struct {
	WidthMM          int    `json:"width"`
	PrintableWidthMM int    `json:"printableWidth"`
	CharPerLine      int    `json:"charPerLine"`
	CharacterSet     string `json:"characterSet"`
	TimeoutMS        int    `json:"timeout"`
}

func Defaults() DefaultSettings {
	return DefaultSettings{
		WidthMM:          80,
		PrintableWidthMM: 72,
		CharPerLine:      48,
		CharacterSet:     "PC852_LATIN2",
		TimeoutMS:        5000,
	}
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

const printerColumns = `id, name, type, connection_type, address, width_mm, printable_width_mm, char_per_line, character_set, timeout_ms, created_at, updated_at`

func (s *Store) Get(ctx context.Context, id string) (*Printer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+printerColumns+` FROM printers WHERE id = ?`, id)

	p, err := scanPrinter(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query printer %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) List(ctx context.Context) ([]*Printer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+printerColumns+` FROM printers ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()

	var result []*Printer
	for rows.Next() {
		p, err := scanPrinter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan printer: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Save inserts the printer or updates it in place when the id already exists.
func (s *Store) Save(ctx context.Context, p *Printer) error {
	applyDefaults(p)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO printers (id, name, type, connection_type, address, width_mm, printable_width_mm, char_per_line, character_set, timeout_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			connection_type = excluded.connection_type,
			address = excluded.address,
			width_mm = excluded.width_mm,
			printable_width_mm = excluded.printable_width_mm,
			char_per_line = excluded.char_per_line,
			character_set = excluded.character_set,
			timeout_ms = excluded.timeout_ms,
			updated_at = CURRENT_TIMESTAMP
	`, p.ID, p.Name, p.Type, p.ConnectionType, p.Address,
		p.WidthMM, p.PrintableWidthMM, p.CharPerLine, p.CharacterSet,
		int(p.Timeout/time.Millisecond))
	if err != nil {
		return fmt.Errorf("failed to save printer %s: %w", p.ID, err)
	}
	return nil
}

// ReplaceAll swaps the whole printer list atomically. It mirrors the bulk
// configuration upload endpoint: the uploaded file is the source of truth.
func (s *Store) ReplaceAll(ctx context.Context, list []*Printer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM printers"); err != nil {
		return fmt.Errorf("failed to clear printers: %w", err)
	}

	for _, p := range list {
		applyDefaults(p)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO printers (id, name, type, connection_type, address, width_mm, printable_width_mm, char_per_line, character_set, timeout_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.Name, p.Type, p.ConnectionType, p.Address,
			p.WidthMM, p.PrintableWidthMM, p.CharPerLine, p.CharacterSet,
			int(p.Timeout/time.Millisecond))
		if err != nil {
			return fmt.Errorf("failed to insert printer %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM printers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete printer %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func applyDefaults(p *Printer) {
	def := Defaults()
	if p.Type == "" {
		p.Type = TypeEpson
	}
	if p.ConnectionType == "" {
		p.ConnectionType = ConnectionNetwork
	}
	if p.WidthMM == 0 {
		p.WidthMM = def.WidthMM
	}
	if p.PrintableWidthMM == 0 {
		p.PrintableWidthMM = def.PrintableWidthMM
	}
	if p.CharPerLine == 0 {
		p.CharPerLine = def.CharPerLine
	}
	if p.CharacterSet == "" {
		p.CharacterSet = def.CharacterSet
	}
	if p.Timeout == 0 {
		p.Timeout = time.Duration(def.TimeoutMS) * time.Millisecond
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrinter(row rowScanner) (*Printer, error) {
	var p Printer
	var timeoutMS int
	err := row.Scan(
		&p.ID, &p.Name, &p.Type, &p.ConnectionType, &p.Address,
		&p.WidthMM, &p.PrintableWidthMM, &p.CharPerLine, &p.CharacterSet,
		&timeoutMS, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Timeout = time.Duration(timeoutMS) * time.Millisecond
	return &p, nil
}
