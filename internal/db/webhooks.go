package db

import (
	"database/sql"
	"fmt"
)

const webhookColumns = `id, name, url, secret, events_json, enabled, created_at`

func ListWebhooks(database *sql.DB) ([]*Webhook, error) {
	rows, err := database.Query(`SELECT ` + webhookColumns + ` FROM webhooks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func GetWebhookByID(database *sql.DB, id int64) (*Webhook, error) {
	row := database.QueryRow(`SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`, id)
	return scanWebhook(row)
}

func CreateWebhook(database *sql.DB, w *Webhook) error {
	result, err := database.Exec(`
		INSERT INTO webhooks (name, url, secret, events_json, enabled)
		VALUES (?, ?, ?, ?, ?)
	`, w.Name, w.URL, w.Secret, w.EventsJSON, boolToInt(w.Enabled))
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get webhook id: %w", err)
	}
	w.ID = id
	return nil
}

func UpdateWebhook(database *sql.DB, w *Webhook) error {
	_, err := database.Exec(`
		UPDATE webhooks SET name = ?, url = ?, secret = ?, events_json = ?, enabled = ?
		WHERE id = ?
	`, w.Name, w.URL, w.Secret, w.EventsJSON, boolToInt(w.Enabled), w.ID)
	if err != nil {
		return fmt.Errorf("failed to update webhook %d: %w", w.ID, err)
	}
	return nil
}

func DeleteWebhook(database *sql.DB, id int64) error {
	_, err := database.Exec(`DELETE FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWebhook(row rowScanner) (*Webhook, error) {
	w := &Webhook{}
	var enabled int
	err := row.Scan(&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &enabled, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	w.Enabled = enabled == 1
	return w, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
