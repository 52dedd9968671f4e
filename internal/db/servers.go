package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/vcode/internal/models"
)

// ListEnabledServers returns enabled mail servers, lowest priority value first.
func ListEnabledServers(ctx context.Context, pool *pgxpool.Pool) ([]models.MailServer, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, name, host, port, username, encrypted_password, use_tls, enabled, priority
		FROM mail_servers
		WHERE enabled
		ORDER BY priority ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mail servers: %w", err)
	}
	defer rows.Close()

	servers := []models.MailServer{}
	for rows.Next() {
		var s models.MailServer
		if err := rows.Scan(&s.ID, &s.Name, &s.Host, &s.Port, &s.Username, &s.EncryptedPassword, &s.UseTLS, &s.Enabled, &s.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan mail server: %w", err)
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mail servers: %w", err)
	}

	return servers, nil
}

// SaveMailServer inserts or updates a server by name and sets its ID.
func SaveMailServer(ctx context.Context, pool *pgxpool.Pool, s *models.MailServer) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO mail_servers (name, host, port, username, encrypted_password, use_tls, enabled, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			host = EXCLUDED.host,
			port = EXCLUDED.port,
			username = EXCLUDED.username,
			encrypted_password = EXCLUDED.encrypted_password,
			use_tls = EXCLUDED.use_tls,
			enabled = EXCLUDED.enabled,
			priority = EXCLUDED.priority,
			updated_at = now()
		RETURNING id
	`, s.Name, s.Host, s.Port, s.Username, s.EncryptedPassword, s.UseTLS, s.Enabled, s.Priority).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to save mail server: %w", err)
	}
	return nil
}
