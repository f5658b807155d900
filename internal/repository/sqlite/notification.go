package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/google/uuid"
)

// visibleTo restricts notifications n to those addressed to everyone or to
// the engineer bound to the first placeholder.
const visibleTo = `(n.recipient_type = 'all' OR n.recipient_engineer_id = ?)`

func (r *SQLiteRepo) CreateNotification(ctx context.Context, n *models.Notification) (string, error) {
	if n == nil {
		return "", fmt.Errorf("notification is nil")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	ts := now()

	var recipient any
	if n.RecipientEngineerID != nil {
		recipient = *n.RecipientEngineerID
	}
	_, err := r.conn.Exec(ctx, `INSERT INTO notifications (id, message, recipient_type, recipient_engineer_id, sent_by, sent_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Message, string(n.RecipientType), recipient, n.SentBy, ts)
	if err != nil {
		return "", err
	}
	n.SentAt = fromMillis(ts)

	return n.ID, nil
}

func (r *SQLiteRepo) ListNotificationsFor(ctx context.Context, engineerID string, limit int) ([]models.Notification, error) {
	q := `SELECT n.id, n.message, n.recipient_type, n.recipient_engineer_id, n.sent_by, n.sent_at, rd.read_at IS NOT NULL
FROM notifications n
LEFT JOIN notification_reads rd ON rd.notification_id = n.id AND rd.engineer_id = ?
WHERE ` + visibleTo + `
ORDER BY n.sent_at DESC, n.rowid DESC`
	args := []any{engineerID, engineerID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var recipientType string
		var recipient sql.NullString
		var sent int64
		if err := rows.Scan(&n.ID, &n.Message, &recipientType, &recipient, &n.SentBy, &sent, &n.IsRead); err != nil {
			return nil, err
		}
		n.RecipientType = models.RecipientType(recipientType)
		if recipient.Valid {
			v := recipient.String
			n.RecipientEngineerID = &v
		}
		n.SentAt = fromMillis(sent)
		out = append(out, n)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) MarkRead(ctx context.Context, id, engineerID string) (bool, error) {
	var visible int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM notifications n WHERE n.id = ? AND `+visibleTo, id, engineerID).Scan(&visible); err != nil {
		return false, err
	}
	if visible == 0 {
		return false, nil
	}

	// INSERT OR IGNORE keeps the first read_at; read state never reverts.
	if _, err := r.conn.Exec(ctx, `INSERT OR IGNORE INTO notification_reads (notification_id, engineer_id, read_at) VALUES (?, ?, ?)`, id, engineerID, now()); err != nil {
		return false, err
	}

	return true, nil
}

func (r *SQLiteRepo) MarkAllRead(ctx context.Context, engineerID string) (int64, error) {
	res, err := r.conn.Exec(ctx, `INSERT OR IGNORE INTO notification_reads (notification_id, engineer_id, read_at)
SELECT n.id, ?, ? FROM notifications n WHERE `+visibleTo, engineerID, now(), engineerID)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *SQLiteRepo) CountUnread(ctx context.Context, engineerID string) (int64, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM notifications n
WHERE `+visibleTo+` AND NOT EXISTS (SELECT 1 FROM notification_reads rd WHERE rd.notification_id = n.id AND rd.engineer_id = ?)`, engineerID, engineerID).Scan(&n)
	return n, err
}
