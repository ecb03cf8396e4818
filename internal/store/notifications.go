package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront-api/internal/apperr"
	"github.com/safar/storefront-api/internal/models"
)

const notificationColumns = `id, title, message, is_read, created_at`

func scanNotification(row interface{ Scan(...any) error }) (*models.Notification, error) {
	n := &models.Notification{}
	err := row.Scan(&n.ID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// CreateNotification appends one event to the notification log. The order
// workflow calls it with its own transaction so the notification commits or
// rolls back together with the transition that caused it.
func CreateNotification(ctx context.Context, q querier, title, message string) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (id, title, message, is_read, created_at)
		VALUES ($1, $2, $3, false, NOW())
		RETURNING ` + notificationColumns

	n, err := scanNotification(q.QueryRowContext(ctx, query, newID(), title, message))
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	return n, nil
}

func ListNotifications(ctx context.Context, db *sql.DB, page, limit int, isRead *bool) (*OffsetPage, error) {
	where := ""
	args := []any{}

	if isRead != nil {
		where = " WHERE is_read = $1"
		args = append(args, *isRead)
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+notificationColumns+`
		FROM notifications%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(notifications, total, page, limit), nil
}

func MarkNotificationRead(ctx context.Context, db *sql.DB, id string) (*models.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = true
		WHERE id = $1
		RETURNING ` + notificationColumns

	n, err := scanNotification(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("notification not found")
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}

	return n, nil
}

func UnreadNotificationCount(ctx context.Context, db *sql.DB) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE is_read = false`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
