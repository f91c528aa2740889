package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/accessible-chennai/internal/apperror"
	"github.com/sakif/accessible-chennai/internal/model"
	"github.com/sakif/accessible-chennai/internal/repository"
)

var (
	_ repository.AlertRepository     = (*DB)(nil)
	_ repository.CommunityRepository = (*DB)(nil)
	_ repository.RouteRepository     = (*DB)(nil)
	_ repository.Resetter            = (*DB)(nil)
)

// Lists are full scans, newest first. xids sort by creation time, so id is
// a stable tie-breaker for rows sharing a timestamp.
const newestFirst = ` ORDER BY created_at DESC, id DESC`

// stamp returns the creation time to store. A caller-supplied time is kept
// (imports, tests); otherwise it is now.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// ============================================================================
// Alerts
// ============================================================================

func (db *DB) CreateAlert(ctx context.Context, alert *model.Alert) error {
	id := xid.New().String()
	createdAt := stamp(alert.CreatedAt)

	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO alerts (id, category, message, location, created_at)
		 VALUES (?, ?, ?, ?, ?)`),
		id, alert.Category, alert.Message, nullString(alert.Location), createdAt,
	)
	if err != nil {
		return fmt.Errorf("sqldb: creating alert: %w", err)
	}

	alert.ID = id
	alert.CreatedAt = createdAt
	return nil
}

func (db *DB) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, category, message, location, created_at FROM alerts`+newestFirst)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing alerts: %w", err)
	}
	defer rows.Close()

	alerts := []model.Alert{}
	for rows.Next() {
		var (
			a        model.Alert
			location sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Category, &a.Message, &location, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqldb: scanning alert: %w", err)
		}
		a.Location = location.String
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterating alerts: %w", err)
	}
	return alerts, nil
}

// ============================================================================
// Community messages
// ============================================================================

// CreateMessage stores a community post. A user_id that does not name an
// existing user is a validation error, not a server error.
func (db *DB) CreateMessage(ctx context.Context, msg *model.CommunityMessage) error {
	id := xid.New().String()
	createdAt := stamp(msg.CreatedAt)
	if msg.Type == "" {
		msg.Type = model.DefaultMessageType
	}

	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO community_messages (id, user_id, message, image_url, type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		id, nullString(msg.UserID), msg.Message, nullString(msg.ImageURL), msg.Type, createdAt,
	)
	if err != nil {
		if kind, _ := classify(err); kind == foreignKeyViolation {
			return apperror.ValidationFailed("user_id", "user_id does not refer to an existing user")
		}
		return fmt.Errorf("sqldb: creating community message: %w", err)
	}

	msg.ID = id
	msg.CreatedAt = createdAt
	return nil
}

func (db *DB) ListMessages(ctx context.Context) ([]model.CommunityMessage, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, message, image_url, type, created_at FROM community_messages`+newestFirst)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing community messages: %w", err)
	}
	defer rows.Close()

	messages := []model.CommunityMessage{}
	for rows.Next() {
		var (
			m              model.CommunityMessage
			userID, imgURL sql.NullString
		)
		if err := rows.Scan(&m.ID, &userID, &m.Message, &imgURL, &m.Type, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqldb: scanning community message: %w", err)
		}
		m.UserID = userID.String
		m.ImageURL = imgURL.String
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterating community messages: %w", err)
	}
	return messages, nil
}

// ============================================================================
// Routes
// ============================================================================

func (db *DB) CreateRoute(ctx context.Context, route *model.Route) error {
	id := xid.New().String()
	createdAt := stamp(route.CreatedAt)
	if route.AccessibilityFilters == nil {
		route.AccessibilityFilters = map[string]any{}
	}

	filters, err := json.Marshal(route.AccessibilityFilters)
	if err != nil {
		return fmt.Errorf("sqldb: encoding accessibility filters: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO routes (id, user_id, start_location, destination, accessibility_filters, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		id, nullString(route.UserID), route.StartLocation, route.Destination, string(filters), createdAt,
	)
	if err != nil {
		if kind, _ := classify(err); kind == foreignKeyViolation {
			return apperror.ValidationFailed("user_id", "user_id does not refer to an existing user")
		}
		return fmt.Errorf("sqldb: creating route: %w", err)
	}

	route.ID = id
	route.CreatedAt = createdAt
	return nil
}

func (db *DB) ListRoutes(ctx context.Context) ([]model.Route, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, start_location, destination, accessibility_filters, created_at FROM routes`+newestFirst)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing routes: %w", err)
	}
	defer rows.Close()

	routes := []model.Route{}
	for rows.Next() {
		var (
			r          model.Route
			userID     sql.NullString
			filtersRaw []byte
		)
		if err := rows.Scan(&r.ID, &userID, &r.StartLocation, &r.Destination, &filtersRaw, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqldb: scanning route: %w", err)
		}
		r.UserID = userID.String
		if err := decodeJSON(filtersRaw, &r.AccessibilityFilters); err != nil {
			return nil, fmt.Errorf("sqldb: decoding accessibility filters: %w", err)
		}
		if r.AccessibilityFilters == nil {
			r.AccessibilityFilters = map[string]any{}
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterating routes: %w", err)
	}
	return routes, nil
}
