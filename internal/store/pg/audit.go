package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"clinicdesk.org/internal/audit"
)

// AppendAudit implements audit.Writer. There is deliberately no update or
// delete counterpart; the table also rejects both with a trigger.
func (s *Store) AppendAudit(ctx context.Context, e *audit.Entry) error {
	return s.db.QueryRowContext(ctx, `
		insert into activity_logs (actor_id, action, entity_type, entity_id, details, ip_address, user_agent, request_id, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning id
	`, nullInt(e.ActorID), string(e.Action), e.EntityType, e.EntityID, string(e.Details),
		nullIfEmpty(e.IPAddress), nullIfEmpty(e.UserAgent), nullIfEmpty(e.RequestID), e.CreatedAt).Scan(&e.ID)
}

// ListAudit implements audit.Reader, newest first.
func (s *Store) ListAudit(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	f = f.Normalize()
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Action != "" {
		add("l.action = $%d", string(f.Action))
	}
	if f.EntityType != "" {
		add("l.entity_type = $%d", f.EntityType)
	}
	if f.From != nil {
		add("l.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("l.created_at <= $%d", *f.To)
	}
	query := `
		select l.id, l.actor_id, l.action, l.entity_type, l.entity_id, l.details,
			coalesce(l.ip_address, ''), coalesce(l.user_agent, ''), coalesce(l.request_id, ''), l.created_at,
			u.id, u.username, u.first_name, u.last_name
		from activity_logs l
		left join users u on u.id = l.actor_id`
	if len(where) > 0 {
		query += "\n\t\twhere " + strings.Join(where, " and ")
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf("\n\t\torder by l.created_at desc, l.id desc\n\t\tlimit $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e                     audit.Entry
			actorID, userID       sql.NullInt64
			action, details       string
			username, first, last sql.NullString
		)
		if err := rows.Scan(&e.ID, &actorID, &action, &e.EntityType, &e.EntityID, &details,
			&e.IPAddress, &e.UserAgent, &e.RequestID, &e.CreatedAt,
			&userID, &username, &first, &last); err != nil {
			return nil, err
		}
		e.Action = audit.Action(action)
		e.ActorID = fromNullInt(actorID)
		e.Details = []byte(details)
		if userID.Valid {
			e.Actor = &audit.Actor{ID: userID.Int64, Username: username.String, FirstName: first.String, LastName: last.String}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
