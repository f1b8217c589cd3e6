package storage

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Group is a set of users sharing dashboards.
type Group struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupMember links a user to a group.
type GroupMember struct {
	GroupID uuid.UUID `json:"group_id"`
	UserID  int       `json:"user_id"`
	Role    string    `json:"role"`
}

// InviteCode is a single-use, expiring code that joins its redeemer to a
// group.
type InviteCode struct {
	Code      string     `json:"code"`
	GroupID   uuid.UUID  `json:"group_id"`
	CreatedBy int        `json:"created_by"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedBy    *int       `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// CreateGroup inserts a group and adds the creator as its admin member.
func (db *DB) CreateGroup(ctx context.Context, name string, creatorID int) (uuid.UUID, error) {
	id := uuid.New()
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO groups (id, name) VALUES ($1, $2)`, id, name); err != nil {
		return uuid.Nil, fmt.Errorf("inserting group: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, 'admin')`, id, creatorID); err != nil {
		return uuid.Nil, fmt.Errorf("adding group creator: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing group: %w", err)
	}
	return id, nil
}

// GetGroup returns a group by id.
func (db *DB) GetGroup(ctx context.Context, id uuid.UUID) (*Group, error) {
	var g Group
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("querying group %s: %w", id, err)
	}
	return &g, nil
}

// ListGroupMembers returns a group's membership.
func (db *DB) ListGroupMembers(ctx context.Context, groupID uuid.UUID) ([]GroupMember, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT group_id, user_id, role FROM group_members WHERE group_id = $1 ORDER BY user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying group members: %w", err)
	}
	defer rows.Close()

	var out []GroupMember
	for rows.Next() {
		var m GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role); err != nil {
			return nil, fmt.Errorf("scanning group member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// IsGroupMember reports whether a user belongs to a group.
func (db *DB) IsGroupMember(ctx context.Context, groupID uuid.UUID, userID int) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`,
		groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking group membership: %w", err)
	}
	return exists, nil
}

// inviteCodeLen is the length of generated invite codes.
const inviteCodeLen = 8

const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewInviteCode generates a random, human-typeable invite code. Ambiguous
// characters (0/O, 1/I) are excluded from the alphabet.
func NewInviteCode() string {
	b := make([]byte, inviteCodeLen)
	rand.Read(b)
	for i := range b {
		b[i] = inviteAlphabet[int(b[i])%len(inviteAlphabet)]
	}
	return string(b)
}

// CreateInvite issues an invite code for a group.
func (db *DB) CreateInvite(ctx context.Context, groupID uuid.UUID, createdBy int, ttl time.Duration) (*InviteCode, error) {
	inv := InviteCode{
		Code:      NewInviteCode(),
		GroupID:   groupID,
		CreatedBy: createdBy,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO invite_codes (code, group_id, created_by, expires_at) VALUES ($1, $2, $3, $4)
	`, inv.Code, inv.GroupID, inv.CreatedBy, inv.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("inserting invite: %w", err)
	}
	return &inv, nil
}

// RedeemInvite consumes an unexpired, unused invite code and adds the user
// to its group. The mark-used and member-insert happen in one transaction so
// a code can never admit two users.
func (db *DB) RedeemInvite(ctx context.Context, code string, userID int) (uuid.UUID, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var groupID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE invite_codes SET used_by = $2, used_at = NOW()
		WHERE code = $1 AND used_by IS NULL AND expires_at > NOW()
		RETURNING group_id
	`, code, userID).Scan(&groupID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invite code invalid, expired, or already used")
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, 'member')
		ON CONFLICT DO NOTHING
	`, groupID, userID); err != nil {
		return uuid.Nil, fmt.Errorf("adding group member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing invite redemption: %w", err)
	}
	return groupID, nil
}
