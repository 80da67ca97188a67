package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gigpost/gigpost/internal/models"
)

type GroupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create creates a new group
func (r *GroupRepository) Create(group *models.Group) error {
	group.ID = uuid.New().String()
	group.CreatedAt = time.Now()
	group.UpdatedAt = group.CreatedAt
	if group.Status == "" {
		group.Status = models.GroupActive
	}

	_, err := r.db.Exec(`
		INSERT INTO groups (id, user_id, name, description, status, total_recipients, active_recipients, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		group.ID, group.UserID, group.Name, group.Description, group.Status, group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// GetByID returns a group owned by userID
func (r *GroupRepository) GetByID(id, userID string) (*models.Group, error) {
	group := &models.Group{}
	err := r.db.QueryRow(`
		SELECT id, user_id, name, description, status, total_recipients, active_recipients, created_at, updated_at
		FROM groups WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&group.ID, &group.UserID, &group.Name, &group.Description, &group.Status,
		&group.TotalRecipients, &group.ActiveRecipients, &group.CreatedAt, &group.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetWithMembers returns a group and its recipients in membership order
func (r *GroupRepository) GetWithMembers(id, userID string) (*models.GroupWithMembers, error) {
	group, err := r.GetByID(id, userID)
	if err != nil || group == nil {
		return nil, err
	}

	members, err := r.Members(id)
	if err != nil {
		return nil, err
	}

	return &models.GroupWithMembers{Group: *group, Members: members}, nil
}

// List returns groups with filtering and the total match count
func (r *GroupRepository) List(filter models.GroupFilter) ([]models.Group, int, error) {
	where := " WHERE user_id = ?"
	args := []any{filter.UserID}

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where += " AND (name LIKE ? OR description LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM groups"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, name, description, status, total_recipients, active_recipients, created_at, updated_at
		FROM groups` + where + " ORDER BY updated_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.Status,
			&g.TotalRecipients, &g.ActiveRecipients, &g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		groups = append(groups, g)
	}

	return groups, total, nil
}

// Update updates a group's name, description and status
func (r *GroupRepository) Update(group *models.Group) error {
	group.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		UPDATE groups SET name = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		group.Name, group.Description, group.Status, group.UpdatedAt, group.ID, group.UserID,
	)
	return err
}

// Delete deletes a group and its membership rows
func (r *GroupRepository) Delete(id, userID string) error {
	result, err := r.db.Exec("DELETE FROM groups WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateCounts recomputes the denormalized recipient counters from
// the live membership rows. Counts are never incremented in place.
func (r *GroupRepository) UpdateCounts(groupID string) error {
	_, err := r.db.Exec(`
		UPDATE groups SET
			total_recipients = (SELECT COUNT(*) FROM group_members WHERE group_id = ?),
			active_recipients = (
				SELECT COUNT(*) FROM group_members gm
				JOIN recipients rec ON rec.id = gm.recipient_id
				WHERE gm.group_id = ? AND rec.status = 'ACTIVE'),
			updated_at = ?
		WHERE id = ?`,
		groupID, groupID, time.Now(), groupID,
	)
	return err
}

// AddMember adds a recipient to a group. Returns false when the
// recipient was already a member.
func (r *GroupRepository) AddMember(groupID, recipientID string) (bool, error) {
	result, err := r.db.Exec(`
		INSERT OR IGNORE INTO group_members (id, group_id, recipient_id, created_at)
		VALUES (?, ?, ?, ?)`,
		uuid.New().String(), groupID, recipientID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to add group member: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return false, nil
	}
	return true, r.UpdateCounts(groupID)
}

// RemoveMember removes a recipient from a group. Returns false when
// the recipient was not a member.
func (r *GroupRepository) RemoveMember(groupID, recipientID string) (bool, error) {
	result, err := r.db.Exec(
		"DELETE FROM group_members WHERE group_id = ? AND recipient_id = ?",
		groupID, recipientID,
	)
	if err != nil {
		return false, err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return false, nil
	}
	return true, r.UpdateCounts(groupID)
}

// Members returns all recipients of a group in membership order
func (r *GroupRepository) Members(groupID string) ([]models.Recipient, error) {
	return r.queryMembers(groupID, "")
}

// ActiveMembers returns the group's ACTIVE recipients in membership
// order. This is the load order the dispatch engine batches on.
func (r *GroupRepository) ActiveMembers(groupID string) ([]models.Recipient, error) {
	return r.queryMembers(groupID, models.RecipientActive)
}

func (r *GroupRepository) queryMembers(groupID, status string) ([]models.Recipient, error) {
	query := `
		SELECT rec.id, rec.user_id, rec.email_address, rec.source_type, rec.status, rec.created_at, rec.updated_at
		FROM group_members gm
		JOIN recipients rec ON rec.id = gm.recipient_id
		WHERE gm.group_id = ?`
	args := []any{groupID}

	if status != "" {
		query += " AND rec.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY gm.created_at, gm.id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.Recipient{}
	for rows.Next() {
		var rec models.Recipient
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.EmailAddress, &rec.SourceType, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		members = append(members, rec)
	}
	return members, nil
}
