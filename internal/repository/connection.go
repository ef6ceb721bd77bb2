package repository

import (
	"context"
	"errors"

	"fittedin/internal/models"

	"gorm.io/gorm"
)

// ConnectionRepository defines persistence operations for connections.
type ConnectionRepository interface {
	// Create inserts a new row. A uniqueness violation on either pair index
	// is reported as a Conflict AppError.
	Create(ctx context.Context, conn *models.Connection) error
	GetByID(ctx context.Context, id uint) (*models.Connection, error)
	// FindBetween returns the row linking a and b in either direction, or nil, nil.
	FindBetween(ctx context.Context, a, b uint) (*models.Connection, error)
	// TransitionStatus moves row id from one status to another and reports
	// whether a row changed. It never overwrites a concurrent transition.
	TransitionStatus(ctx context.Context, id uint, from, to models.ConnectionStatus) (bool, error)
	// ReplaceRejected deletes the rejected row oldID and inserts conn in one transaction.
	ReplaceRejected(ctx context.Context, oldID uint, conn *models.Connection) error
	// Block turns any row between blocker and blocked into a blocked row
	// owned by blocker, creating one when none exists.
	Block(ctx context.Context, blocker, blocked uint) (*models.Connection, error)
	// DeleteWithStatus removes row id if it has status and involves userID.
	DeleteWithStatus(ctx context.Context, id, userID uint, status models.ConnectionStatus) (bool, error)
	// DeleteBlock removes the blocked row created by blocker against blocked.
	DeleteBlock(ctx context.Context, blocker, blocked uint) (bool, error)
	ListForUser(ctx context.Context, userID uint, status models.ConnectionStatus) ([]models.Connection, error)
	ListSent(ctx context.Context, userID uint) ([]models.Connection, error)
	ListReceived(ctx context.Context, userID uint) ([]models.Connection, error)
	ListByStatus(ctx context.Context, status models.ConnectionStatus) ([]models.Connection, error)
	// ConnectedUserIDs returns the ids of users with an accepted row with userID.
	ConnectedUserIDs(ctx context.Context, userID uint) ([]uint, error)
	// ForUserAmong returns the rows between userID and each of others, keyed by the other id.
	ForUserAmong(ctx context.Context, userID uint, others []uint) (map[uint]models.Connection, error)
}

type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func preloadParties(db *gorm.DB) *gorm.DB {
	return db.Preload("Requester.Profile").Preload("Receiver.Profile")
}

func betweenClause(db *gorm.DB, a, b uint) *gorm.DB {
	low, high := models.OrderedPair(a, b)
	return db.Where("pair_low = ? AND pair_high = ?", low, high)
}

func translateCreateError(err error) error {
	if isUniqueConstraintError(err) {
		return models.NewConflictError("A connection between these users already exists")
	}
	return models.NewInternalError(err)
}

func (r *connectionRepository) Create(ctx context.Context, conn *models.Connection) error {
	if err := r.db.WithContext(ctx).Create(conn).Error; err != nil {
		return translateCreateError(err)
	}
	return nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id uint) (*models.Connection, error) {
	var conn models.Connection
	if err := preloadParties(r.db.WithContext(ctx)).First(&conn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Connection", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &conn, nil
}

func (r *connectionRepository) FindBetween(ctx context.Context, a, b uint) (*models.Connection, error) {
	var conn models.Connection
	if err := betweenClause(r.db.WithContext(ctx), a, b).First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &conn, nil
}

func (r *connectionRepository) TransitionStatus(ctx context.Context, id uint, from, to models.ConnectionStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *connectionRepository) ReplaceRejected(ctx context.Context, oldID uint, conn *models.Connection) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ?", oldID, models.ConnectionStatusRejected).Delete(&models.Connection{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("Connection request changed concurrently")
		}
		if err := tx.Create(conn).Error; err != nil {
			return translateCreateError(err)
		}
		return nil
	})
}

func (r *connectionRepository) Block(ctx context.Context, blocker, blocked uint) (*models.Connection, error) {
	var out models.Connection
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Connection
		err := betweenClause(tx, blocker, blocked).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = models.Connection{RequesterID: blocker, ReceiverID: blocked, Status: models.ConnectionStatusBlocked}
			if err := tx.Create(&out).Error; err != nil {
				return translateCreateError(err)
			}
			return nil
		case err != nil:
			return models.NewInternalError(err)
		}

		existing.RequesterID = blocker
		existing.ReceiverID = blocked
		existing.Status = models.ConnectionStatusBlocked
		if err := tx.Model(&existing).
			Select("requester_id", "receiver_id", "status").
			Updates(&existing).Error; err != nil {
			return translateCreateError(err)
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *connectionRepository) DeleteWithStatus(ctx context.Context, id, userID uint, status models.ConnectionStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND (requester_id = ? OR receiver_id = ?)", id, status, userID, userID).
		Delete(&models.Connection{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *connectionRepository) DeleteBlock(ctx context.Context, blocker, blocked uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("requester_id = ? AND receiver_id = ? AND status = ?", blocker, blocked, models.ConnectionStatusBlocked).
		Delete(&models.Connection{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *connectionRepository) ListForUser(ctx context.Context, userID uint, status models.ConnectionStatus) ([]models.Connection, error) {
	var conns []models.Connection
	if err := preloadParties(r.db.WithContext(ctx)).
		Where("(requester_id = ? OR receiver_id = ?) AND status = ?", userID, userID, status).
		Order("created_at DESC").
		Order("id DESC").
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) ListSent(ctx context.Context, userID uint) ([]models.Connection, error) {
	var conns []models.Connection
	if err := preloadParties(r.db.WithContext(ctx)).
		Where("requester_id = ? AND status = ?", userID, models.ConnectionStatusPending).
		Order("created_at DESC").
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) ListReceived(ctx context.Context, userID uint) ([]models.Connection, error) {
	var conns []models.Connection
	if err := preloadParties(r.db.WithContext(ctx)).
		Where("receiver_id = ? AND status = ?", userID, models.ConnectionStatusPending).
		Order("created_at DESC").
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) ListByStatus(ctx context.Context, status models.ConnectionStatus) ([]models.Connection, error) {
	var conns []models.Connection
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC").
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) ConnectedUserIDs(ctx context.Context, userID uint) ([]uint, error) {
	var conns []models.Connection
	if err := r.db.WithContext(ctx).
		Select("id", "requester_id", "receiver_id").
		Where("(requester_id = ? OR receiver_id = ?) AND status = ?", userID, userID, models.ConnectionStatusAccepted).
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	ids := make([]uint, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.OtherParty(userID))
	}
	return ids, nil
}

func (r *connectionRepository) ForUserAmong(ctx context.Context, userID uint, others []uint) (map[uint]models.Connection, error) {
	out := make(map[uint]models.Connection, len(others))
	if len(others) == 0 {
		return out, nil
	}
	var conns []models.Connection
	if err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND receiver_id IN ?) OR (receiver_id = ? AND requester_id IN ?)",
			userID, others, userID, others).
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, c := range conns {
		out[c.OtherParty(userID)] = c
	}
	return out, nil
}
