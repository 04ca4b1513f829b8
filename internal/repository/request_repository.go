package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moc-service/internal/models"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict - record was modified by another request")
)

// RequestRepositoryInterface is the storage contract consumed by the workflow
// engine. Implemented by RequestRepository and by test mocks.
type RequestRepositoryInterface interface {
	WithTransaction(ctx context.Context, fn func(txRepo RequestRepositoryInterface) error) error

	CreateRequest(ctx context.Context, request *models.MocRequest) error
	GetRequestByID(ctx context.Context, id uuid.UUID) (*models.MocRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]models.MocRequest, int64, error)
	UpdateRequestWithLock(ctx context.Context, request *models.MocRequest) error

	CreateApprovers(ctx context.Context, approvers []models.MocApprover) error
	CompleteApprover(ctx context.Context, approver *models.MocApprover) error

	ListActiveLevels(ctx context.Context) ([]models.ApprovalLevel, error)
	NextControlSequence(ctx context.Context, requestType string, year int) (int, error)

	CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error
	ListActivity(ctx context.Context, requestID uuid.UUID) ([]models.ActivityLog, error)

	GetDivision(ctx context.Context, id uuid.UUID) (*models.Division, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	RequesterID *uuid.UUID
	Status      string
	RequestType string
	// AwaitingRole filters to requests whose first incomplete approver slot
	// carries this role key.
	AwaitingRole string
	Limit        int
	Offset       int
}

// RequestRepository handles database operations for MOC requests
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new RequestRepository
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// WithTransaction runs fn against a repository bound to a single transaction.
func (r *RequestRepository) WithTransaction(ctx context.Context, fn func(txRepo RequestRepositoryInterface) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&RequestRepository{db: tx})
	})
}

// --- Request Methods ---

// CreateRequest creates a new MOC request
func (r *RequestRepository) CreateRequest(ctx context.Context, request *models.MocRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// GetRequestByID retrieves a request with its approver chain in chain order
func (r *RequestRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*models.MocRequest, error) {
	var request models.MocRequest
	err := r.db.WithContext(ctx).
		Preload("Approvers", func(db *gorm.DB) *gorm.DB {
			return db.Order("chain_order ASC")
		}).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// ListRequests retrieves requests matching the filter, newest first
func (r *RequestRepository) ListRequests(ctx context.Context, filter RequestFilter) ([]models.MocRequest, int64, error) {
	var requests []models.MocRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.MocRequest{})

	if filter.RequesterID != nil {
		query = query.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.Status != "" && filter.Status != "all" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RequestType != "" {
		query = query.Where("request_type = ?", filter.RequestType)
	}
	if filter.AwaitingRole != "" {
		// The first incomplete slot decides whose turn it is.
		query = query.Where(`id IN (
			SELECT a.request_id FROM moc_approvers a
			WHERE a.role_key = ? AND a.is_completed = false
			AND a.chain_order = (
				SELECT MIN(b.chain_order) FROM moc_approvers b
				WHERE b.request_id = a.request_id AND b.is_completed = false
			)
		)`, filter.AwaitingRole)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error

	return requests, total, err
}

// UpdateRequestWithLock updates a request with optimistic locking. The caller's
// in-memory version must match the stored row or ErrVersionConflict is
// returned and nothing is written.
func (r *RequestRepository) UpdateRequestWithLock(ctx context.Context, request *models.MocRequest) error {
	oldVersion := request.Version
	request.Version = oldVersion + 1
	request.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).Model(&models.MocRequest{}).
		Where("id = ? AND version = ?", request.ID, oldVersion).
		Select("*").
		Omit("id", "created_at", "Approvers", "Activity").
		Updates(request)

	if result.Error != nil {
		request.Version = oldVersion
		return result.Error
	}

	if result.RowsAffected == 0 {
		request.Version = oldVersion
		return ErrVersionConflict
	}

	return nil
}

// --- Approver Methods ---

// CreateApprovers inserts the generated approver chain in bulk
func (r *RequestRepository) CreateApprovers(ctx context.Context, approvers []models.MocApprover) error {
	if len(approvers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&approvers).Error
}

// CompleteApprover persists a slot completion. The is_completed guard makes
// the incomplete-to-completed transition happen at most once even under
// concurrent calls.
func (r *RequestRepository) CompleteApprover(ctx context.Context, approver *models.MocApprover) error {
	result := r.db.WithContext(ctx).Model(&models.MocApprover{}).
		Where("id = ? AND is_completed = false", approver.ID).
		Updates(map[string]interface{}{
			"is_completed": true,
			"is_approved":  approver.IsApproved,
			"remarks":      approver.Remarks,
			"completed_at": approver.CompletedAt,
			"completed_by": approver.CompletedBy,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// --- Level Methods ---

// ListActiveLevels returns active approval levels sorted by order, ties broken
// by creation time so chain generation is deterministic.
func (r *RequestRepository) ListActiveLevels(ctx context.Context) ([]models.ApprovalLevel, error) {
	var levels []models.ApprovalLevel
	err := r.db.WithContext(ctx).
		Where("is_active = true").
		Order("level_order ASC, created_at ASC").
		Find(&levels).Error
	return levels, err
}

// --- Control Sequence ---

// NextControlSequence atomically claims the next control-number sequence value
// for a (request type, year) pair.
func (r *RequestRepository) NextControlSequence(ctx context.Context, requestType string, year int) (int, error) {
	var next int
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO control_sequences (request_type, year, next_value)
		VALUES (?, ?, 2)
		ON CONFLICT (request_type, year)
		DO UPDATE SET next_value = control_sequences.next_value + 1
		RETURNING next_value - 1
	`, requestType, year).Scan(&next).Error
	return next, err
}

// --- Activity Methods ---

// CreateActivityLog creates an activity log entry
func (r *RequestRepository) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListActivity retrieves the activity trail for a request, oldest first
func (r *RequestRepository) ListActivity(ctx context.Context, requestID uuid.UUID) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// --- Lookup reads used by the workflow engine ---

// GetDivision retrieves a division by ID
func (r *RequestRepository) GetDivision(ctx context.Context, id uuid.UUID) (*models.Division, error) {
	var division models.Division
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&division).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &division, nil
}

// GetCategory retrieves a category by ID
func (r *RequestRepository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// --- Restoration Methods (used by the restoration job) ---

// FindOverdueRestorations finds active temporary changes whose planned
// restoration date has passed.
func (r *RequestRepository) FindOverdueRestorations(ctx context.Context) ([]models.MocRequest, error) {
	var requests []models.MocRequest
	err := r.db.WithContext(ctx).
		Where("is_temporary = true AND status = ? AND planned_restoration_date < ?",
			models.StatusActive, time.Now()).
		Find(&requests).Error
	return requests, err
}

// MarkForRestorationWithLock flips a single overdue request to for_restoration.
// Uses FOR UPDATE SKIP LOCKED so concurrent job instances never process the
// same request twice. Returns true if this instance performed the flip.
func (r *RequestRepository) MarkForRestorationWithLock(ctx context.Context, requestID uuid.UUID) (bool, error) {
	var flipped bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.MocRequest

		err := tx.Raw(`
			SELECT * FROM moc_requests
			WHERE id = ? AND status = ?
			FOR UPDATE SKIP LOCKED
		`, requestID, models.StatusActive).Scan(&request).Error
		if err != nil {
			return err
		}

		if request.ID == uuid.Nil {
			// Another instance holds the lock or already flipped it.
			flipped = false
			return nil
		}

		result := tx.Model(&models.MocRequest{}).
			Where("id = ?", requestID).
			Updates(map[string]interface{}{
				"status":     models.StatusForRestoration,
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}

		flipped = result.RowsAffected > 0
		return nil
	})

	return flipped, err
}

// --- Task & Notification Methods (used by the event dispatcher) ---

// UpsertTask creates a task item unless one with the same dedupe key exists.
// Returns true if a row was inserted.
func (r *RequestRepository) UpsertTask(ctx context.Context, task *models.TaskItem) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedupe_key"}},
		DoNothing: true,
	}).Create(task)
	return result.RowsAffected > 0, result.Error
}

// UpsertNotification creates a notification unless one with the same dedupe
// key exists. Returns true if a row was inserted.
func (r *RequestRepository) UpsertNotification(ctx context.Context, notification *models.Notification) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedupe_key"}},
		DoNothing: true,
	}).Create(notification)
	return result.RowsAffected > 0, result.Error
}

// CancelOpenTasks cancels all open tasks for a request. Used when a request
// reaches a terminal state.
func (r *RequestRepository) CancelOpenTasks(ctx context.Context, requestID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.TaskItem{}).
		Where("request_id = ? AND status = ?", requestID, models.TaskOpen).
		Updates(map[string]interface{}{
			"status":     models.TaskCancelled,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// CompleteTask marks an open task completed
func (r *RequestRepository) CompleteTask(ctx context.Context, taskID uuid.UUID, userID uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.TaskItem{}).
		Where("id = ? AND status = ?", taskID, models.TaskOpen).
		Updates(map[string]interface{}{
			"status":       models.TaskCompleted,
			"completed_at": now,
			"completed_by": userID,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTasksByRole lists tasks targeted at a role, optionally filtered by status
func (r *RequestRepository) ListTasksByRole(ctx context.Context, role string, status string, limit, offset int) ([]models.TaskItem, int64, error) {
	var tasks []models.TaskItem
	var total int64

	query := r.db.WithContext(ctx).Model(&models.TaskItem{}).
		Where("target_role = ?", role)
	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tasks).Error
	return tasks, total, err
}

// ListNotifications lists undismissed notifications for a role or user
func (r *RequestRepository) ListNotifications(ctx context.Context, role string, userID *uuid.UUID, limit, offset int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("is_dismissed = false")
	if userID != nil {
		query = query.Where("target_role = ? OR target_user = ?", role, *userID)
	} else {
		query = query.Where("target_role = ?", role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, total, err
}

// MarkNotificationRead marks a notification as read
func (r *RequestRepository) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND is_read = false", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DismissNotification dismisses a notification
func (r *RequestRepository) DismissNotification(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_dismissed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
