package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// SubscriptionRepository provides persistence helpers for exam subscriptions.
// Deletes are physical; subscriptions are the only entity in this core without
// a soft-delete column.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.ExamSubscription) error
	CreateBatch(ctx context.Context, subscriptions []models.ExamSubscription) error
	GetByID(ctx context.Context, tenantID string, id uint) (models.ExamSubscription, error)
	Exists(ctx context.Context, tenantID string, examID, studentID uint) (bool, error)
	ListByExam(ctx context.Context, tenantID string, examID uint) ([]models.ExamSubscription, error)
	ListByStudent(ctx context.Context, tenantID string, studentID uint) ([]models.ExamSubscription, error)
	SubscribedStudentIDs(ctx context.Context, tenantID string, examID uint) ([]uint, error)
	Update(ctx context.Context, subscription *models.ExamSubscription) error
	Delete(ctx context.Context, subscription *models.ExamSubscription) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository constructs the subscription repository.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, subscription *models.ExamSubscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *subscriptionRepository) CreateBatch(ctx context.Context, subscriptions []models.ExamSubscription) error {
	if len(subscriptions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(subscriptions, 100).Error
}

func (r *subscriptionRepository) GetByID(ctx context.Context, tenantID string, id uint) (models.ExamSubscription, error) {
	var subscription models.ExamSubscription
	if err := r.db.WithContext(ctx).
		Preload("Exam").
		Where("tenant_id = ?", tenantID).
		First(&subscription, id).Error; err != nil {
		return models.ExamSubscription{}, err
	}

	return subscription, nil
}

func (r *subscriptionRepository) Exists(ctx context.Context, tenantID string, examID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ExamSubscription{}).
		Where("tenant_id = ? AND exam_id = ? AND student_id = ?", tenantID, examID, studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *subscriptionRepository) ListByExam(ctx context.Context, tenantID string, examID uint) ([]models.ExamSubscription, error) {
	var subscriptions []models.ExamSubscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND exam_id = ?", tenantID, examID).
		Order("student_id ASC").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}

	return subscriptions, nil
}

func (r *subscriptionRepository) ListByStudent(ctx context.Context, tenantID string, studentID uint) ([]models.ExamSubscription, error) {
	var subscriptions []models.ExamSubscription
	err := r.db.WithContext(ctx).
		Preload("Exam").
		Where("tenant_id = ? AND student_id = ?", tenantID, studentID).
		Order("created_at DESC").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}

	return subscriptions, nil
}

func (r *subscriptionRepository) SubscribedStudentIDs(ctx context.Context, tenantID string, examID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.ExamSubscription{}).
		Where("tenant_id = ? AND exam_id = ?", tenantID, examID).
		Pluck("student_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, subscription *models.ExamSubscription) error {
	return r.db.WithContext(ctx).Save(subscription).Error
}

func (r *subscriptionRepository) Delete(ctx context.Context, subscription *models.ExamSubscription) error {
	return r.db.WithContext(ctx).Delete(subscription).Error
}
