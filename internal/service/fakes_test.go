package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/models"
	"github.com/edinmavric/lms-mern-sub002/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type fakeExamRepo struct {
	exams  map[uint]models.Exam
	nextID uint
}

func newFakeExamRepo() *fakeExamRepo {
	return &fakeExamRepo{exams: map[uint]models.Exam{}, nextID: 1}
}

func (f *fakeExamRepo) Create(_ context.Context, exam *models.Exam) error {
	exam.ID = f.nextID
	f.nextID++
	f.exams[exam.ID] = *exam
	return nil
}

func (f *fakeExamRepo) GetByID(_ context.Context, tenantID string, id uint) (models.Exam, error) {
	exam, ok := f.exams[id]
	if !ok || exam.TenantID != tenantID {
		return models.Exam{}, gorm.ErrRecordNotFound
	}
	return exam, nil
}

func (f *fakeExamRepo) ListByCourse(_ context.Context, tenantID string, courseID uint) ([]models.Exam, error) {
	var result []models.Exam
	for _, exam := range f.exams {
		if exam.TenantID == tenantID && exam.CourseID == courseID {
			result = append(result, exam)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeExamRepo) Update(_ context.Context, exam *models.Exam) error {
	f.exams[exam.ID] = *exam
	return nil
}

func (f *fakeExamRepo) Delete(_ context.Context, exam *models.Exam) error {
	delete(f.exams, exam.ID)
	return nil
}

type fakeSubscriptionRepo struct {
	subscriptions map[uint]models.ExamSubscription
	nextID        uint
	updateCalls   int
	createErr     error
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subscriptions: map[uint]models.ExamSubscription{}, nextID: 1}
}

func (f *fakeSubscriptionRepo) add(subscription models.ExamSubscription) uint {
	if subscription.ID == 0 {
		subscription.ID = f.nextID
		f.nextID++
	} else if subscription.ID >= f.nextID {
		f.nextID = subscription.ID + 1
	}
	f.subscriptions[subscription.ID] = subscription
	return subscription.ID
}

func (f *fakeSubscriptionRepo) Create(_ context.Context, subscription *models.ExamSubscription) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.subscriptions {
		if existing.TenantID == subscription.TenantID &&
			existing.ExamID == subscription.ExamID &&
			existing.StudentID == subscription.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	subscription.ID = f.add(*subscription)
	return nil
}

func (f *fakeSubscriptionRepo) CreateBatch(ctx context.Context, subscriptions []models.ExamSubscription) error {
	for i := range subscriptions {
		if err := f.Create(ctx, &subscriptions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSubscriptionRepo) GetByID(_ context.Context, tenantID string, id uint) (models.ExamSubscription, error) {
	subscription, ok := f.subscriptions[id]
	if !ok || subscription.TenantID != tenantID {
		return models.ExamSubscription{}, gorm.ErrRecordNotFound
	}
	return subscription, nil
}

func (f *fakeSubscriptionRepo) Exists(_ context.Context, tenantID string, examID, studentID uint) (bool, error) {
	for _, subscription := range f.subscriptions {
		if subscription.TenantID == tenantID && subscription.ExamID == examID && subscription.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubscriptionRepo) ListByExam(_ context.Context, tenantID string, examID uint) ([]models.ExamSubscription, error) {
	var result []models.ExamSubscription
	for _, subscription := range f.subscriptions {
		if subscription.TenantID == tenantID && subscription.ExamID == examID {
			result = append(result, subscription)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (f *fakeSubscriptionRepo) ListByStudent(_ context.Context, tenantID string, studentID uint) ([]models.ExamSubscription, error) {
	var result []models.ExamSubscription
	for _, subscription := range f.subscriptions {
		if subscription.TenantID == tenantID && subscription.StudentID == studentID {
			result = append(result, subscription)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeSubscriptionRepo) SubscribedStudentIDs(_ context.Context, tenantID string, examID uint) ([]uint, error) {
	var ids []uint
	for _, subscription := range f.subscriptions {
		if subscription.TenantID == tenantID && subscription.ExamID == examID {
			ids = append(ids, subscription.StudentID)
		}
	}
	return ids, nil
}

func (f *fakeSubscriptionRepo) Update(_ context.Context, subscription *models.ExamSubscription) error {
	f.updateCalls++
	f.subscriptions[subscription.ID] = *subscription
	return nil
}

func (f *fakeSubscriptionRepo) Delete(_ context.Context, subscription *models.ExamSubscription) error {
	delete(f.subscriptions, subscription.ID)
	return nil
}

type fakeEnrollments struct {
	active map[uint][]uint // courseID -> studentIDs
}

func (f *fakeEnrollments) ActiveStudentIDs(_ context.Context, _ string, courseID uint) ([]uint, error) {
	return f.active[courseID], nil
}

func (f *fakeEnrollments) IsActivelyEnrolled(_ context.Context, _ string, studentID, courseID uint) (bool, error) {
	for _, id := range f.active[courseID] {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

type gradeKey struct {
	tenantID  string
	studentID uint
	courseID  uint
	attempt   int
}

type fakeGradeRepo struct {
	grades  map[gradeKey]models.Grade
	history []models.GradeHistory
	nextID  uint
}

func newFakeGradeRepo() *fakeGradeRepo {
	return &fakeGradeRepo{grades: map[gradeKey]models.Grade{}, nextID: 1}
}

func (f *fakeGradeRepo) key(grade models.Grade) gradeKey {
	return gradeKey{tenantID: grade.TenantID, studentID: grade.StudentID, courseID: grade.CourseID, attempt: grade.Attempt}
}

func (f *fakeGradeRepo) Create(_ context.Context, grade *models.Grade) error {
	if _, ok := f.grades[f.key(*grade)]; ok {
		return gorm.ErrDuplicatedKey
	}
	grade.ID = f.nextID
	f.nextID++
	f.grades[f.key(*grade)] = *grade
	return nil
}

func (f *fakeGradeRepo) FindByAttempt(_ context.Context, tenantID string, studentID, courseID uint, attempt int) (models.Grade, error) {
	grade, ok := f.grades[gradeKey{tenantID: tenantID, studentID: studentID, courseID: courseID, attempt: attempt}]
	if !ok {
		return models.Grade{}, gorm.ErrRecordNotFound
	}
	return grade, nil
}

func (f *fakeGradeRepo) ListByStudent(_ context.Context, tenantID string, studentID uint) ([]models.Grade, error) {
	var result []models.Grade
	for _, grade := range f.grades {
		if grade.TenantID == tenantID && grade.StudentID == studentID {
			result = append(result, grade)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeGradeRepo) Update(_ context.Context, grade *models.Grade) error {
	f.grades[f.key(*grade)] = *grade
	return nil
}

func (f *fakeGradeRepo) AppendHistory(_ context.Context, history *models.GradeHistory) error {
	f.history = append(f.history, *history)
	return nil
}

type fakeTenantRepo struct {
	scale models.GradeScale
}

func (f *fakeTenantRepo) GradeScale(_ context.Context, _ string) (models.GradeScale, error) {
	return f.scale, nil
}

type fakeLedger struct {
	validateErr error
	upsertErr   error
	inputs      []GradeUpsertInput
}

func (f *fakeLedger) ValidateValue(_ context.Context, _ string, _ float64) error {
	return f.validateErr
}

func (f *fakeLedger) UpsertAttemptOne(_ context.Context, input GradeUpsertInput) (dto.GradeResponse, error) {
	if f.upsertErr != nil {
		return dto.GradeResponse{}, f.upsertErr
	}
	f.inputs = append(f.inputs, input)
	return dto.GradeResponse{
		TenantID:  input.TenantID,
		StudentID: input.StudentID,
		CourseID:  input.CourseID,
		Value:     input.Value,
		Attempt:   1,
	}, nil
}

type fakeAuditSink struct {
	entries []models.ActivityLog
	err     error
}

func (f *fakeAuditSink) Create(_ context.Context, entry *models.ActivityLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

type fakeActivityRepo struct {
	entries []models.ActivityLog
	counts  []repository.ActivityCount
}

func (f *fakeActivityRepo) Create(_ context.Context, entry *models.ActivityLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeActivityRepo) List(_ context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	var result []models.ActivityLog
	for _, entry := range f.entries {
		if entry.TenantID != filter.TenantID {
			continue
		}
		if filter.Severity != "" && entry.Severity != filter.Severity {
			continue
		}
		if filter.EntityType != "" && entry.EntityType != filter.EntityType {
			continue
		}
		result = append(result, entry)
	}
	return result, int64(len(result)), nil
}

func (f *fakeActivityRepo) ListByEntity(_ context.Context, tenantID, entityType string, entityID uint) ([]models.ActivityLog, error) {
	var result []models.ActivityLog
	for _, entry := range f.entries {
		if entry.TenantID == tenantID && entry.EntityType == entityType && entry.EntityID != nil && *entry.EntityID == entityID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (f *fakeActivityRepo) CountSince(_ context.Context, _ string, _ time.Time) ([]repository.ActivityCount, error) {
	return f.counts, nil
}

func (f *fakeActivityRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
