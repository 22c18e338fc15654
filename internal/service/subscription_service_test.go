package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/audit"
	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/models"
	"github.com/edinmavric/lms-mern-sub002/pkg/apperr"
)

type subscriptionFixture struct {
	examRepo         *fakeExamRepo
	subscriptionRepo *fakeSubscriptionRepo
	enrollments      *fakeEnrollments
	ledger           *fakeLedger
	sink             *fakeAuditSink
	svc              SubscriptionService
}

func newSubscriptionFixture() *subscriptionFixture {
	f := &subscriptionFixture{
		examRepo:         newFakeExamRepo(),
		subscriptionRepo: newFakeSubscriptionRepo(),
		enrollments:      &fakeEnrollments{active: map[uint][]uint{}},
		ledger:           &fakeLedger{},
		sink:             &fakeAuditSink{},
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	recorder := audit.NewRecorder(f.sink, testLogger())
	f.svc = NewSubscriptionService(f.subscriptionRepo, f.examRepo, f.enrollments, f.ledger, validate, recorder, testLogger())

	return f
}

func (f *subscriptionFixture) seedFinishingExam(t *testing.T, deadline time.Time) models.Exam {
	t.Helper()
	exam := models.Exam{
		TenantID:             "alpha",
		CourseID:             7,
		ProfessorID:          9,
		Title:                "Algebra Final",
		Date:                 deadline.Add(48 * time.Hour),
		MaxPoints:            100,
		PassingPoints:        55,
		Type:                 models.ExamTypeFinishing,
		SubscriptionDeadline: &deadline,
		IsActive:             true,
		CreatedBy:            9,
	}
	require.NoError(t, f.examRepo.Create(context.Background(), &exam))
	return exam
}

func studentActor() Actor {
	return Actor{ID: 101, Role: RoleStudent, TenantID: "alpha"}
}

func TestSubscribeFinishingBeforeDeadline(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	f.enrollments.active[7] = []uint{101}

	subscription, err := f.svc.Subscribe(context.Background(), studentActor(), exam.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionStatusSubscribed, subscription.Status)
	require.Equal(t, uint(101), subscription.StudentID)

	require.Len(t, f.sink.entries, 1)
	require.Equal(t, "exam_subscription.created", f.sink.entries[0].Action)
}

func TestSubscribeRejectsPreliminaryExams(t *testing.T) {
	f := newSubscriptionFixture()
	exam := models.Exam{
		TenantID:    "alpha",
		CourseID:    7,
		ProfessorID: 9,
		Title:       "Algebra Midterm",
		Date:        time.Now().Add(72 * time.Hour),
		MaxPoints:   100,
		Type:        models.ExamTypePreliminary,
		CreatedBy:   9,
	}
	require.NoError(t, f.examRepo.Create(context.Background(), &exam))

	_, err := f.svc.Subscribe(context.Background(), studentActor(), exam.ID)
	require.True(t, apperr.IsKind(err, apperr.InvalidState))
}

func TestSubscribeAfterDeadlineRejected(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(-time.Hour))
	f.enrollments.active[7] = []uint{101}

	_, err := f.svc.Subscribe(context.Background(), studentActor(), exam.ID)
	require.True(t, apperr.IsKind(err, apperr.InvalidState))
}

func TestSubscribeNotEnrolledForbidden(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))

	_, err := f.svc.Subscribe(context.Background(), studentActor(), exam.ID)
	require.True(t, apperr.IsKind(err, apperr.Forbidden))
}

func TestSubscribeDuplicateConflicts(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	f.enrollments.active[7] = []uint{101}

	_, err := f.svc.Subscribe(context.Background(), studentActor(), exam.ID)
	require.NoError(t, err)

	_, err = f.svc.Subscribe(context.Background(), studentActor(), exam.ID)
	require.True(t, apperr.IsKind(err, apperr.Conflict))
}

func TestSubscribeForbiddenForProfessors(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))

	_, err := f.svc.Subscribe(context.Background(), Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}, exam.ID)
	require.True(t, apperr.IsKind(err, apperr.Forbidden))
}

func (f *subscriptionFixture) seedSubscription(t *testing.T, exam models.Exam, studentID uint) uint {
	t.Helper()
	return f.subscriptionRepo.add(models.ExamSubscription{
		TenantID:  "alpha",
		ExamID:    exam.ID,
		StudentID: studentID,
		Status:    models.SubscriptionStatusSubscribed,
		CreatedBy: studentID,
		Exam:      exam,
	})
}

func TestGradePassedDefaultsToLowestPassingGrade(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)

	result, err := f.svc.Grade(context.Background(), Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}, id, dto.GradeSubscriptionRequest{Points: 70})
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionStatusPassed, result.Subscription.Status)
	require.NotNil(t, result.Subscription.Grade)
	require.Equal(t, 6.0, *result.Subscription.Grade)

	require.Len(t, f.ledger.inputs, 1)
	require.Equal(t, 6.0, f.ledger.inputs[0].Value)
	require.Equal(t, uint(101), f.ledger.inputs[0].StudentID)
	require.Equal(t, exam.CourseID, f.ledger.inputs[0].CourseID)

	require.Len(t, f.sink.entries, 1)
	require.Equal(t, "exam_subscription.graded", f.sink.entries[0].Action)
	require.Equal(t, models.SeverityMedium, f.sink.entries[0].Severity)
}

func TestGradePassedHonorsExplicitGrade(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)

	grade := 9.0
	result, err := f.svc.Grade(context.Background(), Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}, id, dto.GradeSubscriptionRequest{Points: 88, Grade: &grade})
	require.NoError(t, err)
	require.Equal(t, 9.0, *result.Subscription.Grade)
}

func TestGradeFailedRecordsFive(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)

	result, err := f.svc.Grade(context.Background(), Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}, id, dto.GradeSubscriptionRequest{Points: 30})
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionStatusFailed, result.Subscription.Status)
	require.Equal(t, 5.0, *result.Subscription.Grade)

	require.Len(t, f.ledger.inputs, 1)
	require.Equal(t, 5.0, f.ledger.inputs[0].Value)
}

func TestGradePointsAboveMaxRejected(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)

	_, err := f.svc.Grade(context.Background(), Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}, id, dto.GradeSubscriptionRequest{Points: 150})
	require.True(t, apperr.IsKind(err, apperr.InvalidArgument))
	require.Equal(t, 0, f.subscriptionRepo.updateCalls)
}

func TestGradeAlreadyGradedRejected(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.subscriptionRepo.add(models.ExamSubscription{
		TenantID:  "alpha",
		ExamID:    exam.ID,
		StudentID: 101,
		Status:    models.SubscriptionStatusPassed,
		Exam:      exam,
	})

	_, err := f.svc.Grade(context.Background(), Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}, id, dto.GradeSubscriptionRequest{Points: 60})
	require.True(t, apperr.IsKind(err, apperr.InvalidState))
}

func TestGradeForbiddenForOtherProfessors(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)

	_, err := f.svc.Grade(context.Background(), Actor{ID: 42, Role: RoleProfessor, TenantID: "alpha"}, id, dto.GradeSubscriptionRequest{Points: 60})
	require.True(t, apperr.IsKind(err, apperr.Forbidden))
}

func TestGradeScaleViolationAbortsBeforeAnyWrite(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)
	f.ledger.validateErr = apperr.New(apperr.InvalidArgument, "grade value must be between 5 and 10")

	_, err := f.svc.Grade(context.Background(), Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}, id, dto.GradeSubscriptionRequest{Points: 70})
	require.True(t, apperr.IsKind(err, apperr.InvalidArgument))
	require.Equal(t, 0, f.subscriptionRepo.updateCalls)
	require.Empty(t, f.ledger.inputs)
}

func TestGradeLedgerFailureLeavesSubscriptionGraded(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)
	f.ledger.upsertErr = errors.New("grades table unavailable")

	_, err := f.svc.Grade(context.Background(), Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}, id, dto.GradeSubscriptionRequest{Points: 70})
	require.Error(t, err)

	// The subscription write committed before the ledger failed.
	require.Equal(t, 1, f.subscriptionRepo.updateCalls)
	stored, getErr := f.subscriptionRepo.GetByID(context.Background(), "alpha", id)
	require.NoError(t, getErr)
	require.Equal(t, models.SubscriptionStatusPassed, stored.Status)
}

func TestSubscribeUniqueIndexRaceConflicts(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	f.enrollments.active[7] = []uint{101}

	// A concurrent registration can slip between the existence check and
	// the insert; the unique index reports it as a duplicate key.
	f.subscriptionRepo.createErr = gorm.ErrDuplicatedKey

	_, err := f.svc.Subscribe(context.Background(), studentActor(), exam.ID)
	require.True(t, apperr.IsKind(err, apperr.Conflict))
	require.Empty(t, f.sink.entries)
}

func TestGradeFailedIgnoresCallerGrade(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)

	low := 3.0
	result, err := f.svc.Grade(context.Background(), Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}, id, dto.GradeSubscriptionRequest{Points: 10, Grade: &low})
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionStatusFailed, result.Subscription.Status)
	require.Equal(t, 5.0, *result.Subscription.Grade)
}

func TestGradePassedRejectsGradeOutsideRange(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)

	high := 11.0
	_, err := f.svc.Grade(context.Background(), Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}, id, dto.GradeSubscriptionRequest{Points: 80, Grade: &high})
	require.True(t, apperr.IsKind(err, apperr.InvalidArgument))
	require.Zero(t, f.subscriptionRepo.updateCalls)
}

func TestGradeSecondExamAppendsLedgerHistory(t *testing.T) {
	f := newSubscriptionFixture()

	// Real ledger instead of the fake so both gradings hit one attempt-1 row.
	gradeRepo := newFakeGradeRepo()
	tenants := &fakeTenantRepo{scale: models.GradeScale{Min: 5, Max: 10}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	recorder := audit.NewRecorder(f.sink, testLogger())
	ledger := NewGradeService(gradeRepo, tenants, validate, recorder, testLogger())
	svc := NewSubscriptionService(f.subscriptionRepo, f.examRepo, f.enrollments, ledger, validate, recorder, testLogger())

	professor := Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}

	first := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	firstSub := f.seedSubscription(t, first, 101)
	result, err := svc.Grade(context.Background(), professor, firstSub, dto.GradeSubscriptionRequest{Points: 70})
	require.NoError(t, err)
	require.Equal(t, 6.0, result.Grade.Value)
	require.Empty(t, result.Grade.History)

	second := f.seedFinishingExam(t, time.Now().Add(48*time.Hour))
	secondSub := f.seedSubscription(t, second, 101)
	result, err = svc.Grade(context.Background(), professor, secondSub, dto.GradeSubscriptionRequest{Points: 10})
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionStatusFailed, result.Subscription.Status)
	require.Equal(t, 5.0, result.Grade.Value)
	require.Len(t, result.Grade.History, 1)
	require.Equal(t, 6.0, result.Grade.History[0].OldValue)
	require.Equal(t, 5.0, result.Grade.History[0].NewValue)
}

func TestUnsubscribeOwnerBeforeDeadline(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)

	require.NoError(t, f.svc.Unsubscribe(context.Background(), studentActor(), id))

	_, err := f.subscriptionRepo.GetByID(context.Background(), "alpha", id)
	require.Error(t, err)

	require.Len(t, f.sink.entries, 1)
	require.Equal(t, "exam_subscription.deleted", f.sink.entries[0].Action)
	require.Equal(t, models.SeverityHigh, f.sink.entries[0].Severity)
}

func TestUnsubscribeForbiddenForOthers(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.seedSubscription(t, exam, 101)

	err := f.svc.Unsubscribe(context.Background(), Actor{ID: 202, Role: RoleStudent, TenantID: "alpha"}, id)
	require.True(t, apperr.IsKind(err, apperr.Forbidden))
}

func TestUnsubscribeGradedRejected(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	id := f.subscriptionRepo.add(models.ExamSubscription{
		TenantID:  "alpha",
		ExamID:    exam.ID,
		StudentID: 101,
		Status:    models.SubscriptionStatusFailed,
		Exam:      exam,
	})

	err := f.svc.Unsubscribe(context.Background(), studentActor(), id)
	require.True(t, apperr.IsKind(err, apperr.InvalidState))
}

func TestUnsubscribeAfterDeadlineRejected(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(-time.Hour))
	id := f.seedSubscription(t, exam, 101)

	err := f.svc.Unsubscribe(context.Background(), studentActor(), id)
	require.True(t, apperr.IsKind(err, apperr.InvalidState))
}

func TestListByExamRequiresOwnershipOrAdmin(t *testing.T) {
	f := newSubscriptionFixture()
	exam := f.seedFinishingExam(t, time.Now().Add(24*time.Hour))
	f.seedSubscription(t, exam, 101)

	_, err := f.svc.ListByExam(context.Background(), Actor{ID: 42, Role: RoleProfessor, TenantID: "alpha"}, exam.ID)
	require.True(t, apperr.IsKind(err, apperr.Forbidden))

	subscriptions, err := f.svc.ListByExam(context.Background(), Actor{ID: 1, Role: RoleAdmin, TenantID: "alpha"}, exam.ID)
	require.NoError(t, err)
	require.Len(t, subscriptions, 1)
}
