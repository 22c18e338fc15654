package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/edinmavric/lms-mern-sub002/internal/audit"
	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/models"
	"github.com/edinmavric/lms-mern-sub002/pkg/apperr"
)

func newExamFixture() (*fakeExamRepo, *fakeSubscriptionRepo, *fakeEnrollments, *fakeAuditSink, ExamService) {
	examRepo := newFakeExamRepo()
	subscriptionRepo := newFakeSubscriptionRepo()
	enrollments := &fakeEnrollments{active: map[uint][]uint{}}
	sink := &fakeAuditSink{}

	validate := validator.New(validator.WithRequiredStructEnabled())
	recorder := audit.NewRecorder(sink, testLogger())
	svc := NewExamService(examRepo, subscriptionRepo, enrollments, validate, recorder, testLogger())

	return examRepo, subscriptionRepo, enrollments, sink, svc
}

func professorActor() Actor {
	return Actor{ID: 9, Role: RoleProfessor, TenantID: "alpha"}
}

func TestExamServiceCreatePreliminaryFansOut(t *testing.T) {
	_, subscriptionRepo, enrollments, sink, svc := newExamFixture()
	enrollments.active[7] = []uint{101, 102, 103}

	exam, err := svc.Create(context.Background(), professorActor(), dto.ExamCreateRequest{
		CourseID:      7,
		Title:         "Algebra Midterm",
		Date:          time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		MaxPoints:     100,
		PassingPoints: 55,
		Type:          models.ExamTypePreliminary,
	})
	require.NoError(t, err)
	require.Equal(t, models.ExamTypePreliminary, exam.Type)

	subscriptions, err := subscriptionRepo.ListByExam(context.Background(), "alpha", exam.ID)
	require.NoError(t, err)
	require.Len(t, subscriptions, 3)
	for _, subscription := range subscriptions {
		require.Equal(t, models.SubscriptionStatusSubscribed, subscription.Status)
	}

	examEntries := 0
	subscriptionEntries := 0
	for _, entry := range sink.entries {
		switch entry.EntityType {
		case audit.KindExam:
			examEntries++
			require.Equal(t, "exam.created", entry.Action)
		case audit.KindSubscription:
			subscriptionEntries++
			require.Equal(t, "exam_subscription.created", entry.Action)
			require.Equal(t, "create", entry.Metadata["trigger"])
		}
	}
	require.Equal(t, 1, examEntries)
	require.Equal(t, 3, subscriptionEntries)
}

func TestExamServiceCreateForbiddenForStudents(t *testing.T) {
	_, _, _, _, svc := newExamFixture()

	_, err := svc.Create(context.Background(), Actor{ID: 4, Role: RoleStudent, TenantID: "alpha"}, dto.ExamCreateRequest{
		CourseID:  7,
		Title:     "Algebra Midterm",
		Date:      time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		MaxPoints: 100,
		Type:      models.ExamTypePreliminary,
	})
	require.True(t, apperr.IsKind(err, apperr.Forbidden))
}

func TestExamServiceCreateFinishingRequiresDeadline(t *testing.T) {
	_, _, _, _, svc := newExamFixture()

	_, err := svc.Create(context.Background(), professorActor(), dto.ExamCreateRequest{
		CourseID:      7,
		Title:         "Algebra Final",
		Date:          time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		MaxPoints:     100,
		PassingPoints: 55,
		Type:          models.ExamTypeFinishing,
	})
	require.True(t, apperr.IsKind(err, apperr.InvalidArgument))
}

func TestExamServiceCreateRejectsPassingAboveMax(t *testing.T) {
	_, _, _, _, svc := newExamFixture()

	_, err := svc.Create(context.Background(), professorActor(), dto.ExamCreateRequest{
		CourseID:      7,
		Title:         "Algebra Midterm",
		Date:          time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		MaxPoints:     50,
		PassingPoints: 60,
		Type:          models.ExamTypePreliminary,
	})
	require.True(t, apperr.IsKind(err, apperr.InvalidArgument))
}

func TestExamServiceUpdateFlipToPreliminaryFansOutDelta(t *testing.T) {
	examRepo, subscriptionRepo, enrollments, sink, svc := newExamFixture()
	enrollments.active[7] = []uint{101, 102}

	deadline := time.Now().Add(24 * time.Hour)
	exam := models.Exam{
		TenantID:             "alpha",
		CourseID:             7,
		ProfessorID:          9,
		Title:                "Algebra Final",
		Date:                 time.Now().Add(72 * time.Hour),
		MaxPoints:            100,
		PassingPoints:        55,
		Type:                 models.ExamTypeFinishing,
		SubscriptionDeadline: &deadline,
		IsActive:             true,
		CreatedBy:            9,
	}
	require.NoError(t, examRepo.Create(context.Background(), &exam))

	// Student 101 subscribed explicitly before the flip.
	subscriptionRepo.add(models.ExamSubscription{
		TenantID:  "alpha",
		ExamID:    exam.ID,
		StudentID: 101,
		Status:    models.SubscriptionStatusSubscribed,
		CreatedBy: 101,
	})

	newType := models.ExamTypePreliminary
	_, err := svc.Update(context.Background(), professorActor(), exam.ID, dto.ExamUpdateRequest{Type: &newType})
	require.NoError(t, err)

	subscriptions, err := subscriptionRepo.ListByExam(context.Background(), "alpha", exam.ID)
	require.NoError(t, err)
	require.Len(t, subscriptions, 2)
	require.Equal(t, uint(101), subscriptions[0].StudentID)
	require.Equal(t, uint(102), subscriptions[1].StudentID)

	// Only the delta subscription is audited, attributed to the flipping
	// professor.
	created := make([]models.ActivityLog, 0, 1)
	for _, entry := range sink.entries {
		if entry.Action == "exam_subscription.created" {
			created = append(created, entry)
		}
	}
	require.Len(t, created, 1)
	require.Equal(t, uint(9), created[0].ActorID)
	require.Equal(t, "type_flip", created[0].Metadata["trigger"])
}

func TestExamServiceUpdateFlipAwayRemovesNothing(t *testing.T) {
	examRepo, subscriptionRepo, enrollments, _, svc := newExamFixture()
	enrollments.active[7] = []uint{101, 102}

	exam := models.Exam{
		TenantID:      "alpha",
		CourseID:      7,
		ProfessorID:   9,
		Title:         "Algebra Midterm",
		Date:          time.Now().Add(72 * time.Hour),
		MaxPoints:     100,
		PassingPoints: 55,
		Type:          models.ExamTypePreliminary,
		IsActive:      true,
		CreatedBy:     9,
	}
	require.NoError(t, examRepo.Create(context.Background(), &exam))
	subscriptionRepo.add(models.ExamSubscription{TenantID: "alpha", ExamID: exam.ID, StudentID: 101, Status: models.SubscriptionStatusSubscribed})
	subscriptionRepo.add(models.ExamSubscription{TenantID: "alpha", ExamID: exam.ID, StudentID: 102, Status: models.SubscriptionStatusPassed})

	newType := models.ExamTypeFinishing
	deadline := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
	_, err := svc.Update(context.Background(), professorActor(), exam.ID, dto.ExamUpdateRequest{
		Type:                 &newType,
		SubscriptionDeadline: &deadline,
	})
	require.NoError(t, err)

	subscriptions, err := subscriptionRepo.ListByExam(context.Background(), "alpha", exam.ID)
	require.NoError(t, err)
	require.Len(t, subscriptions, 2)
	require.Equal(t, models.SubscriptionStatusPassed, subscriptions[1].Status)
}

func TestExamServiceUpdateForbiddenForOtherProfessors(t *testing.T) {
	examRepo, _, _, _, svc := newExamFixture()

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
	require.NoError(t, examRepo.Create(context.Background(), &exam))

	title := "Hijacked"
	_, err := svc.Update(context.Background(), Actor{ID: 11, Role: RoleProfessor, TenantID: "alpha"}, exam.ID, dto.ExamUpdateRequest{Title: &title})
	require.True(t, apperr.IsKind(err, apperr.Forbidden))
}

func TestExamServiceDeleteEmitsHighSeverityAudit(t *testing.T) {
	examRepo, _, _, sink, svc := newExamFixture()

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
	require.NoError(t, examRepo.Create(context.Background(), &exam))

	require.NoError(t, svc.Delete(context.Background(), professorActor(), exam.ID))

	require.Len(t, sink.entries, 1)
	require.Equal(t, "exam.deleted", sink.entries[0].Action)
	require.Equal(t, models.SeverityHigh, sink.entries[0].Severity)
}

func TestExamServiceGetUnknownExamNotFound(t *testing.T) {
	_, _, _, _, svc := newExamFixture()

	_, err := svc.Get(context.Background(), professorActor(), 123)
	require.True(t, apperr.IsKind(err, apperr.NotFound))
}
