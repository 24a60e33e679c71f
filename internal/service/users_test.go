package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/bigkaa/staffdesk/internal/domain/model"
	"github.com/bigkaa/staffdesk/internal/domain/rbac"
	"github.com/bigkaa/staffdesk/internal/repository"
)

// fakeUserRecordRepo — in-memory реализация UserRecordRepository для тестов.
type fakeUserRecordRepo struct {
	records map[string]*model.UserRecord
	nextID  int
}

func newFakeRepo() *fakeUserRecordRepo {
	return &fakeUserRecordRepo{records: make(map[string]*model.UserRecord)}
}

func (f *fakeUserRecordRepo) Create(_ context.Context, rec *model.UserRecord) error {
	for _, existing := range f.records {
		if existing.TenantID == rec.TenantID && existing.Email == rec.Email {
			return repository.ErrConflict
		}
	}
	f.nextID++
	rec.ID = fmt.Sprintf("rec-%d", f.nextID)
	clone := *rec
	f.records[rec.ID] = &clone
	return nil
}

func (f *fakeUserRecordRepo) GetByID(_ context.Context, tenantID, id string) (*model.UserRecord, error) {
	rec, ok := f.records[id]
	if !ok || rec.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeUserRecordRepo) List(_ context.Context, tenantID, role string, limit, offset int) ([]*model.UserRecord, error) {
	var result []*model.UserRecord
	for _, rec := range f.records {
		if rec.TenantID == tenantID && (role == "" || rec.Role == role) {
			clone := *rec
			result = append(result, &clone)
		}
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeUserRecordRepo) Count(_ context.Context, tenantID, role string) (int, error) {
	count := 0
	for _, rec := range f.records {
		if rec.TenantID == tenantID && (role == "" || rec.Role == role) {
			count++
		}
	}
	return count, nil
}

func (f *fakeUserRecordRepo) Update(_ context.Context, rec *model.UserRecord) error {
	existing, ok := f.records[rec.ID]
	if !ok || existing.TenantID != rec.TenantID {
		return repository.ErrNotFound
	}
	for id, other := range f.records {
		if id != rec.ID && other.TenantID == rec.TenantID && other.Email == rec.Email {
			return repository.ErrConflict
		}
	}
	clone := *rec
	f.records[rec.ID] = &clone
	return nil
}

func (f *fakeUserRecordRepo) Delete(_ context.Context, tenantID, id string) error {
	rec, ok := f.records[id]
	if !ok || rec.TenantID != tenantID {
		return repository.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func newTestService() (*UserDirectoryService, *fakeUserRecordRepo) {
	repo := newFakeRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewUserDirectoryService(repo, logger), repo
}

const testTenant = "tenant-1"

// --- Тесты Create ---

func TestCreate_OK(t *testing.T) {
	svc, _ := newTestService()

	rec, err := svc.Create(context.Background(), testTenant, CreateUserInput{
		Email:    "  ivanov@example.com  ",
		FullName: "Иван Иванов",
		Role:     "client",
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if rec.ID == "" {
		t.Error("ID не установлен")
	}
	if rec.Email != "ivanov@example.com" {
		t.Errorf("Email = %q: пробелы должны убираться", rec.Email)
	}
	if rec.Role != rbac.RoleClient {
		t.Errorf("Role = %q: роль должна нормализоваться к CLIENT", rec.Role)
	}
	if !rec.Enabled {
		t.Error("Enabled по умолчанию должен быть true")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name        string
		input       CreateUserInput
		wantFields  []string
	}{
		{
			"все поля пустые",
			CreateUserInput{},
			[]string{"email", "full_name", "role"},
		},
		{
			"некорректный email",
			CreateUserInput{Email: "not-an-email", FullName: "Имя", Role: "CLIENT"},
			[]string{"email"},
		},
		{
			"неизвестная роль",
			CreateUserInput{Email: "a@b.com", FullName: "Имя", Role: "SUPERUSER"},
			[]string{"role"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), testTenant, tt.input)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("ошибка = %v, ожидается ErrValidation", err)
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ошибка %T не является *ValidationError", err)
			}
			for _, field := range tt.wantFields {
				if _, ok := verr.Fields[field]; !ok {
					t.Errorf("поле %q отсутствует в деталях: %v", field, verr.Fields)
				}
			}
		})
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	input := CreateUserInput{Email: "dup@example.com", FullName: "Первый", Role: "CLIENT"}
	if _, err := svc.Create(ctx, testTenant, input); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	input.FullName = "Второй"
	if _, err := svc.Create(ctx, testTenant, input); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный Create(): ошибка = %v, ожидается ErrConflict", err)
	}

	// Другая организация — не конфликт
	if _, err := svc.Create(ctx, "tenant-2", input); err != nil {
		t.Errorf("Create() в другой организации: ошибка = %v", err)
	}
}

// TestCreate_DuplicateEmailCaseInsensitive — уникальность email в организации
// не зависит от регистра: адрес приводится к нижнему регистру до записи.
func TestCreate_DuplicateEmailCaseInsensitive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, testTenant, CreateUserInput{
		Email: "Dup@Example.COM", FullName: "Первый", Role: "CLIENT",
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if rec.Email != "dup@example.com" {
		t.Errorf("Email = %q: адрес должен приводиться к нижнему регистру", rec.Email)
	}

	if _, err := svc.Create(ctx, testTenant, CreateUserInput{
		Email: "dup@example.com", FullName: "Второй", Role: "CLIENT",
	}); !errors.Is(err, ErrConflict) {
		t.Errorf("Create() с тем же адресом в другом регистре: ошибка = %v, ожидается ErrConflict", err)
	}
}

// --- Тесты Get/List ---

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Get(context.Background(), testTenant, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() несуществующей записи: ошибка = %v, ожидается ErrNotFound", err)
	}
}

func TestGet_TenantIsolation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, testTenant, CreateUserInput{
		Email: "a@example.com", FullName: "Запись", Role: "CLIENT",
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	if _, err := svc.Get(ctx, "tenant-other", rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() из чужой организации: ошибка = %v, ожидается ErrNotFound", err)
	}
}

func TestList_RoleFilter(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	seed := []CreateUserInput{
		{Email: "c1@example.com", FullName: "Клиент 1", Role: "CLIENT"},
		{Email: "c2@example.com", FullName: "Клиент 2", Role: "CLIENT"},
		{Email: "t1@example.com", FullName: "Сотрудник", Role: "TEAM_MEMBER"},
	}
	for _, input := range seed {
		if _, err := svc.Create(ctx, testTenant, input); err != nil {
			t.Fatalf("Create(%s) ошибка: %v", input.Email, err)
		}
	}

	records, total, err := svc.List(ctx, testTenant, "CLIENT", 100, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Errorf("List(CLIENT): total=%d len=%d, ожидается 2", total, len(records))
	}

	_, total, err = svc.List(ctx, testTenant, "", 100, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if total != 3 {
		t.Errorf("List(все роли): total=%d, ожидается 3", total)
	}

	if _, _, err := svc.List(ctx, testTenant, "WRONG", 100, 0); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("List(WRONG): ошибка = %v, ожидается ErrInvalidRole", err)
	}
}

func TestGetByRole_WrongRole(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, testTenant, CreateUserInput{
		Email: "t@example.com", FullName: "Сотрудник", Role: "TEAM_MEMBER",
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// Для представления «клиенты» сотрудник не существует
	if _, err := svc.GetByRole(ctx, testTenant, rec.ID, rbac.RoleClient); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByRole(CLIENT) для TEAM_MEMBER: ошибка = %v, ожидается ErrNotFound", err)
	}

	if _, err := svc.GetByRole(ctx, testTenant, rec.ID, rbac.RoleTeamMember); err != nil {
		t.Errorf("GetByRole(TEAM_MEMBER): ошибка = %v", err)
	}
}

// --- Тесты Update/Delete ---

func TestUpdate_PartialFields(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, testTenant, CreateUserInput{
		Email: "u@example.com", FullName: "Старое имя", Role: "CLIENT",
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	newName := "Новое имя"
	newRole := "team_member"
	updated, err := svc.Update(ctx, testTenant, rec.ID, UpdateUserInput{
		FullName: &newName,
		Role:     &newRole,
	})
	if err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if updated.FullName != "Новое имя" {
		t.Errorf("FullName = %q, ожидается Новое имя", updated.FullName)
	}
	if updated.Role != rbac.RoleTeamMember {
		t.Errorf("Role = %q, ожидается TEAM_MEMBER", updated.Role)
	}
	if updated.Email != "u@example.com" {
		t.Errorf("Email = %q: неуказанное поле не должно меняться", updated.Email)
	}
}

func TestUpdate_InvalidEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, testTenant, CreateUserInput{
		Email: "u@example.com", FullName: "Имя", Role: "CLIENT",
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	bad := "broken"
	if _, err := svc.Update(ctx, testTenant, rec.ID, UpdateUserInput{Email: &bad}); !errors.Is(err, ErrValidation) {
		t.Errorf("Update() с битым email: ошибка = %v, ожидается ErrValidation", err)
	}
}

func TestUpdate_EmailConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, testTenant, CreateUserInput{
		Email: "taken@example.com", FullName: "Первый", Role: "CLIENT",
	}); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	rec, err := svc.Create(ctx, testTenant, CreateUserInput{
		Email: "free@example.com", FullName: "Второй", Role: "CLIENT",
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	taken := "taken@example.com"
	if _, err := svc.Update(ctx, testTenant, rec.ID, UpdateUserInput{Email: &taken}); !errors.Is(err, ErrConflict) {
		t.Errorf("Update() на занятый email: ошибка = %v, ожидается ErrConflict", err)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, testTenant, CreateUserInput{
		Email: "d@example.com", FullName: "Имя", Role: "ADMIN",
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	if err := svc.Delete(ctx, testTenant, rec.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if err := svc.Delete(ctx, testTenant, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete(): ошибка = %v, ожидается ErrNotFound", err)
	}
}
