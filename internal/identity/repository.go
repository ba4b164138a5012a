// AngelaMos | 2026
// repository.go

package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/examprep/internal/core"
)

var ErrAdminExists = fmt.Errorf("admin identity already provisioned: %w", core.ErrConflict)

type Repository interface {
	Create(ctx context.Context, identity *Identity) error
	CreateAdmin(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	RoleByEmail(ctx context.Context, email string) (string, error)
	LegacyAdminExists(ctx context.Context, email string) (bool, error)
	StudentProfileExists(ctx context.Context, email string) (bool, error)
	UpsertProfile(ctx context.Context, identity *Identity) error
	Update(ctx context.Context, identity *Identity) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	ListStudents(
		ctx context.Context,
		params ListStudentsParams,
	) ([]Identity, int, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const identityColumns = `
	id, email, password_hash, name, phone, class_level, exam_preference,
	role, is_active, token_version, created_at, updated_at, deleted_at`

func (r *repository) Create(ctx context.Context, identity *Identity) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, name, phone, class_level,
			exam_preference, role, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at, token_version`

	err := r.db.QueryRowxContext(ctx, query,
		identity.ID,
		identity.Email,
		identity.PasswordHash,
		identity.Name,
		identity.Phone,
		identity.ClassLevel,
		identity.ExamPreference,
		identity.Role,
		identity.IsActive,
	).Scan(&identity.CreatedAt, &identity.UpdatedAt, &identity.TokenVersion)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create identity: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create identity: %w", err)
	}

	return nil
}

// CreateAdmin inserts the identity and claims the admin singleton row in a
// single statement, so a second admin fails on the singleton primary key.
func (r *repository) CreateAdmin(ctx context.Context, identity *Identity) error {
	query := `
		WITH new_user AS (
			INSERT INTO users (
				id, email, password_hash, name, role, is_active
			) VALUES ($1, $2, $3, $4, 'admin', TRUE)
			RETURNING id, created_at, updated_at, token_version
		), marker AS (
			INSERT INTO admin_singleton (singleton, user_id)
			SELECT TRUE, id FROM new_user
		)
		SELECT created_at, updated_at, token_version FROM new_user`

	err := r.db.QueryRowxContext(ctx, query,
		identity.ID,
		identity.Email,
		identity.PasswordHash,
		identity.Name,
	).Scan(&identity.CreatedAt, &identity.UpdatedAt, &identity.TokenVersion)
	if err != nil {
		switch core.ViolatedConstraint(err) {
		case "":
			return fmt.Errorf("create admin: %w", err)
		case "admin_singleton_pkey":
			return ErrAdminExists
		default:
			return fmt.Errorf("create admin: %w", core.ErrDuplicateKey)
		}
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Identity, error) {
	query := `SELECT ` + identityColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`

	var identity Identity
	err := r.db.GetContext(ctx, &identity, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get identity: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	return &identity, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*Identity, error) {
	query := `SELECT ` + identityColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`

	var identity Identity
	err := r.db.GetContext(ctx, &identity, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get identity by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get identity by email: %w", err)
	}

	return &identity, nil
}

func (r *repository) RoleByEmail(ctx context.Context, email string) (string, error) {
	query := `
		SELECT role FROM users
		WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`

	var role string
	err := r.db.GetContext(ctx, &role, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("role by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("role by email: %w", err)
	}

	return role, nil
}

// Deprecated: legacy_admins predates the users.role column and is only read
// by the role resolution fallback.
func (r *repository) LegacyAdminExists(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM legacy_admins WHERE LOWER(email) = LOWER($1))`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check legacy admin: %w", err)
	}

	return exists, nil
}

// Deprecated: student_profiles is a denormalized copy; users.role is the
// source of truth.
func (r *repository) StudentProfileExists(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM student_profiles p
			JOIN users u ON u.id = p.user_id
			WHERE LOWER(p.email) = LOWER($1) AND u.deleted_at IS NULL
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check student profile: %w", err)
	}

	return exists, nil
}

func (r *repository) UpsertProfile(ctx context.Context, identity *Identity) error {
	query := `
		INSERT INTO student_profiles (
			user_id, email, name, phone, class_level, exam_preference
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET name = EXCLUDED.name,
		    phone = EXCLUDED.phone,
		    class_level = EXCLUDED.class_level,
		    exam_preference = EXCLUDED.exam_preference,
		    updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		identity.ID,
		identity.Email,
		identity.Name,
		identity.Phone,
		identity.ClassLevel,
		identity.ExamPreference,
	)
	if err != nil {
		return fmt.Errorf("upsert student profile: %w", err)
	}

	return nil
}

func (r *repository) Update(ctx context.Context, identity *Identity) error {
	query := `
		UPDATE users
		SET name = $2, phone = $3, class_level = $4, exam_preference = $5,
		    is_active = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &identity.UpdatedAt, query,
		identity.ID,
		identity.Name,
		identity.Phone,
		identity.ClassLevel,
		identity.ExamPreference,
		identity.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update identity: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) IncrementTokenVersion(
	ctx context.Context,
	id string,
) error {
	query := `
		UPDATE users
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "increment token version", query, id)
}

// SoftDelete keeps the users row so enrollments and payments stay attached
// to their owner. The denormalized profile goes in the same statement so the
// role fallback cannot resurrect the identity.
func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		WITH deleted AS (
			UPDATE users
			SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING id
		), profiles AS (
			DELETE FROM student_profiles
			WHERE user_id IN (SELECT id FROM deleted)
			RETURNING user_id
		)
		SELECT COUNT(*) FROM deleted`

	var deleted int
	if err := r.db.GetContext(ctx, &deleted, query, id); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("delete identity: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ListStudents(
	ctx context.Context,
	params ListStudentsParams,
) ([]Identity, int, error) {
	params.Normalize()

	conditions := []string{"deleted_at IS NULL", "role = 'student'"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.ClassLevel != "" {
		conditions = append(conditions, fmt.Sprintf("class_level = $%d", argIdx))
		args = append(args, params.ClassLevel)
		argIdx++
	}

	if params.ExamPreference != "" {
		conditions = append(conditions, fmt.Sprintf("exam_preference = $%d", argIdx))
		args = append(args, params.ExamPreference)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := "SELECT COUNT(*) FROM users WHERE " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		identityColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var identities []Identity
	if err := r.db.SelectContext(ctx, &identities, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	return identities, total, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
