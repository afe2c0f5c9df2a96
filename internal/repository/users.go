package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

// CreateUser создаёт пользователя и его пустой профиль в одной транзакции.
func (r *PostgresRepository) CreateUser(ctx context.Context, username, email string, passwordHash []byte, userType model.UserType) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, type) VALUES ($1, $2, $3, $4) RETURNING id`,
		username, email, passwordHash, string(userType),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		if isUniqueViolation(err, "users_email_key") {
			return 0, fmt.Errorf("%w: %s", ErrEmailExists, email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO profiles (user_id) VALUES ($1)`, id)
	if err != nil {
		return 0, fmt.Errorf("create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return id, nil
}

// GetUserByUsername возвращает пользователя по имени.
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, type, created_at FROM users WHERE username = $1`,
		username,
	)
	return scanUser(row)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, type, created_at FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var userType string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &userType, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Type = model.UserType(userType)
	return &u, nil
}

const profileColumns = `u.id, u.username, p.first_name, p.last_name, u.email, u.type,
	 p.location, p.tel, p.description, p.working_hours, u.created_at`

// GetProfile возвращает профиль пользователя вместе с данными учётной записи.
func (r *PostgresRepository) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM users u
		 JOIN profiles p ON p.user_id = u.id
		 WHERE u.id = $1`,
		userID,
	)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return p, nil
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	var userType string
	err := row.Scan(&p.UserID, &p.Username, &p.FirstName, &p.LastName, &p.Email, &userType,
		&p.Location, &p.Tel, &p.Description, &p.WorkingHours, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Type = model.UserType(userType)
	return &p, nil
}

// ProfileUpdate описывает частичное обновление профиля: nil-поля не меняются.
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Location     *string
	Tel          *string
	Description  *string
	WorkingHours *string
}

// UpdateProfile применяет частичное обновление профиля и связанных полей
// учётной записи в одной транзакции.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*model.Profile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx,
		`UPDATE profiles SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			location = COALESCE($4, location),
			tel = COALESCE($5, tel),
			description = COALESCE($6, description),
			working_hours = COALESCE($7, working_hours)
		 WHERE user_id = $1`,
		userID, upd.FirstName, upd.LastName, upd.Location, upd.Tel, upd.Description, upd.WorkingHours,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}

	if upd.Email != nil {
		_, err = tx.Exec(ctx, `UPDATE users SET email = $2 WHERE id = $1`, userID, *upd.Email)
		if err != nil {
			if isUniqueViolation(err, "users_email_key") {
				return nil, fmt.Errorf("%w: %s", ErrEmailExists, *upd.Email)
			}
			return nil, fmt.Errorf("update user email: %w", err)
		}
	}

	row := tx.QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM users u
		 JOIN profiles p ON p.user_id = u.id
		 WHERE u.id = $1`,
		userID,
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("select updated profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return p, nil
}

// ListProfilesByType возвращает профили всех пользователей указанной роли.
func (r *PostgresRepository) ListProfilesByType(ctx context.Context, userType model.UserType) ([]model.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+`
		 FROM users u
		 JOIN profiles p ON p.user_id = u.id
		 WHERE u.type = $1
		 ORDER BY u.id`,
		string(userType),
	)
	if err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	defer rows.Close()

	var res []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
