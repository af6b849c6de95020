// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/couponboard/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с занятым именем.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrCouponNotFound возвращается, если купон не найден.
	ErrCouponNotFound = errors.New("coupon not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Повторяем только сериализационные конфликты и дедлоки,
		// с переподключением pgxpool справляется сам.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const couponColumns = `id, title, code, discount, discount_type, description, image_url,
	 website_link, category, country, brand, validity_date, memex_payment,
	 approved, user_id, created_at`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.ID, &c.Title, &c.Code, &c.Discount, &c.DiscountType, &c.Description,
		&c.ImageURL, &c.WebsiteLink, &c.Category, &c.Country, &c.Brand,
		&c.ValidityDate, &c.MemexPayment, &c.Approved, &c.UserID, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCoupon сохраняет новый купон и возвращает его идентификатор.
func (r *PostgresRepository) CreateCoupon(ctx context.Context, c *model.Coupon) (uuid.UUID, error) {
	id := uuid.New()

	err := r.withRetry(ctx, func() error {
		_, execErr := r.pool.Exec(ctx,
			`INSERT INTO coupons (id, title, code, discount, discount_type, description,
			 image_url, website_link, category, country, brand, validity_date,
			 memex_payment, approved, user_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			id, c.Title, c.Code, c.Discount, string(c.DiscountType), c.Description,
			c.ImageURL, c.WebsiteLink, c.Category, c.Country, c.Brand, c.ValidityDate,
			c.MemexPayment, c.Approved, c.UserID,
		)
		return execErr
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert coupon: %w", err)
	}

	return id, nil
}

// UpdateCoupon обновляет редактируемые поля купона по идентификатору.
func (r *PostgresRepository) UpdateCoupon(ctx context.Context, c *model.Coupon) error {
	var cmdTag pgconn.CommandTag

	err := r.withRetry(ctx, func() error {
		var execErr error
		cmdTag, execErr = r.pool.Exec(ctx,
			`UPDATE coupons
			 SET title = $2, code = $3, discount = $4, discount_type = $5,
			     description = $6, image_url = $7, website_link = $8,
			     category = $9, country = $10, brand = $11, validity_date = $12,
			     memex_payment = $13
			 WHERE id = $1`,
			c.ID, c.Title, c.Code, c.Discount, string(c.DiscountType),
			c.Description, c.ImageURL, c.WebsiteLink, c.Category, c.Country,
			c.Brand, c.ValidityDate, c.MemexPayment,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}

	return nil
}

// SetCouponApproval устанавливает флаг одобрения купона.
func (r *PostgresRepository) SetCouponApproval(ctx context.Context, id uuid.UUID, approved bool) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE coupons SET approved = $2 WHERE id = $1`,
		id, approved,
	)
	if err != nil {
		return fmt.Errorf("update coupon approval: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}

	return nil
}

// DeleteCoupon удаляет купон безвозвратно.
func (r *PostgresRepository) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}

	return nil
}

// GetCouponByID возвращает купон по идентификатору.
func (r *PostgresRepository) GetCouponByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id)

	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	return c, nil
}

// ListCoupons возвращает все купоны, новые первыми.
func (r *PostgresRepository) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	return r.listCoupons(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
}

// ListCouponsByUser возвращает купоны пользователя, новые первыми.
func (r *PostgresRepository) ListCouponsByUser(ctx context.Context, userID uuid.UUID) ([]model.Coupon, error) {
	return r.listCoupons(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
}

func (r *PostgresRepository) listCoupons(ctx context.Context, query string, args ...any) ([]model.Coupon, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select coupons: %w", err)
	}
	defer rows.Close()

	var coupons []model.Coupon
	for rows.Next() {
		c, scanErr := scanCoupon(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan coupon: %w", scanErr)
		}
		coupons = append(coupons, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return coupons, nil
}

// ListBrands возвращает уникальные непустые бренды в алфавитном порядке.
func (r *PostgresRepository) ListBrands(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT brand FROM coupons WHERE brand <> '' ORDER BY brand`)
	if err != nil {
		return nil, fmt.Errorf("select brands: %w", err)
	}
	defer rows.Close()

	var brands []string
	for rows.Next() {
		var brand string
		if err := rows.Scan(&brand); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, brand)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return brands, nil
}

// GetSummary возвращает счётчики купонов для административной панели.
func (r *PostgresRepository) GetSummary(ctx context.Context) (*model.Summary, error) {
	var s model.Summary
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE approved),
		        COUNT(*) FILTER (WHERE NOT approved)
		 FROM coupons`,
	).Scan(&s.Total, &s.Approved, &s.Pending)
	if err != nil {
		return nil, fmt.Errorf("count coupons: %w", err)
	}

	return &s, nil
}

// CreateUser создаёт нового пользователя. Нарушение уникальности имени
// возвращается как ErrUserExists.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) (uuid.UUID, error) {
	id := uuid.New()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO custom_users (id, telegram_username, password_hash, first_name,
		 last_name, country, memex_payment, payment_made, payment_method)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, u.TelegramUsername, u.PasswordHash, u.FirstName, u.LastName,
		u.Country, u.MemexPayment, u.PaymentMade, u.PaymentMethod,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrUserExists, u.TelegramUsername)
		}
		return uuid.Nil, fmt.Errorf("create user: %w", err)
	}

	return id, nil
}

const userColumns = `id, telegram_username, password_hash, first_name, last_name,
	 country, memex_payment, payment_made, payment_method, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.TelegramUsername, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Country, &u.MemexPayment, &u.PaymentMade, &u.PaymentMethod, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername возвращает пользователя по имени.
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM custom_users WHERE telegram_username = $1`,
		username)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM custom_users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}

// UpdateUser обновляет профиль пользователя.
func (r *PostgresRepository) UpdateUser(ctx context.Context, u *model.User) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE custom_users
		 SET telegram_username = $2, first_name = $3, last_name = $4, country = $5,
		     memex_payment = $6, payment_made = $7, payment_method = $8
		 WHERE id = $1`,
		u.ID, u.TelegramUsername, u.FirstName, u.LastName, u.Country,
		u.MemexPayment, u.PaymentMade, u.PaymentMethod,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrUserExists, u.TelegramUsername)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// DeleteUser удаляет пользователя. Его купоны остаются без владельца.
func (r *PostgresRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM custom_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ListUsers возвращает всех пользователей, новые первыми.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM custom_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan user: %w", scanErr)
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}
