// Package service реализует бизнес-логику сервиса купонов.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/couponboard/internal/countdown"
	"github.com/mmeshcher/couponboard/internal/creds"
	"github.com/mmeshcher/couponboard/internal/directory"
	"github.com/mmeshcher/couponboard/internal/geo"
	"github.com/mmeshcher/couponboard/internal/model"
	"github.com/mmeshcher/couponboard/internal/repository"
)

// ErrInvalidCredentials возвращается при неверном имени пользователя или пароле.
// Сообщение единое: по ответу нельзя понять, существует ли пользователь.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotOwner возвращается при попытке изменить чужой купон.
	ErrNotOwner = errors.New("coupon belongs to another user")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateCoupon(ctx context.Context, c *model.Coupon) (uuid.UUID, error)
	UpdateCoupon(ctx context.Context, c *model.Coupon) error
	SetCouponApproval(ctx context.Context, id uuid.UUID, approved bool) error
	DeleteCoupon(ctx context.Context, id uuid.UUID) error
	GetCouponByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	ListCouponsByUser(ctx context.Context, userID uuid.UUID) ([]model.Coupon, error)
	ListBrands(ctx context.Context) ([]string, error)
	GetSummary(ctx context.Context) (*model.Summary, error)

	CreateUser(ctx context.Context, u *model.User) (uuid.UUID, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Actor описывает, от чьего имени выполняется операция.
// Передаётся явно вместо глобального флага администратора.
type Actor struct {
	UserID *uuid.UUID
	Admin  bool
}

// Service содержит бизнес-логику сервиса купонов.
type Service struct {
	repo      Repository
	geoClient *geo.Client
}

// NewService создаёт новый сервис с указанным репозиторием и клиентом геолокации.
func NewService(repo Repository, geoClient *geo.Client) *Service {
	return &Service{
		repo:      repo,
		geoClient: geoClient,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя. Пароль сохраняется
// только в виде дайджеста.
func (s *Service) RegisterUser(ctx context.Context, u *model.User, password string) (uuid.UUID, error) {
	u.PasswordHash = creds.Digest(password)
	if u.PaymentMethod == "" {
		u.PaymentMethod = "Memex"
	}

	id, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// AuthenticateUser проверяет имя пользователя и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !creds.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// UpdateProfile обновляет профиль пользователя и возвращает свежую копию.
// Пустое имя пользователя означает «оставить прежнее».
func (s *Service) UpdateProfile(ctx context.Context, u *model.User) (*model.User, error) {
	if u.TelegramUsername == "" {
		existing, err := s.repo.GetUserByID(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		u.TelegramUsername = existing.TelegramUsername
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, u.ID)
}

// DeleteUser удаляет учётную запись участника.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteUser(ctx, id)
}

// ListUsers возвращает всех участников.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// ListDirectory возвращает страницу публичного каталога купонов.
// Истёкшие купоны скрываются до применения фильтров.
func (s *Service) ListDirectory(ctx context.Context, c directory.Criteria) (*directory.Result, error) {
	coupons, err := s.repo.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	active := make([]model.Coupon, 0, len(coupons))
	for _, coupon := range coupons {
		if countdown.Active(coupon.ValidityDate, now) {
			active = append(active, coupon)
		}
	}

	res := directory.Apply(active, c)
	return &res, nil
}

// GetPublicCoupon возвращает купон для публичного показа:
// он должен быть одобрен и не истёкшим.
func (s *Service) GetPublicCoupon(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	coupon, err := s.repo.GetCouponByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !coupon.Approved || !countdown.Active(coupon.ValidityDate, time.Now()) {
		return nil, repository.ErrCouponNotFound
	}

	return coupon, nil
}

// ListAllCoupons возвращает весь каталог без фильтров, включая неодобренные.
func (s *Service) ListAllCoupons(ctx context.Context) ([]model.Coupon, error) {
	return s.repo.ListCoupons(ctx)
}

// ListUserCoupons возвращает купоны, добавленные пользователем.
func (s *Service) ListUserCoupons(ctx context.Context, userID uuid.UUID) ([]model.Coupon, error) {
	return s.repo.ListCouponsByUser(ctx, userID)
}

// AddCoupon сохраняет новый купон. Купон создаётся неодобренным
// и попадает в публичный каталог только после решения администратора.
func (s *Service) AddCoupon(ctx context.Context, userID uuid.UUID, c *model.Coupon) (uuid.UUID, error) {
	c.Approved = false
	c.UserID = &userID
	if c.DiscountType == "" {
		c.DiscountType = model.DiscountTypePercent
	}

	return s.repo.CreateCoupon(ctx, c)
}

// UpdateCoupon обновляет купон от имени владельца или администратора.
func (s *Service) UpdateCoupon(ctx context.Context, actor Actor, c *model.Coupon) error {
	if err := s.authorize(ctx, actor, c.ID); err != nil {
		return err
	}
	return s.repo.UpdateCoupon(ctx, c)
}

// DeleteCoupon удаляет купон от имени владельца или администратора.
// Удаление немедленное и безвозвратное.
func (s *Service) DeleteCoupon(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.DeleteCoupon(ctx, id)
}

// SetApproval переключает флаг одобрения купона.
func (s *Service) SetApproval(ctx context.Context, id uuid.UUID, approved bool) error {
	return s.repo.SetCouponApproval(ctx, id, approved)
}

// Brands возвращает список брендов для фильтров каталога.
func (s *Service) Brands(ctx context.Context) ([]string, error) {
	return s.repo.ListBrands(ctx)
}

// Summary возвращает счётчики купонов для административной панели.
func (s *Service) Summary(ctx context.Context) (*model.Summary, error) {
	return s.repo.GetSummary(ctx)
}

// DetectCountry определяет страну клиента по его IP-адресу.
// Без настроенного клиента геолокации возвращает пустую строку.
func (s *Service) DetectCountry(ctx context.Context, ip string) string {
	if s.geoClient == nil || ip == "" {
		return ""
	}

	country, err := s.geoClient.DetectCountry(ctx, ip)
	if err != nil {
		return ""
	}
	return country
}

func (s *Service) authorize(ctx context.Context, actor Actor, couponID uuid.UUID) error {
	if actor.Admin {
		return nil
	}

	coupon, err := s.repo.GetCouponByID(ctx, couponID)
	if err != nil {
		return err
	}

	if actor.UserID == nil || coupon.UserID == nil || *coupon.UserID != *actor.UserID {
		return fmt.Errorf("%w: %s", ErrNotOwner, couponID)
	}

	return nil
}
