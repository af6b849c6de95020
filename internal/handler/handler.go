// Package handler содержит HTTP-обработчики API сервиса купонов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/couponboard/internal/admin"
	"github.com/mmeshcher/couponboard/internal/countdown"
	"github.com/mmeshcher/couponboard/internal/directory"
	"github.com/mmeshcher/couponboard/internal/middleware"
	"github.com/mmeshcher/couponboard/internal/model"
	"github.com/mmeshcher/couponboard/internal/repository"
	"github.com/mmeshcher/couponboard/internal/service"
	"github.com/mmeshcher/couponboard/internal/session"
	"github.com/mmeshcher/couponboard/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, u *model.User, password string) (uuid.UUID, error)
	AuthenticateUser(ctx context.Context, username, password string) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) (*model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context) ([]model.User, error)

	ListDirectory(ctx context.Context, c directory.Criteria) (*directory.Result, error)
	GetPublicCoupon(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	ListAllCoupons(ctx context.Context) ([]model.Coupon, error)
	ListUserCoupons(ctx context.Context, userID uuid.UUID) ([]model.Coupon, error)
	AddCoupon(ctx context.Context, userID uuid.UUID, c *model.Coupon) (uuid.UUID, error)
	UpdateCoupon(ctx context.Context, actor service.Actor, c *model.Coupon) error
	DeleteCoupon(ctx context.Context, actor service.Actor, id uuid.UUID) error
	SetApproval(ctx context.Context, id uuid.UUID, approved bool) error
	Brands(ctx context.Context) ([]string, error)
	Summary(ctx context.Context) (*model.Summary, error)
	DetectCountry(ctx context.Context, ip string) string
}

// Handler реализует HTTP-обработчики API сервиса купонов.
type Handler struct {
	service  Service
	logger   *zap.Logger
	sessions *session.Store
	auth     *middleware.Auth
	gate     *admin.Gate
	ticks    *countdown.Scheduler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, sessions *session.Store, auth *middleware.Auth, gate *admin.Gate, ticks *countdown.Scheduler) *Handler {
	return &Handler{
		service:  s,
		logger:   logger,
		sessions: sessions,
		auth:     auth,
		gate:     gate,
		ticks:    ticks,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON сериализует ответ. Ошибка сериализации после записи заголовка
// уже не исправима, поэтому только логируется.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write response error", zap.Error(err))
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, messageResponse{Message: message})
}

// writeError переводит ошибку в HTTP-статус и текст для пользователя.
func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, repository.ErrCouponNotFound):
		h.writeMessage(w, http.StatusNotFound, "Coupon not found")
	case errors.Is(err, repository.ErrUserNotFound):
		h.writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrUserExists):
		h.writeMessage(w, http.StatusConflict, "Username already taken")
	case errors.Is(err, service.ErrNotOwner):
		h.writeMessage(w, http.StatusForbidden, "You can only manage your own coupons")
	case errors.Is(err, service.ErrInvalidCredentials):
		h.writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
	default:
		h.logger.Error(op+" error", zap.Error(err))
		h.writeMessage(w, http.StatusInternalServerError, "Something went wrong, please try again")
	}
}

func couponIDFromRequest(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// clientIP определяет IP клиента с учётом обратного прокси.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ListCoupons возвращает страницу публичного каталога купонов.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	criteria := directory.NewCriteria()
	criteria.Search = q.Get("search")
	criteria.Category = q.Get("category")
	criteria.Country = q.Get("country")
	criteria.Brand = q.Get("brand")
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil {
		criteria.SetPageSize(size)
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		criteria.SetPage(page)
	}

	res, err := h.service.ListDirectory(r.Context(), criteria)
	if err != nil {
		h.writeError(w, err, "list coupons")
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// GetCoupon возвращает один одобренный купон по идентификатору.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := couponIDFromRequest(r)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid coupon id")
		return
	}

	coupon, err := h.service.GetPublicCoupon(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get coupon")
		return
	}

	h.writeJSON(w, http.StatusOK, coupon)
}

// GetBrands возвращает список брендов для фильтров каталога.
func (h *Handler) GetBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.Brands(r.Context())
	if err != nil {
		h.writeError(w, err, "get brands")
		return
	}
	if brands == nil {
		brands = []string{}
	}

	h.writeJSON(w, http.StatusOK, brands)
}

type metaResponse struct {
	Categories      []string `json:"categories"`
	Countries       []string `json:"countries"`
	DetectedCountry string   `json:"detected_country,omitempty"`
}

// GetMeta возвращает справочники форм и страну клиента по его IP.
func (h *Handler) GetMeta(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, metaResponse{
		Categories:      model.Categories,
		Countries:       model.Countries,
		DetectedCountry: h.service.DetectCountry(r.Context(), clientIP(r)),
	})
}

type registerRequest struct {
	TelegramUsername string `json:"telegram_username"`
	Password         string `json:"password"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Country          string `json:"country"`
	MemexPayment     bool   `json:"memex_payment"`
}

type authResponse struct {
	Message string           `json:"message"`
	User    model.UserPublic `json:"user"`
}

// Register обрабатывает регистрацию нового участника.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !validation.IsValidUsername(req.TelegramUsername) {
		h.writeMessage(w, http.StatusBadRequest, "Invalid telegram username")
		return
	}
	if req.Password == "" {
		h.writeMessage(w, http.StatusBadRequest, "Password is required")
		return
	}

	u := &model.User{
		TelegramUsername: req.TelegramUsername,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Country:          req.Country,
		MemexPayment:     req.MemexPayment,
	}

	id, err := h.service.RegisterUser(r.Context(), u, req.Password)
	if err != nil {
		h.writeError(w, err, "register user")
		return
	}
	u.ID = id

	public := u.ToPublic()
	sess, _ := middleware.SessionFromContext(r.Context())
	sess.User = &public
	h.sessions.Save(w, sess)

	h.writeJSON(w, http.StatusOK, authResponse{Message: "Registration successful", User: public})
}

type loginRequest struct {
	TelegramUsername string `json:"telegram_username"`
	Password         string `json:"password"`
}

// Login выполняет вход участника и устанавливает сессионный cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.TelegramUsername == "" || req.Password == "" {
		h.writeMessage(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.TelegramUsername, req.Password)
	if err != nil {
		h.writeError(w, err, "login user")
		return
	}

	public := u.ToPublic()
	sess, _ := middleware.SessionFromContext(r.Context())
	sess.User = &public
	h.sessions.Save(w, sess)

	h.writeJSON(w, http.StatusOK, authResponse{Message: "Login successful", User: public})
}

// Logout завершает сессию участника, сохраняя административную часть сессии.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	if sess.Admin {
		sess.User = nil
		h.sessions.Save(w, sess)
	} else {
		h.sessions.Clear(w)
	}

	h.writeMessage(w, http.StatusOK, "Logged out")
}

// GetProfile возвращает профиль текущего участника.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	h.writeJSON(w, http.StatusOK, sess.User)
}

type profileRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Country       string `json:"country"`
	MemexPayment  bool   `json:"memex_payment"`
	PaymentMethod string `json:"payment_method"`
}

// UpdateProfile обновляет профиль текущего участника.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u := &model.User{
		ID:               sess.User.ID,
		TelegramUsername: sess.User.TelegramUsername,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Country:          req.Country,
		MemexPayment:     req.MemexPayment,
		PaymentMade:      sess.User.PaymentMade,
		PaymentMethod:    req.PaymentMethod,
	}

	updated, err := h.service.UpdateProfile(r.Context(), u)
	if err != nil {
		h.writeError(w, err, "update profile")
		return
	}

	public := updated.ToPublic()
	sess.User = &public
	h.sessions.Save(w, sess)

	h.writeJSON(w, http.StatusOK, authResponse{Message: "Profile updated", User: public})
}

// GetUserCoupons возвращает купоны текущего участника, включая неодобренные.
func (h *Handler) GetUserCoupons(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	coupons, err := h.service.ListUserCoupons(r.Context(), sess.User.ID)
	if err != nil {
		h.writeError(w, err, "get user coupons")
		return
	}
	if coupons == nil {
		coupons = []model.Coupon{}
	}

	h.writeJSON(w, http.StatusOK, coupons)
}

type couponRequest struct {
	Title        string     `json:"title"`
	Code         string     `json:"code"`
	Discount     *float64   `json:"discount"`
	DiscountType string     `json:"discount_type"`
	Description  string     `json:"description"`
	ImageURL     string     `json:"image_url"`
	WebsiteLink  string     `json:"website_link"`
	Category     string     `json:"category"`
	Country      string     `json:"country"`
	Brand        string     `json:"brand"`
	ValidityDate *time.Time `json:"validity_date"`
	MemexPayment bool       `json:"memex_payment"`
}

func (req *couponRequest) toCoupon() (*model.Coupon, string) {
	if req.Title == "" || req.Code == "" {
		return nil, "Title and code are required"
	}

	discountType := model.DiscountType(req.DiscountType)
	if discountType == "" {
		discountType = model.DiscountTypePercent
	}
	if !validation.IsValidDiscount(discountType, req.Discount) {
		return nil, "Invalid discount value"
	}

	return &model.Coupon{
		Title:        req.Title,
		Code:         req.Code,
		Discount:     req.Discount,
		DiscountType: discountType,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		WebsiteLink:  req.WebsiteLink,
		Category:     req.Category,
		Country:      req.Country,
		Brand:        req.Brand,
		ValidityDate: req.ValidityDate,
		MemexPayment: req.MemexPayment,
	}, ""
}

// AddCoupon сохраняет новый купон текущего участника. Купон попадёт
// в каталог только после одобрения администратором.
func (h *Handler) AddCoupon(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	coupon, msg := req.toCoupon()
	if msg != "" {
		h.writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	id, err := h.service.AddCoupon(r.Context(), sess.User.ID, coupon)
	if err != nil {
		h.writeError(w, err, "add coupon")
		return
	}
	coupon.ID = id

	h.writeJSON(w, http.StatusCreated, struct {
		Message string        `json:"message"`
		Coupon  *model.Coupon `json:"coupon"`
	}{Message: "Coupon submitted for approval", Coupon: coupon})
}

// UpdateUserCoupon обновляет купон текущего участника.
func (h *Handler) UpdateUserCoupon(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	id, err := couponIDFromRequest(r)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid coupon id")
		return
	}

	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	coupon, msg := req.toCoupon()
	if msg != "" {
		h.writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	coupon.ID = id

	actor := service.Actor{UserID: &sess.User.ID, Admin: sess.Admin}
	if err := h.service.UpdateCoupon(r.Context(), actor, coupon); err != nil {
		h.writeError(w, err, "update coupon")
		return
	}

	h.writeMessage(w, http.StatusOK, "Coupon updated")
}

// DeleteUserCoupon удаляет купон текущего участника. Удаление немедленное,
// подтверждение запрашивает клиент.
func (h *Handler) DeleteUserCoupon(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	id, err := couponIDFromRequest(r)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid coupon id")
		return
	}

	actor := service.Actor{UserID: &sess.User.ID, Admin: sess.Admin}
	if err := h.service.DeleteCoupon(r.Context(), actor, id); err != nil {
		h.writeError(w, err, "delete coupon")
		return
	}

	h.writeMessage(w, http.StatusOK, "Coupon deleted")
}
