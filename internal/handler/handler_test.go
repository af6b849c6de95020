package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

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
)

type stubService struct {
	registerID  uuid.UUID
	registerErr error

	authUser *model.User
	authErr  error

	profileUser *model.User
	profileErr  error

	directoryResult   *directory.Result
	directoryErr      error
	directoryCriteria directory.Criteria

	publicCoupon *model.Coupon
	publicErr    error

	allCoupons  []model.Coupon
	userCoupons []model.Coupon

	addCouponID  uuid.UUID
	addCouponErr error

	updateCouponErr   error
	updateCouponActor service.Actor

	deleteCouponErr error

	approvalID       uuid.UUID
	approvalApproved bool

	brands  []string
	summary *model.Summary
	users   []model.User
	country string
}

func (s *stubService) RegisterUser(_ context.Context, _ *model.User, _ string) (uuid.UUID, error) {
	return s.registerID, s.registerErr
}

func (s *stubService) AuthenticateUser(_ context.Context, _, _ string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) UpdateProfile(_ context.Context, _ *model.User) (*model.User, error) {
	return s.profileUser, s.profileErr
}

func (s *stubService) DeleteUser(_ context.Context, _ uuid.UUID) error { return nil }

func (s *stubService) ListUsers(_ context.Context) ([]model.User, error) { return s.users, nil }

func (s *stubService) ListDirectory(_ context.Context, c directory.Criteria) (*directory.Result, error) {
	s.directoryCriteria = c
	return s.directoryResult, s.directoryErr
}

func (s *stubService) GetPublicCoupon(_ context.Context, _ uuid.UUID) (*model.Coupon, error) {
	return s.publicCoupon, s.publicErr
}

func (s *stubService) ListAllCoupons(_ context.Context) ([]model.Coupon, error) {
	return s.allCoupons, nil
}

func (s *stubService) ListUserCoupons(_ context.Context, _ uuid.UUID) ([]model.Coupon, error) {
	return s.userCoupons, nil
}

func (s *stubService) AddCoupon(_ context.Context, _ uuid.UUID, _ *model.Coupon) (uuid.UUID, error) {
	return s.addCouponID, s.addCouponErr
}

func (s *stubService) UpdateCoupon(_ context.Context, actor service.Actor, _ *model.Coupon) error {
	s.updateCouponActor = actor
	return s.updateCouponErr
}

func (s *stubService) DeleteCoupon(_ context.Context, _ service.Actor, _ uuid.UUID) error {
	return s.deleteCouponErr
}

func (s *stubService) SetApproval(_ context.Context, id uuid.UUID, approved bool) error {
	s.approvalID = id
	s.approvalApproved = approved
	return nil
}

func (s *stubService) Brands(_ context.Context) ([]string, error) { return s.brands, nil }

func (s *stubService) Summary(_ context.Context) (*model.Summary, error) { return s.summary, nil }

func (s *stubService) DetectCountry(_ context.Context, _ string) string { return s.country }

type testEnv struct {
	handler  *Handler
	router   http.Handler
	sessions *session.Store
}

func newTestEnv(t *testing.T, svc Service) *testEnv {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	sessions := session.NewStore("test-secret")
	auth := middleware.NewAuth(sessions)
	h := NewHandler(svc, logger, sessions, auth, admin.NewGate(), countdown.NewScheduler(time.Hour))

	return &testEnv{
		handler:  h,
		router:   h.SetupRouter(),
		sessions: sessions,
	}
}

// sessionCookie выпускает подписанный cookie для запроса от имени сессии.
func (e *testEnv) sessionCookie(t *testing.T, sess session.Session) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	e.sessions.Save(rec, sess)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("ожидался один cookie, получено %d", len(cookies))
	}
	return cookies[0]
}

func userSession(u *model.UserPublic) session.Session {
	return session.Session{User: u}
}

func TestListCoupons_QueryParams(t *testing.T) {
	svc := &stubService{directoryResult: &directory.Result{Page: 2, PageSize: 6}}
	env := newTestEnv(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons?search=pizza&category=Food+%26+Drink&country=all&brand=Dominos&page=2&page_size=6", nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	c := svc.directoryCriteria
	if c.Search != "pizza" || c.Category != "Food & Drink" || c.Country != "all" || c.Brand != "Dominos" {
		t.Fatalf("критерии разобраны неверно: %+v", c)
	}
	if c.Page != 2 || c.PageSize != 6 {
		t.Fatalf("страница разобрана неверно: page=%d size=%d", c.Page, c.PageSize)
	}
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{registerID: uuid.New()}
	env := newTestEnv(t, svc)

	body, _ := json.Marshal(registerRequest{
		TelegramUsername: "couponfan",
		Password:         "pass",
		Country:          "Turkey",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatal("после регистрации не установлен сессионный cookie")
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message == "" {
		t.Fatal("ответ без подтверждающего сообщения")
	}
	if resp.User.ID != svc.registerID {
		t.Fatalf("в ответе не тот пользователь: %s", resp.User.ID)
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	svc := &stubService{registerErr: repository.ErrUserExists}
	env := newTestEnv(t, svc)

	body, _ := json.Marshal(registerRequest{TelegramUsername: "couponfan", Password: "pass"})
	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRegister_InvalidUsername(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	body, _ := json.Marshal(registerRequest{TelegramUsername: "a b", Password: "pass"})
	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{authErr: service.ErrInvalidCredentials}
	env := newTestEnv(t, svc)

	body, _ := json.Marshal(loginRequest{TelegramUsername: "couponfan", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if strings.Contains(strings.ToLower(resp.Message), "not found") {
		t.Fatalf("сообщение раскрывает существование пользователя: %q", resp.Message)
	}
}

func TestUserCoupons_RequiresSession(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/user/coupons", nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestUpdateUserCoupon_NotOwner(t *testing.T) {
	svc := &stubService{updateCouponErr: service.ErrNotOwner}
	env := newTestEnv(t, svc)

	userID := uuid.New()
	cookie := env.sessionCookie(t, userSession(&model.UserPublic{ID: userID, TelegramUsername: "couponfan"}))

	discount := 10.0
	body, _ := json.Marshal(couponRequest{Title: "T", Code: "C", Discount: &discount})
	req := httptest.NewRequest(http.MethodPut, "/api/user/coupons/"+uuid.NewString(), bytes.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if svc.updateCouponActor.UserID == nil || *svc.updateCouponActor.UserID != userID {
		t.Fatal("действующий пользователь не передан в сервис")
	}
}

func TestUpdateUserCoupon_MissingDiscount(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	cookie := env.sessionCookie(t, userSession(&model.UserPublic{ID: uuid.New()}))

	body, _ := json.Marshal(couponRequest{Title: "T", Code: "C"})
	req := httptest.NewRequest(http.MethodPut, "/api/user/coupons/"+uuid.NewString(), bytes.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAddCoupon_InvalidDiscount(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	cookie := env.sessionCookie(t, userSession(&model.UserPublic{ID: uuid.New()}))

	bad := 150.0
	body, _ := json.Marshal(couponRequest{Title: "T", Code: "C", Discount: &bad, DiscountType: "discount"})
	req := httptest.NewRequest(http.MethodPost, "/api/user/coupons", bytes.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	body, _ := json.Marshal(adminLoginRequest{Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("неверный пароль: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	body, _ = json.Marshal(adminLoginRequest{Password: "admin123"})
	req = httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("верный пароль: status = %d, want %d", rec.Code, http.StatusOK)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("ожидался один cookie, получено %d", len(cookies))
	}
	if !cookies[0].Expires.IsZero() {
		t.Fatal("административная сессия должна жить до закрытия браузера")
	}
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	cookie := env.sessionCookie(t, userSession(&model.UserPublic{ID: uuid.New()}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/summary", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("обычный пользователь: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAdminSetApproval(t *testing.T) {
	svc := &stubService{}
	env := newTestEnv(t, svc)

	cookie := env.sessionCookie(t, session.Session{Admin: true})
	id := uuid.New()

	body, _ := json.Marshal(approvalRequest{Approved: true})
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/coupons/"+id.String()+"/approval", bytes.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if svc.approvalID != id || !svc.approvalApproved {
		t.Fatalf("одобрение не дошло до сервиса: id=%s approved=%v", svc.approvalID, svc.approvalApproved)
	}

	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message == "" {
		t.Fatal("ответ без подтверждающего сообщения")
	}
}

func TestCouponCountdown_ExpiredStreamsSingleEvent(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	svc := &stubService{
		publicCoupon: &model.Coupon{ID: uuid.New(), ValidityDate: &past, Approved: true},
	}
	env := newTestEnv(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons/"+svc.publicCoupon.ID.String()+"/countdown", nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "data: ") {
		t.Fatalf("тело не похоже на SSE: %q", body)
	}

	var state countdown.State
	if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(body, "data: "))), &state); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if !state.Expired {
		t.Fatal("для истёкшего купона ожидалось событие expired")
	}
	if strings.Count(body, "data: ") != 1 {
		t.Fatalf("для истёкшего купона ожидалось одно событие, получено %d", strings.Count(body, "data: "))
	}
}

func TestGetBrands_EmptyListNotNull(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/brands", nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("пустой список брендов должен сериализоваться как [], получено %q", rec.Body.String())
	}
}

func TestGetMeta(t *testing.T) {
	svc := &stubService{country: "Turkey"}
	env := newTestEnv(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/meta", nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	var resp metaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Categories) == 0 || len(resp.Countries) == 0 {
		t.Fatal("справочники форм пусты")
	}
	if resp.DetectedCountry != "Turkey" {
		t.Fatalf("detected_country = %q, want Turkey", resp.DetectedCountry)
	}
}
