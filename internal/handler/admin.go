package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mmeshcher/couponboard/internal/middleware"
	"github.com/mmeshcher/couponboard/internal/model"
	"github.com/mmeshcher/couponboard/internal/service"
)

type adminLoginRequest struct {
	Password string `json:"password"`
}

// AdminLogin проверяет пароль администратора и выдаёт административную сессию.
// Сессия живёт до закрытия браузера.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.gate.Attempt(req.Password) {
		h.writeMessage(w, http.StatusUnauthorized, "Incorrect password")
		return
	}

	sess, _ := middleware.SessionFromContext(r.Context())
	sess.Admin = true
	h.sessions.Save(w, sess)

	h.writeMessage(w, http.StatusOK, "Welcome, admin")
}

// AdminLogout снимает административные права, сохраняя пользовательскую сессию.
func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	if sess.User != nil {
		sess.Admin = false
		h.sessions.Save(w, sess)
	} else {
		h.sessions.Clear(w)
	}

	h.writeMessage(w, http.StatusOK, "Logged out")
}

// AdminListCoupons возвращает все купоны, включая ожидающие одобрения.
func (h *Handler) AdminListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.service.ListAllCoupons(r.Context())
	if err != nil {
		h.writeError(w, err, "admin list coupons")
		return
	}
	if coupons == nil {
		coupons = []model.Coupon{}
	}

	h.writeJSON(w, http.StatusOK, coupons)
}

// AdminUpdateCoupon обновляет любой купон от имени администратора.
func (h *Handler) AdminUpdateCoupon(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.UpdateCoupon(r.Context(), service.Actor{Admin: true}, coupon); err != nil {
		h.writeError(w, err, "admin update coupon")
		return
	}

	h.writeMessage(w, http.StatusOK, "Coupon updated")
}

type approvalRequest struct {
	Approved bool `json:"approved"`
}

// AdminSetApproval одобряет купон или снимает одобрение.
func (h *Handler) AdminSetApproval(w http.ResponseWriter, r *http.Request) {
	id, err := couponIDFromRequest(r)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid coupon id")
		return
	}

	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.SetApproval(r.Context(), id, req.Approved); err != nil {
		h.writeError(w, err, "admin set approval")
		return
	}

	if req.Approved {
		h.writeMessage(w, http.StatusOK, "Coupon approved")
		return
	}
	h.writeMessage(w, http.StatusOK, "Coupon approval revoked")
}

// AdminDeleteCoupon удаляет любой купон от имени администратора.
func (h *Handler) AdminDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := couponIDFromRequest(r)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid coupon id")
		return
	}

	if err := h.service.DeleteCoupon(r.Context(), service.Actor{Admin: true}, id); err != nil {
		h.writeError(w, err, "admin delete coupon")
		return
	}

	h.writeMessage(w, http.StatusOK, "Coupon deleted")
}

// AdminSummary возвращает счётчики купонов для панели администратора.
func (h *Handler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.writeError(w, err, "admin summary")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// AdminListUsers возвращает всех зарегистрированных участников.
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, err, "admin list users")
		return
	}

	resp := make([]model.UserPublic, 0, len(users))
	for i := range users {
		resp = append(resp, users[i].ToPublic())
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type adminUserRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Country       string `json:"country"`
	MemexPayment  bool   `json:"memex_payment"`
	PaymentMade   bool   `json:"payment_made"`
	PaymentMethod string `json:"payment_method"`
}

// AdminUpdateUser обновляет данные участника, включая отметку о выплате.
func (h *Handler) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req adminUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u := &model.User{
		ID:            id,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Country:       req.Country,
		MemexPayment:  req.MemexPayment,
		PaymentMade:   req.PaymentMade,
		PaymentMethod: req.PaymentMethod,
	}

	if _, err := h.service.UpdateProfile(r.Context(), u); err != nil {
		h.writeError(w, err, "admin update user")
		return
	}

	h.writeMessage(w, http.StatusOK, "User updated")
}

// AdminDeleteUser удаляет учётную запись участника. Его купоны остаются
// в каталоге без владельца.
func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.writeError(w, err, "admin delete user")
		return
	}

	h.writeMessage(w, http.StatusOK, "User deleted")
}
