package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/digistore/internal/convert"
	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
)

func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, errs.ErrInvalidRequest)
	}
	return nil
}

// buyer returns the caller's id or nil for guests.
func buyer(c *gin.Context) *uuid.UUID {
	if id, ok := IdentityFromCtx(c.Request.Context()); ok {
		uid := id.UserID
		return &uid
	}
	return nil
}

func caller(c *gin.Context) uuid.UUID {
	id, _ := IdentityFromCtx(c.Request.Context())
	return id.UserID
}

// --- health ---

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- auth ---

func (s *Server) setAuthCookies(c *gin.Context, t model.Tokens, u model.User) {
	maxAge := int(time.Until(t.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AuthCookie, t.AccessToken, maxAge, "/", "", s.opts.CookieSecure, true)
	c.SetCookie(RoleCookie, string(u.Role), maxAge, "/", "", s.opts.CookieSecure, false)
}

func (s *Server) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AuthCookie, "", -1, "/", "", s.opts.CookieSecure, true)
	c.SetCookie(RoleCookie, "", -1, "/", "", s.opts.CookieSecure, false)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req convert.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err, false)
		return
	}
	tok, u, err := s.auth.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.fail(c, err, false)
		return
	}
	s.setAuthCookies(c, tok, u)
	c.JSON(http.StatusCreated, convert.ToAuthResponse(tok, u))
}

func (s *Server) handleLogin(c *gin.Context) {
	var req convert.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err, false)
		return
	}
	tok, u, err := s.auth.LoginWithIP(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		s.fail(c, err, false)
		return
	}
	s.setAuthCookies(c, tok, u)
	c.JSON(http.StatusOK, convert.ToAuthResponse(tok, u))
}

func (s *Server) handleLogout(c *gin.Context) {
	s.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMe(c *gin.Context) {
	u, err := s.auth.Me(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err, false)
		return
	}
	c.JSON(http.StatusOK, convert.ToUser(u))
}

// --- checkout ---

func (s *Server) handleCheckout(c *gin.Context) {
	var req convert.CheckoutRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err, false)
		return
	}
	pid, err := convert.ParseID(req.ProductID)
	if err != nil {
		s.fail(c, err, false)
		return
	}
	o, err := s.orders.CheckoutProduct(c.Request.Context(), buyer(c), pid, req.Quantity)
	if err != nil {
		s.fail(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, convert.ToOrder(*o))
}

func (s *Server) handleCheckoutCart(c *gin.Context) {
	var req convert.CartRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err, false)
		return
	}
	items, err := convert.FromCartRequest(req)
	if err != nil {
		s.fail(c, err, false)
		return
	}
	o, err := s.orders.CheckoutCart(c.Request.Context(), buyer(c), items)
	if err != nil {
		s.fail(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, convert.ToOrder(*o))
}

func (s *Server) handleCheckoutService(c *gin.Context) {
	var req convert.ServiceCheckoutRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err, false)
		return
	}
	sid, err := convert.ParseID(req.ServiceID)
	if err != nil {
		s.fail(c, err, false)
		return
	}
	pkg, err := convert.ParseID(req.PackageID)
	if err != nil {
		s.fail(c, err, false)
		return
	}
	o, err := s.orders.CheckoutService(c.Request.Context(), buyer(c), sid, pkg, req.Notes)
	if err != nil {
		s.fail(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, convert.ToOrder(*o))
}

// --- orders & delivery ---

func (s *Server) handleMyOrders(c *gin.Context) {
	list, err := s.orders.MyOrders(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err, false)
		return
	}
	c.JSON(http.StatusOK, convert.ToOrders(list))
}

func (s *Server) handleOrder(c *gin.Context) {
	id, err := convert.ParseID(c.Param("id"))
	if err != nil {
		s.fail(c, err, false)
		return
	}
	o, err := s.orders.OrderByID(c.Request.Context(), id, caller(c))
	if err != nil {
		s.fail(c, err, false)
		return
	}
	c.JSON(http.StatusOK, convert.ToOrder(*o))
}

func (s *Server) handleAccess(c *gin.Context) {
	id, err := convert.ParseID(c.Param("id"))
	if err != nil {
		s.fail(c, err, false)
		return
	}
	var productID *uuid.UUID
	if q := c.Query("productId"); q != "" {
		pid, err := convert.ParseID(q)
		if err != nil {
			s.fail(c, err, false)
			return
		}
		productID = &pid
	}
	g, err := s.delivery.RequestAccess(c.Request.Context(), id, caller(c), productID)
	if err != nil {
		s.fail(c, err, false)
		return
	}
	c.JSON(http.StatusOK, convert.ToAccess(g))
}

func (s *Server) handleRedeem(c *gin.Context) {
	target, err := s.delivery.Redeem(c.Request.Context(), c.Param("token"), caller(c))
	if err != nil {
		s.fail(c, err, false)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// --- admin ---

func (s *Server) handleAdminOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	list, err := s.orders.AllOrders(c.Request.Context(), limit, offset)
	if err != nil {
		s.fail(c, err, true)
		return
	}
	c.JSON(http.StatusOK, convert.ToOrders(list))
}

func (s *Server) handleConfirm(c *gin.Context) {
	id, err := convert.ParseID(c.Param("id"))
	if err != nil {
		s.fail(c, err, true)
		return
	}
	res, err := s.payments.Confirm(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, true)
		return
	}
	c.JSON(http.StatusOK, convert.ToConfirmResult(res))
}
