package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/digistore/internal/convert"
)

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status  int
	Message string
	Detail  string
}

func (e *apiError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("http %d: %s (%s)", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

type client struct {
	base   string
	bearer string
	hc     *http.Client
}

// newClient never follows redirects: redeem answers with 302 and the
// Location header is the result.
func newClient(addr, bearer string, timeout time.Duration) *client {
	return &client{
		base:   strings.TrimRight(addr, "/"),
		bearer: bearer,
		hc: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(ctx context.Context, method, path string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Error == "" {
			eb.Error = http.StatusText(resp.StatusCode)
		}
		return resp, &apiError{Status: resp.StatusCode, Message: eb.Error, Detail: eb.Detail}
	}
	if out != nil && resp.StatusCode != http.StatusFound {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func (c *client) register(ctx context.Context, req convert.RegisterRequest) (convert.AuthResponse, error) {
	var out convert.AuthResponse
	_, err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &out)
	return out, err
}

func (c *client) login(ctx context.Context, req convert.LoginRequest) (convert.AuthResponse, error) {
	var out convert.AuthResponse
	_, err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &out)
	return out, err
}

func (c *client) me(ctx context.Context) (convert.User, error) {
	var out convert.User
	_, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out, err
}

func (c *client) checkout(ctx context.Context, req convert.CheckoutRequest) (convert.Order, error) {
	var out convert.Order
	_, err := c.do(ctx, http.MethodPost, "/api/checkout", req, &out)
	return out, err
}

func (c *client) cart(ctx context.Context, req convert.CartRequest) (convert.Order, error) {
	var out convert.Order
	_, err := c.do(ctx, http.MethodPost, "/api/checkout/cart", req, &out)
	return out, err
}

func (c *client) service(ctx context.Context, req convert.ServiceCheckoutRequest) (convert.Order, error) {
	var out convert.Order
	_, err := c.do(ctx, http.MethodPost, "/api/checkout/service", req, &out)
	return out, err
}

func (c *client) orders(ctx context.Context) ([]convert.Order, error) {
	var out []convert.Order
	_, err := c.do(ctx, http.MethodGet, "/api/orders", nil, &out)
	return out, err
}

func (c *client) allOrders(ctx context.Context, limit, offset int) ([]convert.Order, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/admin/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []convert.Order
	_, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *client) order(ctx context.Context, id string) (convert.Order, error) {
	var out convert.Order
	_, err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *client) access(ctx context.Context, orderID, productID string) (convert.Access, error) {
	path := "/api/orders/" + url.PathEscape(orderID) + "/access"
	if productID != "" {
		path += "?productId=" + url.QueryEscape(productID)
	}
	var out convert.Access
	_, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// redeem returns the redirect target of a download token.
func (c *client) redeem(ctx context.Context, token string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/downloads/"+url.PathEscape(token), nil, nil)
	if err != nil {
		return "", err
	}
	loc := resp.Header.Get("Location")
	if resp.StatusCode != http.StatusFound || loc == "" {
		return "", errors.New("server did not redirect")
	}
	return loc, nil
}

func (c *client) confirm(ctx context.Context, paymentID string) (convert.ConfirmResult, error) {
	var out convert.ConfirmResult
	_, err := c.do(ctx, http.MethodPost, "/admin/payments/"+url.PathEscape(paymentID)+"/confirm", nil, &out)
	return out, err
}

// parseCartLines reads "productID[:qty]" arguments; qty defaults to 1.
func parseCartLines(args []string) (convert.CartRequest, error) {
	var req convert.CartRequest
	for _, a := range args {
		id, qs, found := strings.Cut(a, ":")
		qty := 1
		if found {
			n, err := strconv.Atoi(qs)
			if err != nil || n < 1 {
				return req, fmt.Errorf("bad quantity in %q", a)
			}
			qty = n
		}
		if id == "" {
			return req, fmt.Errorf("empty product id in %q", a)
		}
		req.Items = append(req.Items, convert.CartLine{ProductID: id, Quantity: qty})
	}
	if len(req.Items) == 0 {
		return req, errors.New("cart is empty")
	}
	return req, nil
}
