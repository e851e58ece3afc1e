// REST calls of the Wishful client, the mutations carry the websocket session id.

package subscription

import (
	"Wishful/internal/entity"
	apierrors "Wishful/internal/errors"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// RestClient talks to the JSON API, authenticated with the access_token cookie.
type RestClient struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	token     string
	sessionID string
}

// NewRestClient creates a client for the server at baseURL, e.g. http://localhost:8080.
func NewRestClient(baseURL string) *RestClient {
	return &RestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *RestClient) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the access token sent with every request.
func (c *RestClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the access token in use.
func (c *RestClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetSessionID sets the websocket session id sent with mutations, so the server skips echoing them back.
func (c *RestClient) SetSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// Login authenticates and keeps the access token the server set as a cookie.
func (c *RestClient) Login(ctx context.Context, username, password string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/login", entity.UserLogin{Username: username, Password: password}, nil)
	if err != nil {
		return "", err
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "access_token" && cookie.Value != "" {
			c.SetToken(cookie.Value)
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("login response carried no access_token cookie")
}

// FetchWishlist returns the wishlist with its products, newest first.
func (c *RestClient) FetchWishlist(ctx context.Context, wishlistID string) (entity.WishlistDetail, error) {
	var detail entity.WishlistDetail
	_, err := c.do(ctx, http.MethodGet, "/api/wishlists/"+url.PathEscape(wishlistID), nil, &detail)
	return detail, err
}

// AddProduct adds a product to the wishlist.
func (c *RestClient) AddProduct(ctx context.Context, wishlistID string, input entity.ProductInput) (entity.ProductView, error) {
	var product entity.ProductView
	_, err := c.do(ctx, http.MethodPost, productsPath(wishlistID), input, &product)
	return product, err
}

// UpdateProduct replaces the editable fields of a product.
func (c *RestClient) UpdateProduct(ctx context.Context, wishlistID, productID string, input entity.ProductInput) (entity.ProductView, error) {
	var product entity.ProductView
	_, err := c.do(ctx, http.MethodPut, productsPath(wishlistID, productID), input, &product)
	return product, err
}

// DeleteProduct removes a product.
func (c *RestClient) DeleteProduct(ctx context.Context, wishlistID, productID string) error {
	_, err := c.do(ctx, http.MethodDelete, productsPath(wishlistID, productID), nil, nil)
	return err
}

// AddComment comments on a product.
func (c *RestClient) AddComment(ctx context.Context, wishlistID, productID, text string) (entity.ProductView, error) {
	var product entity.ProductView
	_, err := c.do(ctx, http.MethodPost, productsPath(wishlistID, productID, "comments"), entity.CommentInput{Text: text}, &product)
	return product, err
}

// ToggleReaction adds the reaction, or removes it when the user already reacted with emoji.
func (c *RestClient) ToggleReaction(ctx context.Context, wishlistID, productID, emoji string) (entity.ProductView, bool, error) {
	var toggled struct {
		Product entity.ProductView `json:"product"`
		Added   bool               `json:"added"`
	}
	_, err := c.do(ctx, http.MethodPost, productsPath(wishlistID, productID, "reactions"), entity.ReactionInput{Emoji: emoji}, &toggled)
	return toggled.Product, toggled.Added, err
}

func productsPath(wishlistID string, rest ...string) string {
	parts := []string{"/api/wishlists", url.PathEscape(wishlistID), "products"}
	for _, p := range rest {
		parts = append(parts, url.PathEscape(p))
	}
	return strings.Join(parts, "/")
}

// do sends body as JSON and decodes the answer into dest. API failures come back as apierrors.ErrorResponse.
func (c *RestClient) do(ctx context.Context, method, path string, body, dest interface{}) (*http.Response, error) {
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: c.token})
	}
	if c.sessionID != "" && method != http.MethodGet {
		req.Header.Set(entity.SessionHeader, c.sessionID)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp apierrors.ErrorResponse
		if err := json.Unmarshal(data, &errResp); err == nil && errResp.Message != "" {
			errResp.Status = resp.StatusCode
			return resp, errResp
		}
		return resp, apierrors.ErrorResponse{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if dest != nil {
		if err := json.Unmarshal(data, dest); err != nil {
			return resp, fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return resp, nil
}
