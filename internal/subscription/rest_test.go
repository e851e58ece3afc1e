// REST client tests in Wishful.

package subscription

import (
	"Wishful/internal/entity"
	apierrors "Wishful/internal/errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestClientSendsCredentials(t *testing.T) {
	var gotSession, gotToken, gotPath string
	var gotInput entity.ProductInput
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSession = r.Header.Get(entity.SessionHeader)
		if cookie, err := r.Cookie("access_token"); err == nil {
			gotToken = cookie.Value
		}
		json.NewDecoder(r.Body).Decode(&gotInput)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(entity.ProductView{ID: "p1", Name: gotInput.Name})
	}))
	defer server.Close()

	client := NewRestClient(server.URL + "/")
	client.SetToken("tok")
	client.SetSessionID("s1")

	created, err := client.AddProduct(ctx, "w 1", entity.ProductInput{Name: "Mug", Price: 5})
	require.Nil(t, err)
	assert.Equal(t, "p1", created.ID)
	assert.Equal(t, "Mug", created.Name)
	assert.Equal(t, "/api/wishlists/w 1/products", gotPath)
	assert.Equal(t, "tok", gotToken)
	assert.Equal(t, "s1", gotSession)

	// Reads don't carry the session id
	_, err = client.FetchWishlist(ctx, "w1")
	require.Nil(t, err)
	assert.Empty(t, gotSession)
}

func TestRestClientDecodesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/wishlists/secret":
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(apierrors.ErrorResponse{Status: http.StatusForbidden, Message: "You don't have access to this wishlist"})
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()
	client := NewRestClient(server.URL)

	_, err := client.FetchWishlist(ctx, "secret")
	require.NotNil(t, err)
	assert.True(t, apierrors.Is(err, http.StatusForbidden))
	assert.Equal(t, "You don't have access to this wishlist", err.Error())

	err = client.DeleteProduct(ctx, "w1", "p1")
	assert.True(t, apierrors.Is(err, http.StatusBadGateway))
}

func TestRestClientLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var login entity.UserLogin
		json.NewDecoder(r.Body).Decode(&login)
		if login.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(apierrors.ErrorResponse{Status: http.StatusUnauthorized, Message: "Invalid credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "jwt-for-" + login.Username})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	client := NewRestClient(server.URL)

	_, err := client.Login(ctx, "alice", "wrong")
	assert.True(t, apierrors.Is(err, http.StatusUnauthorized))
	assert.Empty(t, client.Token())

	token, err := client.Login(ctx, "alice", "secret")
	require.Nil(t, err)
	assert.Equal(t, "jwt-for-alice", token)
	assert.Equal(t, token, client.Token())
}
