package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVendorCapable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/counterparties/77", r.URL.Path)
		assert.Equal(t, "s3cret", r.Header.Get("X-Internal-Secret"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":77,"vendor_capable":true}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "s3cret")

	capable, err := client.IsVendorCapable(context.Background(), 77)

	assert.NoError(t, err)
	assert.True(t, capable)
}

func TestIsVendorCapable_False(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":77,"vendor_capable":false}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "s3cret")

	capable, err := client.IsVendorCapable(context.Background(), 77)

	assert.NoError(t, err)
	assert.False(t, capable)
}

func TestIsVendorCapable_RegistryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "counterparty not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "s3cret")

	_, err := client.IsVendorCapable(context.Background(), 99)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
}

func TestObjectName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/objects/3", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":3,"name":"Business center A"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "s3cret")

	name, err := client.ObjectName(context.Background(), 3)

	assert.NoError(t, err)
	assert.Equal(t, "Business center A", name)
}

func TestObjectName_Unreachable(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", "s3cret")

	_, err := client.ObjectName(context.Background(), 3)

	assert.Error(t, err)
}
