package httpclient

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSaferClient(t *testing.T) {
	client := NewSaferClient(30 * time.Second)

	assert.Equal(t, 30*time.Second, client.Timeout)
	assert.Equal(t, 10, client.maxRedirects)
	assert.True(t, client.blockPrivateIP)
	assert.NotNil(t, client.Transport, "private IP blocking installs a guarded transport")
}

func TestSaferClientOptions(t *testing.T) {
	maxRedirects := 5
	blockPrivateIP := false
	client := NewSaferClientWithOptions(30*time.Second, SaferClientOptions{
		AllowedSchemes: []string{"https"},
		MaxRedirects:   &maxRedirects,
		BlockPrivateIP: &blockPrivateIP,
	})

	assert.Equal(t, []string{"https"}, client.allowedSchemes)
	assert.Equal(t, 5, client.maxRedirects)
	assert.False(t, client.blockPrivateIP)
	assert.Nil(t, client.Transport)

	_, err := client.ValidateURL("http://ng.example.com")
	assert.ErrorContains(t, err, "scheme")

	_, err = client.ValidateURL("https://10.0.0.5/gateway")
	assert.NoError(t, err, "private targets are reachable when blocking is off")
}

func TestValidateURL(t *testing.T) {
	client := NewSaferClient(30 * time.Second)

	tests := []struct {
		name        string
		url         string
		errContains string
	}{
		{name: "https target", url: "https://app.example.com/gateway/ng/api"},
		{name: "http target", url: "http://example.com"},
		{name: "file scheme", url: "file:///etc/passwd", errContains: "scheme"},
		{name: "ftp scheme", url: "ftp://example.com", errContains: "scheme"},
		{name: "credentials", url: "http://evil.com@localhost/", errContains: "credentials"},
		{name: "missing host", url: "http:///path", errContains: "hostname"},
		{name: "localhost", url: "http://localhost:8080", errContains: "localhost"},
		{name: "localhost subdomain", url: "http://admin.localhost", errContains: "localhost"},
		{name: "loopback", url: "http://127.0.0.1", errContains: "private IP"},
		{name: "rfc1918", url: "http://192.168.1.10", errContains: "private IP"},
		{name: "metadata", url: "http://169.254.169.254/latest/meta-data", errContains: "private IP"},
		{name: "ipv6 loopback", url: "http://[::1]/", errContains: "private IP"},
		{name: "public ipv4", url: "http://8.8.8.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ValidateURL(tt.url)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errContains)
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"0.0.0.0", true},
		{"224.0.0.1", true},
		{"1.1.1.1", false},
		{"::1", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"fec0::1", true},
		{"2001:db8::1", true},
		{"2606:4700:4700::1111", false},
		{"::ffff:10.0.0.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			require.NotNil(t, ip)
			assert.Equal(t, tt.private, isPrivateIP(ip))
		})
	}
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, isLocalhost("LOCALHOST"))
	assert.True(t, isLocalhost("localhost.localdomain"))
	assert.True(t, isLocalhost("test.localhost"))
	assert.False(t, isLocalhost("local.host"))
	assert.False(t, isLocalhost("example.com"))
}

func TestRedirects(t *testing.T) {
	allow := false

	t.Run("stops after max redirects", func(t *testing.T) {
		client := NewSaferClientWithOptions(5*time.Second, SaferClientOptions{BlockPrivateIP: &allow})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/again", http.StatusFound)
		}))
		defer server.Close()

		resp, err := client.Get(server.URL)
		if err == nil {
			resp.Body.Close()
		}
		assert.ErrorContains(t, err, "stopped after 10 redirects")
	})

	t.Run("blocks redirect to disallowed scheme", func(t *testing.T) {
		client := NewSaferClientWithOptions(5*time.Second, SaferClientOptions{BlockPrivateIP: &allow})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "file:///etc/passwd", http.StatusFound)
		}))
		defer server.Close()

		resp, err := client.Get(server.URL)
		if err == nil {
			resp.Body.Close()
		}
		assert.ErrorContains(t, err, "redirect blocked")
	})
}

func TestDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := WrapClient(server.Client()).Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = NewSaferClient(5 * time.Second).Do(req)
	assert.ErrorContains(t, err, "SSRF protection")
}
