package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	// Act
	proxies, err := ParseTrustedProxies([]string{" 10.0.0.1 ", "", "172.16.5.0/12", "2001:db8::1"})

	// Assert
	require.NoError(t, err)
	require.Len(t, proxies, 3)
	assert.Equal(t, "10.0.0.1/32", proxies[0].String())
	assert.Equal(t, "172.16.0.0/12", proxies[1].String())
	assert.Equal(t, "2001:db8::1/128", proxies[2].String())
}

func TestParseTrustedProxies_Invalid(t *testing.T) {
	for _, entry := range []string{"10.0.0.0/33", "proxy.internal", "10.0.0"} {
		t.Run(entry, func(t *testing.T) {
			_, err := ParseTrustedProxies([]string{entry})
			assert.ErrorContains(t, err, entry)
		})
	}
}

func TestTrustedProxies_Contains(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "2001:db8::/32"})
	require.NoError(t, err)

	assert.True(t, proxies.Contains("10.1.2.3"))
	assert.True(t, proxies.Contains("::ffff:10.1.2.3"))
	assert.True(t, proxies.Contains("2001:db8::42"))
	assert.False(t, proxies.Contains("192.168.1.1"))
	assert.False(t, proxies.Contains("not-an-ip"))
}

func TestNewIPExtractor_NoProxiesUsesRemoteAddr(t *testing.T) {
	assert.IsType(t, RemoteAddrExtractor{}, NewIPExtractor(nil, nil))
}

func TestIPExtractors(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	trusted := NewIPExtractor(proxies, nil)

	tests := []struct {
		name       string
		extractor  IPExtractor
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{name: "remote addr ipv4", extractor: RemoteAddrExtractor{}, remoteAddr: "192.168.1.1:54321", want: "192.168.1.1"},
		{name: "remote addr ipv6", extractor: RemoteAddrExtractor{}, remoteAddr: "[2001:db8::1]:8080", want: "2001:db8::1"},
		{name: "remote addr without port", extractor: RemoteAddrExtractor{}, remoteAddr: "127.0.0.1", want: "127.0.0.1"},
		{name: "remote addr ignores headers", extractor: RemoteAddrExtractor{}, remoteAddr: "192.168.1.1:1", xff: "203.0.113.9", xri: "203.0.113.10", want: "192.168.1.1"},
		{name: "untrusted peer headers ignored", extractor: trusted, remoteAddr: "192.168.1.1:1", xff: "203.0.113.9", want: "192.168.1.1"},
		{name: "trusted peer single hop", extractor: trusted, remoteAddr: "10.0.0.2:1", xff: "203.0.113.9", want: "203.0.113.9"},
		{name: "trusted chain skips inner proxies", extractor: trusted, remoteAddr: "10.0.0.2:1", xff: "203.0.113.9, 10.0.0.5", want: "203.0.113.9"},
		{name: "forged prefix ignored", extractor: trusted, remoteAddr: "10.0.0.2:1", xff: "1.2.3.4, 203.0.113.9", want: "203.0.113.9"},
		{name: "garbage hop stops the walk", extractor: trusted, remoteAddr: "10.0.0.2:1", xff: "203.0.113.9, junk", xri: "203.0.113.10", want: "203.0.113.10"},
		{name: "x-real-ip from trusted peer", extractor: trusted, remoteAddr: "10.0.0.2:1", xri: "203.0.113.10", want: "203.0.113.10"},
		{name: "all hops trusted falls back to peer", extractor: trusted, remoteAddr: "10.0.0.2:1", xff: "10.0.0.7", want: "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			req := httptest.NewRequest(http.MethodGet, "/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			// Act
			got, err := tt.extractor.ExtractIP(req)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIPExtractors_BadRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.RemoteAddr = "not an address"

	_, err := RemoteAddrExtractor{}.ExtractIP(req)
	assert.Error(t, err)
}
