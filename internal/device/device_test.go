package device

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariIPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 " +
		"(KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	samsungAndroid = "Mozilla/5.0 (Linux; Android 13; SM-A546E) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/119.0.0.0 Mobile Safari/537.36"
	googlebot = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		ua         string
		deviceType string
		clientType string
		brand      string
	}{
		{name: "desktop chrome", ua: chromeWindows, deviceType: "desktop", clientType: "browser", brand: ""},
		{name: "iphone safari", ua: safariIPhone, deviceType: "smartphone", clientType: "browser", brand: "Apple"},
		{name: "samsung android", ua: samsungAndroid, deviceType: "smartphone", clientType: "browser", brand: "Samsung"},
		{name: "bot", ua: googlebot, clientType: "bot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Detect(tt.ua, "10.0.0.1")
			assert.Equal(t, "10.0.0.1", info.ClientIP)
			assert.Equal(t, tt.clientType, info.ClientType)
			if tt.deviceType != "" {
				assert.Equal(t, tt.deviceType, info.DeviceType)
			}
			assert.Equal(t, tt.brand, info.Brand)
		})
	}
}

func TestDetect_Empty(t *testing.T) {
	info := Detect("", "10.0.0.2")
	assert.Equal(t, Info{ClientIP: "10.0.0.2"}, info)
	assert.NotContains(t, info.Map(), "userAgent")
}

func TestInfo_DescriptionAndMap(t *testing.T) {
	info := Info{
		UserAgent:  "ua",
		OSName:     "Android",
		ClientName: "Chrome",
		ClientType: "browser",
		DeviceType: "smartphone",
		Brand:      "Samsung",
		ClientIP:   "10.0.0.3",
	}
	assert.Equal(t, "Android smartphone Samsung browser Chrome", info.Description())
	assert.Equal(t, map[string]any{
		"userAgent":  "ua",
		"osName":     "Android",
		"clientName": "Chrome",
		"clientType": "browser",
		"deviceType": "smartphone",
		"brand":      "Samsung",
		"clientIp":   "10.0.0.3",
	}, info.Map())
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got Info
	router := gin.New()
	router.Use(Middleware())
	router.GET("/", func(c *gin.Context) {
		got = FromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", safariIPhone)
	req.RemoteAddr = "192.0.2.10:5555"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "192.0.2.10", got.ClientIP)
	assert.Equal(t, "Apple", got.Brand)
}
