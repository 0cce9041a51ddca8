// Package device derives the client device description attached to every
// transaction log and sent to the backend as deviceInfo.
package device

import (
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// Info describes the device a request came from.
type Info struct {
	UserAgent  string
	OSName     string
	ClientName string
	ClientType string
	DeviceType string
	Brand      string
	ClientIP   string
}

// brands maps user-agent markers to device brands, checked in order.
var brands = []struct {
	marker string
	brand  string
}{
	{"iPhone", "Apple"},
	{"iPad", "Apple"},
	{"Macintosh", "Apple"},
	{"SAMSUNG", "Samsung"},
	{"SM-", "Samsung"},
	{"HUAWEI", "Huawei"},
	{"Redmi", "Xiaomi"},
	{"Xiaomi", "Xiaomi"},
	{"Infinix", "Infinix"},
	{"TECNO", "Tecno"},
	{"itel", "Itel"},
	{"Nokia", "Nokia"},
	{"Pixel", "Google"},
	{"OPPO", "OPPO"},
	{"vivo", "Vivo"},
}

// Detect parses a User-Agent header. An empty header yields an Info carrying only
// the client IP.
func Detect(userAgent, clientIP string) Info {
	info := Info{UserAgent: userAgent, ClientIP: clientIP}
	if strings.TrimSpace(userAgent) == "" {
		return info
	}

	ua := useragent.New(userAgent)
	info.OSName = ua.OSInfo().Name
	info.ClientName, _ = ua.Browser()

	switch {
	case ua.Bot():
		info.ClientType = "bot"
	case info.ClientName == "" || !strings.HasPrefix(userAgent, "Mozilla"):
		info.ClientType = "library"
	default:
		info.ClientType = "browser"
	}

	platform := ua.Platform()
	switch {
	case strings.Contains(userAgent, "iPad") || strings.Contains(userAgent, "Tablet"):
		info.DeviceType = "tablet"
	case ua.Mobile():
		info.DeviceType = "smartphone"
	case platform != "" || info.OSName != "":
		info.DeviceType = "desktop"
	}

	for _, b := range brands {
		if strings.Contains(userAgent, b.marker) {
			info.Brand = b.brand
			break
		}
	}
	return info
}

// Description renders "os deviceType brand clientType clientName".
func (i Info) Description() string {
	return fmt.Sprintf("%s %s %s %s %s", i.OSName, i.DeviceType, i.Brand, i.ClientType, i.ClientName)
}

// Map returns the device as logged and forwarded to collaborators.
func (i Info) Map() map[string]any {
	m := map[string]any{
		"osName":     i.OSName,
		"clientName": i.ClientName,
		"clientType": i.ClientType,
		"deviceType": i.DeviceType,
		"brand":      i.Brand,
		"clientIp":   i.ClientIP,
	}
	if i.UserAgent != "" {
		m["userAgent"] = i.UserAgent
	}
	return m
}
