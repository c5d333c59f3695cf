// Package exchange содержит адаптеры бирж, через которые исполняются ордера.
package exchange

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// HTTPClientConfig - настройки HTTP клиента для REST API бирж
type HTTPClientConfig struct {
	ConnectTimeout      time.Duration // TCP connect (default: 5s)
	ResponseTimeout     time.Duration // ожидание заголовков ответа (default: 10s)
	TotalTimeout        time.Duration // запрос целиком, страховка поверх ctx (default: 30s)
	TLSHandshakeTimeout time.Duration // (default: 5s)

	MaxIdleConnsPerHost int           // (default: 10)
	IdleConnTimeout     time.Duration // (default: 90s)
	KeepAliveInterval   time.Duration // (default: 30s)
}

// DefaultHTTPClientConfig возвращает конфигурацию по умолчанию
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		ConnectTimeout:      5 * time.Second,
		ResponseTimeout:     10 * time.Second,
		TotalTimeout:        30 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		KeepAliveInterval:   30 * time.Second,
	}
}

// NewHTTPClient создаёт http.Client с пулом соединений.
// Один клиент разделяется всеми адаптерами процесса: клиенты бирж
// создаются на каждый ордер, а соединения переиспользуются.
func NewHTTPClient(cfg HTTPClientConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: cfg.KeepAliveInterval,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConnsPerHost * 4,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: time.Second,
		ResponseHeaderTimeout: cfg.ResponseTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.TotalTimeout,
	}
}

// CloseIdle закрывает простаивающие соединения при остановке процесса
func CloseIdle(client *http.Client) {
	if client == nil {
		return
	}
	if t, ok := client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}
