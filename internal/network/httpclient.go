// File: internal/network/httpclient.go
package network

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/config"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/security"
)

// Constants for default TCP/HTTP settings.
const (
	DefaultDialTimeout           = 10 * time.Second
	DefaultKeepAliveInterval     = 30 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
	DefaultRequestTimeout        = 30 * time.Second

	// The gate talks to a single host a handful of times, so a small pool is plenty.
	DefaultMaxIdleConns        = 4
	DefaultMaxIdleConnsPerHost = 2
	DefaultIdleConnTimeout     = 30 * time.Second
)

const requiredMinTLSVersion = tls.VersionTLS12

// ClientConfig holds the configuration for the HTTP client and transport layers.
type ClientConfig struct {
	// Security settings
	IgnoreTLSErrors bool
	RootCAs         *x509.CertPool // nil means the system roots
	TLSConfig       *tls.Config

	// Timeout settings
	RequestTimeout        time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	DialerConfig *DialerConfig

	// Connection pool settings
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	ForceHTTP2 bool

	// ProxyURL routes every request through a fixed proxy. When nil and
	// UseEnvironmentProxy is set, HTTP_PROXY/HTTPS_PROXY/NO_PROXY apply.
	ProxyURL            *url.URL
	UseEnvironmentProxy bool

	Logger *zap.Logger
}

// Client is a wrapper around the standard http.Client.
//
// The caller is responsible for closing the Response.Body after consuming it.
type Client struct {
	*http.Client
}

// NewDefaultClientConfig creates the default configuration.
func NewDefaultClientConfig() *ClientConfig {
	dialerCfg := NewDialerConfig()
	dialerCfg.Timeout = DefaultDialTimeout
	dialerCfg.KeepAlive = DefaultKeepAliveInterval
	dialerCfg.ForceNoDelay = true

	return &ClientConfig{
		DialerConfig:          dialerCfg,
		RequestTimeout:        DefaultRequestTimeout,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		ForceHTTP2:            true,
		UseEnvironmentProxy:   true,
		Logger:                zap.NewNop(),
	}
}

// NewClientConfigFromSettings maps the network section of the application
// config onto a ClientConfig: custom CA trust (or disabled verification),
// an explicit proxy and the request timeout.
func NewClientConfigFromSettings(settings config.NetworkConfig, logger *zap.Logger) (*ClientConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := NewDefaultClientConfig()
	cfg.Logger = logger.Named("httpclient")
	if settings.Timeout > 0 {
		cfg.RequestTimeout = settings.Timeout
	}

	switch {
	case settings.InsecureSkipVerify():
		logger.Warn("CA_FILE is FALSE, TLS certificate verification is disabled")
		cfg.IgnoreTLSErrors = true
	case strings.TrimSpace(settings.CAFile) != "":
		bundle, err := security.LoadCABundle(settings.CAFile, logger)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = bundle.Pool()
	}

	if proxy := strings.TrimSpace(settings.Proxy); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", proxy)
		}
		cfg.ProxyURL = proxyURL
		logger.Debug("Using explicit proxy", zap.String("proxy", proxyURL.Redacted()))
	}

	return cfg, nil
}

// NewHTTPTransport creates and configures an http.Transport based on the provided configuration.
func NewHTTPTransport(config *ClientConfig) *http.Transport {
	if config == nil {
		config = NewDefaultClientConfig()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.DialerConfig == nil {
		config.DialerConfig = NewDefaultClientConfig().DialerConfig
	}

	tlsConfig := configureTLS(config)
	dialerConfig := *config.DialerConfig

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return DialTCPContext(ctx, network, addr, &dialerConfig)
		},
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     config.ForceHTTP2,
	}

	switch {
	case config.ProxyURL != nil:
		transport.Proxy = http.ProxyURL(config.ProxyURL)
	case config.UseEnvironmentProxy:
		transport.Proxy = http.ProxyFromEnvironment
	}

	if config.ForceHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			config.Logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
		}
	} else if len(tlsConfig.NextProtos) == 0 {
		tlsConfig.NextProtos = []string{"http/1.1"}
	}

	return transport
}

// NewClient creates our custom client wrapper using the configured transport.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = NewDefaultClientConfig()
	}

	standardClient := &http.Client{
		Transport: NewHTTPTransport(config),
		Timeout:   config.RequestTimeout,
		// TeamServer never redirects API calls; a redirect means a wrong URL
		// (usually a login page) and must surface as a non-2xx status.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &Client{Client: standardClient}
}

// configureTLS builds the TLS configuration: TLS 1.2 minimum, a session
// cache, the custom root pool and the verification override.
func configureTLS(config *ClientConfig) *tls.Config {
	var tlsConfig *tls.Config
	if config.TLSConfig != nil {
		tlsConfig = config.TLSConfig.Clone()
	} else {
		tlsConfig = &tls.Config{}
	}

	if tlsConfig.MinVersion < requiredMinTLSVersion {
		tlsConfig.MinVersion = requiredMinTLSVersion
	}
	if tlsConfig.ClientSessionCache == nil {
		tlsConfig.ClientSessionCache = tls.NewLRUClientSessionCache(16)
	}
	if config.RootCAs != nil {
		tlsConfig.RootCAs = config.RootCAs
	}

	// #nosec G402 -- only set when the user passes CA_FILE=FALSE.
	tlsConfig.InsecureSkipVerify = config.IgnoreTLSErrors

	return tlsConfig
}
