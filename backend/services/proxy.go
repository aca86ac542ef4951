// ABOUTME: SSH+SOCKS5 jumpbox dialer for reaching a backend service on a private network
// ABOUTME: Parses ssh+socks5://user@host:port?private-key=/path and dials lazily through the tunnel

package services

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	proxy "github.com/cloudfoundry/socks5-proxy"
)

type dialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// jumpboxSettings is a parsed BACKEND_ALL_PROXY value.
type jumpboxSettings struct {
	username string
	host     string
	keyPath  string
}

func parseJumpboxURL(allProxy string) (*jumpboxSettings, error) {
	proxyURL, err := url.Parse(strings.TrimPrefix(allProxy, "ssh+"))
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if proxyURL.Scheme != "socks5" {
		return nil, fmt.Errorf("unsupported proxy scheme %q, want ssh+socks5", proxyURL.Scheme)
	}
	if proxyURL.Host == "" {
		return nil, fmt.Errorf("proxy URL is missing a host")
	}

	keyPath := proxyURL.Query().Get("private-key")
	if keyPath == "" {
		return nil, fmt.Errorf("proxy URL is missing required 'private-key' query param")
	}

	username := ""
	if proxyURL.User != nil {
		username = proxyURL.User.Username()
	}

	return &jumpboxSettings{username: username, host: proxyURL.Host, keyPath: keyPath}, nil
}

// jumpboxDialContext returns a DialContext that tunnels through the jumpbox.
// The SSH session is established on first use and reused afterwards.
func jumpboxDialContext(allProxy string) (dialContextFunc, error) {
	settings, err := parseJumpboxURL(allProxy)
	if err != nil {
		return nil, err
	}

	key, err := os.ReadFile(settings.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH private key %s: %w", settings.keyPath, err)
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.RWMutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.RLock()
		d := dialer
		mut.RUnlock()

		if d == nil {
			mut.Lock()
			if dialer == nil {
				created, err := socks5Proxy.Dialer(settings.username, string(key), settings.host)
				if err != nil {
					mut.Unlock()
					return nil, fmt.Errorf("error creating SOCKS5 dialer: %w", err)
				}
				dialer = created
			}
			d = dialer
			mut.Unlock()
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return d(network, address)
	}, nil
}
