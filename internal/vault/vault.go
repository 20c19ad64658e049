// internal/vault/vault.go
//
// Vault client wrapper for database secrets.
//
// Context
// -------
//   - Configuration may reference the database password as
//     `vault:<mount>/<path>#<key>`; the credential resolver asks this client
//     for the value.
//   - Values are cached per path#key for a caller-supplied TTL so a build
//     daemon does not hit Vault on every request.
//   - A background loop keeps the token alive while the daemon runs.  One-
//     shot CLI builds cancel the context right after resolving and the loop
//     exits.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, log)             // only when VAULT_ADDR is set.
//  2. pw,  err := cli.GetKV(ctx, path, key, ttl)  // from config.Resolve.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api kv
	log *zap.SugaredLogger

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
}

// kv is the slice of the Vault SDK the client needs.
type kv interface {
	Get(ctx context.Context, mount, rel string) (map[string]any, error)
}

type sdk struct{ c *vault.Client }

func (s sdk) Get(ctx context.Context, mount, rel string) (map[string]any, error) {
	sec, err := s.c.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

type cached struct {
	val string
	exp time.Time
}

// Enabled reports whether the environment points at a Vault server.
func Enabled() bool { return os.Getenv("VAULT_ADDR") != "" }

// New constructs a Vault client from VAULT_ADDR and VAULT_TOKEN and starts
// token renewal bound to ctx.
func New(ctx context.Context, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.S()
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := &Client{
		api:   sdk{apiCli},
		log:   log,
		cache: make(map[string]cached),
	}
	go c.renewLoop(ctx, apiCli)
	return c, nil
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
			c.cacheMu.RUnlock()
			return cv.val, nil
		}
		c.cacheMu.RUnlock()
	}

	mount, rel := splitMount(secretPath)
	data, err := c.api.Get(ctx, mount, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	c.log.Debugw("vault secret read", "path", secretPath, "key", key)
	return sval, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context, api *vault.Client) {
	for {
		sec, err := api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warnw("vault token renew failed", "err", err)
			if !backoff(ctx, 30*time.Second) {
				return
			}
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Debugw("vault token is not renewable")
			return
		}

		watcher, err := api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			c.log.Warnw("vault watcher init failed", "err", err)
			if !backoff(ctx, 30*time.Second) {
				return
			}
			continue
		}
		go watcher.Start()

		select {
		case <-ctx.Done():
			watcher.Stop()
			return
		case err := <-watcher.DoneCh():
			watcher.Stop()
			if err != nil {
				c.log.Warnw("vault token renewal stopped", "err", err)
			}
		}
		if !backoff(ctx, 15*time.Second) {
			return
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return
}

// backoff sleeps for d and reports false if ctx ended first.
func backoff(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
