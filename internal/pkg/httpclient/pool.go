// Package httpclient maintains a small pool of shared req clients so the
// scrapers reuse connections instead of building a client per call.
package httpclient

import (
	"fmt"
	"sync"
	"time"

	"github.com/imroc/req/v3"
)

type Options struct {
	Timeout         time.Duration
	UserAgent       string
	BrowserProfile  bool
	FollowRedirects bool
}

func (o Options) normalized() Options {
	out := o
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	return out
}

func (o Options) key() string {
	return fmt.Sprintf("t=%s|ua=%s|browser=%t|redirect=%t", o.Timeout, o.UserAgent, o.BrowserProfile, o.FollowRedirects)
}

var (
	mu   sync.RWMutex
	pool = make(map[string]*req.Client)
)

// Get returns a shared client for the given options, building it on first use.
func Get(options Options) *req.Client {
	options = options.normalized()
	k := options.key()

	mu.RLock()
	client, ok := pool[k]
	mu.RUnlock()
	if ok {
		return client
	}

	mu.Lock()
	defer mu.Unlock()
	if client, ok = pool[k]; ok {
		return client
	}
	client = build(options)
	pool[k] = client
	return client
}

func build(options Options) *req.Client {
	client := req.C().SetTimeout(options.Timeout)
	if options.BrowserProfile {
		client.ImpersonateChrome()
	}
	if options.UserAgent != "" {
		client.SetUserAgent(options.UserAgent)
	}
	if !options.FollowRedirects {
		client.SetRedirectPolicy(req.NoRedirectPolicy())
	}
	return client
}
