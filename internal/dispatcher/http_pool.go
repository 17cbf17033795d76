package dispatcher

import (
	"crypto/tls"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

// HTTPPool round-robins over keep-alive clients for the punishment fast path.
type HTTPPool struct {
	clients []*fasthttp.Client
	next    atomic.Uint32
}

func NewHTTPPool(size int) *HTTPPool {
	if size < 1 {
		size = 1
	}
	clients := make([]*fasthttp.Client, size)

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(128),
	}

	for i := 0; i < size; i++ {
		clients[i] = &fasthttp.Client{
			MaxConnsPerHost:     512,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         5 * time.Second,
			WriteTimeout:        5 * time.Second,
			MaxConnWaitTimeout:  time.Second,

			MaxResponseBodySize: 1 << 20,

			// Retries belong to platform.Guard.
			MaxIdemponentCallAttempts: 1,

			TLSConfig:                tlsConfig,
			NoDefaultUserAgentHeader: true,
		}
	}

	return &HTTPPool{clients: clients}
}

func (hp *HTTPPool) GetClient() *fasthttp.Client {
	i := hp.next.Add(1)
	return hp.clients[int(i)%len(hp.clients)]
}
