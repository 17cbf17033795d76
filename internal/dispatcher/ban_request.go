package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"go-threatguard/internal/logging"
	"go-threatguard/internal/platform"
)

const defaultRequestTimeout = 5 * time.Second

// BanRequestExecutor issues ban, kick and timeout requests directly over the
// pooled fasthttp clients, skipping the gateway library's REST queue.
type BanRequestExecutor struct {
	httpPool    *HTTPPool
	rateLimiter *RateLimitMonitor
	baseURL     string
	token       string
}

func NewBanRequestExecutor(httpPool *HTTPPool, rateLimiter *RateLimitMonitor, baseURL, token string) *BanRequestExecutor {
	return &BanRequestExecutor{
		httpPool:    httpPool,
		rateLimiter: rateLimiter,
		baseURL:     baseURL,
		token:       token,
	}
}

func (bre *BanRequestExecutor) ExecuteBan(ctx context.Context, guildID, userID, reason string) error {
	body, _ := json.Marshal(map[string]interface{}{"delete_message_seconds": 0})
	uri := fmt.Sprintf("%s/guilds/%s/bans/%s", bre.baseURL, guildID, userID)
	start := time.Now()
	if err := bre.do(ctx, "ban", guildID, fasthttp.MethodPut, uri, reason, body); err != nil {
		return err
	}
	logging.Info("Ban executed: user %s in guild %s (%d ms)", userID, guildID, time.Since(start).Milliseconds())
	return nil
}

func (bre *BanRequestExecutor) ExecuteKick(ctx context.Context, guildID, userID, reason string) error {
	uri := fmt.Sprintf("%s/guilds/%s/members/%s", bre.baseURL, guildID, userID)
	return bre.do(ctx, "kick", guildID, fasthttp.MethodDelete, uri, reason, nil)
}

func (bre *BanRequestExecutor) ExecuteTimeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"communication_disabled_until": until.UTC().Format(time.RFC3339),
	})
	uri := fmt.Sprintf("%s/guilds/%s/members/%s", bre.baseURL, guildID, userID)
	return bre.do(ctx, "timeout", guildID, fasthttp.MethodPatch, uri, reason, body)
}

func (bre *BanRequestExecutor) do(ctx context.Context, route, guildID, method, uri, reason string, body []byte) error {
	if wait := bre.rateLimiter.Wait(route, guildID); wait > 0 {
		return &platform.StatusError{Op: route, Code: 429, Message: "bucket exhausted", RetryAfter: wait}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bot "+bre.token)
	if reason != "" {
		req.Header.Set("X-Audit-Log-Reason", url.PathEscape(reason))
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	client := bre.httpPool.GetClient()
	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = client.DoDeadline(req, resp, deadline)
	} else {
		err = client.DoTimeout(req, resp, defaultRequestTimeout)
	}
	if err != nil {
		return fmt.Errorf("%s request failed: %w", route, err)
	}

	bre.rateLimiter.UpdateFromFastHTTPResponse(resp, route, guildID)

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}

	se := &platform.StatusError{Op: route, Code: status, Message: string(resp.Body())}
	if after := string(resp.Header.Peek("Retry-After")); after != "" {
		secs, _ := strconv.ParseFloat(after, 64)
		se.RetryAfter = time.Duration(secs * float64(time.Second))
	}
	return se
}
