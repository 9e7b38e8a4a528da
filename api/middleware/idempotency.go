package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/vincentbui21/SmartJuiceSystem/api/responses"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
	pkgredis "github.com/vincentbui21/SmartJuiceSystem/pkg/redis"
)

// Intake and container creation replay within a day; done/pickup flip
// physical state, so their keys live a week.
const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// exactRoutes covers POST endpoints matched by full route pattern;
// suffixRoutes covers the /orders/{orderId}/<action> patterns.
var (
	exactRoutes = map[string]time.Duration{
		"/api/v1/entries": defaultIdempotencyTTL,
		"/api/v1/pallets": defaultIdempotencyTTL,
		"/api/v1/shelves": defaultIdempotencyTTL,
	}
	suffixRoutes = map[string]time.Duration{
		"/done":   criticalIdempotencyTTL,
		"/pickup": criticalIdempotencyTTL,
	}
)

func routeTTL(method, pattern string) (time.Duration, bool) {
	if method != http.MethodPost || pattern == "" {
		return 0, false
	}
	if ttl, ok := exactRoutes[pattern]; ok {
		return ttl, true
	}
	if strings.HasPrefix(pattern, "/api/v1/orders/") {
		for suffix, ttl := range suffixRoutes {
			if strings.HasSuffix(pattern, suffix) {
				return ttl, true
			}
		}
	}
	return 0, false
}

// storedReply is the serialized first response for a key, replayed on
// repeats. RequestHash pins the key to one request body.
type storedReply struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency makes selected POST routes safe to retry: the first
// response under an Idempotency-Key is captured in redis and replayed
// verbatim for repeats, while a reused key with a different body is
// rejected. Routes outside the table pass through untouched.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, routePattern(r))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			digest := bodyDigest(body)
			key := store.IdempotencyKey(requestScope(r), clientKey)

			prior, err := loadReply(r, store, key)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if prior != nil {
				if prior.RequestHash != digest {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				replay(w, prior)
				return
			}

			rec := &replyRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if err := saveReply(r, store, key, ttl, rec, digest); err != nil && logg != nil {
				logg.Error(r.Context(), "persist idempotency record", err)
			}
		})
	}
}

func loadReply(r *http.Request, store pkgredis.IdempotencyStore, key string) (*storedReply, error) {
	raw, err := store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) || raw == "" {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var reply storedReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &reply, nil
}

func saveReply(r *http.Request, store pkgredis.IdempotencyStore, key string, ttl time.Duration, rec *replyRecorder, digest string) error {
	reply := storedReply{
		Status:      rec.statusOrOK(),
		Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
		RequestHash: digest,
	}
	if ct := rec.Header().Get("Content-Type"); ct != "" {
		reply.Headers = map[string]string{"Content-Type": ct}
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	_, err = store.SetNX(r.Context(), key, string(payload), ttl)
	return err
}

func replay(w http.ResponseWriter, reply *storedReply) {
	if ct := reply.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(reply.Status)
	if decoded, err := base64.StdEncoding.DecodeString(reply.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// requestScope ties a key to the caller and route so staff members
// cannot replay each other's responses.
func requestScope(r *http.Request) string {
	return AccountIDFromContext(r.Context()) + "|" + r.Method + "|" + r.URL.Path
}

func bodyDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type replyRecorder struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *replyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *replyRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *replyRecorder) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
