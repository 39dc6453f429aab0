package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/trading-venue/internal/problem"
)

// IdempotencyRecord stores the outcome of a completed request so a
// retried submission with the same key replays the original response
// instead of reaching the engine twice.
type IdempotencyRecord struct {
	Key         string
	Endpoint    string
	RequestHash string
	StatusCode  int
	Body        []byte
}

type IdempotencyStore interface {
	Find(key, endpoint string) (*IdempotencyRecord, bool)
	Save(record *IdempotencyRecord)
}

type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*IdempotencyRecord
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{records: make(map[string]*IdempotencyRecord)}
}

func (s *InMemoryIdempotencyStore) Find(key, endpoint string) (*IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[endpoint+":"+key]
	return r, ok
}

func (s *InMemoryIdempotencyStore) Save(record *IdempotencyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Endpoint+":"+record.Key] = record
}

// Idempotency requires an Idempotency-Key on the routes it guards.
// Same key + same body replays the stored response; same key with a
// different body is a conflict.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Idempotency-Key")
		if key == "" {
			problem.Write(c, http.StatusBadRequest, "Bad Request", "missing Idempotency-Key header")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			problem.Write(c, http.StatusBadRequest, "Bad Request", "cannot read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		endpoint := c.Request.Method + " " + c.FullPath()
		hash := hashBody(body)

		if existing, ok := store.Find(key, endpoint); ok {
			if existing.RequestHash != hash {
				problem.Write(c, http.StatusConflict, "Conflict", "Idempotency-Key reused with a different request body")
				return
			}
			c.Data(existing.StatusCode, "application/json", existing.Body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusInternalServerError {
			store.Save(&IdempotencyRecord{
				Key:         key,
				Endpoint:    endpoint,
				RequestHash: hash,
				StatusCode:  status,
				Body:        rec.buf.Bytes(),
			})
		}
	}
}

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
