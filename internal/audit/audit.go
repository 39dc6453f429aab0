package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/olyamironova/trading-venue/internal/domain"
	"github.com/olyamironova/trading-venue/internal/port"
)

var _ port.Audit = (*Logger)(nil)

// Logger records state-changing operations with sha256 content hashes of
// the before/after snapshots. The core supplies the snapshots; hashing
// and timestamping happen here.
type Logger struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) Record(ctx context.Context, aggregateType, aggregateID, action string, actor domain.Actor, before, after any) {
	entry := domain.AuditEntry{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Action:        action,
		ActorID:       actor.ID,
		Role:          actor.Role,
		BeforeHash:    snapshotHash(before),
		AfterHash:     snapshotHash(after),
		CreatedAt:     time.Now(),
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// List returns a copy of all recorded entries, oldest first.
func (l *Logger) List() []domain.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func snapshotHash(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
