package cleanup

import (
	"log"
	"time"

	"github.com/sparkpad-app/sparkpad/backend/internal/repository/postgres"
)

const sessionRetentionDays = 30
const usageRetentionDays = 90

// Worker periodically purges expired sessions, dead refresh tokens and old
// usage counters.
type Worker struct {
	SessionRepo *postgres.SessionRepo
	UsageRepo   *postgres.UsageRepo
}

func NewWorker(sr *postgres.SessionRepo, ur *postgres.UsageRepo) *Worker {
	return &Worker{SessionRepo: sr, UsageRepo: ur}
}

// Start initiates the background ticker
func (w *Worker) Start() {
	go w.runCleanup()

	// Then run periodically (every 1 hour)
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for range ticker.C {
			w.runCleanup()
		}
	}()
	log.Println("[CLEANUP] Background worker started")
}

// runCleanup executes the actual cleanup logic
func (w *Worker) runCleanup() {
	log.Println("[CLEANUP] Starting scheduled cleanup task...")

	if deleted, err := w.SessionRepo.CleanupOldSessions(sessionRetentionDays); err != nil {
		log.Printf("[CLEANUP] Error cleaning up DB sessions: %v", err)
	} else if deleted > 0 {
		log.Printf("[CLEANUP] Removed %d expired sessions from database", deleted)
	}

	if deleted, err := w.SessionRepo.CleanupExpiredRefreshTokens(); err != nil {
		log.Printf("[CLEANUP] Error cleaning up refresh tokens: %v", err)
	} else if deleted > 0 {
		log.Printf("[CLEANUP] Removed %d dead refresh tokens", deleted)
	}

	if deleted, err := w.UsageRepo.CleanupOldUsage(usageRetentionDays); err != nil {
		log.Printf("[CLEANUP] Error cleaning up reply usage: %v", err)
	} else if deleted > 0 {
		log.Printf("[CLEANUP] Removed %d stale usage rows", deleted)
	}
}
