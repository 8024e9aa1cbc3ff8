package janitor

import (
	"context"
	"log"
	"time"
)

// Run periodically fires the registered purge tasks (expired search
// caches, mostly) until the context is cancelled.
func Run(ctx context.Context, interval time.Duration, tasks ...func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	log.Printf("[janitor] running every %s", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, task := range tasks {
				task()
			}
		}
	}
}
