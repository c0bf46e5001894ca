package transcript

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agartha-dev/otenz/internal/domain"
)

// persistTimeout caps how long a background save may run.
const persistTimeout = 5 * time.Second

// Record stores an exchange best-effort. It detaches from the caller's
// context so transcripts are not dropped when the triggering message handler
// returns, and it only logs on failure: persistence never affects the reply
// path.
func Record(store domain.TranscriptStore, logger *slog.Logger, ex *domain.Exchange) {
	if store == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	if ex.ID == "" {
		ex.ID = "ex_" + uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := store.SaveExchange(ctx, ex); err != nil {
		logger.Error("failed to record exchange",
			slog.String("exchange_id", ex.ID),
			slog.String("channel_id", ex.ChannelID),
			slog.String("error", err.Error()),
		)
	}
}
