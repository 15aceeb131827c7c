package handlers

import (
	"context"
	"time"

	"github.com/Asaad942/VidFold/pkg/db"
	"github.com/Asaad942/VidFold/pkg/ingest"
	"github.com/Asaad942/VidFold/pkg/metrics"
	"github.com/Asaad942/VidFold/pkg/search"
	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/google/uuid"
)

// UserStore is the account persistence used by the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user *db.User) (*db.User, error)
	FindUserByEmail(ctx context.Context, email string) (*db.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*db.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateToken(userID uuid.UUID, email, username string) (string, error)
}

// Pinger reports database reachability for the health check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers holds the dependencies of every HTTP handler.
type Handlers struct {
	Users       UserStore
	Tokens      TokenIssuer
	DB          Pinger
	Coordinator *ingest.Coordinator
	Reconciler  *ingest.Reconciler
	Library     *ingest.Library
	Search      *search.Client
	Stores      *video.Stores
	Metrics     *metrics.Metrics

	// WatchInterval and WatchTimeout pace and bound ?watch=true on
	// POST /api/videos/reconcile.
	WatchInterval time.Duration
	WatchTimeout  time.Duration

	// CallbackSecret guards the processor callback. Empty disables it.
	CallbackSecret string
}
