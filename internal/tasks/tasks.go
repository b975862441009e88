package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/samber/lo"
)

// Stream is the unit every stage consumes and produces.
type Stream = pipeline.Stream[models.Item]

// Client is the remote API as seen by the pipeline stages.
type Client interface {
	pipeline.PageFetcher

	// Lookup resolves ids to objects, one result per id in input order. Unknown ids come back as nil items.
	Lookup(ctx context.Context, kind models.LookupKind, ids []string) ([]models.Item, error)
	CurrentUser(ctx context.Context) (models.Item, error)
	CreatePlaylist(ctx context.Context, ownerID, name string, public bool) (models.Item, error)
	AddToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
}

// Engine builds streams against a [Client].
//
// An Engine is not safe for concurrent use; run one pipeline per Engine.
type Engine struct {
	client  Client
	logger  *log.Logger
	rng     *rand.Rand
	country string
}

// NewEngine creates an [Engine]. A nil logger is replaced by one writing to stderr.
func NewEngine(client Client, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		client: client,
		logger: logger,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// SetRand replaces the random source used by shuffle and sample stages.
func (e *Engine) SetRand(rng *rand.Rand) { e.rng = rng }

func (e *Engine) ready() error {
	if e.client == nil {
		return fmt.Errorf("%w: spotify client not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// UserCountry returns the current user's country code. The value is fetched once per Engine.
func (e *Engine) UserCountry(ctx context.Context) (string, error) {
	if e.country != "" {
		return e.country, nil
	}
	if err := e.ready(); err != nil {
		return "", err
	}

	user, err := e.client.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	country, err := user.String("country")
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}
	e.country = country
	return country, nil
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func itemIDs(items []models.Item) []string {
	return lo.Map(items, func(item models.Item, _ int) string { return item.ID() })
}
