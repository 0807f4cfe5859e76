//go:build !cgo

package driver

import (
	"context"
	"errors"
)

// ErrCGORequired is returned when Ladybug operations are called without CGO support
var ErrCGORequired = errors.New("ladybug driver requires CGO; build with CGO_ENABLED=1")

// LadybugDriver is a stub implementation when CGO is disabled.
// All methods return ErrCGORequired.
type LadybugDriver struct{}

// NewLadybugDriver returns an error when CGO is disabled
func NewLadybugDriver(dbPath string, opts ...Option) (*LadybugDriver, error) {
	return nil, ErrCGORequired
}

func (k *LadybugDriver) UpsertNode(ctx context.Context, label string, match, set Props) (*Node, error) {
	return nil, ErrCGORequired
}

func (k *LadybugDriver) CreateNode(ctx context.Context, label string, attrs Props) (*Node, error) {
	return nil, ErrCGORequired
}

func (k *LadybugDriver) CreateAnchored(ctx context.Context, anchor NodeRef, edgeType, label string, attrs Props) (*Node, error) {
	return nil, ErrCGORequired
}

func (k *LadybugDriver) UpsertAnchored(ctx context.Context, anchor NodeRef, edgeType, label string, match, set Props) (*Node, error) {
	return nil, ErrCGORequired
}

func (k *LadybugDriver) CreateEdge(ctx context.Context, from, to NodeRef, edgeType string, attrs Props, mode EdgeMode) (*Edge, error) {
	return nil, ErrCGORequired
}

func (k *LadybugDriver) MergeEdge(ctx context.Context, from, to NodeRef, edgeType string, update EdgeUpdate) ([]*Edge, error) {
	return nil, ErrCGORequired
}

func (k *LadybugDriver) Query(ctx context.Context, pattern *Pattern) ([]Record, error) {
	return nil, ErrCGORequired
}

func (k *LadybugDriver) CountMatches(ctx context.Context, pattern *Pattern) (int64, error) {
	return 0, ErrCGORequired
}

func (k *LadybugDriver) Count(ctx context.Context, label string) (int64, error) {
	return 0, ErrCGORequired
}

func (k *LadybugDriver) VectorSearch(ctx context.Context, q VectorQuery) ([]ScoredNode, error) {
	return nil, ErrCGORequired
}

func (k *LadybugDriver) CreateIndices(ctx context.Context) error {
	return ErrCGORequired
}

func (k *LadybugDriver) Clear(ctx context.Context) error {
	return ErrCGORequired
}

func (k *LadybugDriver) VerifyConnectivity(ctx context.Context) error {
	return ErrCGORequired
}

// Provider returns the provider type.
func (k *LadybugDriver) Provider() GraphProvider {
	return GraphProviderLadybug
}

// Close returns nil
func (k *LadybugDriver) Close() error {
	return nil
}
