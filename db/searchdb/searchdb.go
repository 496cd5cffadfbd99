package searchdb

import (
	"context"
	"encoding/json"

	"github.com/meghashyamc/lodapi/query"
)

type DB interface {
	Search(ctx context.Context, index string, body query.Document) (json.RawMessage, error)
	Get(ctx context.Context, index string, id string) (json.RawMessage, error)
	Ping(ctx context.Context) error
	Close() error
}
