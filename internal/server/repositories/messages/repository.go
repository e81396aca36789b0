package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/codec"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

// Repository is the document store contract. It moves stored bytes only and
// never encodes or decodes payloads.
type Repository interface {
	Create(ctx context.Context, msg *models.Message) error
	Get(ctx context.Context, id string) (*models.Message, error)
	List(ctx context.Context, r models.Range) ([]*models.Message, error)
	UpdateText(ctx context.Context, id string, text codec.Text, editedAt time.Time) (*models.Message, error)
	Delete(ctx context.Context, id string) error
	Usage(ctx context.Context) (models.Usage, error)
	Walk(ctx context.Context, fn func(*models.Message) error) error
}
