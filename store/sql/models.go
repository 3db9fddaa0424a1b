package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type itemRecord struct {
	bun.BaseModel `bun:"table:auth_session_items,alias:asi"`

	ID        string    `bun:"id,pk"`
	Namespace string    `bun:"namespace,notnull"`
	Key       string    `bun:"item_key,notnull"`
	Value     string    `bun:"item_value,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
