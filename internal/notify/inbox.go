package notify

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/swapbnb/exchange-coordinator/internal/models"
)

// Inbox keeps each user's notifications in a bolt bucket named after the
// user id. Keys are the bucket sequence, so a reverse cursor walk is newest
// first.
type Inbox struct {
	db *bolt.DB
}

func OpenInbox(path string) (*Inbox, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open notification inbox: %w", err)
	}
	return &Inbox{db: db}, nil
}

func (in *Inbox) Close() error { return in.db.Close() }

func bucketName(userID string) []byte { return []byte("user:" + userID) }

func (in *Inbox) Deliver(_ context.Context, ev Event) error {
	return in.db.Update(func(tx *bolt.Tx) error {
		for _, uid := range ev.Recipients {
			b, err := tx.CreateBucketIfNotExists(bucketName(uid))
			if err != nil {
				return err
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			n := models.Notification{
				ID:         uuid.NewString(),
				UserID:     uid,
				ExchangeID: ev.ExchangeID,
				Kind:       ev.Kind,
				Text:       ev.Text,
				CreatedAt:  ev.At,
			}
			v, err := json.Marshal(n)
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)
			if err := b.Put(key, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns up to limit notifications for userID, newest first.
func (in *Inbox) List(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	out := []models.Notification{}
	err := in.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(userID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var n models.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			out = append(out, n)
		}
		return nil
	})
	return out, err
}
