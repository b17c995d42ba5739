package firestore

import (
	"context"
	"errors"
	"time"

	gfs "cloud.google.com/go/firestore"
	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// WatchConversation — живой запрос по timestamp. Каждый снимок запроса превращается в полный список сообщений.
// Канал закрывается при отмене ctx или ошибке потока.
func (s *Store) WatchConversation(ctx context.Context, conversationID string) (<-chan []model.Message, error) {
	it := s.messagesCol(conversationID).OrderBy("timestamp", gfs.Asc).Snapshots(ctx)
	out := make(chan []model.Message)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, iterator.Done) && status.Code(err) != codes.Canceled {
					logger.Warnf("fs watch %s: %v", conversationID, err)
				}
				return
			}
			start := time.Now()
			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Warnf("fs watch %s read: %v", conversationID, err)
				return
			}
			msgs := decodeMessages(conversationID, docs)
			logger.LogDuration("fs.msg.WatchSnapshot", start)
			select {
			case out <- msgs:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
