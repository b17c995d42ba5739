// Package firestore — бэкенд на Cloud Firestore (STORE_BACKEND=firestore) в раскладке документов
// мобильного клиента, чтобы сервис и старые клиенты могли работать с одной базой.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gfs "cloud.google.com/go/firestore"
	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Store struct {
	client *gfs.Client
}

func NewStore(client *gfs.Client) *Store {
	return &Store{client: client}
}

func (s *Store) profileRef(id string) *gfs.DocumentRef {
	return s.client.Collection(colClient).Doc(id)
}

func (s *Store) contactRef(ownerID, peerID string) *gfs.DocumentRef {
	return s.profileRef(ownerID).Collection(colContacts).Doc(peerID)
}

func (s *Store) blockRef(blockerID, blockedID string) *gfs.DocumentRef {
	return s.profileRef(blockerID).Collection(colBlocked).Doc(blockedID)
}

func (s *Store) messagesCol(conversationID string) *gfs.CollectionRef {
	return s.client.Collection(colMessages).Doc(conversationID).Collection(colChats)
}

func (s *Store) summaryRef(ownerID, peerID string) *gfs.DocumentRef {
	return s.client.Collection(colChatList).Doc(ownerID).Collection(colChats).Doc(peerID)
}

// wrap переводит коды gRPC в классы apperr.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return apperr.ErrNotFound
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%s: %w: %v", op, apperr.ErrPermissionDenied, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return apperr.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// CreateProfile — сидинг и регистрация в -dev.
func (s *Store) CreateProfile(ctx context.Context, p *model.Profile) error {
	defer logger.DeferLogDuration("fs.profile.Create", time.Now())()
	data := encodeProfile(*p)
	data["updated_at"] = gfs.ServerTimestamp
	_, err := s.profileRef(p.ID).Set(ctx, data, gfs.MergeAll)
	return wrap("fsStore.CreateProfile", err)
}

func (s *Store) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	defer logger.DeferLogDuration("fs.profile.Get", time.Now())()
	snap, err := s.profileRef(id).Get(ctx)
	if err != nil {
		return nil, wrap("fsStore.GetProfile", err)
	}
	p := decodeProfile(snap.Ref.ID, snap.Data())
	return &p, nil
}

// UpdateProfile — Update (а не Set): отсутствующий документ даёт NotFound, прочие поля не трогаются.
func (s *Store) UpdateProfile(ctx context.Context, id string, u model.ProfileUpdate) error {
	defer logger.DeferLogDuration("fs.profile.Update", time.Now())()
	var updates []gfs.Update
	for _, f := range u.Fields() {
		updates = append(updates, gfs.Update{Path: f.Key, Value: f.Value})
	}
	updates = append(updates, gfs.Update{Path: "updated_at", Value: gfs.ServerTimestamp})
	_, err := s.profileRef(id).Update(ctx, updates)
	return wrap("fsStore.UpdateProfile", err)
}

func (s *Store) SetProfilePhoto(ctx context.Context, id, photoBase64 string) error {
	defer logger.DeferLogDuration("fs.profile.SetPhoto", time.Now())()
	_, err := s.profileRef(id).Update(ctx, []gfs.Update{
		{Path: "profile_photo_base64", Value: photoBase64},
		{Path: "updated_at", Value: gfs.ServerTimestamp},
	})
	return wrap("fsStore.SetProfilePhoto", err)
}

func (s *Store) SaveName(ctx context.Context, ownerID, peerID, name string) error {
	defer logger.DeferLogDuration("fs.contact.SaveName", time.Now())()
	_, err := s.contactRef(ownerID, peerID).Set(ctx, map[string]any{"name": name}, gfs.MergeAll)
	return wrap("fsStore.SaveName", err)
}

func (s *Store) GetSavedName(ctx context.Context, ownerID, peerID string) (string, error) {
	defer logger.DeferLogDuration("fs.contact.GetSavedName", time.Now())()
	snap, err := s.contactRef(ownerID, peerID).Get(ctx)
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", wrap("fsStore.GetSavedName", err)
	}
	return fields(snap.Data()).str("name"), nil
}

func (s *Store) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	defer logger.DeferLogDuration("fs.block.IsBlocked", time.Now())()
	_, err := s.blockRef(blockerID, blockedID).Get(ctx)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, wrap("fsStore.IsBlocked", err)
	}
	return true, nil
}

func (s *Store) Block(ctx context.Context, blockerID, blockedID string) error {
	defer logger.DeferLogDuration("fs.block.Block", time.Now())()
	_, err := s.blockRef(blockerID, blockedID).Set(ctx, map[string]any{"blockedAt": gfs.ServerTimestamp})
	return wrap("fsStore.Block", err)
}

// Unblock: Delete несуществующего документа в Firestore не ошибка.
func (s *Store) Unblock(ctx context.Context, blockerID, blockedID string) error {
	defer logger.DeferLogDuration("fs.block.Unblock", time.Now())()
	_, err := s.blockRef(blockerID, blockedID).Delete(ctx)
	return wrap("fsStore.Unblock", err)
}

// SendMessage — одна транзакция. Все чтения (блокировка) идут до записей, как требует Firestore.
// Счётчик получателя растёт через Increment: отсутствующее поле становится 1.
func (s *Store) SendMessage(ctx context.Context, p model.SendParams) (*model.Message, error) {
	defer logger.DeferLogDuration("fs.msg.Send", time.Now())()
	convID := p.ConversationID()
	msgRef := s.messagesCol(convID).NewDoc()
	senderRef := s.summaryRef(p.SenderID, p.ReceiverID)
	receiverRef := s.summaryRef(p.ReceiverID, p.SenderID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		_, err := tx.Get(s.blockRef(p.SenderID, p.ReceiverID))
		switch {
		case err == nil:
			return apperr.ErrBlocked
		case !isNotFound(err):
			return err
		}

		if err := tx.Create(msgRef, encodeMessage(p, gfs.ServerTimestamp)); err != nil {
			return err
		}
		own := encodeSummary(p.ReceiverID, p.ReceiverName, p.ReceiverPhone, p.Body, gfs.ServerTimestamp)
		own["unreadCount"] = 0
		if err := tx.Set(senderRef, own, gfs.MergeAll); err != nil {
			return err
		}
		peer := encodeSummary(p.SenderID, p.SenderName, p.SenderPhone, p.Body, gfs.ServerTimestamp)
		peer["unreadCount"] = gfs.Increment(1)
		return tx.Set(receiverRef, peer, gfs.MergeAll)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrBlocked) {
			return nil, err
		}
		return nil, wrap("fsStore.SendMessage", err)
	}

	// Серверное время известно только после коммита.
	snap, err := msgRef.Get(ctx)
	if err != nil {
		return nil, wrap("fsStore.SendMessage read back", err)
	}
	m := decodeMessage(snap.Ref.ID, convID, snap.Data())
	return &m, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	defer logger.DeferLogDuration("fs.msg.List", time.Now())()
	docs, err := s.messagesCol(conversationID).OrderBy("timestamp", gfs.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap("fsStore.ListMessages", err)
	}
	return decodeMessages(conversationID, docs), nil
}

func decodeMessages(conversationID string, docs []*gfs.DocumentSnapshot) []model.Message {
	msgs := make([]model.Message, 0, len(docs))
	for _, d := range docs {
		msgs = append(msgs, decodeMessage(d.Ref.ID, conversationID, d.Data()))
	}
	model.SortMessages(msgs)
	return msgs
}

func (s *Store) ResetUnread(ctx context.Context, ownerID, peerID string) error {
	defer logger.DeferLogDuration("fs.summary.ResetUnread", time.Now())()
	_, err := s.summaryRef(ownerID, peerID).Update(ctx, []gfs.Update{{Path: "unreadCount", Value: 0}})
	return wrap("fsStore.ResetUnread", err)
}

func (s *Store) GetSummary(ctx context.Context, ownerID, peerID string) (*model.ChatSummary, error) {
	defer logger.DeferLogDuration("fs.summary.Get", time.Now())()
	snap, err := s.summaryRef(ownerID, peerID).Get(ctx)
	if err != nil {
		return nil, wrap("fsStore.GetSummary", err)
	}
	c := decodeSummary(ownerID, snap.Ref.ID, snap.Data())
	return &c, nil
}

func (s *Store) ListSummaries(ctx context.Context, ownerID string) ([]model.ChatSummary, error) {
	defer logger.DeferLogDuration("fs.summary.List", time.Now())()
	docs, err := s.client.Collection(colChatList).Doc(ownerID).Collection(colChats).
		OrderBy("timestamp", gfs.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap("fsStore.ListSummaries", err)
	}
	list := make([]model.ChatSummary, 0, len(docs))
	for _, d := range docs {
		list = append(list, decodeSummary(ownerID, d.Ref.ID, d.Data()))
	}
	return list, nil
}
