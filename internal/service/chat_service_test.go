package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"Talk_Flow/internal/model"
	"Talk_Flow/internal/pkg"
	"Talk_Flow/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessageStore appends into per-conversation slices with the same
// seq discipline as the mysql repository.
type fakeMessageStore struct {
	mu    sync.Mutex
	convs map[string][]model.Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{convs: map[string][]model.Message{}}
}

func (s *fakeMessageStore) Append(ctx context.Context, msg *model.Message, peerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.convs[msg.ConversationKey]
	msg.Seq = uint64(len(log)) + 1
	msg.ID = fmt.Sprintf("msg-%s-%d", msg.ConversationKey, msg.Seq)
	msg.CreatedAt = time.Now()
	s.convs[msg.ConversationKey] = append(log, *msg)
	return nil
}

func (s *fakeMessageStore) List(ctx context.Context, key string, cursor uint64, limit int) ([]model.Message, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	log := s.convs[key]
	var out []model.Message
	for i := len(log) - 1; i >= 0; i-- {
		if cursor != 0 && log[i].Seq >= cursor {
			continue
		}
		out = append(out, log[i])
		if len(out) == limit {
			break
		}
	}
	var next uint64
	if len(out) == limit && out != nil {
		next = out[len(out)-1].Seq
	}
	return out, next, nil
}

type staticMutual struct{ mutual bool }

func (m *staticMutual) Mutual(ctx context.Context, a, b uint64) (bool, error) {
	return m.mutual, nil
}

type fakeBlobStore struct{ uploads int }

func (b *fakeBlobStore) Upload(data []byte) (string, error) {
	b.uploads++
	return fmt.Sprintf("blob-%d.jpg", b.uploads), nil
}

func (b *fakeBlobStore) Resolve(ref string) (string, error) {
	return "/blobs/" + ref, nil
}

func newChatFixture(mutual bool) (*ChatService, *fakeMessageStore, *ws.Hub, *fakeBlobStore) {
	store := newFakeMessageStore()
	hub := ws.NewHub()
	blobs := &fakeBlobStore{}
	svc := NewChatService(store, &staticMutual{mutual: mutual}, &ws.LocalBus{Hub: hub}, hub, blobs)
	return svc, store, hub, blobs
}

func TestAppendRequiresMutualFollow(t *testing.T) {
	svc, _, _, _ := newChatFixture(false)
	_, err := svc.Append(context.Background(), 1, 2, MessagePayload{Text: "hi"})
	assert.ErrorIs(t, err, pkg.ErrNotAuthorized)
}

func TestAppendRejectsSelfAndZero(t *testing.T) {
	svc, _, _, _ := newChatFixture(true)
	ctx := context.Background()

	_, err := svc.Append(ctx, 1, 1, MessagePayload{Text: "hi"})
	assert.ErrorIs(t, err, pkg.ErrNotAuthorized)

	_, err = svc.Append(ctx, 0, 2, MessagePayload{Text: "hi"})
	assert.ErrorIs(t, err, pkg.ErrNotAuthorized)
}

func TestAppendPayloadVariants(t *testing.T) {
	svc, _, _, _ := newChatFixture(true)
	ctx := context.Background()

	_, err := svc.Append(ctx, 1, 2, MessagePayload{})
	assert.ErrorIs(t, err, pkg.ErrEmptyMessage)

	_, err = svc.Append(ctx, 1, 2, MessagePayload{Text: "   "})
	assert.ErrorIs(t, err, pkg.ErrEmptyMessage)

	_, err = svc.Append(ctx, 1, 2, MessagePayload{Text: "hi", Image: []byte{1}})
	assert.ErrorIs(t, err, pkg.ErrMalformedPayload)
}

func TestAppendText(t *testing.T) {
	svc, _, _, _ := newChatFixture(true)

	msg, err := svc.Append(context.Background(), 2, 1, MessagePayload{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, model.MessageText, msg.Kind)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, "1_2", msg.ConversationKey)
	assert.Equal(t, uint64(1), msg.Seq)
	assert.NotEmpty(t, msg.ID)
}

func TestAppendImage(t *testing.T) {
	svc, _, _, blobs := newChatFixture(true)

	msg, err := svc.Append(context.Background(), 1, 2, MessagePayload{Image: []byte{0xff, 0xd8}})
	require.NoError(t, err)
	assert.Equal(t, model.MessageImage, msg.Kind)
	assert.Empty(t, msg.Body)
	assert.Equal(t, 1, blobs.uploads)
	assert.Equal(t, "/blobs/"+msg.ImageRef, msg.ImageURL)
}

func TestAppendPublishesToConversationTopic(t *testing.T) {
	svc, _, hub, _ := newChatFixture(true)

	feed := hub.Subscribe(ws.ChatTopic("1_2"), 4)
	defer feed.Cancel()

	sent, err := svc.Append(context.Background(), 1, 2, MessagePayload{Text: "ping"})
	require.NoError(t, err)

	ev := <-feed.C
	require.Equal(t, ws.EventMessage, ev.Type)
	var got model.Message
	require.NoError(t, json.Unmarshal(ev.Data, &got))
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, "ping", got.Body)
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, _, _, _ := newChatFixture(true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Append(ctx, 1, 2, MessagePayload{Text: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	rows, _, err := svc.History(ctx, 2, 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "m4", rows[0].Body)
	assert.Equal(t, "m0", rows[4].Body)
	for i := 1; i < len(rows); i++ {
		assert.Less(t, rows[i].Seq, rows[i-1].Seq)
	}
}

func TestHistoryPagination(t *testing.T) {
	svc, _, _, _ := newChatFixture(true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Append(ctx, 1, 2, MessagePayload{Text: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	page, next, err := svc.History(ctx, 1, 2, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m4", page[0].Body)
	require.NotZero(t, next)

	page, _, err = svc.History(ctx, 1, 2, next, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m2", page[0].Body)
}

func TestHistoryGated(t *testing.T) {
	svc, _, _, _ := newChatFixture(false)
	_, _, err := svc.History(context.Background(), 1, 2, 0, 10)
	assert.ErrorIs(t, err, pkg.ErrNotAuthorized)
}

func TestSubscribeGated(t *testing.T) {
	svc, _, _, _ := newChatFixture(false)
	_, err := svc.Subscribe(context.Background(), 1, 2)
	assert.ErrorIs(t, err, pkg.ErrNotAuthorized)
}

// A live subscriber sees an alternating run of text and image messages in
// the order they were committed, with seq strictly increasing across kinds.
func TestSubscribeSeesMixedKindsInOrder(t *testing.T) {
	svc, _, _, blobs := newChatFixture(true)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, 2, 1)
	require.NoError(t, err)
	defer sub.Cancel()

	_, err = svc.Append(ctx, 1, 2, MessagePayload{Text: "look at this"})
	require.NoError(t, err)
	_, err = svc.Append(ctx, 2, 1, MessagePayload{Image: []byte{0xff, 0xd8}})
	require.NoError(t, err)
	_, err = svc.Append(ctx, 1, 2, MessagePayload{Text: "nice"})
	require.NoError(t, err)
	_, err = svc.Append(ctx, 1, 2, MessagePayload{Image: []byte{0xff, 0xd9}})
	require.NoError(t, err)

	wantKinds := []string{
		model.MessageText, model.MessageImage, model.MessageText, model.MessageImage,
	}
	var lastSeq uint64
	for i, want := range wantKinds {
		ev := <-sub.C
		require.Equal(t, ws.EventMessage, ev.Type)
		var got model.Message
		require.NoError(t, json.Unmarshal(ev.Data, &got))
		assert.Equal(t, want, got.Kind, "event %d", i)
		assert.Greater(t, got.Seq, lastSeq)
		lastSeq = got.Seq
	}
	assert.Equal(t, 2, blobs.uploads)

	// history agrees with the feed, newest first
	rows, _, err := svc.History(ctx, 2, 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, model.MessageImage, rows[0].Kind)
	assert.Equal(t, "nice", rows[1].Body)
}

func TestSubscribeReceivesAppends(t *testing.T) {
	svc, _, _, _ := newChatFixture(true)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, 2, 1)
	require.NoError(t, err)
	defer sub.Cancel()

	_, err = svc.Append(ctx, 1, 2, MessagePayload{Text: "live"})
	require.NoError(t, err)

	ev := <-sub.C
	assert.Equal(t, ws.EventMessage, ev.Type)
}
