package service_test

import (
	"context"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextEvent(t *testing.T, events <-chan model.Event) model.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "feed closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed event")
	}
	return model.Event{}
}

func TestRedisFeed_PublishSubscribe(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	feed := service.NewRedisFeed(rdb)
	ctx := context.Background()

	events, cancel, err := feed.Subscribe(ctx, "class-1")
	require.NoError(t, err)
	defer cancel()

	feed.Publish(ctx, model.Event{Type: model.EventMemberJoined, ClassID: "class-2", UserID: 9})
	feed.Publish(ctx, model.Event{Type: model.EventMemberJoined, ClassID: "class-1", UserID: 7})

	ev := nextEvent(t, events)
	assert.Equal(t, model.EventMemberJoined, ev.Type)
	assert.Equal(t, "class-1", ev.ClassID)
	assert.Equal(t, uint(7), ev.UserID)
	assert.False(t, ev.At.IsZero())

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("feed not closed after cancel")
	}
}

func TestToggleUpvote_PublishesFeedEvents(t *testing.T) {
	e := newScoringEnv(t)
	_, rdb := testutil.NewRedis(t)
	feed := service.NewRedisFeed(rdb)
	scoring := service.NewScoringService(e.votes, e.members, e.users, e.accepts, e.policy, feed, e.cfg.Scoring)
	ctx := context.Background()
	author := e.student(t, "Author", 0)
	voter := e.student(t, "Voter", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, author)

	events, cancel, err := feed.Subscribe(ctx, e.class.ID)
	require.NoError(t, err)
	defer cancel()

	_, err = scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindQuestion, q.ID)
	require.NoError(t, err)

	points := nextEvent(t, events)
	assert.Equal(t, model.EventPointsChanged, points.Type)
	assert.Equal(t, author.ID, points.UserID)
	assert.EqualValues(t, 10, points.Data["delta"])

	vote := nextEvent(t, events)
	assert.Equal(t, model.EventVoteToggled, vote.Type)
	assert.Equal(t, q.ID, vote.ItemID)
	assert.Equal(t, model.KindQuestion, vote.ItemKind)
	assert.Equal(t, true, vote.Data["voted"])
	assert.EqualValues(t, 1, vote.Data["voteCount"])
}
