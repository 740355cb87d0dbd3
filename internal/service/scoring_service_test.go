package service_test

import (
	"context"
	"courseconnect_backend/internal/config"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/testutil"
	"courseconnect_backend/internal/util"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type scoringEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	votes      *repository.VoteRepository
	members    *repository.MembershipRepository
	users      *repository.UserRepository
	accepts    service.AcceptStore
	policy     *service.Policy
	scoring    *service.ScoringService
	instructor *model.User
	class      *model.ClassRoom
}

func newScoringEnv(t *testing.T) *scoringEnv {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testutil.Config(t)
	e := &scoringEnv{
		db:      db,
		cfg:     cfg,
		votes:   repository.NewVoteRepository(db),
		members: repository.NewMembershipRepository(db),
		users:   repository.NewUserRepository(db),
		accepts: service.NewAcceptStore(repository.NewQuestionRepository(db), repository.NewAnswerRepository(db)),
		policy:  service.NewPolicy(cfg.QA),
	}
	e.scoring = e.build(e.members)
	e.instructor = testutil.CreateUser(t, db, "Teacher", model.Faculty)
	e.class = testutil.CreateClass(t, db, e.instructor)
	return e
}

func (e *scoringEnv) build(members service.MemberLedger) *service.ScoringService {
	return service.NewScoringService(e.votes, members, e.users, e.accepts, e.policy, nil, e.cfg.Scoring)
}

func (e *scoringEnv) student(t *testing.T, name string, points int) *model.User {
	t.Helper()
	u := testutil.CreateUser(t, e.db, name, model.Student)
	testutil.AddMember(t, e.db, e.class.ID, u, model.Student, points)
	return u
}

func sessionFor(u *model.User) service.Session {
	return service.Session{UserID: u.ID, Email: u.Email, EmailVerified: u.EmailVerified, Role: u.Role}
}

func TestToggleUpvote_ToggleOnAndOff(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	u1 := e.student(t, "U1", 0)
	u2 := e.student(t, "U2", 0)
	u3 := e.student(t, "U3", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, u1)
	r := testutil.CreateAnswer(t, e.db, q.ID, u2)

	res, err := e.scoring.ToggleUpvote(ctx, sessionFor(u3), model.KindAnswer, r.ID)
	require.NoError(t, err)
	assert.True(t, res.Voted)
	assert.Equal(t, []uint{u3.ID}, res.Voters)
	assert.Equal(t, 1, res.VoteCount)
	assert.Equal(t, 1, res.PointDelta)
	assert.Equal(t, 1, testutil.MemberPoints(t, e.db, e.class.ID, u2.ID))

	res, err = e.scoring.ToggleUpvote(ctx, sessionFor(u3), model.KindAnswer, r.ID)
	require.NoError(t, err)
	assert.False(t, res.Voted)
	assert.Empty(t, res.Voters)
	assert.Equal(t, -1, res.PointDelta)
	assert.Equal(t, 0, testutil.MemberPoints(t, e.db, e.class.ID, u2.ID))

	var answer model.Answer
	require.NoError(t, e.db.First(&answer, "id = ?", r.ID).Error)
	assert.Equal(t, 0, answer.Upvotes)
}

func TestToggleUpvote_DoubleToggleRestoresState(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()

	for _, kind := range []model.ItemKind{model.KindAnswer, model.KindQuestion, model.KindReply} {
		t.Run(string(kind), func(t *testing.T) {
			author := e.student(t, "Author "+string(kind), 7)
			voter := e.student(t, "Voter "+string(kind), 0)
			q := testutil.CreateQuestion(t, e.db, e.class.ID, author)

			itemID := q.ID
			switch kind {
			case model.KindAnswer:
				other := e.student(t, "Asker "+string(kind), 0)
				q = testutil.CreateQuestion(t, e.db, e.class.ID, other)
				itemID = testutil.CreateAnswer(t, e.db, q.ID, author).ID
			case model.KindReply:
				itemID = testutil.CreateReply(t, e.db, q.ID, nil, author).ID
			}

			before, err := e.votes.Voters(ctx, kind, itemID)
			require.NoError(t, err)

			_, err = e.scoring.ToggleUpvote(ctx, sessionFor(voter), kind, itemID)
			require.NoError(t, err)
			assert.Equal(t, 7+service.ScoringRules{ScoringConfig: e.cfg.Scoring}.PointsFor(kind), testutil.MemberPoints(t, e.db, e.class.ID, author.ID))

			_, err = e.scoring.ToggleUpvote(ctx, sessionFor(voter), kind, itemID)
			require.NoError(t, err)

			after, err := e.votes.Voters(ctx, kind, itemID)
			require.NoError(t, err)
			assert.Equal(t, len(before), len(after))
			assert.Equal(t, 7, testutil.MemberPoints(t, e.db, e.class.ID, author.ID))
		})
	}
}

func TestToggleUpvote_SelfVoteRejected(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	u1 := e.student(t, "U1", 0)
	u2 := e.student(t, "U2", 3)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, u1)
	r := testutil.CreateAnswer(t, e.db, q.ID, u2)

	res, err := e.scoring.ToggleUpvote(ctx, sessionFor(u2), model.KindAnswer, r.ID)
	require.ErrorIs(t, err, util.ErrSelfVote)
	assert.Nil(t, res)

	voters, err := e.votes.Voters(ctx, model.KindAnswer, r.ID)
	require.NoError(t, err)
	assert.Empty(t, voters)
	assert.Equal(t, 3, testutil.MemberPoints(t, e.db, e.class.ID, u2.ID))
}

func TestToggleUpvote_PointsNeverNegative(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	author := e.student(t, "Author", 0)
	voter := e.student(t, "Voter", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, author)

	_, err := e.scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindQuestion, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, testutil.MemberPoints(t, e.db, e.class.ID, author.ID))

	// 其他途径把积分清零后再取消点赞
	require.NoError(t, e.db.Model(&model.Membership{}).
		Where("class_id = ? AND user_id = ?", e.class.ID, author.ID).
		Update("points", 0).Error)

	res, err := e.scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindQuestion, q.ID)
	require.NoError(t, err)
	assert.False(t, res.Voted)
	assert.Equal(t, 0, testutil.MemberPoints(t, e.db, e.class.ID, author.ID))

	for i := 0; i < 4; i++ {
		_, err := e.scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindQuestion, q.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, testutil.MemberPoints(t, e.db, e.class.ID, author.ID), 0)
	}
}

func TestToggleUpvote_MaterialCreditsGlobalPoints(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	author := e.student(t, "Sharer", 0)
	voter := e.student(t, "Reader", 0)
	m := testutil.CreateMaterial(t, e.db, e.class.ID, author)

	res, err := e.scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindMaterial, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, res.PointDelta)
	assert.Equal(t, 20, testutil.UserPoints(t, e.db, author.ID))
	assert.Equal(t, 0, testutil.MemberPoints(t, e.db, e.class.ID, author.ID))
}

func TestToggleUpvote_ConcurrentDistinctVoters(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	author := e.student(t, "Popular", 0)
	asker := e.student(t, "Asker", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, asker)
	a := testutil.CreateAnswer(t, e.db, q.ID, author)

	const n = 8
	voters := make([]*model.User, n)
	for i := range voters {
		voters[i] = e.student(t, "Voter", 0)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, v := range voters {
		wg.Add(1)
		go func(u *model.User) {
			defer wg.Done()
			if _, err := e.scoring.ToggleUpvote(ctx, sessionFor(u), model.KindAnswer, a.ID); err != nil {
				errs <- err
			}
		}(v)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	ids, err := e.votes.Voters(ctx, model.KindAnswer, a.ID)
	require.NoError(t, err)
	assert.Len(t, ids, n)
	assert.Equal(t, n*e.cfg.Scoring.AnswerUpvote, testutil.MemberPoints(t, e.db, e.class.ID, author.ID))

	var answer model.Answer
	require.NoError(t, e.db.First(&answer, "id = ?", a.ID).Error)
	assert.Equal(t, n, answer.Upvotes)
}

func TestToggleUpvote_NonMemberRejected(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	author := e.student(t, "Author", 0)
	outsider := testutil.CreateUser(t, e.db, "Outsider", model.Student)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, author)

	_, err := e.scoring.ToggleUpvote(ctx, sessionFor(outsider), model.KindQuestion, q.ID)
	require.ErrorIs(t, err, util.ErrPermissionDenied)

	voters, err := e.votes.Voters(ctx, model.KindQuestion, q.ID)
	require.NoError(t, err)
	assert.Empty(t, voters)
}

func TestToggleUpvote_UnknownItem(t *testing.T) {
	e := newScoringEnv(t)
	voter := e.student(t, "Voter", 0)

	_, err := e.scoring.ToggleUpvote(context.Background(), sessionFor(voter), model.KindAnswer, "missing")
	require.ErrorIs(t, err, util.ErrNotFound)

	_, err = e.scoring.ToggleUpvote(context.Background(), sessionFor(voter), model.ItemKind("poll"), "x")
	require.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestToggleUpvote_MissingMembershipIsCreated(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	author := e.student(t, "Leaver", 0)
	voter := e.student(t, "Voter", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, author)

	require.NoError(t, e.db.Where("class_id = ? AND user_id = ?", e.class.ID, author.ID).Delete(&model.Membership{}).Error)

	_, err := e.scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindQuestion, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, testutil.MemberPoints(t, e.db, e.class.ID, author.ID))

	// 再次移除后取消点赞：新建记录并保持 0 分
	require.NoError(t, e.db.Where("class_id = ? AND user_id = ?", e.class.ID, author.ID).Delete(&model.Membership{}).Error)
	_, err = e.scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindQuestion, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, testutil.MemberPoints(t, e.db, e.class.ID, author.ID))

	m, err := e.members.Find(ctx, e.class.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Student, m.Role)
}

// flakyLedger 前 failures 次 AddPoints 返回可重试错误
type flakyLedger struct {
	*repository.MembershipRepository
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyLedger) AddPoints(ctx context.Context, classID string, userID uint, delta int) (bool, error) {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return false, util.Transient(errors.New("injected write failure"))
	}
	return f.MembershipRepository.AddPoints(ctx, classID, userID, delta)
}

func TestToggleUpvote_TransientPointFailureRetried(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	author := e.student(t, "Author", 0)
	voter := e.student(t, "Voter", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, author)

	ledger := &flakyLedger{MembershipRepository: e.members}
	ledger.failures.Store(2)
	scoring := e.build(ledger)

	res, err := scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindQuestion, q.ID)
	require.NoError(t, err)
	assert.True(t, res.Voted)
	assert.Equal(t, int32(3), ledger.calls.Load())
	assert.Equal(t, 10, testutil.MemberPoints(t, e.db, e.class.ID, author.ID))
}

func TestToggleUpvote_PointFailureKeepsVote(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	author := e.student(t, "Author", 4)
	voter := e.student(t, "Voter", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, author)

	ledger := &flakyLedger{MembershipRepository: e.members}
	ledger.failures.Store(1000)
	scoring := e.build(ledger)

	res, err := scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindQuestion, q.ID)
	require.ErrorIs(t, err, util.ErrTransientStore)
	require.NotNil(t, res)
	assert.True(t, res.Voted)
	assert.Equal(t, []uint{voter.ID}, res.Voters)
	assert.Equal(t, int32(e.cfg.Scoring.PointRetries+1), ledger.calls.Load())
	assert.Equal(t, 4, testutil.MemberPoints(t, e.db, e.class.ID, author.ID))
}

// missingUsers 模拟积分账户已不存在
type missingUsers struct {
	*repository.UserRepository
	calls atomic.Int32
}

func (m *missingUsers) AddPoints(context.Context, uint, int) (bool, error) {
	m.calls.Add(1)
	return false, nil
}

func TestToggleUpvote_PermanentPointFailureNotTransient(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	author := e.student(t, "Sharer", 0)
	voter := e.student(t, "Reader", 0)
	m := testutil.CreateMaterial(t, e.db, e.class.ID, author)

	users := &missingUsers{UserRepository: e.users}
	scoring := service.NewScoringService(e.votes, e.members, users, e.accepts, e.policy, nil, e.cfg.Scoring)

	res, err := scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindMaterial, m.ID)
	require.ErrorIs(t, err, util.ErrNotFound)
	assert.NotErrorIs(t, err, util.ErrTransientStore)
	require.NotNil(t, res)
	assert.True(t, res.Voted)
	// 不可重试的错误只尝试一次
	assert.Equal(t, int32(1), users.calls.Load())
}

func TestUpdateRules_AppliesToLaterToggles(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	author := e.student(t, "Author", 0)
	voter := e.student(t, "Voter", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, author)

	rules := e.cfg.Scoring
	rules.QuestionUpvote = 3
	e.scoring.UpdateRules(rules)

	res, err := e.scoring.ToggleUpvote(ctx, sessionFor(voter), model.KindQuestion, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.PointDelta)
	assert.Equal(t, 3, testutil.MemberPoints(t, e.db, e.class.ID, author.ID))
}

func TestAcceptAnswer_GrantsBonus(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	u1 := e.student(t, "U1", 0)
	u2 := e.student(t, "U2", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, u1)
	r := testutil.CreateAnswer(t, e.db, q.ID, u2)

	res, err := e.scoring.AcceptAnswer(ctx, sessionFor(u1), q.ID, r.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, res.BonusGranted)
	assert.Nil(t, res.PreviousAnswerID)

	var answer model.Answer
	require.NoError(t, e.db.First(&answer, "id = ?", r.ID).Error)
	assert.True(t, answer.Accepted)
	assert.Equal(t, 5, testutil.MemberPoints(t, e.db, e.class.ID, u2.ID))

	var question model.Question
	require.NoError(t, e.db.First(&question, "id = ?", q.ID).Error)
	require.NotNil(t, question.AcceptedAnswerID)
	assert.Equal(t, r.ID, *question.AcceptedAnswerID)
	assert.True(t, question.IsSolved)
}

func TestAcceptAnswer_SwitchKeepsSingleAcceptedAndBonusOnce(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	asker := e.student(t, "Asker", 0)
	first := e.student(t, "First", 0)
	second := e.student(t, "Second", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, asker)
	a1 := testutil.CreateAnswer(t, e.db, q.ID, first)
	a2 := testutil.CreateAnswer(t, e.db, q.ID, second)

	_, err := e.scoring.AcceptAnswer(ctx, sessionFor(asker), q.ID, a1.ID)
	require.NoError(t, err)
	res, err := e.scoring.AcceptAnswer(ctx, sessionFor(asker), q.ID, a2.ID)
	require.NoError(t, err)
	require.NotNil(t, res.PreviousAnswerID)
	assert.Equal(t, a1.ID, *res.PreviousAnswerID)

	var answers []model.Answer
	require.NoError(t, e.db.Where("question_id = ?", q.ID).Find(&answers).Error)
	accepted := 0
	for _, a := range answers {
		if a.Accepted {
			accepted++
			assert.Equal(t, a2.ID, a.ID)
		}
	}
	assert.Equal(t, 1, accepted)

	var question model.Question
	require.NoError(t, e.db.First(&question, "id = ?", q.ID).Error)
	assert.Equal(t, a2.ID, *question.AcceptedAnswerID)

	// 切回 a1 不会再次发放奖励
	res, err = e.scoring.AcceptAnswer(ctx, sessionFor(asker), q.ID, a1.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.BonusGranted)
	res, err = e.scoring.AcceptAnswer(ctx, sessionFor(asker), q.ID, a2.ID)
	require.NoError(t, err)
	assert.False(t, res.BonusGranted)

	assert.Equal(t, 5, testutil.MemberPoints(t, e.db, e.class.ID, first.ID))
	assert.Equal(t, 5, testutil.MemberPoints(t, e.db, e.class.ID, second.ID))
}

func TestAcceptAnswer_ReacceptIsNoop(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	asker := e.student(t, "Asker", 0)
	helper := e.student(t, "Helper", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, asker)
	a := testutil.CreateAnswer(t, e.db, q.ID, helper)

	_, err := e.scoring.AcceptAnswer(ctx, sessionFor(asker), q.ID, a.ID)
	require.NoError(t, err)
	res, err := e.scoring.AcceptAnswer(ctx, sessionFor(asker), q.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 5, testutil.MemberPoints(t, e.db, e.class.ID, helper.ID))
}

func TestAcceptAnswer_Permissions(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	asker := e.student(t, "Asker", 0)
	helper := e.student(t, "Helper", 0)
	bystander := e.student(t, "Bystander", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, asker)
	a := testutil.CreateAnswer(t, e.db, q.ID, helper)

	_, err := e.scoring.AcceptAnswer(ctx, sessionFor(bystander), q.ID, a.ID)
	require.ErrorIs(t, err, util.ErrPermissionDenied)
	assert.Equal(t, 0, testutil.MemberPoints(t, e.db, e.class.ID, helper.ID))

	res, err := e.scoring.AcceptAnswer(ctx, sessionFor(e.instructor), q.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, res.BonusGranted)
}

func TestAcceptAnswer_SelfAnswerNoBonus(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	asker := e.student(t, "Asker", 0)
	q := testutil.CreateQuestion(t, e.db, e.class.ID, asker)
	a := testutil.CreateAnswer(t, e.db, q.ID, asker)

	res, err := e.scoring.AcceptAnswer(ctx, sessionFor(asker), q.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.BonusGranted)
	assert.Equal(t, 0, testutil.MemberPoints(t, e.db, e.class.ID, asker.ID))
}

func TestAcceptAnswer_AnswerFromOtherQuestion(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	asker := e.student(t, "Asker", 0)
	helper := e.student(t, "Helper", 0)
	q1 := testutil.CreateQuestion(t, e.db, e.class.ID, asker)
	q2 := testutil.CreateQuestion(t, e.db, e.class.ID, asker)
	a := testutil.CreateAnswer(t, e.db, q2.ID, helper)

	_, err := e.scoring.AcceptAnswer(ctx, sessionFor(asker), q1.ID, a.ID)
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestLeaderboard_TieBreakByName(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	e.student(t, "Alice", 10)
	bob := e.student(t, "Bob", 25)
	e.student(t, "bob2", 25)

	entries, err := e.scoring.ComputeLeaderboard(ctx, e.class.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	names := []string{entries[0].DisplayName, entries[1].DisplayName, entries[2].DisplayName, entries[3].DisplayName}
	assert.Equal(t, []string{"Bob", "bob2", "Alice", "Teacher"}, names)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank, entries[3].Rank})
	assert.Equal(t, bob.ID, entries[0].UserID)

	again, err := e.scoring.ComputeLeaderboard(ctx, e.class.ID)
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestLeaderboard_SearchKeepsRanksAndPaginates(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	me := e.student(t, "Carol", 30)
	e.student(t, "Dave", 20)
	e.student(t, "Daisy", 10)

	page, err := e.scoring.Leaderboard(ctx, sessionFor(me), e.class.ID, "da", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "Dave", page.Entries[0].DisplayName)
	assert.Equal(t, 2, page.Entries[0].Rank)
	require.NotNil(t, page.Me)
	assert.Equal(t, 1, page.Me.Rank)

	page, err = e.scoring.Leaderboard(ctx, sessionFor(me), e.class.ID, "da", 2, 1)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "Daisy", page.Entries[0].DisplayName)
	assert.Equal(t, 3, page.Entries[0].Rank)

	page, err = e.scoring.Leaderboard(ctx, sessionFor(me), e.class.ID, "", 5, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.Equal(t, 4, page.Total)
}

func TestLeaderboard_NonMemberDenied(t *testing.T) {
	e := newScoringEnv(t)
	outsider := testutil.CreateUser(t, e.db, "Outsider", model.Student)

	_, err := e.scoring.Leaderboard(context.Background(), sessionFor(outsider), e.class.ID, "", 1, 20)
	require.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestGlobalLeaderboard_OrdersByTotalPoints(t *testing.T) {
	e := newScoringEnv(t)
	ctx := context.Background()
	low := e.student(t, "Low", 0)
	high := e.student(t, "High", 0)
	require.NoError(t, e.db.Model(&model.User{}).Where("id = ?", low.ID).Update("total_points", 5).Error)
	require.NoError(t, e.db.Model(&model.User{}).Where("id = ?", high.ID).Update("total_points", 40).Error)

	entries, err := e.scoring.GlobalLeaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, high.ID, entries[0].UserID)
	assert.Equal(t, low.ID, entries[1].UserID)
	assert.Empty(t, entries[0].Email)
}

func TestRankRows_DisplayNameFallback(t *testing.T) {
	entries := service.RankRows([]repository.LeaderboardRow{
		{UserID: 3, Email: "zed@example.edu", Points: 1},
		{UserID: 1, Name: "2. Amy", Points: 1},
		{UserID: 2, Name: "amy", Points: 1},
	})
	require.Len(t, entries, 3)
	assert.Equal(t, "Amy", entries[0].DisplayName)
	assert.Equal(t, uint(1), entries[0].UserID)
	assert.Equal(t, uint(2), entries[1].UserID)
	assert.Equal(t, "zed", entries[2].DisplayName)
}
