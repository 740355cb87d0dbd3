package service

import (
	"context"
	"courseconnect_backend/internal/config"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/util"
	"courseconnect_backend/pkg/logger"
	"courseconnect_backend/pkg/monitoring"
	"courseconnect_backend/pkg/tracing"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// toggleAttempts 并发切换时 remove/add 组合的最大尝试次数
const toggleAttempts = 3

// VoteStore 点赞集合的原子增删
type VoteStore interface {
	FindVoteTarget(ctx context.Context, kind model.ItemKind, id string) (*model.VoteTarget, error)
	AddVoter(ctx context.Context, kind model.ItemKind, id string, userID uint) (bool, error)
	RemoveVoter(ctx context.Context, kind model.ItemKind, id string, userID uint) (bool, error)
	Voters(ctx context.Context, kind model.ItemKind, id string) ([]uint, error)
}

// MemberLedger 课堂成员积分
type MemberLedger interface {
	Find(ctx context.Context, classID string, userID uint) (*model.Membership, error)
	Ensure(ctx context.Context, classID string, userID uint) error
	AddPoints(ctx context.Context, classID string, userID uint, delta int) (bool, error)
	ListLeaderboardRows(ctx context.Context, classID string) ([]repository.LeaderboardRow, error)
}

// UserLedger 用户全局积分
type UserLedger interface {
	AddPoints(ctx context.Context, userID uint, delta int) (bool, error)
	ListLeaderboardRows(ctx context.Context) ([]repository.LeaderboardRow, error)
}

// AcceptStore 采纳回答所需的读写
type AcceptStore interface {
	FindQuestion(ctx context.Context, id string) (*model.Question, error)
	FindAnswer(ctx context.Context, id string) (*model.Answer, error)
	MarkAccepted(ctx context.Context, questionID, answerID string, prev *string) (bool, error)
	ClaimBonus(ctx context.Context, answerID string) (bool, error)
}

type acceptStore struct {
	questions *repository.QuestionRepository
	answers   *repository.AnswerRepository
}

func NewAcceptStore(q *repository.QuestionRepository, a *repository.AnswerRepository) AcceptStore {
	return &acceptStore{questions: q, answers: a}
}

func (s *acceptStore) FindQuestion(ctx context.Context, id string) (*model.Question, error) {
	return s.questions.FindByID(ctx, id)
}

func (s *acceptStore) FindAnswer(ctx context.Context, id string) (*model.Answer, error) {
	return s.answers.FindByID(ctx, id)
}

func (s *acceptStore) MarkAccepted(ctx context.Context, questionID, answerID string, prev *string) (bool, error) {
	return s.questions.MarkAccepted(ctx, questionID, answerID, prev)
}

func (s *acceptStore) ClaimBonus(ctx context.Context, answerID string) (bool, error) {
	return s.answers.ClaimBonus(ctx, answerID)
}

// ScoringRules 积分规则快照
type ScoringRules struct {
	config.ScoringConfig
}

// PointsFor 返回某类内容每次点赞的分值
func (r ScoringRules) PointsFor(kind model.ItemKind) int {
	switch kind {
	case model.KindAnswer:
		return r.AnswerUpvote
	case model.KindQuestion:
		return r.QuestionUpvote
	case model.KindReply:
		return r.ReplyUpvote
	case model.KindMaterial:
		return r.MaterialUpvote
	}
	return 0
}

// CreditsGlobal 资料点赞计入全局积分，其余计入课堂积分
func CreditsGlobal(kind model.ItemKind) bool {
	return kind == model.KindMaterial
}

type ToggleResult struct {
	Applied      bool   `json:"applied"`
	Voted        bool   `json:"voted"`
	Voters       []uint `json:"voters"`
	VoteCount    int    `json:"voteCount"`
	PointDelta   int    `json:"pointDelta"`
	TargetUserID uint   `json:"targetUserId"`
}

type AcceptResult struct {
	Applied          bool    `json:"applied"`
	BonusGranted     bool    `json:"bonusGranted"`
	PreviousAnswerID *string `json:"previousAnswerId"`
}

type LeaderboardEntry struct {
	Rank        int            `json:"rank" yaml:"rank"`
	UserID      uint           `json:"userId" yaml:"userId"`
	DisplayName string         `json:"displayName" yaml:"displayName"`
	Email       string         `json:"email,omitempty" yaml:"email,omitempty"`
	Role        model.UserRole `json:"role" yaml:"role"`
	Points      int            `json:"points" yaml:"points"`
}

type LeaderboardPage struct {
	Entries []LeaderboardEntry `json:"entries"`
	Total   int                `json:"total"`
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
	Me      *LeaderboardEntry  `json:"me,omitempty"`
}

// ScoringService 点赞切换、采纳回答与排行榜计算
type ScoringService struct {
	votes   VoteStore
	members MemberLedger
	users   UserLedger
	accepts AcceptStore
	policy  *Policy
	events  EventPublisher
	rules   atomic.Pointer[ScoringRules]
}

func NewScoringService(votes VoteStore, members MemberLedger, users UserLedger, accepts AcceptStore,
	policy *Policy, events EventPublisher, rules config.ScoringConfig) *ScoringService {
	if events == nil {
		events = NopPublisher{}
	}
	s := &ScoringService{
		votes:   votes,
		members: members,
		users:   users,
		accepts: accepts,
		policy:  policy,
		events:  events,
	}
	s.UpdateRules(rules)
	return s
}

// UpdateRules 热更新积分规则，对之后的请求生效
func (s *ScoringService) UpdateRules(cfg config.ScoringConfig) {
	if cfg.PointRetries < 0 {
		cfg.PointRetries = 0
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = config.DefaultScoring().RetryInitialInterval
	}
	s.rules.Store(&ScoringRules{ScoringConfig: cfg})
}

func (s *ScoringService) Rules() ScoringRules {
	return *s.rules.Load()
}

func (s *ScoringService) membershipOf(ctx context.Context, classID string, userID uint) (*model.Membership, error) {
	m, err := s.members.Find(ctx, classID, userID)
	if errors.Is(err, util.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

func (s *ScoringService) ToggleUpvote(ctx context.Context, sess Session, kind model.ItemKind, itemID string) (*ToggleResult, error) {
	ctx, span := tracing.Start(ctx, "scoring.ToggleUpvote",
		attribute.String("item.kind", string(kind)),
		attribute.String("item.id", itemID))
	res, err := s.toggleUpvote(ctx, sess, kind, itemID)
	tracing.End(span, err)
	return res, err
}

func (s *ScoringService) toggleUpvote(ctx context.Context, sess Session, kind model.ItemKind, itemID string) (*ToggleResult, error) {
	if !sess.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	if kind.Table() == "" {
		return nil, util.Invalid(fmt.Sprintf("unknown item kind %q", kind))
	}

	target, err := s.votes.FindVoteTarget(ctx, kind, itemID)
	if err != nil {
		return nil, err
	}
	m, err := s.membershipOf(ctx, target.ClassID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanVote(sess, target, m); err != nil {
		return nil, err
	}

	rules := s.Rules()
	k := rules.PointsFor(kind)

	// 点赞方向由本次提交实际发生的变更决定，而不是之前读到的状态
	voted, err := s.commitToggle(ctx, kind, itemID, sess.UserID)
	if err != nil {
		return nil, err
	}
	delta := k
	direction := "up"
	if !voted {
		delta = -k
		direction = "down"
	}
	monitoring.VotesToggled.WithLabelValues(string(kind), direction).Inc()

	pointErr := s.credit(ctx, rules, target.ClassID, target.AuthorID, CreditsGlobal(kind), delta)

	voters, err := s.votes.Voters(ctx, kind, itemID)
	if err != nil {
		logger.Log.Warn("Failed to read voters after toggle",
			zap.String("kind", string(kind)),
			zap.String("item", itemID),
			zap.Error(err))
	}

	res := &ToggleResult{
		Applied:      true,
		Voted:        voted,
		Voters:       voters,
		VoteCount:    len(voters),
		PointDelta:   delta,
		TargetUserID: target.AuthorID,
	}
	if voters == nil {
		res.Voters = []uint{}
		res.VoteCount = target.Upvotes
		if voted {
			res.VoteCount++
		} else if res.VoteCount > 0 {
			res.VoteCount--
		}
	}

	s.events.Publish(ctx, model.Event{
		Type:     model.EventVoteToggled,
		ClassID:  target.ClassID,
		ItemKind: kind,
		ItemID:   itemID,
		UserID:   sess.UserID,
		Data: map[string]interface{}{
			"voted":        voted,
			"voteCount":    res.VoteCount,
			"pointDelta":   delta,
			"targetUserId": target.AuthorID,
		},
		At: time.Now(),
	})

	return res, pointErr
}

// commitToggle 先尝试移除再尝试添加；两者都未生效说明与同一用户的并发切换发生竞争，重试
func (s *ScoringService) commitToggle(ctx context.Context, kind model.ItemKind, itemID string, userID uint) (bool, error) {
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		removed, err := s.votes.RemoveVoter(ctx, kind, itemID, userID)
		if err != nil {
			return false, err
		}
		if removed {
			return false, nil
		}
		added, err := s.votes.AddVoter(ctx, kind, itemID, userID)
		if err != nil {
			return false, err
		}
		if added {
			return true, nil
		}
	}
	return false, util.Transient(errors.New("vote toggle did not settle"))
}

// credit 以指数退避重试积分写入。失败不回滚已提交的点赞
func (s *ScoringService) credit(ctx context.Context, rules ScoringRules, classID string, userID uint, global bool, delta int) error {
	if delta == 0 {
		return nil
	}
	balance := "member"
	if global {
		balance = "user"
	}

	op := func() error {
		var err error
		if global {
			err = s.creditUser(ctx, userID, delta)
		} else {
			err = s.creditMember(ctx, classID, userID, delta)
		}
		if err != nil && !errors.Is(err, util.ErrTransientStore) {
			return backoff.Permanent(err)
		}
		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = rules.RetryInitialInterval
	expo.MaxInterval = 20 * rules.RetryInitialInterval
	expo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(rules.PointRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		monitoring.PointWriteRetries.WithLabelValues(balance).Inc()
		logger.Log.Warn("Retrying point write",
			zap.String("balance", balance),
			zap.Uint("user_id", userID),
			zap.Int("delta", delta),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		monitoring.PointWriteFailures.WithLabelValues(balance).Inc()
		logger.Log.Error("Point write abandoned, vote state kept",
			zap.String("balance", balance),
			zap.String("class_id", classID),
			zap.Uint("user_id", userID),
			zap.Int("delta", delta),
			zap.Error(err))
		// 重试耗尽时 err 仍带 ErrTransientStore；Permanent 错误已被 backoff 解包，原样返回
		return err
	}

	s.events.Publish(ctx, model.Event{
		Type:    model.EventPointsChanged,
		ClassID: classID,
		UserID:  userID,
		Data:    map[string]interface{}{"delta": delta, "balance": balance},
		At:      time.Now(),
	})
	return nil
}

func (s *ScoringService) creditMember(ctx context.Context, classID string, userID uint, delta int) error {
	ok, err := s.members.AddPoints(ctx, classID, userID, delta)
	if err != nil || ok {
		return err
	}
	// 记录缺失：以 0 分创建后再次应用（结果同样受 0 下限约束）
	if err := s.members.Ensure(ctx, classID, userID); err != nil {
		return err
	}
	_, err = s.members.AddPoints(ctx, classID, userID, delta)
	return err
}

func (s *ScoringService) creditUser(ctx context.Context, userID uint, delta int) error {
	ok, err := s.users.AddPoints(ctx, userID, delta)
	if err != nil {
		return err
	}
	if !ok {
		return util.NotFoundf("user %d", userID)
	}
	return nil
}

func (s *ScoringService) AcceptAnswer(ctx context.Context, sess Session, questionID, answerID string) (*AcceptResult, error) {
	ctx, span := tracing.Start(ctx, "scoring.AcceptAnswer",
		attribute.String("question.id", questionID),
		attribute.String("answer.id", answerID))
	res, err := s.acceptAnswer(ctx, sess, questionID, answerID)
	tracing.End(span, err)
	return res, err
}

func (s *ScoringService) acceptAnswer(ctx context.Context, sess Session, questionID, answerID string) (*AcceptResult, error) {
	q, err := s.accepts.FindQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	a, err := s.accepts.FindAnswer(ctx, answerID)
	if err != nil {
		return nil, err
	}
	if a.QuestionID != q.ID {
		return nil, util.NotFoundf("answer %s under question %s", answerID, questionID)
	}

	m, err := s.membershipOf(ctx, q.ClassID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanAccept(sess, q, m); err != nil {
		return nil, err
	}

	var prev *string
	applied := false
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		prev = q.AcceptedAnswerID
		if prev != nil && *prev == answerID {
			return &AcceptResult{Applied: false, PreviousAnswerID: prev}, nil
		}
		applied, err = s.accepts.MarkAccepted(ctx, q.ID, answerID, prev)
		if err != nil {
			return nil, err
		}
		if applied {
			break
		}
		// 期望值已被并发修改，重新读取后再比较
		if q, err = s.accepts.FindQuestion(ctx, questionID); err != nil {
			return nil, err
		}
	}
	if !applied {
		return nil, util.Transient(errors.New("accept did not settle"))
	}

	res := &AcceptResult{Applied: true, PreviousAnswerID: prev}
	var pointErr error

	// 自问自答不发放奖励
	if a.AuthorID != q.AuthorID {
		claimed, err := s.accepts.ClaimBonus(ctx, answerID)
		if err != nil {
			return res, err
		}
		if claimed {
			res.BonusGranted = true
			pointErr = s.credit(ctx, s.Rules(), q.ClassID, a.AuthorID, false, s.Rules().AcceptBonus)
		}
	}
	monitoring.AnswersAccepted.WithLabelValues(strconv.FormatBool(res.BonusGranted)).Inc()

	s.events.Publish(ctx, model.Event{
		Type:     model.EventAnswerAccepted,
		ClassID:  q.ClassID,
		ItemKind: model.KindAnswer,
		ItemID:   answerID,
		UserID:   sess.UserID,
		Data: map[string]interface{}{
			"questionId":   q.ID,
			"bonusGranted": res.BonusGranted,
		},
		At: time.Now(),
	})
	return res, pointErr
}

// RankRows 排序并编号：积分降序，显示名（忽略大小写）升序，用户 ID 升序
func RankRows(rows []repository.LeaderboardRow) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, LeaderboardEntry{
			UserID:      r.UserID,
			DisplayName: model.DisplayName(r.Name, r.Email),
			Email:       r.Email,
			Role:        r.Role,
			Points:      r.Points,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		an, bn := strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)
		if an != bn {
			return an < bn
		}
		return a.UserID < b.UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// ComputeLeaderboard 由当前成员积分即时计算，无缓存
func (s *ScoringService) ComputeLeaderboard(ctx context.Context, classID string) ([]LeaderboardEntry, error) {
	ctx, span := tracing.Start(ctx, "scoring.ComputeLeaderboard", attribute.String("class.id", classID))
	rows, err := s.members.ListLeaderboardRows(ctx, classID)
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return RankRows(rows), nil
}

// ClassLeaderboard 课堂成员可见的完整排行榜，用于导出
func (s *ScoringService) ClassLeaderboard(ctx context.Context, sess Session, classID string) ([]LeaderboardEntry, error) {
	m, err := s.membershipOf(ctx, classID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanView(sess, m); err != nil {
		return nil, err
	}
	return s.ComputeLeaderboard(ctx, classID)
}

// Leaderboard 按显示名过滤并分页；名次为未过滤列表中的位置
func (s *ScoringService) Leaderboard(ctx context.Context, sess Session, classID, search string, page, limit int) (*LeaderboardPage, error) {
	all, err := s.ClassLeaderboard(ctx, sess, classID)
	if err != nil {
		return nil, err
	}
	out := paginate(filterEntries(all, search), page, limit)
	for i := range all {
		if all[i].UserID == sess.UserID {
			me := all[i]
			out.Me = &me
			break
		}
	}
	return out, nil
}

// GlobalLeaderboard 按全局积分排名
func (s *ScoringService) GlobalLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.users.ListLeaderboardRows(ctx)
	if err != nil {
		return nil, err
	}
	entries := RankRows(rows)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Email = ""
	}
	return entries, nil
}

func filterEntries(entries []LeaderboardEntry, search string) []LeaderboardEntry {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return entries
	}
	out := make([]LeaderboardEntry, 0)
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.DisplayName), q) {
			out = append(out, e)
		}
	}
	return out
}

func paginate(entries []LeaderboardEntry, page, limit int) *LeaderboardPage {
	page, limit = util.NormalizePage(page, limit)
	start := (page - 1) * limit
	if start > len(entries) {
		start = len(entries)
	}
	end := start + limit
	if end > len(entries) {
		end = len(entries)
	}
	return &LeaderboardPage{
		Entries: entries[start:end],
		Total:   len(entries),
		Page:    page,
		Limit:   limit,
	}
}
