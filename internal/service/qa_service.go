package service

import (
	"context"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/util"
	"errors"
	"strings"
	"time"
)

// QAService 课堂问答：提问、回答与嵌套回复
type QAService struct {
	questions *repository.QuestionRepository
	answers   *repository.AnswerRepository
	replies   *repository.ReplyRepository
	members   *repository.MembershipRepository
	votes     *repository.VoteRepository
	policy    *Policy
	events    EventPublisher
}

func NewQAService(
	questions *repository.QuestionRepository,
	answers *repository.AnswerRepository,
	replies *repository.ReplyRepository,
	members *repository.MembershipRepository,
	votes *repository.VoteRepository,
	policy *Policy,
	events EventPublisher,
) *QAService {
	if events == nil {
		events = NopPublisher{}
	}
	return &QAService{
		questions: questions,
		answers:   answers,
		replies:   replies,
		members:   members,
		votes:     votes,
		policy:    policy,
		events:    events,
	}
}

type QuestionView struct {
	model.Question
	Tags  []string `json:"tags"`
	Voted bool     `json:"voted"`
}

type AnswerView struct {
	model.Answer
	Voted bool `json:"voted"`
}

// ReplyNode 回复树节点，子节点按创建顺序排列
type ReplyNode struct {
	model.Reply
	Voted    bool         `json:"voted"`
	Children []*ReplyNode `json:"children"`
}

type Thread struct {
	Question QuestionView `json:"question"`
	Answers  []AnswerView `json:"answers"`
	Replies  []*ReplyNode `json:"replies"`
}

func (s *QAService) membership(ctx context.Context, classID string, userID uint) (*model.Membership, error) {
	m, err := s.members.Find(ctx, classID, userID)
	if errors.Is(err, util.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

func (s *QAService) PostQuestion(ctx context.Context, sess Session, classID, title, body string, tags []string) (*QuestionView, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, util.Invalid("title is required")
	}

	m, err := s.membership(ctx, classID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanPostQuestion(sess, m); err != nil {
		return nil, err
	}

	normalized := util.NormalizeTags(tags)
	q := &model.Question{
		ClassID:  classID,
		Title:    title,
		Body:     strings.TrimSpace(body),
		AuthorID: sess.UserID,
		Tags:     strings.Join(normalized, ","),
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, model.Event{
		Type:     model.EventQuestionPosted,
		ClassID:  classID,
		ItemKind: model.KindQuestion,
		ItemID:   q.ID,
		UserID:   sess.UserID,
		Data:     map[string]interface{}{"title": q.Title},
		At:       time.Now(),
	})
	return &QuestionView{Question: *q, Tags: normalized}, nil
}

func (s *QAService) PostAnswer(ctx context.Context, sess Session, questionID, body string) (*model.Answer, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, util.Invalid("answer body is required")
	}

	q, err := s.questions.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	m, err := s.membership(ctx, q.ClassID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanAnswer(sess, q, m); err != nil {
		return nil, err
	}

	a := &model.Answer{QuestionID: q.ID, AuthorID: sess.UserID, Body: body}
	if err := s.answers.Create(ctx, a); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, model.Event{
		Type:     model.EventAnswerPosted,
		ClassID:  q.ClassID,
		ItemKind: model.KindAnswer,
		ItemID:   a.ID,
		UserID:   sess.UserID,
		Data:     map[string]interface{}{"questionId": q.ID},
		At:       time.Now(),
	})
	return a, nil
}

// PostReply parentID 为空时直接回复问题；否则必须是同一问题下的回复
func (s *QAService) PostReply(ctx context.Context, sess Session, questionID string, parentID *string, text string) (*model.Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, util.Invalid("reply text is required")
	}

	q, err := s.questions.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	m, err := s.membership(ctx, q.ClassID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanReply(sess, m); err != nil {
		return nil, err
	}

	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	if parentID != nil {
		parent, err := s.replies.FindByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.QuestionID != q.ID {
			return nil, util.NotFoundf("reply %s under question %s", *parentID, q.ID)
		}
	}

	r := &model.Reply{QuestionID: q.ID, ParentID: parentID, AuthorID: sess.UserID, Text: text}
	if err := s.replies.Create(ctx, r); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, model.Event{
		Type:     model.EventReplyPosted,
		ClassID:  q.ClassID,
		ItemKind: model.KindReply,
		ItemID:   r.ID,
		UserID:   sess.UserID,
		Data:     map[string]interface{}{"questionId": q.ID, "parentId": parentID},
		At:       time.Now(),
	})
	return r, nil
}

func (s *QAService) ListQuestions(ctx context.Context, sess Session, f repository.QuestionFilter) ([]QuestionView, int64, error) {
	m, err := s.membership(ctx, f.ClassID, sess.UserID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.policy.CanView(sess, m); err != nil {
		return nil, 0, err
	}

	f.Page, f.Limit = util.NormalizePage(f.Page, f.Limit)
	f.Tag = strings.ToLower(strings.TrimSpace(f.Tag))
	questions, total, err := s.questions.FindWithPagination(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, len(questions))
	for i := range questions {
		ids[i] = questions[i].ID
	}
	voted, err := s.votes.VotedBy(ctx, model.KindQuestion, ids, sess.UserID)
	if err != nil {
		return nil, 0, err
	}

	views := make([]QuestionView, len(questions))
	for i := range questions {
		views[i] = QuestionView{
			Question: questions[i],
			Tags:     questions[i].TagList(),
			Voted:    voted[questions[i].ID],
		}
	}
	return views, total, nil
}

// GetThread 返回问题、回答及回复树
func (s *QAService) GetThread(ctx context.Context, sess Session, questionID string) (*Thread, error) {
	q, err := s.questions.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	m, err := s.membership(ctx, q.ClassID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanView(sess, m); err != nil {
		return nil, err
	}

	answers, err := s.answers.ListByQuestion(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	replies, err := s.replies.ListByQuestion(ctx, q.ID)
	if err != nil {
		return nil, err
	}

	qVoted, err := s.votes.VotedBy(ctx, model.KindQuestion, []string{q.ID}, sess.UserID)
	if err != nil {
		return nil, err
	}
	answerIDs := make([]string, len(answers))
	for i := range answers {
		answerIDs[i] = answers[i].ID
	}
	aVoted, err := s.votes.VotedBy(ctx, model.KindAnswer, answerIDs, sess.UserID)
	if err != nil {
		return nil, err
	}
	replyIDs := make([]string, len(replies))
	for i := range replies {
		replyIDs[i] = replies[i].ID
	}
	rVoted, err := s.votes.VotedBy(ctx, model.KindReply, replyIDs, sess.UserID)
	if err != nil {
		return nil, err
	}

	thread := &Thread{
		Question: QuestionView{Question: *q, Tags: q.TagList(), Voted: qVoted[q.ID]},
		Answers:  make([]AnswerView, len(answers)),
		Replies:  BuildReplyTree(replies),
	}
	for i := range answers {
		thread.Answers[i] = AnswerView{Answer: answers[i], Voted: aVoted[answers[i].ID]}
	}
	markVoted(thread.Replies, rVoted)
	return thread, nil
}

// BuildReplyTree 由按创建顺序排列的扁平回复重建树；父节点缺失的回复挂在根上
func BuildReplyTree(replies []model.Reply) []*ReplyNode {
	nodes := make(map[string]*ReplyNode, len(replies))
	ordered := make([]*ReplyNode, 0, len(replies))
	for i := range replies {
		n := &ReplyNode{Reply: replies[i], Children: []*ReplyNode{}}
		nodes[n.ID] = n
		ordered = append(ordered, n)
	}

	roots := make([]*ReplyNode, 0)
	for _, n := range ordered {
		if n.ParentID != nil {
			if parent, ok := nodes[*n.ParentID]; ok && parent != n {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

func markVoted(nodes []*ReplyNode, voted map[string]bool) {
	for _, n := range nodes {
		n.Voted = voted[n.ID]
		markVoted(n.Children, voted)
	}
}
