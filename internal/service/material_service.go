package service

import (
	"context"
	"courseconnect_backend/internal/config"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/util"
	"courseconnect_backend/pkg/logger"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const viewDedupeWindow = 10 * time.Minute

// MediaProber 视频探测与截图，默认使用 ffmpeg
type MediaProber interface {
	Probe(path string) (*util.MediaInfo, error)
	Thumbnail(videoPath, thumbPath string) error
}

type ffmpegProber struct{}

func (ffmpegProber) Probe(path string) (*util.MediaInfo, error) {
	return util.ProbeMedia(path)
}

func (ffmpegProber) Thumbnail(videoPath, thumbPath string) error {
	return util.ExtractThumbnail(videoPath, thumbPath, "3")
}

type MaterialService struct {
	materials *repository.MaterialRepository
	members   *repository.MembershipRepository
	votes     *repository.VoteRepository
	storage   BlobStore
	redis     *redis.Client
	policy    *Policy
	events    EventPublisher
	prober    MediaProber
	cfg       *config.Config
}

func NewMaterialService(
	materials *repository.MaterialRepository,
	members *repository.MembershipRepository,
	votes *repository.VoteRepository,
	storage BlobStore,
	rdb *redis.Client,
	policy *Policy,
	events EventPublisher,
	cfg *config.Config,
) *MaterialService {
	if events == nil {
		events = NopPublisher{}
	}
	return &MaterialService{
		materials: materials,
		members:   members,
		votes:     votes,
		storage:   storage,
		redis:     rdb,
		policy:    policy,
		events:    events,
		prober:    ffmpegProber{},
		cfg:       cfg,
	}
}

// WithProber 替换媒体探测实现
func (s *MaterialService) WithProber(p MediaProber) *MaterialService {
	s.prober = p
	return s
}

type MaterialInput struct {
	Title       string
	Description string
	Tags        []string
}

type MaterialView struct {
	model.Material
	Tags  []string `json:"tags"`
	Voted bool     `json:"voted"`
}

func (s *MaterialService) membership(ctx context.Context, classID string, userID uint) (*model.Membership, error) {
	m, err := s.members.Find(ctx, classID, userID)
	if errors.Is(err, util.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

func (s *MaterialService) Upload(ctx context.Context, sess Session, classID string, in MaterialInput, file *multipart.FileHeader) (*MaterialView, error) {
	m, err := s.membership(ctx, classID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanShareMaterial(sess, m); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, util.Invalid("title is required")
	}
	if file == nil {
		return nil, util.Invalid("file is required")
	}
	if limitMB := s.cfg.Storage.MaxUploadMB; limitMB > 0 && file.Size > limitMB<<20 {
		return nil, util.Invalid(fmt.Sprintf("file exceeds %d MB", limitMB))
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, util.MaterialMimeTypes)
	if err != nil {
		// 部分视频容器只能识别为 octet-stream，按扩展名放行
		if !(mimeType == util.MimeOctetStream && util.IsVideoFile(file.Filename)) {
			return nil, err
		}
		mimeType = file.Header.Get("Content-Type")
		if !util.IsVideo(mimeType) {
			mimeType = "video/" + strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
		}
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	tags := util.NormalizeTags(in.Tags)
	material := &model.Material{
		ClassID:     classID,
		AuthorID:    sess.UserID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		ContentType: mimeType,
		Tags:        strings.Join(tags, ","),
	}

	objectName := ObjectName("materials/"+classID, file.Filename)
	if util.IsVideo(mimeType) {
		if err := s.uploadVideo(ctx, src, file.Filename, objectName, material); err != nil {
			return nil, err
		}
	} else {
		url, err := s.storage.Upload(ctx, objectName, src, file.Size, mimeType)
		if err != nil {
			return nil, err
		}
		material.FileURL = url
	}

	if err := s.materials.Create(ctx, material); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, model.Event{
		Type:     model.EventMaterialPosted,
		ClassID:  classID,
		ItemKind: model.KindMaterial,
		ItemID:   material.ID,
		UserID:   sess.UserID,
		Data:     map[string]interface{}{"title": material.Title},
		At:       time.Now(),
	})
	return &MaterialView{Material: *material, Tags: tags}, nil
}

// uploadVideo 先落盘到临时文件，上传原文件后再尽力生成封面与时长
func (s *MaterialService) uploadVideo(ctx context.Context, src io.Reader, original, objectName string, material *model.Material) error {
	tempDir, err := os.MkdirTemp("", "courseconnect-video-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	videoPath := filepath.Join(tempDir, "source"+strings.ToLower(filepath.Ext(original)))
	dst, err := os.Create(videoPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	url, err := s.storage.UploadFile(ctx, objectName, videoPath, material.ContentType)
	if err != nil {
		return err
	}
	material.FileURL = url

	thumbPath := filepath.Join(tempDir, "thumb.jpg")
	if err := s.prober.Thumbnail(videoPath, thumbPath); err != nil {
		logger.Log.Warn("Thumbnail generation failed", zap.String("file", original), zap.Error(err))
	} else {
		thumbURL, err := s.storage.UploadFile(ctx, strings.TrimSuffix(objectName, filepath.Ext(objectName))+".jpg", thumbPath, "image/jpeg")
		if err != nil {
			logger.Log.Warn("Thumbnail upload failed", zap.String("file", original), zap.Error(err))
		} else {
			material.ThumbnailURL = thumbURL
		}
	}

	if info, err := s.prober.Probe(videoPath); err != nil {
		logger.Log.Warn("Video probe failed", zap.String("file", original), zap.Error(err))
	} else {
		material.DurationSeconds = info.Duration
	}
	return nil
}

func (s *MaterialService) List(ctx context.Context, sess Session, f repository.MaterialFilter) ([]MaterialView, int64, error) {
	m, err := s.membership(ctx, f.ClassID, sess.UserID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.policy.CanView(sess, m); err != nil {
		return nil, 0, err
	}

	f.Page, f.Limit = util.NormalizePage(f.Page, f.Limit)
	f.Tag = strings.ToLower(strings.TrimSpace(f.Tag))
	list, total, err := s.materials.FindWithPagination(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	voted, err := s.votes.VotedBy(ctx, model.KindMaterial, ids, sess.UserID)
	if err != nil {
		return nil, 0, err
	}

	views := make([]MaterialView, len(list))
	for i := range list {
		views[i] = MaterialView{Material: list[i], Tags: list[i].TagList(), Voted: voted[list[i].ID]}
	}
	return views, total, nil
}

// Get 同一用户 10 分钟内重复查看只计一次
func (s *MaterialService) Get(ctx context.Context, sess Session, id string) (*MaterialView, error) {
	material, err := s.materials.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := s.membership(ctx, material.ClassID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanView(sess, m); err != nil {
		return nil, err
	}

	if s.countView(ctx, material.ID, sess.UserID) {
		if err := s.materials.IncrementView(ctx, material.ID); err != nil {
			logger.Log.Warn("Failed to count material view", zap.String("material_id", material.ID), zap.Error(err))
		} else {
			material.ViewCount++
		}
	}

	voted, err := s.votes.VotedBy(ctx, model.KindMaterial, []string{material.ID}, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &MaterialView{Material: *material, Tags: material.TagList(), Voted: voted[material.ID]}, nil
}

func (s *MaterialService) countView(ctx context.Context, materialID string, userID uint) bool {
	if s.redis == nil {
		return true
	}
	key := fmt.Sprintf("material:view:%s:%d", materialID, userID)
	isNew, err := s.redis.SetNX(ctx, key, "1", viewDedupeWindow).Result()
	if err != nil {
		logger.Log.Warn("View dedupe unavailable", zap.Error(err))
		return true
	}
	return isNew
}
