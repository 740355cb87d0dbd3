// Package testutil 测试共用的数据库、Redis 与数据构造
package testutil

import (
	"bytes"
	"courseconnect_backend/internal/config"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/pkg/database"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	Password  = "password123"
	JWTSecret = "test-secret-test-secret-test-secret"
)

var seq atomic.Int64

// NewDB 每个测试独立的内存 SQLite，已完成迁移
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])

	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", Path: dsn}, "test")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewRedis 启动 miniredis 并返回连接它的客户端
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

// Config 适合测试的配置：SQLite、本地存储、极短的重试间隔
func Config(t testing.TB) *config.Config {
	t.Helper()
	scoring := config.DefaultScoring()
	scoring.RetryInitialInterval = time.Millisecond

	return &config.Config{
		Server:   config.ServerConfig{Port: "0", Mode: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite"},
		JWT:      config.JWTConfig{Secret: JWTSecret, ExpireTime: time.Hour},
		Storage: config.StorageConfig{
			Type:        "local",
			LocalPath:   t.TempDir(),
			MaxUploadMB: 5,
		},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
		Auth: config.AuthConfig{
			RequireVerifiedEmail: true,
			VerifyURLBase:        "http://localhost/verify",
		},
		QA: config.QAConfig{
			StudentsOnlyQuestions: true,
			ForbidSelfAnswer:      true,
		},
		Scoring: scoring,
	}
}

// CreateUser 创建已验证邮箱的用户，密码为 Password
func CreateUser(t testing.TB, db *gorm.DB, name string, role model.UserRole) *model.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	n := seq.Add(1)
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	if local == "" {
		local = "user"
	}
	u := &model.User{
		Name:          name,
		Email:         fmt.Sprintf("%s.%d@example.edu", local, n),
		Password:      string(hashed),
		Role:          role,
		EmailVerified: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateClass 创建课堂并把 owner 加为教师成员
func CreateClass(t testing.TB, db *gorm.DB, owner *model.User) *model.ClassRoom {
	t.Helper()
	c := &model.ClassRoom{
		Title:    "Class " + uuid.NewString()[:4],
		JoinCode: strings.ToUpper(uuid.NewString()[:6]),
		OwnerID:  owner.ID,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(c).Error)
	AddMember(t, db, c.ID, owner, model.Faculty, 0)
	return c
}

func AddMember(t testing.TB, db *gorm.DB, classID string, u *model.User, role model.UserRole, points int) *model.Membership {
	t.Helper()
	m := &model.Membership{ClassID: classID, UserID: u.ID, Role: role, Points: points, JoinedAt: time.Now()}
	require.NoError(t, db.Omit(clause.Associations).Create(m).Error)
	return m
}

func CreateQuestion(t testing.TB, db *gorm.DB, classID string, author *model.User) *model.Question {
	t.Helper()
	q := &model.Question{ClassID: classID, Title: "How does it work?", Body: "details", AuthorID: author.ID}
	require.NoError(t, db.Omit(clause.Associations).Create(q).Error)
	return q
}

func CreateAnswer(t testing.TB, db *gorm.DB, questionID string, author *model.User) *model.Answer {
	t.Helper()
	a := &model.Answer{QuestionID: questionID, AuthorID: author.ID, Body: "like this"}
	require.NoError(t, db.Omit(clause.Associations).Create(a).Error)
	return a
}

func CreateReply(t testing.TB, db *gorm.DB, questionID string, parentID *string, author *model.User) *model.Reply {
	t.Helper()
	r := &model.Reply{QuestionID: questionID, ParentID: parentID, AuthorID: author.ID, Text: "+1"}
	require.NoError(t, db.Omit(clause.Associations).Create(r).Error)
	return r
}

func CreateMaterial(t testing.TB, db *gorm.DB, classID string, author *model.User) *model.Material {
	t.Helper()
	m := &model.Material{ClassID: classID, AuthorID: author.ID, Title: "Slides", FileURL: "/uploads/x.pdf", ContentType: "application/pdf"}
	require.NoError(t, db.Omit(clause.Associations).Create(m).Error)
	return m
}

// MemberPoints 读取课堂积分
func MemberPoints(t testing.TB, db *gorm.DB, classID string, userID uint) int {
	t.Helper()
	var m model.Membership
	require.NoError(t, db.Where("class_id = ? AND user_id = ?", classID, userID).First(&m).Error)
	return m.Points
}

// UserPoints 读取全局积分
func UserPoints(t testing.TB, db *gorm.DB, userID uint) int {
	t.Helper()
	var u model.User
	require.NoError(t, db.First(&u, userID).Error)
	return u.TotalPoints
}

// FileHeader 构造 multipart 文件，与 gin FormFile 得到的结果一致
func FileHeader(t testing.TB, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

// PNG 最小的合法 PNG 文件头，足以通过内容嗅探
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

// PDF 足以通过内容嗅探的 PDF 文件头
var PDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
