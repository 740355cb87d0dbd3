package service_test

import (
	"context"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/testutil"
	"courseconnect_backend/internal/util"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnnouncementService(e *scoringEnv) *service.AnnouncementService {
	return service.NewAnnouncementService(
		repository.NewAnnouncementRepository(e.db),
		e.members,
		e.users,
		service.NewStorageService(e.cfg),
		e.policy,
		nil,
	)
}

func TestPostAnnouncement(t *testing.T) {
	e := newScoringEnv(t)
	announcements := newAnnouncementService(e)
	ctx := context.Background()
	student := e.student(t, "Student", 0)

	_, err := announcements.Post(ctx, sessionFor(student), e.class.ID, "Quiz", "tomorrow", nil)
	require.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = announcements.Post(ctx, sessionFor(e.instructor), e.class.ID, " ", "tomorrow", nil)
	require.ErrorIs(t, err, util.ErrInvalidInput)

	plain, err := announcements.Post(ctx, sessionFor(e.instructor), e.class.ID, "Quiz", " tomorrow ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Teacher", plain.PostedBy)
	assert.Equal(t, "tomorrow", plain.Message)
	assert.Empty(t, plain.FileURL)

	file := testutil.FileHeader(t, "syllabus.pdf", "application/pdf", testutil.PDF)
	withFile, err := announcements.Post(ctx, sessionFor(e.instructor), e.class.ID, "Syllabus", "", file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(withFile.FileURL, "/uploads/announcements/"+e.class.ID+"/"))

	video := testutil.FileHeader(t, "clip.mp4", "video/mp4", mp4Header)
	_, err = announcements.Post(ctx, sessionFor(e.instructor), e.class.ID, "Clip", "", video)
	require.ErrorIs(t, err, util.ErrUnsupportedFileType)

	list, err := announcements.List(ctx, sessionFor(student), e.class.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	titles := []string{list[0].Title, list[1].Title}
	assert.ElementsMatch(t, []string{"Quiz", "Syllabus"}, titles)

	outsider := testutil.CreateUser(t, e.db, "Outsider", model.Student)
	_, err = announcements.List(ctx, sessionFor(outsider), e.class.ID)
	require.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestUserProfile(t *testing.T) {
	e := newScoringEnv(t)
	users := service.NewUserService(e.users, service.NewStorageService(e.cfg))
	ctx := context.Background()
	u := e.student(t, "Old Name", 0)

	updated, err := users.UpdateProfile(ctx, sessionFor(u), "  New Name ")
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	_, err = users.UpdateProfile(ctx, sessionFor(u), "   ")
	require.ErrorIs(t, err, util.ErrInvalidInput)
	_, err = users.UpdateProfile(ctx, sessionFor(u), strings.Repeat("x", 101))
	require.ErrorIs(t, err, util.ErrInvalidInput)

	avatar := testutil.FileHeader(t, "me.png", "image/png", testutil.PNG)
	updated, err = users.UploadAvatar(ctx, sessionFor(u), avatar)
	require.NoError(t, err)
	assert.Contains(t, updated.PhotoURL, "/uploads/avatars/")

	pdf := testutil.FileHeader(t, "me.pdf", "application/pdf", testutil.PDF)
	_, err = users.UploadAvatar(ctx, sessionFor(u), pdf)
	require.ErrorIs(t, err, util.ErrUnsupportedFileType)
}
