package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"fittedin/internal/models"
	"fittedin/internal/repository"
)

const (
	maxPostLength    = 5000
	maxCommentLength = 1000
	defaultPostLimit = 20
	maxPostLimit     = 100
)

// PostService handles status posts, likes and comments.
type PostService struct {
	postRepo repository.PostRepository
	connRepo repository.ConnectionRepository
	userRepo repository.UserRepository
	notifier Notifier
}

// NewPostService returns a PostService. notifier may be nil.
func NewPostService(
	postRepo repository.PostRepository,
	connRepo repository.ConnectionRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		connRepo: connRepo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

type PostPage struct {
	Posts  []*models.Post `json:"posts"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func postContent(content string, max int, what string) (string, error) {
	c := strings.TrimSpace(content)
	if c == "" || utf8.RuneCountInString(c) > max {
		return "", models.NewValidationError(what)
	}
	return c, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPostLimit
	}
	if limit > maxPostLimit {
		limit = maxPostLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// CreatePost publishes content as userID.
func (s *PostService) CreatePost(ctx context.Context, userID uint, content string) (*models.Post, error) {
	c, err := postContent(content, maxPostLength, "Content must be between 1 and 5000 characters")
	if err != nil {
		return nil, err
	}
	post := &models.Post{UserID: userID, Content: c}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, userID)
}

// GetPost returns a post with counters computed for viewerID.
func (s *PostService) GetPost(ctx context.Context, viewerID, postID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID, viewerID)
}

// UpdatePost replaces the content of one of userID's posts.
func (s *PostService) UpdatePost(ctx context.Context, userID, postID uint, content string) (*models.Post, error) {
	c, err := postContent(content, maxPostLength, "Content must be between 1 and 5000 characters")
	if err != nil {
		return nil, err
	}
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	post.Content = c
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, userID)
}

// DeletePost removes one of userID's posts.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, postID)
}

func (s *PostService) ownedPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("You can only modify your own posts")
	}
	return post, nil
}

// Feed returns posts by userID and their accepted connections, newest first.
func (s *PostService) Feed(ctx context.Context, userID uint, limit, offset int) (*PostPage, error) {
	limit, offset = clampPage(limit, offset)
	ids, err := s.connRepo.ConnectedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.ListByAuthors(ctx, append(ids, userID), limit, offset, userID)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Limit: limit, Offset: offset}, nil
}

// ListByUser returns authorID's posts as seen by viewerID.
func (s *PostService) ListByUser(ctx context.Context, viewerID, authorID uint, limit, offset int) (*PostPage, error) {
	limit, offset = clampPage(limit, offset)
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage("User not found")
		}
		return nil, err
	}
	posts, err := s.postRepo.ListByAuthors(ctx, []uint{authorID}, limit, offset, viewerID)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Limit: limit, Offset: offset}, nil
}

// LikePost likes postID as userID. Liking twice is a no-op; the author is
// notified of the first like by someone else.
func (s *PostService) LikePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	created, err := s.postRepo.Like(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if created && post.UserID != userID {
		s.notifyAuthor(ctx, models.NotificationPostLike, post, userID)
	}
	return s.postRepo.GetByID(ctx, postID, userID)
}

// UnlikePost removes userID's like from postID.
func (s *PostService) UnlikePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, userID)
}

// AddComment comments on postID as userID and notifies the author.
func (s *PostService) AddComment(ctx context.Context, userID, postID uint, content string) (*models.PostComment, error) {
	c, err := postContent(content, maxCommentLength, "Comment content must be between 1 and 1000 characters")
	if err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	comment := &models.PostComment{PostID: postID, UserID: userID, Content: c}
	if err := s.postRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	if post.UserID != userID {
		s.notifyAuthor(ctx, models.NotificationPostComment, post, userID)
	}
	return comment, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (s *PostService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.postRepo.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	return s.postRepo.DeleteComment(ctx, commentID)
}

func (s *PostService) notifyAuthor(ctx context.Context, t models.NotificationType, post *models.Post, actorID uint) {
	if s.notifier == nil {
		return
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		actor = nil
	}
	notifyBestEffort(ctx, s.notifier, postNotification(t, post.UserID, actorID, post.ID, actor))
}
