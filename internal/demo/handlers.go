package demo

import (
	"errors"
	"fmt"
	"io"
	"net/mail"
	"path"
	"strconv"
	"strings"
	"time"

	"vibeweb/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errNoToken = errors.New("missing bearer token")

func (b *Backend) routes(app *fiber.App) {
	app.Post("/auth/login", b.login)
	app.Post("/auth/signup", b.signup)

	app.Get("/posts", b.listPosts)
	app.Get("/posts/feed", b.personalFeed)
	app.Post("/posts", b.createPost)
	app.Get("/posts/:id/comments", b.listComments)
	app.Post("/posts/:id/comments", b.createComment)
	app.Get("/posts/:id", b.getPost)
	app.Patch("/posts/:id", b.updatePost)
	app.Delete("/posts/:id", b.deletePost)
	app.Delete("/comments/:id", b.deleteComment)

	app.Get("/user/me", b.me)
	app.Get("/user", b.listUsers)
	app.Get("/profiles/:nickname", b.profile)
	app.Post("/profiles/:nickname/follow", b.followUser)
	app.Delete("/profiles/:nickname/follow", b.unfollowUser)

	app.Get("/uploads/:name", b.serveUpload)
}

func (b *Backend) issueToken(u *user) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(u.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.opts.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(b.opts.Secret))
}

// IssueToken signs a token for nickname, e.g. to seed a browser session in tests.
func (b *Backend) IssueToken(nickname string) (string, error) {
	b.mu.Lock()
	u := b.userByNickname(nickname)
	b.mu.Unlock()
	if u == nil {
		return "", fmt.Errorf("unknown user %q", nickname)
	}
	return b.issueToken(u)
}

// viewer returns the user id of a valid bearer token. Must hold b.mu.
func (b *Backend) viewer(c *fiber.Ctx) (uint, error) {
	raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || raw == "" {
		return 0, errNoToken
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(b.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || b.userByID(uint(id)) == nil {
		return 0, fmt.Errorf("unknown subject %q", claims.Subject)
	}
	return uint(id), nil
}

func unauthorized(c *fiber.Ctx) error {
	return respondError(c, fiber.StatusUnauthorized, "Unauthorized")
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func (b *Backend) login(c *fiber.Ctx) error {
	var creds models.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	b.mu.Lock()
	var found *user
	for _, u := range b.users {
		if strings.EqualFold(u.Email, creds.Email) && u.Password == creds.Password {
			found = u
			break
		}
	}
	b.mu.Unlock()
	if found == nil {
		return respondError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	token, err := b.issueToken(found)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Could not issue token")
	}
	return c.Status(fiber.StatusCreated).JSON(models.LoginResponse{AccessToken: token})
}

func (b *Backend) signup(c *fiber.Ctx) error {
	var req models.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var problems []string
	if _, err := mail.ParseAddress(req.Email); err != nil {
		problems = append(problems, "email must be an email")
	}
	if len(req.Password) < 6 {
		problems = append(problems, "password must be longer than or equal to 6 characters")
	}
	if strings.TrimSpace(req.Nickname) == "" {
		problems = append(problems, "nickname should not be empty")
	}
	if len(problems) > 0 {
		return respondError(c, fiber.StatusBadRequest, problems)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, req.Email) || u.Nickname == req.Nickname {
			return respondError(c, fiber.StatusConflict, "Email or nickname already taken")
		}
	}
	u := b.addUser(req.Email, req.Password, req.Nickname, nil)
	return c.Status(fiber.StatusCreated).JSON(u.User)
}

func (b *Backend) listPosts(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	all := b.newestFirst(func(*models.Post) bool { return true })
	return c.JSON(paginate(all, c.QueryInt("page", 1), c.QueryInt("limit", 10)))
}

func (b *Backend) personalFeed(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	me, err := b.viewer(c)
	if err != nil {
		return unauthorized(c)
	}
	following := b.follows[me]
	feed := b.newestFirst(func(p *models.Post) bool {
		if p.AuthorID == me {
			return true
		}
		_, ok := following[p.AuthorID]
		return ok
	})
	return c.JSON(paginate(feed, c.QueryInt("page", 1), c.QueryInt("limit", 10)))
}

func (b *Backend) createPost(c *fiber.Ctx) error {
	content := strings.TrimSpace(c.FormValue("content"))

	var up *upload
	var ext string
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return respondError(c, fiber.StatusBadRequest, "Unreadable image")
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return respondError(c, fiber.StatusBadRequest, "Unreadable image")
		}
		up = &upload{contentType: fh.Header.Get(fiber.HeaderContentType), data: data}
		ext = path.Ext(fh.Filename)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	me, err := b.viewer(c)
	if err != nil {
		return unauthorized(c)
	}
	if content == "" && up == nil {
		return respondError(c, fiber.StatusBadRequest, "Post needs content or an image")
	}

	author := b.userByID(me)
	post := &models.Post{
		ID:        b.nextPostID,
		Content:   content,
		AuthorID:  me,
		Author:    models.Author{ID: me, Nickname: author.Nickname},
		CreatedAt: time.Now(),
	}
	b.nextPostID++
	if up != nil {
		name := uuid.NewString() + ext
		b.uploads[name] = *up
		post.ImageURL = b.opts.ImageBaseURL + "/uploads/" + name
	}
	b.posts = append(b.posts, post)
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (b *Backend) getPost(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, "Invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	post, _ := b.postByID(id)
	if post == nil {
		return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Post %d not found", id))
	}
	return c.JSON(post)
}

func (b *Backend) updatePost(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, "Invalid id")
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	me, err := b.viewer(c)
	if err != nil {
		return unauthorized(c)
	}
	post, _ := b.postByID(id)
	if post == nil {
		return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Post %d not found", id))
	}
	if post.AuthorID != me {
		return respondError(c, fiber.StatusForbidden, "You can only edit your own posts")
	}
	post.Content = body.Content
	return c.JSON(post)
}

func (b *Backend) deletePost(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, "Invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	me, err := b.viewer(c)
	if err != nil {
		return unauthorized(c)
	}
	post, idx := b.postByID(id)
	if post == nil {
		return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Post %d not found", id))
	}
	if post.AuthorID != me {
		return respondError(c, fiber.StatusForbidden, "You can only delete your own posts")
	}
	b.posts = append(b.posts[:idx], b.posts[idx+1:]...)
	delete(b.comments, id)
	return c.SendStatus(fiber.StatusOK)
}

func (b *Backend) listComments(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, "Invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if post, _ := b.postByID(id); post == nil {
		return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Post %d not found", id))
	}
	out := make([]models.Comment, 0, len(b.comments[id]))
	for _, cm := range b.comments[id] {
		out = append(out, *cm)
	}
	return c.JSON(out)
}

func (b *Backend) createComment(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, "Invalid id")
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	me, err := b.viewer(c)
	if err != nil {
		return unauthorized(c)
	}
	if post, _ := b.postByID(id); post == nil {
		return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Post %d not found", id))
	}
	if strings.TrimSpace(body.Content) == "" {
		return respondError(c, fiber.StatusBadRequest, []string{"content should not be empty"})
	}
	author := b.userByID(me)
	cm := &models.Comment{
		ID:        b.nextCommentID,
		Content:   body.Content,
		CreatedAt: time.Now(),
		Author:    models.User{ID: me, Nickname: author.Nickname},
	}
	b.nextCommentID++
	b.comments[id] = append(b.comments[id], cm)
	return c.Status(fiber.StatusCreated).JSON(cm)
}

func (b *Backend) deleteComment(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, "Invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	me, err := b.viewer(c)
	if err != nil {
		return unauthorized(c)
	}
	for postID, list := range b.comments {
		for i, cm := range list {
			if cm.ID != id {
				continue
			}
			if cm.Author.ID != me {
				return respondError(c, fiber.StatusForbidden, "You can only delete your own comments")
			}
			b.comments[postID] = append(list[:i], list[i+1:]...)
			return c.SendStatus(fiber.StatusOK)
		}
	}
	return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Comment %d not found", id))
}

func (b *Backend) me(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	me, err := b.viewer(c)
	if err != nil {
		return unauthorized(c)
	}
	return c.JSON(b.userByID(me).User)
}

func (b *Backend) listUsers(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.User, 0, len(b.users))
	for _, u := range b.users {
		out = append(out, models.User{ID: u.ID, Nickname: u.Nickname})
	}
	return c.JSON(out)
}

func (b *Backend) profile(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.userByNickname(c.Params("nickname"))
	if u == nil {
		return respondError(c, fiber.StatusNotFound, "User not found")
	}

	p := models.Profile{
		ID:       u.ID,
		Nickname: u.Nickname,
		Bio:      u.Bio,
		Counts: models.ProfileCounts{
			Followers: b.followerCount(u.ID),
			Following: len(b.follows[u.ID]),
		},
		Posts: []models.ProfilePost{},
	}
	for _, post := range b.newestFirst(func(p *models.Post) bool { return p.AuthorID == u.ID }) {
		p.Posts = append(p.Posts, models.ProfilePost{ID: post.ID, Content: post.Content, ImageURL: post.ImageURL})
	}
	if me, err := b.viewer(c); err == nil {
		_, p.IsFollowing = b.follows[me][u.ID]
	}
	return c.JSON(p)
}

func (b *Backend) followUser(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	me, err := b.viewer(c)
	if err != nil {
		return unauthorized(c)
	}
	target := b.userByNickname(c.Params("nickname"))
	if target == nil {
		return respondError(c, fiber.StatusNotFound, "User not found")
	}
	if target.ID == me {
		return respondError(c, fiber.StatusBadRequest, "You cannot follow yourself")
	}
	b.follow(me, target.ID)
	return c.SendStatus(fiber.StatusCreated)
}

func (b *Backend) unfollowUser(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	me, err := b.viewer(c)
	if err != nil {
		return unauthorized(c)
	}
	target := b.userByNickname(c.Params("nickname"))
	if target == nil {
		return respondError(c, fiber.StatusNotFound, "User not found")
	}
	delete(b.follows[me], target.ID)
	return c.SendStatus(fiber.StatusOK)
}

func (b *Backend) serveUpload(c *fiber.Ctx) error {
	b.mu.Lock()
	up, ok := b.uploads[c.Params("name")]
	b.mu.Unlock()
	if !ok {
		return respondError(c, fiber.StatusNotFound, "Not found")
	}
	c.Set(fiber.HeaderContentType, up.contentType)
	return c.Send(up.data)
}
