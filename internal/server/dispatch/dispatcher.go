// Package dispatch is the protocol core: it parses one request message,
// applies authentication and path authorization, routes to the matching
// handler and renders the response. No error escapes Handle; every path
// yields a response string or an explicit no-response.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pkowalczyk/filekeeper/internal/chunkcodec"
	"github.com/pkowalczyk/filekeeper/internal/common"
	"github.com/pkowalczyk/filekeeper/internal/logging"
	"github.com/pkowalczyk/filekeeper/internal/proto"
	"github.com/pkowalczyk/filekeeper/internal/server/auth"
	"github.com/pkowalczyk/filekeeper/internal/server/authz"
	"github.com/pkowalczyk/filekeeper/internal/server/storage"
	"github.com/pkowalczyk/filekeeper/internal/server/transfer"
	"github.com/pkowalczyk/filekeeper/internal/server/users"
)

// Options wires the dispatcher's collaborators. TokenSecret enables
// token-carrying AUTH responses when non-empty.
type Options struct {
	Users      users.Store
	Files      storage.FileStore
	Transfers  *transfer.Registry
	Strategy   auth.Strategy
	Authorizer authz.Authorizer
	Codec      chunkcodec.Codec
	Logger     logging.Logger

	TokenSecret   string
	TokenValidity time.Duration
}

type Dispatcher struct {
	users      users.Store
	files      storage.FileStore
	transfers  *transfer.Registry
	strategy   auth.Strategy
	tokens     *auth.TokenStrategy
	authorizer authz.Authorizer
	codec      chunkcodec.Codec
	logger     logging.Logger

	tokenSecret   []byte
	tokenValidity time.Duration
}

func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		users:         opts.Users,
		files:         opts.Files,
		transfers:     opts.Transfers,
		strategy:      opts.Strategy,
		authorizer:    opts.Authorizer,
		codec:         opts.Codec,
		logger:        opts.Logger.With("module", "dispatch"),
		tokenValidity: opts.TokenValidity,
	}
	if opts.TokenSecret != "" {
		d.tokenSecret = []byte(opts.TokenSecret)
		d.tokens = auth.NewTokenStrategy(opts.Users, d.tokenSecret)
	}
	return d
}

// Handle processes one raw request and returns the response to write, or
// "" when the handler streams its own messages (DWL, UPL). A panic inside
// a handler is converted to the canned 500; the connection stays up.
func (d *Dispatcher) Handle(ctx context.Context, raw string, sess Session) (resp string) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error(ctx, "handler panic", "panic", rec)
			resp = proto.RespServerError
		}
	}()

	req, err := proto.ParseRequest(raw)
	if err != nil {
		return proto.RespBadRequest
	}
	if req.Type != "" && req.Type != proto.TypeRequest {
		return proto.RespBadRequest
	}
	if req.Command == "" {
		return proto.RespBadRequest
	}

	d.logger.Debug(ctx, "request", "command", req.Command, "path", req.Path)

	switch req.Command {
	case "AUTH":
		return d.handleAuth(ctx, req, sess)
	case "TOUCH":
		return d.handleTouch(ctx, req, sess)
	case "MKDIR":
		return d.handleMkdir(ctx, req, sess)
	case "LS":
		return d.handleList(ctx, req, sess)
	case "RM":
		return d.handleRemove(ctx, req, sess)
	case "CREATEUSER":
		return d.handleCreateUser(ctx, req, sess)
	case "DELETEUSER":
		return d.handleDeleteUser(ctx, req, sess)
	case "CHUSER":
		return d.handleChangeUser(ctx, req, sess)
	case "USER":
		return d.handleUser(ctx, req, sess)
	case "DWL":
		return d.handleDownload(ctx, req, sess)
	case "DWLABORT":
		return d.handleDownloadAbort(ctx, req, sess)
	case "DWLPRI":
		return d.handleDownloadPriority(ctx, req, sess)
	case "UPL":
		return d.handleUpload(ctx, req, sess)
	case "UPLFIN":
		return d.handleUploadFinish(ctx, req, sess)
	default:
		// Unknown commands get an explicit rejection; a silent drop would
		// leave the client waiting forever.
		return proto.RespBadRequest
	}
}

// checkPathAuth resolves the sandbox policy for the request path. It
// returns "" when access is granted, otherwise the canned response to
// send back.
func (d *Dispatcher) checkPathAuth(sess Session, req *proto.Request) string {
	switch d.authorizer.Authorize(sess.Identity(), req.Path) {
	case authz.OK:
		return ""
	case authz.NoPath:
		return proto.RespBadRequest
	default:
		return proto.RespUnauthorized
	}
}

// isAdmin reports whether the session is authenticated as the superuser.
func (d *Dispatcher) isAdmin(sess Session) bool {
	u := sess.Identity()
	return u != nil && u.Username == d.authorizer.Superuser
}

func (d *Dispatcher) handleAuth(ctx context.Context, req *proto.Request, sess Session) string {
	if req.Username == "" {
		return proto.RespBadRequest
	}

	var (
		identity *users.User
		err      error
	)
	switch {
	case req.Token != "" && d.tokens != nil:
		identity, err = d.tokens.Authenticate(ctx, req.Username, req.Token)
	case req.Password != "":
		identity, err = d.strategy.Authenticate(ctx, req.Username, req.Password)
	default:
		return proto.RespBadRequest
	}
	if err != nil {
		d.logger.Warn(ctx, "auth failed", "username", req.Username)
		return proto.RespUnauthorized
	}

	sess.SetIdentity(identity)
	d.logger.Info(ctx, "authenticated", "username", identity.Username)

	token := ""
	if d.tokenSecret != nil {
		token, err = auth.GenerateToken(identity.Username, d.tokenSecret, d.tokenValidity)
		if err != nil {
			d.logger.Error(ctx, "token mint failed", "error", err)
			token = ""
		}
	}
	return proto.NewAuthResponse("Welcome "+identity.Username, token)
}

func (d *Dispatcher) handleTouch(ctx context.Context, req *proto.Request, sess Session) string {
	if denied := d.checkPathAuth(sess, req); denied != "" {
		return denied
	}
	if req.Name == "" {
		return proto.RespBadRequest
	}
	if err := d.files.CreateFile(ctx, req.Path, req.Name); err != nil {
		return proto.NewResponse(409, req.Command, err.Error())
	}
	return proto.NewResponse(200, req.Command, "File created")
}

func (d *Dispatcher) handleMkdir(ctx context.Context, req *proto.Request, sess Session) string {
	if denied := d.checkPathAuth(sess, req); denied != "" {
		return denied
	}
	if req.Name == "" {
		return proto.RespBadRequest
	}
	if err := d.files.CreateDirectory(ctx, req.Path, req.Name); err != nil {
		return proto.NewResponse(409, req.Command, err.Error())
	}
	return proto.NewResponse(200, req.Command, "Directory created")
}

func (d *Dispatcher) handleList(ctx context.Context, req *proto.Request, sess Session) string {
	if denied := d.checkPathAuth(sess, req); denied != "" {
		return denied
	}
	files, dirs, err := d.files.ListChildren(ctx, req.Path)
	if err != nil {
		return proto.NewResponse(409, req.Command, err.Error())
	}
	return proto.NewListResponse(req.Path, files, dirs)
}

func (d *Dispatcher) handleRemove(ctx context.Context, req *proto.Request, sess Session) string {
	if denied := d.checkPathAuth(sess, req); denied != "" {
		return denied
	}
	removed, err := d.files.RemoveRecursive(ctx, req.Path)
	if err != nil {
		return proto.NewResponse(409, req.Command, err.Error())
	}
	if removed == 0 {
		return proto.NewResponse(409, req.Command, "Path not found")
	}
	return proto.NewResponse(200, req.Command, req.Path+" deleted")
}

func (d *Dispatcher) handleCreateUser(ctx context.Context, req *proto.Request, sess Session) string {
	if !d.isAdmin(sess) {
		return proto.RespUnauthorized
	}
	if req.Username == "" || req.Password == "" || req.Public == nil || req.Private == nil {
		return proto.RespBadRequest
	}

	line, err := d.users.GetLine(ctx, req.Username)
	if err != nil {
		return proto.NewResponse(409, req.Command, "Something went wrong.")
	}
	if line != "" {
		return proto.NewResponse(406, req.Command, "Username is already used: "+req.Username)
	}

	secret, err := auth.HashSecret(req.Password)
	if err != nil {
		return proto.NewResponse(409, req.Command, "Something went wrong.")
	}
	err = d.users.Create(ctx, &users.User{
		Username:     req.Username,
		Secret:       secret,
		PublicQuota:  req.Public.Int(),
		PrivateQuota: req.Private.Int(),
	})
	if err != nil {
		return proto.NewResponse(409, req.Command, "Something went wrong.")
	}

	d.provisionSandbox(ctx, req.Username)

	d.logger.Info(ctx, "user created", "username", req.Username)
	return proto.NewResponse(200, req.Command, "User created: "+req.Username)
}

// provisionSandbox creates the new user's directory tree. Path policy only
// grants access under <username>/, so nobody could create these afterwards.
func (d *Dispatcher) provisionSandbox(ctx context.Context, username string) {
	if err := d.files.CreateDirectory(ctx, "", username); err != nil {
		d.logger.Warn(ctx, "sandbox provisioning failed", "username", username, "error", err)
		return
	}
	for _, category := range []string{"public", "private"} {
		if err := d.files.CreateDirectory(ctx, username, category); err != nil {
			d.logger.Warn(ctx, "sandbox provisioning failed", "username", username, "error", err)
		}
	}
}

func (d *Dispatcher) handleDeleteUser(ctx context.Context, req *proto.Request, sess Session) string {
	if !d.isAdmin(sess) {
		return proto.RespUnauthorized
	}
	if req.Username == "" {
		return proto.RespBadRequest
	}
	if err := d.users.Delete(ctx, req.Username); err != nil {
		return proto.NewResponse(409, req.Command, "User has NOT been deleted: "+req.Username)
	}
	d.logger.Info(ctx, "user deleted", "username", req.Username)
	return proto.NewResponse(200, req.Command, "User has been deleted: "+req.Username)
}

func (d *Dispatcher) handleChangeUser(ctx context.Context, req *proto.Request, sess Session) string {
	if !d.isAdmin(sess) {
		return proto.RespUnauthorized
	}
	if req.Username == "" || req.Password == "" || req.Public == nil || req.Private == nil {
		return proto.RespBadRequest
	}

	secret, err := auth.HashSecret(req.Password)
	if err != nil {
		return proto.NewResponse(409, req.Command, "User not altered: "+req.Username)
	}
	if err := d.users.Alter(ctx, req.Username, secret, req.Public.Int(), req.Private.Int()); err != nil {
		return proto.NewResponse(409, req.Command, "User not altered: "+req.Username)
	}
	return proto.NewResponse(200, req.Command, "User altered: "+req.Username)
}

// userRecord is the USER response payload. The stored secret stays out of
// it.
type userRecord struct {
	Username     string  `json:"username"`
	PublicQuota  int     `json:"public"`
	PrivateQuota int     `json:"private"`
	PublicUsed   float64 `json:"publicUsed"`
	PrivateUsed  float64 `json:"privateUsed"`
}

func (d *Dispatcher) handleUser(ctx context.Context, req *proto.Request, sess Session) string {
	if !d.isAdmin(sess) {
		return proto.RespUnauthorized
	}
	if req.Username == "" {
		return proto.RespBadRequest
	}

	u, err := d.users.Find(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return proto.NewResponse(404, req.Command, "User not found.")
		}
		return proto.RespServerError
	}
	return proto.NewResponse(200, req.Command, userRecord{
		Username:     u.Username,
		PublicQuota:  u.PublicQuota,
		PrivateQuota: u.PrivateQuota,
		PublicUsed:   u.PublicUsed,
		PrivateUsed:  u.PrivateUsed,
	})
}

func (d *Dispatcher) handleDownload(ctx context.Context, req *proto.Request, sess Session) string {
	if denied := d.checkPathAuth(sess, req); denied != "" {
		return denied
	}
	priority := req.Priority.Int()
	if priority < 1 || priority > 10 {
		return proto.RespBadRequest
	}

	if _, err := d.transfers.StartDownload(ctx, req.Path, sess, priority); err != nil {
		return proto.NewResponse(409, req.Command, err.Error())
	}
	// The first chunk is already on its way; there is no direct reply.
	return ""
}

func (d *Dispatcher) handleDownloadAbort(ctx context.Context, req *proto.Request, sess Session) string {
	if denied := d.checkPathAuth(sess, req); denied != "" {
		return denied
	}
	if err := d.transfers.Abort(req.Path); err != nil {
		return proto.NewResponse(409, req.Command, req.Path)
	}
	return proto.NewResponse(200, req.Command, req.Path)
}

func (d *Dispatcher) handleDownloadPriority(ctx context.Context, req *proto.Request, sess Session) string {
	if denied := d.checkPathAuth(sess, req); denied != "" {
		return denied
	}
	priority := req.Priority.Int()
	if priority < 1 || priority > 10 {
		return proto.RespBadRequest
	}
	if err := d.transfers.SetPriority(req.Path, priority); err != nil {
		return proto.NewResponse(409, req.Command, req.Path)
	}
	return proto.NewResponse(200, req.Command, req.Path)
}

func (d *Dispatcher) handleUpload(ctx context.Context, req *proto.Request, sess Session) string {
	if denied := d.checkPathAuth(sess, req); denied != "" {
		return denied
	}
	if req.Name == "" {
		return proto.RespBadRequest
	}
	data, err := d.codec.Decode(req.Data)
	if err != nil {
		return proto.RespBadRequest
	}

	if err := d.transfers.AppendUpload(ctx, req.Path, req.Name, data, sess); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return proto.NewResponse(409, req.Command, err.Error())
		}
		return proto.RespServerError
	}
	return ""
}

func (d *Dispatcher) handleUploadFinish(ctx context.Context, req *proto.Request, sess Session) string {
	if denied := d.checkPathAuth(sess, req); denied != "" {
		return denied
	}
	if req.Name == "" {
		return proto.RespBadRequest
	}

	size, err := d.transfers.FinishUpload(ctx, req.Path, req.Name, sess)
	if err != nil {
		return proto.NewResponse(409, req.Command, req.Path+"/"+req.Name)
	}

	d.recordUsage(ctx, req.Path, float64(size))
	return proto.NewResponse(200, req.Command, req.Path+"/"+req.Name)
}

// recordUsage adds the finalized upload size to the sandbox owner's used
// counters. Best-effort: accounting failure never fails the upload.
func (d *Dispatcher) recordUsage(ctx context.Context, logicalPath string, size float64) {
	parts := strings.SplitN(logicalPath, "/", 3)
	owner := parts[0]
	category := ""
	if len(parts) > 1 {
		category = parts[1]
	}

	var err error
	if category == "public" {
		err = d.users.AddUsage(ctx, owner, size, 0)
	} else {
		err = d.users.AddUsage(ctx, owner, 0, size)
	}
	if err != nil {
		d.logger.Warn(ctx, "usage accounting failed", "owner", owner, "error", err)
	}
}
