// Package services holds the access gateway, the single entry point through
// which transports upload, read, share and delete files, and the sharing
// ledger it delegates permission bookkeeping to.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/cryptox"
	"github.com/dmitrijs2005/sharekeeper/internal/filex"
	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/sharekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// EventPublisher delivers a notification to the live sessions of userID.
type EventPublisher interface {
	Publish(userID, eventType string, payload any) int
}

// AuditSink receives every access-log entry after it is committed.
type AuditSink interface {
	Record(ctx context.Context, e models.AccessLogEntry)
}

// Requester identifies the authenticated caller of a gateway operation.
type Requester struct {
	UserID        string
	SourceAddress string
}

// Options tunes the gateway. Zero values select the defaults.
type Options struct {
	SpoolDir             string
	RecentAccessLimit    int
	CompensationAttempts int
	CompensationBackoff  time.Duration
}

// Plaintext is a verified, decrypted file. Closing Body removes the
// temporary copy.
type Plaintext struct {
	File *models.EncryptedFile
	Body io.ReadCloser
}

// FileDetails is the result of ViewMetadata.
type FileDetails struct {
	File         *models.EncryptedFile    `json:"file"`
	Level        models.PermissionLevel   `json:"level"`
	RecentAccess []*models.AccessLogEntry `json:"recent_access"`
}

// ShareResult lists the grants created or updated by Share and the grantees
// that were skipped.
type ShareResult struct {
	Grants   []*models.ShareGrant `json:"grants"`
	Failures []GrantFailure       `json:"failures"`
}

// Gateway authorizes and performs every file operation on behalf of a
// requester.
type Gateway struct {
	repos   repomanager.RepositoryManager
	ledger  *Ledger
	blobs   blobstore.BlobStore
	engine  *cryptox.Engine
	events  EventPublisher
	audit   AuditSink
	log     logging.Logger
	metrics *metrics.Metrics
	locks   *KeyedMutex
	opts    Options
	now     func() time.Time
}

// NewGateway wires the gateway to its stores, cipher engine and event bus.
func NewGateway(repos repomanager.RepositoryManager, blobs blobstore.BlobStore, engine *cryptox.Engine,
	events EventPublisher, log logging.Logger, m *metrics.Metrics, opts Options) *Gateway {

	if opts.RecentAccessLimit <= 0 {
		opts.RecentAccessLimit = 10
	}
	if opts.CompensationAttempts <= 0 {
		opts.CompensationAttempts = 3
	}
	if opts.CompensationBackoff <= 0 {
		opts.CompensationBackoff = 100 * time.Millisecond
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Gateway{
		repos:   repos,
		ledger:  NewLedger(repos),
		blobs:   blobs,
		engine:  engine,
		events:  events,
		log:     log.With("module", "gateway"),
		metrics: m,
		locks:   NewKeyedMutex(),
		opts:    opts,
		now:     time.Now,
	}
}

// SetAuditSink mirrors committed access-log entries to a.
func (g *Gateway) SetAuditSink(a AuditSink) { g.audit = a }

// Ledger exposes the sharing ledger bound to the shared connection.
func (g *Gateway) Ledger() *Ledger { return g.ledger }

// EnsureUser records an authenticated identity in the user directory.
func (g *Gateway) EnsureUser(ctx context.Context, userID, userName string) error {
	if userID == "" {
		return common.ErrorUnauthorized
	}
	return g.repos.Users().Upsert(ctx, &models.User{ID: userID, UserName: userName})
}

// Upload encrypts r and stores it as a new file owned by the requester. The
// blob and the record are created together: if the record cannot be written
// the blob is removed again.
func (g *Gateway) Upload(ctx context.Context, req Requester, name, mimeType string, r io.Reader) (_ *models.EncryptedFile, err error) {
	defer g.observe("upload", &err)

	if req.UserID == "" {
		return nil, common.ErrorUnauthorized
	}
	name = sanitizeName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: file name is empty", common.ErrInvalidArgument)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	spool, err := filex.NewSpool(g.opts.SpoolDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageIO, err)
	}
	defer spool.Discard()

	sealed, err := g.engine.Encrypt(spool, filex.ContextReader(ctx, r))
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(sealed.Key)

	ciphertext, err := spool.Rewind()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageIO, err)
	}

	now := g.now().UTC()
	file := &models.EncryptedFile{
		ID:              uuid.NewString(),
		OwnerID:         req.UserID,
		OriginalName:    name,
		MimeType:        mimeType,
		PlaintextSize:   sealed.PlaintextSize,
		StoredSize:      sealed.CiphertextSize,
		Digest:          sealed.Digest,
		CipherAlgorithm: sealed.Algorithm,
		CipherKey:       append([]byte(nil), sealed.Key...),
		CipherIV:        sealed.IV,
		CreatedAt:       now,
		LastAccessedAt:  now,
		StorageLocator:  blobstore.NewLocator(now),
	}

	if err := g.blobs.Put(ctx, file.StorageLocator, ciphertext, sealed.CiphertextSize); err != nil {
		return nil, err
	}

	entry := g.entry(file.ID, req, models.ActionUpload)
	err = g.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if err := r.Users().Upsert(ctx, &models.User{ID: req.UserID}); err != nil {
			return err
		}
		if err := r.Files().Create(ctx, file); err != nil {
			return err
		}
		return r.AccessLog().Append(ctx, entry)
	})
	if err != nil {
		if cerr := g.removeBlob(ctx, file.StorageLocator); cerr != nil {
			g.log.Error(ctx, "orphaned ciphertext after failed upload",
				"locator", file.StorageLocator, "file_id", file.ID, "record_error", err, "error", cerr)
			return nil, fmt.Errorf("%w: upload could not be completed", common.ErrStorageIO)
		}
		return nil, err
	}

	g.recordAudit(ctx, entry)
	g.log.Info(ctx, "file uploaded", "file_id", file.ID, "owner_id", file.OwnerID, "size", file.PlaintextSize)
	g.publish(file.OwnerID, models.EventFileUploaded, fileEvent{File: file.Summary()})

	return redact(file), nil
}

// Download decrypts the file into a temporary copy and verifies it before
// handing it out. Access is checked again under the file lock before the
// download is logged, so a file deleted or unshared meanwhile is not returned.
// The caller must close Body.
func (g *Gateway) Download(ctx context.Context, req Requester, fileID string) (_ *Plaintext, err error) {
	defer g.observe("download", &err)

	file, _, err := g.authorize(ctx, g.ledger, req, fileID, models.LevelDownload)
	if err != nil {
		return nil, err
	}

	blob, err := g.blobs.Get(ctx, file.StorageLocator)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	spool, err := filex.NewSpool(g.opts.SpoolDir, "plain-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageIO, err)
	}

	params := cryptox.Params{Algorithm: file.CipherAlgorithm, Key: file.CipherKey, IV: file.CipherIV}
	if err := cryptox.Decrypt(spool, filex.ContextReader(ctx, blob), params, file.Digest); err != nil {
		spool.Discard()
		if errors.Is(err, common.ErrIntegrity) {
			g.log.Error(ctx, "integrity check failed", "file_id", file.ID, "user_id", req.UserID)
		}
		return nil, err
	}

	entry := g.entry(file.ID, req, models.ActionDownload)
	unlock := g.locks.Lock(file.ID)
	err = g.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if _, _, err := g.authorize(ctx, g.ledger.bind(r), req, file.ID, models.LevelDownload); err != nil {
			return err
		}
		if err := r.AccessLog().Append(ctx, entry); err != nil {
			return err
		}
		return r.Files().TouchAccessed(ctx, file.ID, entry.CreatedAt)
	})
	unlock()
	if err != nil {
		spool.Discard()
		return nil, err
	}

	body, err := spool.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageIO, err)
	}

	g.recordAudit(ctx, entry)
	return &Plaintext{File: redact(file), Body: body}, nil
}

// ViewMetadata returns the file's metadata, the requester's level and the
// most recent access-log rows. It does not touch the ciphertext.
func (g *Gateway) ViewMetadata(ctx context.Context, req Requester, fileID string) (_ *FileDetails, err error) {
	defer g.observe("view", &err)

	file, level, err := g.authorize(ctx, g.ledger, req, fileID, models.LevelView)
	if err != nil {
		return nil, err
	}

	entry := g.entry(file.ID, req, models.ActionView)
	var recent []*models.AccessLogEntry
	unlock := g.locks.Lock(file.ID)
	err = g.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		if file, level, err = g.authorize(ctx, g.ledger.bind(r), req, file.ID, models.LevelView); err != nil {
			return err
		}
		if err := r.AccessLog().Append(ctx, entry); err != nil {
			return err
		}
		recent, err = r.AccessLog().ListRecent(ctx, file.ID, g.opts.RecentAccessLimit)
		return err
	})
	unlock()
	if err != nil {
		return nil, err
	}

	g.recordAudit(ctx, entry)
	return &FileDetails{File: redact(file), Level: level, RecentAccess: recent}, nil
}

// Delete removes a file with its grants and access log. Only the owner may
// delete. The ciphertext is removed after the records are gone; a blob that
// cannot be removed is logged for cleanup and does not fail the call.
func (g *Gateway) Delete(ctx context.Context, req Requester, fileID string) (err error) {
	defer g.observe("delete", &err)

	file, entry, grantees, err := g.deleteRecords(ctx, req, fileID)
	if err != nil {
		return err
	}

	g.recordAudit(ctx, entry)
	if err := g.removeBlob(ctx, file.StorageLocator); err != nil {
		g.log.Error(ctx, "ciphertext left after delete", "locator", file.StorageLocator, "file_id", file.ID, "error", err)
	}
	g.log.Info(ctx, "file deleted", "file_id", file.ID, "grants_removed", len(grantees))

	payload := fileEvent{File: file.Summary()}
	g.publish(file.OwnerID, models.EventFileDeleted, payload)
	for _, id := range grantees {
		g.publish(id, models.EventFileDeleted, payload)
	}
	return nil
}

// deleteRecords removes the file record, its grants and its access log under
// the file lock. It returns the removed file and the ids of its grantees.
func (g *Gateway) deleteRecords(ctx context.Context, req Requester, fileID string) (*models.EncryptedFile, *models.AccessLogEntry, []string, error) {
	unlock := g.locks.Lock(fileID)
	defer unlock()

	file, err := g.requireOwner(ctx, g.ledger, req, fileID)
	if err != nil {
		return nil, nil, nil, err
	}

	entry := g.entry(file.ID, req, models.ActionDelete)
	var grantees []string
	err = g.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		grants, err := r.Shares().ListByFile(ctx, file.ID)
		if err != nil {
			return err
		}
		for _, gr := range grants {
			grantees = append(grantees, gr.GranteeID)
		}

		if err := r.AccessLog().Append(ctx, entry); err != nil {
			return err
		}
		if _, err := g.ledger.bind(r).CascadeDeleteForFile(ctx, file.ID); err != nil {
			return err
		}
		if _, err := r.AccessLog().DeleteByFile(ctx, file.ID); err != nil {
			return err
		}
		ok, err := r.Files().Delete(ctx, file.ID)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrorNotFound
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return file, entry, grantees, nil
}

// Share grants granteeIDs access to the requester's file. Each successful
// grantee is notified.
func (g *Gateway) Share(ctx context.Context, req Requester, fileID string, granteeIDs []string,
	level models.PermissionLevel, note string) (_ *ShareResult, err error) {
	defer g.observe("share", &err)

	unlock := g.locks.Lock(fileID)
	defer unlock()

	file, err := g.requireOwner(ctx, g.ledger, req, fileID)
	if err != nil {
		return nil, err
	}

	result := &ShareResult{}
	err = g.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		result.Grants, result.Failures, err = g.ledger.bind(r).Grant(ctx, file.ID, req.UserID, granteeIDs, level, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	grantor := models.User{ID: req.UserID}
	if u, err := g.repos.Users().GetByID(ctx, req.UserID); err == nil {
		grantor = *u
	}
	for _, gr := range result.Grants {
		g.publish(gr.GranteeID, models.EventFileSharedWithYou, shareEvent{
			GrantID: gr.ID,
			Level:   gr.Level,
			Note:    gr.Note,
			File:    file.Summary(),
			Grantor: grantor,
		})
	}
	for _, f := range result.Failures {
		g.log.Info(ctx, "grantee skipped", "file_id", file.ID, "grantee_id", f.GranteeID, "reason", f.Err)
	}
	return result, nil
}

// Revoke removes a grant. Only the owner of the shared file may revoke.
func (g *Gateway) Revoke(ctx context.Context, req Requester, grantID string) (err error) {
	defer g.observe("revoke", &err)

	grant, err := g.ledger.GetGrant(ctx, grantID)
	if err != nil {
		return err
	}

	unlock := g.locks.Lock(grant.FileID)
	defer unlock()

	file, err := g.repos.Files().Get(ctx, grant.FileID)
	if err != nil {
		return err
	}
	if file.OwnerID != req.UserID {
		if grant.GranteeID == req.UserID {
			return fmt.Errorf("%w: only the owner can revoke a share", common.ErrPermission)
		}
		return common.ErrorNotFound
	}

	ok, err := g.ledger.Revoke(ctx, grantID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorNotFound
	}

	g.publish(grant.GranteeID, models.EventShareRevoked, revokeEvent{GrantID: grant.ID, FileID: grant.FileID})
	return nil
}

// MarkViewed records that the grantee has seen the share. Repeated calls
// succeed.
func (g *Gateway) MarkViewed(ctx context.Context, req Requester, grantID string) (err error) {
	defer g.observe("mark_viewed", &err)

	grant, err := g.ledger.GetGrant(ctx, grantID)
	if err != nil {
		return err
	}
	if grant.GranteeID != req.UserID {
		if grant.GrantorID == req.UserID {
			return fmt.Errorf("%w: only the recipient can mark a share as viewed", common.ErrPermission)
		}
		return common.ErrorNotFound
	}

	unlock := g.locks.Lock(grant.FileID)
	defer unlock()

	ok, err := g.ledger.MarkViewed(ctx, grantID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

// ListOwned returns the requester's files without key material.
func (g *Gateway) ListOwned(ctx context.Context, req Requester) ([]*models.EncryptedFile, error) {
	files, err := g.repos.Files().ListByOwner(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	for i, f := range files {
		files[i] = redact(f)
	}
	return files, nil
}

// ListSharedWithMe returns the files other users have shared with the requester.
func (g *Gateway) ListSharedWithMe(ctx context.Context, req Requester) ([]*models.SharedFile, error) {
	return g.ledger.ListGrantedToMe(ctx, req.UserID)
}

// ListSharedByMe returns the grants the requester has handed out.
func (g *Gateway) ListSharedByMe(ctx context.Context, req Requester) ([]*models.SharedFile, error) {
	return g.ledger.ListGrantedByMe(ctx, req.UserID)
}

// authorize loads the file and checks the requester's level. A requester with
// no access at all gets ErrorNotFound; one with too low a level gets
// ErrPermission.
func (g *Gateway) authorize(ctx context.Context, l *Ledger, req Requester, fileID string,
	required models.PermissionLevel) (*models.EncryptedFile, models.PermissionLevel, error) {

	file, level, err := l.resolve(ctx, fileID, req.UserID)
	if err != nil {
		return nil, models.LevelNone, err
	}
	if level == models.LevelNone {
		return nil, models.LevelNone, common.ErrorNotFound
	}
	if !level.Allows(required) {
		return nil, level, fmt.Errorf("%w: %s access required", common.ErrPermission, required)
	}
	return file, level, nil
}

func (g *Gateway) requireOwner(ctx context.Context, l *Ledger, req Requester, fileID string) (*models.EncryptedFile, error) {
	file, _, err := g.authorize(ctx, l, req, fileID, models.LevelView)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != req.UserID {
		return nil, fmt.Errorf("%w: only the owner can do this", common.ErrPermission)
	}
	return file, nil
}

// removeBlob deletes a blob, retrying with linear backoff. It keeps going
// after ctx is cancelled so cleanup is not cut short by a disconnect.
func (g *Gateway) removeBlob(ctx context.Context, locator string) error {
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= g.opts.CompensationAttempts; attempt++ {
		if err = g.blobs.Delete(ctx, locator); err == nil {
			return nil
		}
		g.log.Warn(ctx, "blob delete failed", "locator", locator, "attempt", attempt, "error", err)
		if attempt < g.opts.CompensationAttempts {
			time.Sleep(time.Duration(attempt) * g.opts.CompensationBackoff)
		}
	}
	g.metrics.CompensationFailed()
	return err
}

func (g *Gateway) entry(fileID string, req Requester, action models.AccessAction) *models.AccessLogEntry {
	return &models.AccessLogEntry{
		FileID:        fileID,
		UserID:        req.UserID,
		Action:        action,
		SourceAddress: req.SourceAddress,
		CreatedAt:     g.now().UTC(),
	}
}

func (g *Gateway) recordAudit(ctx context.Context, e *models.AccessLogEntry) {
	if g.audit != nil {
		g.audit.Record(ctx, *e)
	}
}

func (g *Gateway) publish(userID, eventType string, payload any) {
	if g.events == nil {
		return
	}
	g.events.Publish(userID, eventType, payload)
}

func (g *Gateway) observe(op string, err *error) {
	result := "ok"
	if *err != nil {
		result = common.Code(*err)
	}
	g.metrics.Operation(op, result)
}

// redact returns a copy of f without key material.
func redact(f *models.EncryptedFile) *models.EncryptedFile {
	out := *f
	out.CipherKey = nil
	out.CipherIV = nil
	return &out
}

type fileEvent struct {
	File models.FileSummary `json:"file"`
}

type shareEvent struct {
	GrantID string                 `json:"grant_id"`
	Level   models.PermissionLevel `json:"level"`
	Note    string                 `json:"note,omitempty"`
	File    models.FileSummary     `json:"file"`
	Grantor models.User            `json:"grantor"`
}

type revokeEvent struct {
	GrantID string `json:"grant_id"`
	FileID  string `json:"file_id"`
}
