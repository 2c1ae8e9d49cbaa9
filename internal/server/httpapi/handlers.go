package httpapi

import (
	"mime"
	"net/http"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/dmitrijs2005/sharekeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

type listResponse[T any] struct {
	Data []T `json:"data"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Data: items}
}

type shareRequest struct {
	GranteeIDs []string               `json:"grantee_ids" binding:"required,min=1"`
	Level      models.PermissionLevel `json:"level"`
	Note       string                 `json:"note"`
}

type shareFailure struct {
	GranteeID string `json:"grantee_id"`
	Code      string `json:"code"`
	Error     string `json:"error"`
}

type shareResponse struct {
	Grants   []*models.ShareGrant `json:"grants"`
	Failures []shareFailure       `json:"failures"`
}

func requester(c *gin.Context) services.Requester {
	return services.Requester{UserID: c.GetString(ctxUserID), SourceAddress: c.ClientIP()}
}

func (s *Server) uploadHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		abortWithCode(c, http.StatusBadRequest, common.CodeInvalidArgument, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		abortWithCode(c, http.StatusBadRequest, common.CodeInvalidArgument, "cannot read file")
		return
	}
	defer f.Close()

	file, err := s.files.Upload(c.Request.Context(), requester(c), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		s.abortWithError(c, "upload", err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (s *Server) listOwnedHandler(c *gin.Context) {
	files, err := s.files.ListOwned(c.Request.Context(), requester(c))
	if err != nil {
		s.abortWithError(c, "list owned", err)
		return
	}
	c.JSON(http.StatusOK, newList(files))
}

func (s *Server) viewHandler(c *gin.Context) {
	details, err := s.files.ViewMetadata(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		s.abortWithError(c, "view", err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *Server) downloadHandler(c *gin.Context) {
	p, err := s.files.Download(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		s.abortWithError(c, "download", err)
		return
	}
	defer p.Body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": p.File.OriginalName})
	c.DataFromReader(http.StatusOK, p.File.PlaintextSize, p.File.MimeType, p.Body,
		map[string]string{"Content-Disposition": disposition})
}

func (s *Server) deleteHandler(c *gin.Context) {
	if err := s.files.Delete(c.Request.Context(), requester(c), c.Param("id")); err != nil {
		s.abortWithError(c, "delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) shareHandler(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithCode(c, http.StatusBadRequest, common.CodeInvalidArgument, err.Error())
		return
	}

	res, err := s.files.Share(c.Request.Context(), requester(c), c.Param("id"), req.GranteeIDs, req.Level, req.Note)
	if err != nil {
		s.abortWithError(c, "share", err)
		return
	}

	out := shareResponse{Grants: res.Grants, Failures: make([]shareFailure, 0, len(res.Failures))}
	if out.Grants == nil {
		out.Grants = []*models.ShareGrant{}
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, shareFailure{
			GranteeID: f.GranteeID,
			Code:      common.Code(f.Err),
			Error:     f.Err.Error(),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) revokeHandler(c *gin.Context) {
	if err := s.files.Revoke(c.Request.Context(), requester(c), c.Param("id")); err != nil {
		s.abortWithError(c, "revoke", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) receivedHandler(c *gin.Context) {
	shared, err := s.files.ListSharedWithMe(c.Request.Context(), requester(c))
	if err != nil {
		s.abortWithError(c, "list received", err)
		return
	}
	c.JSON(http.StatusOK, newList(shared))
}

func (s *Server) sentHandler(c *gin.Context) {
	shared, err := s.files.ListSharedByMe(c.Request.Context(), requester(c))
	if err != nil {
		s.abortWithError(c, "list sent", err)
		return
	}
	c.JSON(http.StatusOK, newList(shared))
}

func (s *Server) markViewedHandler(c *gin.Context) {
	if err := s.files.MarkViewed(c.Request.Context(), requester(c), c.Param("id")); err != nil {
		s.abortWithError(c, "mark viewed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
