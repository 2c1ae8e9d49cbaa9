package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/gin-gonic/gin"
)

var statusByCode = map[string]int{
	common.CodeNotFound:        http.StatusNotFound,
	common.CodePermission:      http.StatusForbidden,
	common.CodeIntegrity:       http.StatusInternalServerError,
	common.CodeEncryption:      http.StatusInternalServerError,
	common.CodeDecryption:      http.StatusInternalServerError,
	common.CodeConflict:        http.StatusConflict,
	common.CodeStorageIO:       http.StatusServiceUnavailable,
	common.CodeInvalidArgument: http.StatusBadRequest,
	common.CodeUnauthorized:    http.StatusUnauthorized,
	common.CodeInternal:        http.StatusInternalServerError,
}

// HTTPStatus maps err to the response status used by the REST adapter.
func HTTPStatus(err error) int {
	if s, ok := statusByCode[common.Code(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func abortWithCode(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "error": msg})
}

// abortWithError writes err as {"code", "error"}. Internal errors are
// reported without detail.
func (s *Server) abortWithError(c *gin.Context, op string, err error) {
	code := common.Code(err)
	msg := err.Error()
	if code == common.CodeInternal {
		msg = "internal error"
		s.logger.Error(c.Request.Context(), op+" failed", "error", err)
	}
	abortWithCode(c, HTTPStatus(err), code, msg)
}
