package delivery

import (
	"errors"
	"net/http"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/remote"
	"taskflow-backend/internal/task/usecase"

	"github.com/gin-gonic/gin"
)

// respond writes payload with status, or 202 with a warning when only the mirror lags
func respond(c *gin.Context, status int, payload interface{}, err error) {
	if err == nil {
		c.JSON(status, payload)
		return
	}
	if usecase.IsStale(err) {
		c.JSON(http.StatusAccepted, gin.H{
			"mirror_stale": true,
			"warning":      err.Error(),
			"result":       payload,
		})
		return
	}
	respondError(c, err)
}

// respondError maps usecase errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var remoteErr *remote.Error
	switch {
	case usecase.IsStale(err):
		return http.StatusAccepted
	case errors.Is(err, usecase.ErrTaskNotFound), errors.Is(err, usecase.ErrWorkNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrMissingDueDates), errors.Is(err, usecase.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &remoteErr), errors.Is(err, domain.ErrRemoteNotFound):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// bulkResponse flattens a BulkResult for JSON
type bulkResponse struct {
	Succeeded []string          `json:"succeeded"`
	Stale     []string          `json:"stale,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
}

func newBulkResponse(result usecase.BulkResult) bulkResponse {
	resp := bulkResponse{Succeeded: result.Succeeded()}
	if resp.Succeeded == nil {
		resp.Succeeded = []string{}
	}
	for _, id := range resp.Succeeded {
		if result[id] != nil {
			resp.Stale = append(resp.Stale, id)
		}
	}
	if failed := result.Failed(); len(failed) > 0 {
		resp.Failed = make(map[string]string, len(failed))
		for id, err := range failed {
			resp.Failed[id] = err.Error()
		}
	}
	return resp
}

func respondBulk(c *gin.Context, result usecase.BulkResult) {
	resp := newBulkResponse(result)
	status := http.StatusOK
	if len(resp.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}
