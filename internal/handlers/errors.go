package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/k-lamby/taskTEST-sub000/internal/services"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/pkg/response"
)

// serviceError maps a service-layer error onto the HTTP envelope: validation
// failures are 400, membership refusals 403, missing documents 404, an
// unreachable store 503, and a partial write 500 with the classification
// preserved in the message.
func serviceError(c *gin.Context, err error) {
	var validation *services.ValidationError
	var storeErr *services.StoreError
	var partial *services.PartialWriteError

	switch {
	case errors.As(err, &validation):
		response.BadRequest(c, validation.Error())
	case errors.Is(err, services.ErrNotProjectMember):
		response.Forbidden(c, err.Error())
	case errors.Is(err, store.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.As(err, &storeErr):
		response.Error(c, response.NewUnavailable(storeErr.Error()))
	case errors.As(err, &partial):
		response.ServerError(c, partial.Error())
	default:
		response.ServerError(c, err.Error())
	}
}
