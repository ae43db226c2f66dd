package detectionHandler

import (
	contextPkg "ProjectDetect/pkg/context"
	"ProjectDetect/pkg/log"
	"context"

	"github.com/gofiber/fiber/v2"
)

func (h *DetectionHandler) DetectJSON(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)

	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.apiTimeout)
	defer cancel()

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing detection request")

	result, err := h.detectionService.Detect(c, formFile(ctx))

	select {
	case <-c.Done():
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"timeout":    h.apiTimeout.String(),
		}).Warn("Detection request timed out")
		return h.errHandler.HandleRequestTimeout(ctx)
	default:
	}

	if err != nil {
		return h.errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"detections": len(result.Detections),
	}).Info("Detection successful")

	return h.errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}
