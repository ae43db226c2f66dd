package detectionHandler

import (
	contextPkg "ProjectDetect/pkg/context"
	"ProjectDetect/pkg/handlerUtil"
	"ProjectDetect/pkg/log"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
)

const imageField = "image"

func (h *DetectionHandler) Index(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)

	flashes, err := h.middleware.PopFlashes(ctx)
	if err != nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to read flash messages")
	}

	return ctx.Render("index", fiber.Map{
		"Flashes": flashes,
	})
}

func (h *DetectionHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	result, err := h.detectionService.Detect(c, formFile(ctx))
	if err != nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"error":      err.Error(),
		}).Warn("Detection rejected")

		if flashErr := h.middleware.AddFlash(ctx, handlerUtil.FlashMessage(err)); flashErr != nil {
			return h.errHandler.Handle(ctx, requestID, flashErr, ctx.Path(), "add_flash")
		}
		return ctx.Redirect("/", fiber.StatusFound)
	}

	return ctx.Render("result", fiber.Map{
		"InputImage":  result.InputImage,
		"OutputImage": result.OutputImage,
		"Detections":  result.Detections,
	})
}

// Warmup forces the model to load and answers in plain text.
func (h *DetectionHandler) Warmup(ctx *fiber.Ctx) error {
	if err := h.detectionService.Warmup(contextPkg.FromFiberCtx(ctx)); err != nil {
		h.log.WithFields(log.Fields{
			"request_id": h.middleware.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Warmup failed")
		return ctx.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}

	return ctx.SendString("ok")
}

func (h *DetectionHandler) Health(ctx *fiber.Ctx) error {
	return h.errHandler.HandleSuccess(ctx, fiber.StatusOK, h.detectionService.Health())
}

// formFile returns the uploaded image, nil when the form has no such field, or
// an empty header when the field was submitted without choosing a file.
func formFile(ctx *fiber.Ctx) *multipart.FileHeader {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil
	}

	if files := form.File[imageField]; len(files) > 0 {
		return files[0]
	}

	// Browsers send an unselected file input as a part with an empty
	// filename, which the multipart reader files under values.
	if _, ok := form.Value[imageField]; ok {
		return &multipart.FileHeader{}
	}

	return nil
}
