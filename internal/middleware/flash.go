package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

const flashKey = "_flashes"

// AddFlash queues a one-shot message for the next page render of this
// browser session.
func (m *middleware) AddFlash(ctx *fiber.Ctx, message string) error {
	sess, err := m.sessions.Get(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	flashes, _ := sess.Get(flashKey).([]string)
	sess.Set(flashKey, append(flashes, message))

	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// PopFlashes returns the queued messages in insertion order and clears them.
func (m *middleware) PopFlashes(ctx *fiber.Ctx) ([]string, error) {
	sess, err := m.sessions.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	flashes, _ := sess.Get(flashKey).([]string)
	if len(flashes) == 0 {
		return nil, nil
	}

	sess.Delete(flashKey)
	if err := sess.Save(); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return flashes, nil
}
