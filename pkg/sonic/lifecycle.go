package sonic

import (
	"context"
	"time"
)

// CloseSession tears a session down in protocol order: contentEnd, then
// promptEnd, then sessionEnd, with a settle delay after each so the
// frame source can flush before the stream goes away. Idempotent and
// safe on missing sessions; concurrent calls collapse into one
// teardown. Mid-sequence failures still deregister the session.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	s := c.get(id)
	if s == nil {
		return nil
	}
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	defer s.closing.Store(false)

	if err := c.closeInOrder(ctx, s); err != nil {
		c.logger.Error("error during session teardown", "session_id", id, "error", err)
		c.finalize(s)
	}
	return nil
}

func (c *Client) closeInOrder(ctx context.Context, s *session) error {
	if err := c.sendContentEnd(ctx, s); err != nil {
		return err
	}
	if err := c.sendPromptEnd(ctx, s); err != nil {
		return err
	}
	return c.sendSessionEnd(ctx, s)
}

// ForceCloseSession abandons a session without the protocol goodbye:
// deactivate, wake the consumer, deregister. Safe on missing sessions.
func (c *Client) ForceCloseSession(id string) {
	s := c.get(id)
	if s == nil {
		return
	}
	if !s.closing.CompareAndSwap(false, true) {
		return
	}
	defer s.closing.Store(false)

	c.finalize(s)
	c.logger.Info("session force closed", "session_id", id)
}

func (c *Client) sendContentEnd(ctx context.Context, s *session) error {
	s.mu.Lock()
	started := s.audioStartSent
	s.audioStartSent = false
	s.mu.Unlock()
	if !started {
		return nil
	}
	c.enqueue(s, contentEndFrame(s.promptName, s.audioContentID))
	return wait(ctx, c.cfg.ContentEndDelay)
}

func (c *Client) sendPromptEnd(ctx context.Context, s *session) error {
	s.mu.Lock()
	started := s.promptStartSent
	s.promptStartSent = false
	s.mu.Unlock()
	if !started {
		return nil
	}
	c.enqueue(s, promptEndFrame(s.promptName))
	return wait(ctx, c.cfg.PromptEndDelay)
}

func (c *Client) sendSessionEnd(ctx context.Context, s *session) error {
	c.enqueue(s, sessionEndFrame())
	err := wait(ctx, c.cfg.SessionEndDelay)
	c.finalize(s)
	return err
}

// finalize deactivates the session, releases the frame source, and drops
// it from the registry.
func (c *Client) finalize(s *session) {
	s.active.Store(false)
	s.queue.close()
	c.removeSession(s.id)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
