package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrNotLoaded = errors.New("model not loaded")

// Provider owns the process' model handle. It replaces a global singleton:
// construct one at startup and hand it to whoever needs inference.
//
// The first Get locates and loads the model while holding the mutex, so
// concurrent first callers wait for a single load. A failed load is cached
// and returned forever after; only a new Provider (a restart) retries.
type Provider struct {
	mu       sync.Mutex
	state    State
	detector Detector
	err      error
	loadedAt time.Time

	locator    Locator
	loader     Loader
	thresholds Thresholds
	log        *logrus.Logger
}

func NewProvider(log *logrus.Logger, locator Locator, loader Loader, th Thresholds) *Provider {
	return &Provider{
		locator:    locator,
		loader:     loader,
		thresholds: th,
		log:        log,
	}
}

// Get returns the loaded detector or the cached load error. It never panics.
func (p *Provider) Get(ctx context.Context) (Detector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateLoaded:
		return p.detector, nil
	case StateFailed:
		return nil, p.err
	}

	// The outcome is cached for the life of the process, so one caller's
	// deadline must not decide it for everyone.
	start := time.Now()
	det, err := p.load(context.WithoutCancel(ctx))
	if err != nil {
		p.state = StateFailed
		p.err = err
		p.log.WithFields(logrus.Fields{
			"error":      err.Error(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		}).Error("Model load failed, staying failed until restart")
		return nil, err
	}

	p.state = StateLoaded
	p.detector = det
	p.loadedAt = time.Now()
	p.log.WithFields(logrus.Fields{
		"confidence": p.thresholds.Confidence,
		"iou":        p.thresholds.IoU,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("Model loaded")

	return det, nil
}

func (p *Provider) load(ctx context.Context) (det Detector, err error) {
	defer func() {
		if r := recover(); r != nil {
			det = nil
			err = fmt.Errorf("panic while loading model: %v", r)
		}
	}()

	src, err := p.locator.Locate(ctx)
	if err != nil {
		return nil, fmt.Errorf("locate model: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"source": src.String(),
	}).Info("Loading model")

	det, err = p.loader(ctx, src, p.thresholds)
	if err != nil {
		return nil, fmt.Errorf("load model from %s: %w", src, err)
	}
	if det == nil {
		return nil, fmt.Errorf("load model from %s: loader returned no detector", src)
	}

	return det, nil
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the cached load error, if any.
func (p *Provider) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Provider) LoadedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadedAt
}

func (p *Provider) Thresholds() Thresholds {
	return p.thresholds
}

// Close releases the detector. The provider does not return to unloaded.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.detector == nil {
		return nil
	}

	err := p.detector.Close()
	p.detector = nil
	if p.state == StateLoaded {
		p.state = StateFailed
		p.err = ErrNotLoaded
	}
	return err
}
