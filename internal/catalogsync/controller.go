package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"laptopkita/internal/catalog"
	"laptopkita/internal/logging"
	"laptopkita/internal/observability"
	"laptopkita/internal/photo"
	"laptopkita/internal/session"
)

// UploadTimeout bounds a single create request unless WithUploadTimeout
// overrides it.
const UploadTimeout = 20 * time.Second

// Remote is the catalog API as the controller sees it. *catalog.Client
// satisfies it.
type Remote interface {
	List(ctx context.Context, email string) ([]catalog.Laptop, error)
	Create(ctx context.Context, req catalog.CreateRequest) (*catalog.Laptop, error)
	Delete(ctx context.Context, id int64, email string) (*catalog.MessageResponse, error)
}

// Encoder turns a raw capture into the upload payload.
type Encoder interface {
	Encode(raw []byte) (photo.Payload, error)
}

// SessionSource supplies the signed-in identity and its changes.
type SessionSource interface {
	CurrentSession(ctx context.Context) (session.Session, error)
	Watch(ctx context.Context) (<-chan session.Session, func(), error)
}

// UploadInput is one upload form submission. Price is sent as typed.
type UploadInput struct {
	Email string
	Title string
	Brand string
	Price string
	Image []byte
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithTelemetry sets where spans and operation metrics go. The default uses
// the global otel providers.
func WithTelemetry(t *observability.Telemetry) Option {
	return func(c *Controller) { c.tel = t }
}

// WithEncoder replaces the JPEG encoder used by Upload.
func WithEncoder(e Encoder) Option {
	return func(c *Controller) { c.encoder = e }
}

// WithUploadTimeout overrides UploadTimeout.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Controller) { c.uploadTimeout = d }
}

// WithRefreshInterval makes Run reload on a fixed period. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Controller) { c.refreshInterval = d }
}

// Controller owns the catalog state. The mutex is held only while a result
// is applied and fanned out to subscribers, never across a remote call, so
// racing operations settle in completion order.
type Controller struct {
	mu sync.Mutex

	remote   Remote
	sessions SessionSource
	encoder  Encoder
	log      *logging.Logger
	tel      *observability.Telemetry

	uploadTimeout   time.Duration
	refreshInterval time.Duration

	state   State
	nextSub int
	subs    map[int]chan State
}

// NewController returns a controller in the Loading state with no items.
func NewController(remote Remote, sessions SessionSource, opts ...Option) *Controller {
	c := &Controller{
		remote:        remote,
		sessions:      sessions,
		encoder:       photo.NewEncoder(),
		log:           logging.Discard(),
		tel:           observability.Default(),
		uploadTimeout: UploadTimeout,
		state:         State{Status: StatusLoading},
		subs:          map[int]chan State{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe delivers the current state immediately and then every change.
// A slow reader only ever sees the newest snapshot; writers never block.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan State, 1)
	ch <- c.state.clone()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			close(sub)
			delete(c.subs, id)
		}
	}
}

// update applies fn atomically and notifies subscribers if anything changed.
func (c *Controller) update(fn func(s *State) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !fn(&c.state) {
		return
	}
	snap := c.state.clone()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Load replaces the item list with the user's catalog. A not-found answer
// clears the list and records the no-data notice; any other failure keeps
// the previous items.
func (c *Controller) Load(ctx context.Context, email string) error {
	ctx, end := c.tel.Start(ctx, "catalog.load", observability.UserEmail(email))
	c.update(func(s *State) bool {
		s.Status = StatusLoading
		return true
	})

	items, err := c.remote.List(ctx, email)
	if err != nil {
		notice := loadNotice(err)
		c.log.WithField("email", email).WithError(err).Debugf("load failed: %s", notice.Reason)
		c.update(func(s *State) bool {
			s.Status = StatusFailed
			s.NonToastError = &notice
			if notice.Reason == ReasonNoData {
				s.Items = nil
				s.Loaded = true
			}
			return true
		})
		end(err)
		return err
	}

	c.log.WithField("email", email).Debugf("loaded %d laptops", len(items))
	observability.Annotate(ctx, observability.ItemCount(len(items)))
	c.update(func(s *State) bool {
		s.Items = append([]catalog.Laptop(nil), items...)
		s.Status = StatusSuccess
		s.NonToastError = nil
		s.Loaded = true
		return true
	})
	end(nil)
	return nil
}

// Upload encodes the image, creates the laptop and reloads the catalog on
// success. Uploading is set for the duration and exactly one of Success or
// LastError ends it.
//
// Upload never clears uploading in a separate step from setting the
// terminal signal, so no snapshot has both.
func (c *Controller) Upload(ctx context.Context, in UploadInput) error {
	opCtx, end := c.tel.Start(ctx, "catalog.upload", observability.UserEmail(in.Email))
	c.update(func(s *State) bool {
		s.Uploading = true
		s.Success = false
		return true
	})

	payload, err := c.encoder.Encode(in.Image)
	if err != nil {
		notice := Notice{Reason: ReasonRequestFailed, Message: MsgUploadFailed}
		if errors.Is(err, photo.ErrNotImage) {
			notice.Message = MsgNotImage
		}
		c.fail(notice)
		c.log.WithError(err).Warnf("upload payload rejected")
		end(err)
		return err
	}

	createCtx, cancel := context.WithTimeout(opCtx, c.uploadTimeout)
	created, err := c.remote.Create(createCtx, catalog.CreateRequest{
		Title:     in.Title,
		Brand:     in.Brand,
		Price:     in.Price,
		UserEmail: in.Email,
		Image:     payload.Data,
		MediaType: payload.MediaType,
		Filename:  payload.Filename,
	})
	timedOut := errors.Is(createCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if timedOut && catalog.KindOf(err) != catalog.KindNetwork {
			err = &catalog.Error{Kind: catalog.KindNetwork, Message: "upload timed out", Err: err}
		}
		c.fail(mutationNotice(err, MsgUploadFailed))
		c.log.WithField("email", in.Email).WithError(err).Warnf("upload failed")
		end(err)
		return err
	}

	c.log.WithField("email", in.Email).Infof("uploaded laptop %d (image %s)", created.ID, created.ImageID)
	c.succeed()
	end(nil)
	c.refresh(ctx, in.Email)
	return nil
}

// Delete removes laptop id and reloads the catalog on success. On failure the
// items are left untouched and LastError is set.
func (c *Controller) Delete(ctx context.Context, email string, id int64) error {
	opCtx, end := c.tel.Start(ctx, "catalog.delete", observability.UserEmail(email), observability.LaptopID(id))
	if _, err := c.remote.Delete(opCtx, id, email); err != nil {
		c.fail(mutationNotice(err, MsgDeleteFailed))
		c.log.WithField("id", id).WithError(err).Warnf("delete failed")
		end(err)
		return err
	}
	c.log.WithField("id", id).Infof("deleted laptop")
	c.succeed()
	end(nil)
	c.refresh(ctx, email)
	return nil
}

// ClearSignals consumes the one-shot signals after presentation showed them.
func (c *Controller) ClearSignals() {
	c.update(func(s *State) bool {
		if s.LastError == nil && !s.Success && !s.Uploading {
			return false
		}
		s.LastError = nil
		s.Success = false
		s.Uploading = false
		return true
	})
}

// Refresh loads the catalog of the current session.
func (c *Controller) Refresh(ctx context.Context) error {
	sess, err := c.sessions.CurrentSession(ctx)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	return c.Load(ctx, sess.Email)
}

// Run reloads whenever the session changes and, if configured, on a fixed
// interval, until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	updates, stop, err := c.sessions.Watch(ctx)
	if err != nil {
		return err
	}
	defer stop()

	var tick <-chan time.Time
	if c.refreshInterval > 0 {
		ticker := time.NewTicker(c.refreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	email := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case sess, ok := <-updates:
			if !ok {
				return nil
			}
			email = sess.Email
			_ = c.Load(ctx, email)
		case <-tick:
			_ = c.Load(ctx, email)
		}
	}
}

func (c *Controller) fail(n Notice) {
	c.update(func(s *State) bool {
		s.Uploading = false
		s.Success = false
		s.LastError = &n
		return true
	})
}

func (c *Controller) succeed() {
	c.update(func(s *State) bool {
		s.Uploading = false
		s.Success = true
		s.LastError = nil
		return true
	})
}

func (c *Controller) refresh(ctx context.Context, email string) {
	if err := c.Load(ctx, email); err != nil {
		c.log.WithError(err).Debugf("refresh after mutation failed")
	}
}
