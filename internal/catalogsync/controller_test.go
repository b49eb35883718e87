package catalogsync

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"laptopkita/internal/catalog"
	"laptopkita/internal/observability"
	"laptopkita/internal/photo"
	"laptopkita/internal/session"
)

type listResult struct {
	items []catalog.Laptop
	err   error
}

// fakeRemote answers List from a queue of gates so tests can choose the
// order in which concurrent loads complete.
type fakeRemote struct {
	mu       sync.Mutex
	gates    []chan listResult
	list     listResult
	created  []catalog.CreateRequest
	createFn func(ctx context.Context) (*catalog.Laptop, error)
	deleted  []int64
	deleteFn func(id int64) error
}

func (f *fakeRemote) List(ctx context.Context, email string) ([]catalog.Laptop, error) {
	f.mu.Lock()
	if len(f.gates) > 0 {
		gate := f.gates[0]
		f.gates = f.gates[1:]
		f.mu.Unlock()
		r := <-gate
		return r.items, r.err
	}
	r := f.list
	f.mu.Unlock()
	return r.items, r.err
}

func (f *fakeRemote) Create(ctx context.Context, req catalog.CreateRequest) (*catalog.Laptop, error) {
	f.mu.Lock()
	f.created = append(f.created, req)
	fn := f.createFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return &catalog.Laptop{ID: 1}, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id int64, email string) (*catalog.MessageResponse, error) {
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	fn := f.deleteFn
	f.mu.Unlock()
	if fn != nil {
		if err := fn(id); err != nil {
			return nil, err
		}
	}
	return &catalog.MessageResponse{Message: "deleted"}, nil
}

func (f *fakeRemote) setList(items []catalog.Laptop, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = listResult{items: items, err: err}
}

type fakeSessions struct {
	current session.Session
	updates chan session.Session
}

func (f *fakeSessions) CurrentSession(ctx context.Context) (session.Session, error) {
	return f.current, nil
}

func (f *fakeSessions) Watch(ctx context.Context) (<-chan session.Session, func(), error) {
	return f.updates, func() {}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < 16; i++ {
		img.Set(i, i, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func notFound() error { return &catalog.Error{Kind: catalog.KindNotFound, Status: http.StatusNotFound} }
func serverErr() error {
	return &catalog.Error{Kind: catalog.KindServer, Status: http.StatusServiceUnavailable}
}

func TestInitialState(t *testing.T) {
	c := NewController(&fakeRemote{}, &fakeSessions{})
	s := c.Snapshot()
	assert.Equal(t, StatusLoading, s.Status)
	assert.Empty(t, s.Items)
	assert.False(t, s.Uploading)
	assert.Nil(t, s.LastError)
	assert.Nil(t, s.NonToastError)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("success keeps server order", func(t *testing.T) {
		r := &fakeRemote{}
		r.setList([]catalog.Laptop{{ID: 3}, {ID: 1}, {ID: 2}}, nil)
		c := NewController(r, &fakeSessions{})
		require.NoError(t, c.Load(ctx, "a@x.com"))
		s := c.Snapshot()
		assert.Equal(t, StatusSuccess, s.Status)
		assert.Equal(t, []int64{3, 1, 2}, ids(s.Items))
		assert.Nil(t, s.NonToastError)
	})

	t.Run("not found is no data", func(t *testing.T) {
		r := &fakeRemote{}
		r.setList([]catalog.Laptop{{ID: 1}}, nil)
		c := NewController(r, &fakeSessions{})
		require.NoError(t, c.Load(ctx, "a@x.com"))

		r.setList(nil, notFound())
		assert.Error(t, c.Load(ctx, "a@x.com"))
		s := c.Snapshot()
		assert.Equal(t, StatusFailed, s.Status)
		require.NotNil(t, s.NonToastError)
		assert.Equal(t, ReasonNoData, s.NonToastError.Reason)
		assert.Equal(t, MsgNoData, s.NonToastError.Message)
		assert.Empty(t, s.Items)
	})

	t.Run("other failures keep previous items", func(t *testing.T) {
		r := &fakeRemote{}
		r.setList([]catalog.Laptop{{ID: 1}}, nil)
		c := NewController(r, &fakeSessions{})
		require.NoError(t, c.Load(ctx, "a@x.com"))

		for _, err := range []error{serverErr(), errors.New("dial tcp: refused")} {
			r.setList(nil, err)
			assert.Error(t, c.Load(ctx, "a@x.com"))
			s := c.Snapshot()
			assert.Equal(t, StatusFailed, s.Status)
			require.NotNil(t, s.NonToastError)
			assert.Equal(t, ReasonLoadFailed, s.NonToastError.Reason)
			assert.Equal(t, []int64{1}, ids(s.Items))
		}
	})

	t.Run("success clears a previous failure", func(t *testing.T) {
		r := &fakeRemote{}
		r.setList(nil, serverErr())
		c := NewController(r, &fakeSessions{})
		_ = c.Load(ctx, "a@x.com")
		r.setList([]catalog.Laptop{{ID: 9}}, nil)
		require.NoError(t, c.Load(ctx, "a@x.com"))
		assert.Nil(t, c.Snapshot().NonToastError)
	})
}

func TestLoad_SpanCarriesItemCount(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tel := observability.New(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)), metricnoop.NewMeterProvider())
	r := &fakeRemote{}
	r.setList([]catalog.Laptop{{ID: 1}, {ID: 2}}, nil)
	c := NewController(r, &fakeSessions{}, WithTelemetry(tel))

	require.NoError(t, c.Load(context.Background(), "a@x.com"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "catalog.load", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), observability.ItemCount(2))
	assert.Contains(t, spans[0].Attributes(), observability.UserEmail("a@x.com"))
}

func TestLoad_LastCompletionWins(t *testing.T) {
	first := make(chan listResult)
	second := make(chan listResult)
	r := &fakeRemote{gates: []chan listResult{first, second}}
	c := NewController(r, &fakeSessions{})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() { defer wg.Done(); _ = c.Load(ctx, "a@x.com") }()
	require.Eventually(t, func() bool { r.mu.Lock(); defer r.mu.Unlock(); return len(r.gates) == 1 }, time.Second, 5*time.Millisecond)
	wg.Add(1)
	go func() { defer wg.Done(); _ = c.Load(ctx, "a@x.com") }()
	require.Eventually(t, func() bool { r.mu.Lock(); defer r.mu.Unlock(); return len(r.gates) == 0 }, time.Second, 5*time.Millisecond)

	// The later-issued load finishes first; the earlier one overwrites it.
	second <- listResult{items: []catalog.Laptop{{ID: 2}}}
	require.Eventually(t, func() bool { return c.Snapshot().Status == StatusSuccess }, time.Second, 5*time.Millisecond)
	first <- listResult{items: []catalog.Laptop{{ID: 1}}}
	wg.Wait()

	assert.Equal(t, []int64{1}, ids(c.Snapshot().Items))
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("success re-encodes and refreshes", func(t *testing.T) {
		r := &fakeRemote{}
		r.setList([]catalog.Laptop{{ID: 7, ImageID: "abc123"}}, nil)
		c := NewController(r, &fakeSessions{})
		err := c.Upload(ctx, UploadInput{Email: "a@x.com", Title: "T1", Brand: "B1", Price: "100", Image: pngBytes(t)})
		require.NoError(t, err)

		require.Len(t, r.created, 1)
		req := r.created[0]
		assert.Equal(t, "T1", req.Title)
		assert.Equal(t, "B1", req.Brand)
		assert.Equal(t, "100", req.Price)
		assert.Equal(t, "a@x.com", req.UserEmail)
		assert.Equal(t, "image/jpeg", req.MediaType)
		_, format, err := image.DecodeConfig(bytes.NewReader(req.Image))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)

		s := c.Snapshot()
		assert.True(t, s.Success)
		assert.False(t, s.Uploading)
		assert.Nil(t, s.LastError)
		assert.True(t, s.Contains(7))
	})

	t.Run("uploading is true only while the request is in flight", func(t *testing.T) {
		release := make(chan struct{})
		r := &fakeRemote{createFn: func(ctx context.Context) (*catalog.Laptop, error) {
			<-release
			return &catalog.Laptop{ID: 1}, nil
		}}
		c := NewController(r, &fakeSessions{})
		updates, cancel := c.Subscribe()
		defer cancel()

		var seen []State
		var seenMu sync.Mutex
		done := make(chan struct{})
		go func() {
			defer close(done)
			for st := range updates {
				seenMu.Lock()
				seen = append(seen, st)
				seenMu.Unlock()
			}
		}()

		raw := pngBytes(t)
		errc := make(chan error, 1)
		go func() {
			errc <- c.Upload(ctx, UploadInput{Email: "a@x.com", Title: "T", Brand: "B", Price: "1", Image: raw})
		}()
		require.Eventually(t, func() bool { return c.Snapshot().Uploading }, time.Second, 5*time.Millisecond)
		close(release)
		require.NoError(t, <-errc)
		cancel()
		<-done

		seenMu.Lock()
		defer seenMu.Unlock()
		for _, st := range seen {
			assert.False(t, st.Uploading && (st.Success || st.LastError != nil), "uploading overlapped a terminal signal: %+v", st)
		}
	})

	t.Run("server error is the busy toast", func(t *testing.T) {
		r := &fakeRemote{createFn: func(context.Context) (*catalog.Laptop, error) { return nil, serverErr() }}
		c := NewController(r, &fakeSessions{})
		err := c.Upload(ctx, UploadInput{Email: "a@x.com", Title: "T", Brand: "B", Price: "1", Image: pngBytes(t)})
		require.Error(t, err)
		s := c.Snapshot()
		assert.False(t, s.Uploading)
		assert.False(t, s.Success)
		require.NotNil(t, s.LastError)
		assert.Equal(t, ReasonServerBusy, s.LastError.Reason)
		assert.Equal(t, MsgServerBusy, s.LastError.Message)
	})

	t.Run("timeout is a request failure", func(t *testing.T) {
		r := &fakeRemote{createFn: func(ctx context.Context) (*catalog.Laptop, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		c := NewController(r, &fakeSessions{}, WithUploadTimeout(30*time.Millisecond))
		err := c.Upload(ctx, UploadInput{Email: "a@x.com", Title: "T", Brand: "B", Price: "1", Image: pngBytes(t)})
		require.Error(t, err)
		assert.Equal(t, catalog.KindNetwork, catalog.KindOf(err))
		s := c.Snapshot()
		assert.False(t, s.Uploading)
		require.NotNil(t, s.LastError)
		assert.Equal(t, ReasonRequestFailed, s.LastError.Reason)
		assert.Equal(t, MsgUploadFailed, s.LastError.Message)
	})

	t.Run("undecodable image never reaches the server", func(t *testing.T) {
		r := &fakeRemote{}
		c := NewController(r, &fakeSessions{})
		err := c.Upload(ctx, UploadInput{Email: "a@x.com", Title: "T", Brand: "B", Price: "1", Image: []byte("nope")})
		assert.ErrorIs(t, err, photo.ErrNotImage)
		assert.Empty(t, r.created)
		s := c.Snapshot()
		assert.False(t, s.Uploading)
		require.NotNil(t, s.LastError)
		assert.Equal(t, MsgNotImage, s.LastError.Message)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("success refreshes without the item", func(t *testing.T) {
		r := &fakeRemote{}
		r.setList([]catalog.Laptop{{ID: 7}, {ID: 8}}, nil)
		c := NewController(r, &fakeSessions{})
		require.NoError(t, c.Load(ctx, "a@x.com"))

		r.setList([]catalog.Laptop{{ID: 8}}, nil)
		require.NoError(t, c.Delete(ctx, "a@x.com", 7))
		s := c.Snapshot()
		assert.True(t, s.Success)
		assert.False(t, s.Contains(7))
		assert.Equal(t, []int64{7}, r.deleted)
	})

	t.Run("unknown id reports failure and keeps items", func(t *testing.T) {
		r := &fakeRemote{deleteFn: func(int64) error { return notFound() }}
		r.setList([]catalog.Laptop{{ID: 8}}, nil)
		c := NewController(r, &fakeSessions{})
		require.NoError(t, c.Load(ctx, "a@x.com"))

		assert.Error(t, c.Delete(ctx, "a@x.com", 99))
		s := c.Snapshot()
		require.NotNil(t, s.LastError)
		assert.Equal(t, MsgDeleteFailed, s.LastError.Message)
		assert.Equal(t, []int64{8}, ids(s.Items))
		assert.Equal(t, StatusSuccess, s.Status)
	})
}

func TestClearSignals(t *testing.T) {
	r := &fakeRemote{deleteFn: func(int64) error { return serverErr() }}
	r.setList(nil, notFound())
	c := NewController(r, &fakeSessions{})
	ctx := context.Background()
	_ = c.Load(ctx, "a@x.com")
	_ = c.Delete(ctx, "a@x.com", 1)
	require.NotNil(t, c.Snapshot().LastError)

	updates, cancel := c.Subscribe()
	defer cancel()
	<-updates

	c.ClearSignals()
	s := <-updates
	assert.Nil(t, s.LastError)
	assert.False(t, s.Success)
	require.NotNil(t, s.NonToastError, "persistent notice survives")
	assert.Equal(t, StatusFailed, s.Status)

	c.ClearSignals()
	select {
	case extra := <-updates:
		t.Fatalf("second clear should not notify, got %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeKeepsLatest(t *testing.T) {
	r := &fakeRemote{}
	c := NewController(r, &fakeSessions{})
	updates, cancel := c.Subscribe()

	for i := int64(1); i <= 3; i++ {
		r.setList([]catalog.Laptop{{ID: i}}, nil)
		require.NoError(t, c.Load(context.Background(), "a@x.com"))
	}
	s := <-updates
	assert.Equal(t, []int64{3}, ids(s.Items))

	cancel()
	_, open := <-updates
	assert.False(t, open)
}

func TestRefreshAndRun(t *testing.T) {
	r := &fakeRemote{}
	r.setList([]catalog.Laptop{{ID: 4}}, nil)
	sessions := &fakeSessions{current: session.Session{Email: "a@x.com"}, updates: make(chan session.Session, 1)}
	c := NewController(r, sessions)

	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.Snapshot().Contains(4))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	r.setList([]catalog.Laptop{{ID: 5}}, nil)
	sessions.updates <- session.Session{Email: "b@x.com"}
	require.Eventually(t, func() bool { return c.Snapshot().Contains(5) }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func ids(items []catalog.Laptop) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
