package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adliye/lexgate/legal"
)

func newTestPool(t *testing.T, cfg Config) (*Pool, *Session) {
	t.Helper()
	p := NewPool(nil)
	p.Register(legal.SourceSayistay, cfg)
	s, err := p.Borrow(context.Background(), legal.SourceSayistay)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	t.Cleanup(p.Shutdown)
	return p, s
}

func TestBorrowUnknownSource(t *testing.T) {
	p := NewPool(nil)
	_, err := p.Borrow(context.Background(), legal.SourceYargitay)
	var f *legal.Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, legal.KindNotFound, f.Kind)
}

func TestProfileHeadersApplied(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	_, s := newTestPool(t, Config{Profile: Profile{
		Referer: "https://www.sayistay.gov.tr/",
		Origin:  "https://www.sayistay.gov.tr",
	}})
	_, err := s.GetBytes(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	assert.Equal(t, DefaultAcceptLanguage, got.Get("Accept-Language"))
	assert.Equal(t, "https://www.sayistay.gov.tr/", got.Get("Referer"))
	assert.Equal(t, "https://www.sayistay.gov.tr", got.Get("Origin"))
}

func TestCSRFWarmupIsSingleflight(t *testing.T) {
	p := NewPool(nil)
	p.Register(legal.SourceSayistay, Config{MaxConcurrent: 64, MaxQueue: 128})
	defer p.Shutdown()

	var fetches atomic.Int64
	fetch := func(ctx context.Context) (string, error) {
		fetches.Add(1)
		time.Sleep(20 * time.Millisecond) // hold the flight open for all callers
		return "token-1", nil
	}

	const callers = 32
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := p.Borrow(context.Background(), legal.SourceSayistay)
			if err != nil {
				return
			}
			defer s.Release()
			tok, err := s.CSRFToken(context.Background(), "genel_kurul", fetch)
			if err == nil {
				tokens[i] = tok
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), fetches.Load(), "exactly one landing-page fetch for N concurrent cold callers")
	for _, tok := range tokens {
		assert.Equal(t, "token-1", tok)
	}
}

func TestCSRFInvalidateForcesRefetch(t *testing.T) {
	_, s := newTestPool(t, Config{})
	var fetches atomic.Int64
	fetch := func(ctx context.Context) (string, error) {
		return "tok", nil
	}
	counted := func(ctx context.Context) (string, error) {
		fetches.Add(1)
		return fetch(ctx)
	}

	_, err := s.CSRFToken(context.Background(), "daire", counted)
	require.NoError(t, err)
	_, err = s.CSRFToken(context.Background(), "daire", counted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load(), "second call hits the cache")

	s.InvalidateCSRF("daire")
	_, err = s.CSRFToken(context.Background(), "daire", counted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetches.Load())
}

func TestWithAuthRetryRetriesOnce(t *testing.T) {
	_, s := newTestPool(t, Config{})
	var calls int
	err := s.WithAuthRetry(context.Background(), "temyiz_kurulu", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return legal.AuthExpiredf("stale token")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithAuthRetrySurfacesSecondFailureAsBackend(t *testing.T) {
	_, s := newTestPool(t, Config{})
	var calls int
	err := s.WithAuthRetry(context.Background(), "daire", func(ctx context.Context) error {
		calls++
		return legal.AuthExpiredf("still stale")
	})
	assert.Equal(t, 2, calls)
	assert.Equal(t, legal.KindBackendFailure, legal.KindOf(err))
}

func TestBackpressureFailsFast(t *testing.T) {
	p := NewPool(nil)
	p.Register(legal.SourceKIK, Config{MaxConcurrent: 1, MaxQueue: 1})
	defer p.Shutdown()

	held, err := p.Borrow(context.Background(), legal.SourceKIK)
	require.NoError(t, err)
	defer held.Release()

	// One waiter is allowed to queue.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	waiting := make(chan error, 1)
	go func() {
		s, err := p.Borrow(ctx, legal.SourceKIK)
		if err == nil {
			s.Release()
		}
		waiting <- err
	}()
	time.Sleep(10 * time.Millisecond)

	// The queue is now at capacity: the next borrow fails immediately.
	_, err = p.Borrow(context.Background(), legal.SourceKIK)
	var f *legal.Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, legal.KindResourceExhausted, f.Kind)

	<-waiting
}

func TestRepeatedCancelCyclesLeakNoSlots(t *testing.T) {
	p := NewPool(nil)
	p.Register(legal.SourceSayistay, Config{MaxConcurrent: 4, MaxQueue: 64})
	defer p.Shutdown()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10000; i++ {
		_, err := p.Borrow(canceled, legal.SourceSayistay)
		require.Error(t, err, "cycle %d: borrow with a canceled context must fail", i)

		s, err := p.Borrow(context.Background(), legal.SourceSayistay)
		require.NoError(t, err)
		s.Release()
		s.Release() // double release must not free a phantom slot
	}

	// Canceled callers queued behind held slots must not consume them either.
	held := make([]*Session, 4)
	for i := range held {
		s, err := p.Borrow(context.Background(), legal.SourceSayistay)
		require.NoError(t, err)
		held[i] = s
	}
	for i := 0; i < 1000; i++ {
		_, err := p.Borrow(canceled, legal.SourceSayistay)
		require.Error(t, err)
	}
	for _, s := range held {
		s.Release()
	}

	// Every slot is still acquirable without blocking.
	ctx, release := context.WithTimeout(context.Background(), time.Second)
	defer release()
	for i := range held {
		s, err := p.Borrow(ctx, legal.SourceSayistay)
		require.NoError(t, err, "slot %d leaked", i)
		held[i] = s
	}
	for _, s := range held {
		s.Release()
	}
}

func TestClassifyStatus(t *testing.T) {
	assert.NoError(t, ClassifyStatus(200, []byte("<html>karar</html>")))
	assert.Equal(t, legal.KindAuthExpired, legal.KindOf(ClassifyStatus(403, nil)))
	assert.Equal(t, legal.KindAuthExpired, legal.KindOf(ClassifyStatus(419, nil)))
	assert.Equal(t, legal.KindAccessDenied, legal.KindOf(ClassifyStatus(429, nil)))
	assert.Equal(t, legal.KindNotFound, legal.KindOf(ClassifyStatus(404, nil)))
	assert.Equal(t, legal.KindBackendFailure, legal.KindOf(ClassifyStatus(502, []byte("bad gateway"))))
	assert.Equal(t, legal.KindAccessDenied, legal.KindOf(ClassifyStatus(200, []byte(`<html>Checking your browser before accessing</html>`))))
}

func TestTimeoutClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, s := newTestPool(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := s.GetBytes(ctx, srv.URL)
	assert.Equal(t, legal.KindTimeout, legal.KindOf(err))
}
