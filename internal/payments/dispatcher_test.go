package payments

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSelector struct {
	processor Processor
}

func (f fixedSelector) ChooseBestProcessor() Processor { return f.processor }

func TestDispatch_PrimarySucceeds(t *testing.T) {
	def := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer def.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("fallback should not be called when primary succeeds")
	}))
	defer fallback.Close()

	d := NewDispatcher(def.Client(), fixedSelector{ProcessorDefault}, def.URL, fallback.URL)
	processed, err := d.Dispatch(t.Context(), Payment{CorrelationID: uuid.New(), Amount: 100})

	require.NoError(t, err)
	assert.Equal(t, ProcessorDefault, processed.Processor)
}

func TestDispatch_FallsBackOnPrimaryFailure(t *testing.T) {
	def := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer def.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer fallback.Close()

	d := NewDispatcher(def.Client(), fixedSelector{ProcessorDefault}, def.URL, fallback.URL)
	processed, err := d.Dispatch(t.Context(), Payment{CorrelationID: uuid.New(), Amount: 100})

	require.NoError(t, err)
	assert.Equal(t, ProcessorFallback, processed.Processor)
}

func TestDispatch_BothFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	d := NewDispatcher(bad.Client(), fixedSelector{ProcessorDefault}, bad.URL, bad.URL)
	_, err := d.Dispatch(t.Context(), Payment{CorrelationID: uuid.New(), Amount: 100})

	require.ErrorIs(t, err, ErrDispatchFailed)
}

func TestDispatch_NonOKCountsAsFailureEvenFor422(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(422)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.Client(), fixedSelector{ProcessorDefault}, srv.URL, srv.URL)
	_, err := d.Dispatch(t.Context(), Payment{CorrelationID: uuid.New(), Amount: 100})

	require.ErrorIs(t, err, ErrDispatchFailed)
}

func TestDispatch_SlowButWithinTimeoutStillSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.Client(), fixedSelector{ProcessorDefault}, srv.URL, srv.URL)

	_, err := d.Dispatch(t.Context(), Payment{CorrelationID: uuid.New(), Amount: 100})
	require.NoError(t, err) // 50ms sleep is well under the 10s dispatch timeout
}
