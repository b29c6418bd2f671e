package analytics

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	"github.com/sourav-625/market-regime-radar/pkg/config"
	"github.com/sourav-625/market-regime-radar/pkg/hmm"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	return cfg
}

func sampledReturns(t *testing.T, n int) models.ReturnSeries {
	t.Helper()
	gen, err := hmm.New(
		[]float64{0.5, 0.5},
		[][]float64{{0.95, 0.05}, {0.1, 0.9}},
		[]float64{0.001, -0.002},
		[]float64{1e-4, 9e-4},
	)
	require.NoError(t, err)
	obs, _ := gen.Sample(n, rand.New(rand.NewSource(3)))
	return models.ReturnSeries{Symbol: "TEST", Values: obs}
}

func TestHMMEstimator_Fit(t *testing.T) {
	est := NewHMMEstimator(testConfig(t))

	for k := MinStates; k <= MaxStates; k++ {
		fm, err := est.Fit(context.Background(), sampledReturns(t, 400), k)
		require.NoError(t, err)
		assert.Equal(t, k, fm.NumStates())
		assert.Len(t, fm.Means(), k)
		assert.Equal(t, config.EstimatorLocal, fm.Diagnostics().Estimator)
		assert.Greater(t, fm.Diagnostics().Iterations, 0)
	}
}

func TestHMMEstimator_Errors(t *testing.T) {
	est := NewHMMEstimator(testConfig(t))
	ctx := context.Background()

	_, err := est.Fit(ctx, series(0.1, 0.2), 3)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = est.Fit(ctx, sampledReturns(t, 50), 6)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	_, err = est.Fit(ctx, sampledReturns(t, 50), 1)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = est.Fit(cancelled, sampledReturns(t, 50), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func remoteFixture() fitResponse {
	return fitResponse{
		StartProb:     []float64{0.5, 0.5},
		TransMat:      [][]float64{{0.9, 0.1}, {0.2, 0.8}},
		Means:         []float64{0.001, -0.002},
		Variances:     []float64{1e-4, 4e-4},
		Iterations:    12,
		Converged:     true,
		LogLikelihood: 321.5,
	}
}

func newRemote(t *testing.T, url string) *RemoteEstimator {
	t.Helper()
	cfg := testConfig(t)
	cfg.Analysis.Remote.URL = url
	cfg.Analysis.Remote.MaxRetries = 2
	base := NewHTTPServiceBase(cfg)
	base.newBackoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return NewRemoteEstimator(cfg, base)
}

func TestRemoteEstimator_Fit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fitPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req fitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.States)
		assert.Equal(t, int64(42), req.Seed)
		assert.Len(t, req.Returns, 3)

		_ = json.NewEncoder(w).Encode(remoteFixture())
	}))
	defer srv.Close()

	fm, err := newRemote(t, srv.URL).Fit(context.Background(), series(0.01, -0.02, 0.005), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, fm.NumStates())
	assert.Equal(t, models.FitDiagnostics{
		Estimator:     config.EstimatorRemote,
		Iterations:    12,
		Converged:     true,
		LogLikelihood: 321.5,
	}, fm.Diagnostics())

	// inference runs locally on the rebuilt parameters
	post, err := fm.PredictProba([]float64{0.001, -0.002})
	require.NoError(t, err)
	assert.Len(t, post, 2)
}

func TestRemoteEstimator_RetriesTemporaryFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(remoteFixture())
	}))
	defer srv.Close()

	_, err := newRemote(t, srv.URL).Fit(context.Background(), series(0.01, -0.02, 0.005), 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRemoteEstimator_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newRemote(t, srv.URL).Fit(context.Background(), series(0.01, -0.02, 0.005), 2)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRemoteEstimator_RejectsWrongStateCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(remoteFixture())
	}))
	defer srv.Close()

	_, err := newRemote(t, srv.URL).Fit(context.Background(), series(0.01, -0.02, 0.005, 0.003), 3)
	assert.ErrorIs(t, err, models.ErrNumericDegeneracy)
}

func TestNewEstimator(t *testing.T) {
	cfg := testConfig(t)
	assert.IsType(t, &HMMEstimator{}, NewEstimator(cfg))

	cfg.Analysis.Estimator = config.EstimatorRemote
	cfg.Analysis.Remote.URL = "http://localhost:9"
	assert.IsType(t, &RemoteEstimator{}, NewEstimator(cfg))
}
