package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryReq struct {
	Symbol  string `query:"symbol" validate:"required,max=8"`
	Regimes int    `query:"regimes" default:"3" validate:"gte=2,lte=5"`
}

func TestReadAndValidateRequest_Defaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?symbol=AAPL", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	var q queryReq
	assert.Nil(t, ReadAndValidateRequest(c, &q))
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 3, q.Regimes)
}

func TestReadAndValidateRequest_ReportsWireNames(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?regimes=9", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	var q queryReq
	errs := ReadAndValidateRequest(c, &q)
	require.Len(t, errs, 2)

	fields := map[string]string{}
	for _, ve := range errs {
		fields[ve.Field] = ve.Code
	}
	assert.Equal(t, "ERR_REQUIRED", fields["symbol"])
	assert.Equal(t, "ERR_LTE", fields["regimes"])
}

func TestValidateStruct(t *testing.T) {
	q := queryReq{Symbol: "MSFT"}
	assert.Nil(t, ValidateStruct(context.Background(), &q))
	assert.Equal(t, 3, q.Regimes)

	bad := queryReq{Symbol: "WAYTOOLONGSYMBOL"}
	assert.NotNil(t, ValidateStruct(context.Background(), &bad))
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, UnprocessableError("ERR_INSUFFICIENT_DATA", "too short")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Status int         `json:"status"`
		Data   []*AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusUnprocessableEntity, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_INSUFFICIENT_DATA", body.Data[0].Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type pingHandler struct{ path string }

func (h pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET(h.path, func(c echo.Context) error { return SuccessResponse(c, h.path) })
}

func TestServer_RoutesAndHealth(t *testing.T) {
	s := NewServer(Handlers{pingHandler{"/a"}, nil, pingHandler{"/b"}}, WithMetrics(false, ""))

	for _, path := range []string{"/a", "/b", "/healthz"} {
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_RecoversPanics(t *testing.T) {
	s := NewServer(nil, WithMetrics(false, ""))
	s.Echo().GET("/boom", func(echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "x", r.URL.Query().Get("q"))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()))
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL,
		QueryParams: map[string][]string{"q": {"x"}},
	}, nil)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "down", se.Body)
	assert.True(t, se.Temporary())
}

func TestAppError_Temporary(t *testing.T) {
	assert.True(t, GatewayTimeoutError("slow").Temporary())
	assert.True(t, TooManyRequestsError("slow down").Temporary())
	assert.False(t, NotFoundError("ERR_DATA_UNAVAILABLE", "none").Temporary())

	cause := errors.New("upstream")
	e := InternalError("failed").WithError(cause)
	assert.ErrorIs(t, e, cause)
	assert.Equal(t, "failed: upstream", e.Error())
}
