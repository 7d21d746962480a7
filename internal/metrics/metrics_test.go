package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-dukhno/pgcore/pgerr"
)

func TestConnOpenedClosedTracksGauge(t *testing.T) {
	c := New()
	c.ConnOpened()
	c.ConnOpened()
	c.ConnClosed()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "pgcore_connections_open 1")
	assert.Contains(t, rec.Body.String(), "pgcore_connections_total 2")
}

func TestQueryHandledRecordsTagAndErrorClass(t *testing.T) {
	c := New()
	c.QueryHandled("SELECT 1", nil)
	c.QueryHandled("", pgerr.New(pgerr.KindTableDoesNotExist, "no such table"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)
	body := rec.Body.String()
	assert.Contains(t, body, `pgcore_statements_total{tag="SELECT 1"} 1`)
	assert.Contains(t, body, `pgcore_statement_errors_total{sqlstate_class="42"} 1`)
}
