package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreExported(t *testing.T) {
	Answers.WithLabelValues("kanji", "correct").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(Answers.WithLabelValues("kanji", "correct")), 1.0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "srsbot_lesson_answers_total"))
}
