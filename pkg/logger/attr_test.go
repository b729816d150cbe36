package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakhi-health/notifycore/pkg/logger"
)

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestNotificationID(t *testing.T) {
	attr := logger.NotificationID("alert_created-1a2b-1")
	require.Equal(t, "notification_id", attr.Key)
	assert.Equal(t, "alert_created-1a2b-1", attr.Value.String())

	assert.True(t, logger.NotificationID("").Equal(slog.Attr{}))
}

func TestDomainAttrs(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want any
	}{
		{name: "kind", attr: logger.Kind("alert_created"), key: "kind", want: "alert_created"},
		{name: "table", attr: logger.Table("alerts"), key: "table", want: "alerts"},
		{name: "op", attr: logger.Op("insert"), key: "op", want: "insert"},
		{name: "component", attr: logger.Component("ledger"), key: "component", want: "ledger"},
		{name: "subscriber", attr: logger.Subscriber(2), key: "subscriber", want: int64(2)},
		{name: "count", attr: logger.Count(7), key: "count", want: int64(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.want, tt.attr.Value.Any())
		})
	}
}
