package umami

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSessionsPayloadPage(t *testing.T) {
	body := []byte(`{
		"data": [{"id": "s-1", "websiteId": "web-1", "visits": 2, "views": 9}],
		"count": 120,
		"page": 2,
		"pageSize": 50
	}`)

	result, err := DecodeSessionsPayload("/websites/web-1/sessions", body)
	require.NoError(t, err)
	require.Equal(t, KindPage, result.Kind)
	require.NotNil(t, result.Page)
	assert.Nil(t, result.Stats)

	assert.Equal(t, 120, result.Page.Count)
	assert.Equal(t, 2, result.Page.Page)
	require.Len(t, result.Page.Data, 1)
	assert.Equal(t, "s-1", result.Page.Data[0].ID)
}

func TestDecodeSessionsPayloadStats(t *testing.T) {
	t.Run("bare numbers", func(t *testing.T) {
		body := []byte(`{"pageviews": 100, "visitors": 40, "visits": 55, "bounces": 12, "totaltime": 3600}`)

		result, err := DecodeSessionsPayload("/websites/web-1/sessions", body)
		require.NoError(t, err)
		require.Equal(t, KindStats, result.Kind)
		require.NotNil(t, result.Stats)
		assert.Nil(t, result.Page)

		assert.Equal(t, 100.0, result.Stats.Pageviews)
		assert.Equal(t, 40.0, result.Stats.Visitors)
	})

	t.Run("value envelopes", func(t *testing.T) {
		body := []byte(`{"pageviews": {"value": 100, "prev": 80}, "visitors": {"value": 40, "prev": 35}}`)

		result, err := DecodeSessionsPayload("/websites/web-1/sessions", body)
		require.NoError(t, err)
		require.Equal(t, KindStats, result.Kind)
		assert.Equal(t, 100.0, result.Stats.Pageviews)
		assert.Equal(t, 40.0, result.Stats.Visitors)
	})
}

func TestDecodeSessionsPayloadUnknownShape(t *testing.T) {
	_, err := DecodeSessionsPayload("/websites/web-1/sessions", []byte(`{"unexpected": true}`))

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "/websites/web-1/sessions", decodeErr.Endpoint)
}

func TestDecodeSessionsPayloadInvalidJSON(t *testing.T) {
	_, err := DecodeSessionsPayload("/websites/web-1/sessions", []byte(`not json`))
	assert.Error(t, err)
}
