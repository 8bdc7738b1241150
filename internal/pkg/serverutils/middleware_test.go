package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"ai-tutorchat-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(handlerErr error) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return handlerErr
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App) (int, APIResponse[any]) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body APIResponse[any]
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestErrorHandler_ValidationKeepsDetail(t *testing.T) {
	status, body := doRequest(t, newTestApp(apperror.Validation("message must not be empty")))

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, body.Success)
	assert.Contains(t, body.Message, "message must not be empty")
}

func TestErrorHandler_StateKeepsDetail(t *testing.T) {
	status, body := doRequest(t, newTestApp(apperror.State("session already ended")))

	assert.Equal(t, fiber.StatusConflict, status)
	assert.Contains(t, body.Message, "session already ended")
}

func TestErrorHandler_GatewayMasksUpstreamDetail(t *testing.T) {
	upstream := errors.New("POST http://llm.internal:11434/api/generate returned 500")
	status, body := doRequest(t, newTestApp(apperror.Gateway("score answer", upstream)))

	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "upstream service error", body.Message)
	assert.NotContains(t, body.Message, "llm.internal")
	assert.NotContains(t, body.Message, "score answer")
}

func TestErrorHandler_PersistenceMasksDetail(t *testing.T) {
	status, body := doRequest(t, newTestApp(apperror.Persistence("archive session", errors.New("pq: disk full"))))

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal storage error", body.Message)
	assert.NotContains(t, body.Message, "disk full")
}

func TestErrorHandler_FiberErrorPassesThrough(t *testing.T) {
	status, body := doRequest(t, newTestApp(fiber.ErrNotFound))

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, fiber.ErrNotFound.Message, body.Message)
}

func TestErrorHandler_UnknownErrorIsGeneric500(t *testing.T) {
	status, body := doRequest(t, newTestApp(errors.New("nil pointer somewhere")))

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body.Message)
}
