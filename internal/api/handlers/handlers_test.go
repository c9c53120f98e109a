package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablebite/ordering/internal/api/response"
	"github.com/tablebite/ordering/internal/huberrors"
	"github.com/tablebite/ordering/internal/models"
)

type mockMenuService struct {
	source string
	items  []models.MenuItem
	err    error
}

func (m *mockMenuService) GetMenu(_ context.Context, source string) ([]models.MenuItem, error) {
	m.source = source

	return m.items, m.err
}

type mockOrdersService struct {
	createFunc func(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	getFunc    func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	filters    *models.ListOrdersFilters
}

func (m *mockOrdersService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	return m.createFunc(ctx, req)
}

func (m *mockOrdersService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return m.getFunc(ctx, id)
}

func (m *mockOrdersService) ListOrders(_ context.Context, filters *models.ListOrdersFilters) ([]models.Order, error) {
	m.filters = filters

	return []models.Order{}, nil
}

type mockAssistant struct {
	question string
	history  []models.ChatMessage
}

func (m *mockAssistant) Status() models.AssistantStatus {
	return models.AssistantStatus{Agent: true, RAG: true, VectorStore: true, MenuItems: 8}
}

func (m *mockAssistant) Ask(_ context.Context, question string) models.Answer {
	m.question = question

	return models.Answer{Answer: "Try the Caesar Salad.", Sources: []models.Source{{ID: 3, Name: "Caesar Salad", Price: 9.99, Similarity: 0.82}}}
}

func (m *mockAssistant) Chat(_ context.Context, message string, history []models.ChatMessage) models.ChatResponse {
	m.question = message
	m.history = history

	return models.ChatResponse{
		Response:  "Sure.",
		Sources:   []models.Source{{ID: 1, Name: "Dragon Roll", Price: 12.99, Similarity: 0.7}},
		ToolsUsed: []models.ToolUse{{Tool: "menu_search"}},
	}
}

type mockReindexer struct {
	source string
	err    error
}

func (m *mockReindexer) Enqueue(_ context.Context, source string) (*models.ReindexResponse, error) {
	m.source = source
	if m.err != nil {
		return nil, m.err
	}

	return &models.ReindexResponse{JobID: 9, Source: source, Queued: true}, nil
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) response.ProblemDetails {
	t.Helper()

	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem response.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))

	return problem
}

func TestMenuHandler_Get(t *testing.T) {
	t.Run("defaults to live", func(t *testing.T) {
		svc := &mockMenuService{items: []models.MenuItem{{ID: 1, Name: "Pad Thai", Price: 13.99}}}
		rec := httptest.NewRecorder()

		NewMenuHandler(svc).Get(rec, httptest.NewRequest(http.MethodGet, "/api/menu", http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.MenuSourceLive, svc.source)

		var items []models.MenuItem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		assert.Len(t, items, 1)
	})

	t.Run("static", func(t *testing.T) {
		svc := &mockMenuService{}
		rec := httptest.NewRecorder()

		NewMenuHandler(svc).Get(rec, httptest.NewRequest(http.MethodGet, "/api/menu?type=static", http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.MenuSourceStatic, svc.source)
	})

	t.Run("unknown type serves live menu", func(t *testing.T) {
		svc := &mockMenuService{items: []models.MenuItem{}}
		rec := httptest.NewRecorder()

		NewMenuHandler(svc).Get(rec, httptest.NewRequest(http.MethodGet, "/api/menu?type=weekly", http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.MenuSourceLive, svc.source)
	})
}

const validOrderBody = `{
	"firstName": "Ada", "lastName": "Lovelace", "phone": "555-123-4567",
	"creditCard": "4111 1111 1111 1111",
	"items": [{"name": "Margherita Pizza", "price": 12.99, "quantity": 2}]
}`

func TestOrdersHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		id := uuid.Must(uuid.NewV7())
		svc := &mockOrdersService{createFunc: func(_ context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
			assert.Equal(t, "Ada", req.FirstName)

			return &models.Order{ID: id, TotalPrice: 25.98}, nil
		}}
		rec := httptest.NewRecorder()

		NewOrdersHandler(svc).Create(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(validOrderBody)))

		assert.Equal(t, http.StatusCreated, rec.Code)

		var order models.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
		assert.Equal(t, id, order.ID)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewOrdersHandler(&mockOrdersService{}).Create(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("quantity out of range never reaches service", func(t *testing.T) {
		body := strings.Replace(validOrderBody, `"quantity": 2`, `"quantity": 10`, 1)
		svc := &mockOrdersService{createFunc: func(context.Context, *models.CreateOrderRequest) (*models.Order, error) {
			t.Fatal("service must not be called")

			return nil, nil
		}}
		rec := httptest.NewRecorder()

		NewOrdersHandler(svc).Create(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		problem := decodeProblem(t, rec)
		require.NotEmpty(t, problem.Errors)
		assert.Equal(t, "items[0].quantity", problem.Errors[0].Location)
	})

	t.Run("service validation error", func(t *testing.T) {
		svc := &mockOrdersService{createFunc: func(context.Context, *models.CreateOrderRequest) (*models.Order, error) {
			return nil, huberrors.NewValidationError("totalPrice", "total does not match")
		}}
		rec := httptest.NewRecorder()

		NewOrdersHandler(svc).Create(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(validOrderBody)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "totalPrice", decodeProblem(t, rec).Errors[0].Location)
	})

	t.Run("database failure hides detail", func(t *testing.T) {
		svc := &mockOrdersService{createFunc: func(context.Context, *models.CreateOrderRequest) (*models.Order, error) {
			return nil, errors.New("pq: connection refused at 10.0.0.3")
		}}
		rec := httptest.NewRecorder()

		NewOrdersHandler(svc).Create(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(validOrderBody)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	})
}

func TestOrdersHandler_Get(t *testing.T) {
	t.Run("invalid uuid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/nope", http.NoBody)
		req.SetPathValue("id", "nope")
		rec := httptest.NewRecorder()

		NewOrdersHandler(&mockOrdersService{}).Get(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		svc := &mockOrdersService{getFunc: func(context.Context, uuid.UUID) (*models.Order, error) {
			return nil, huberrors.NewNotFoundError("order", "Order not found")
		}}
		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+id.String(), http.NoBody)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()

		NewOrdersHandler(svc).Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Order not found", decodeProblem(t, rec).Detail)
	})
}

func TestOrdersHandler_List(t *testing.T) {
	svc := &mockOrdersService{}
	rec := httptest.NewRecorder()

	NewOrdersHandler(svc).List(rec, httptest.NewRequest(http.MethodGet, "/api/orders?limit=20&offset=40", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	assert.Equal(t, &models.ListOrdersFilters{Limit: 20, Offset: 40}, svc.filters)
}

func TestAssistantHandler(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewAssistantHandler(&mockAssistant{}, &mockReindexer{}).Status(rec, httptest.NewRequest(http.MethodGet, "/api/assistant/status", http.NoBody))

		assert.JSONEq(t, `{"agent":true,"rag":true,"vectorStore":true,"menuItems":8}`, rec.Body.String())
	})

	t.Run("ask", func(t *testing.T) {
		a := &mockAssistant{}
		rec := httptest.NewRecorder()

		NewAssistantHandler(a, &mockReindexer{}).Ask(rec,
			httptest.NewRequest(http.MethodPost, "/api/assistant/ask", strings.NewReader(`{"question":"What's vegetarian?"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "What's vegetarian?", a.question)

		var answer models.Answer
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
		assert.Equal(t, "Caesar Salad", answer.Sources[0].Name)
	})

	t.Run("ask without question", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewAssistantHandler(&mockAssistant{}, &mockReindexer{}).Ask(rec,
			httptest.NewRequest(http.MethodPost, "/api/assistant/ask", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("chat passes history", func(t *testing.T) {
		a := &mockAssistant{}
		rec := httptest.NewRecorder()
		body := `{"message":"and spicy?","history":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`

		NewAssistantHandler(a, &mockReindexer{}).Chat(rec,
			httptest.NewRequest(http.MethodPost, "/api/assistant/chat", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "and spicy?", a.question)
		assert.Len(t, a.history, 2)
	})

	t.Run("chat accepts long history", func(t *testing.T) {
		a := &mockAssistant{}
		rec := httptest.NewRecorder()

		history := make([]models.ChatMessage, 60)
		for i := range history {
			history[i] = models.ChatMessage{Role: models.RoleUser, Content: fmt.Sprintf("turn %d", i)}
			if i%2 == 1 {
				history[i].Role = models.RoleAssistant
			}
		}

		body, err := json.Marshal(models.ChatRequest{Message: "anything gluten free?", History: history})
		require.NoError(t, err)

		NewAssistantHandler(a, &mockReindexer{}).Chat(rec,
			httptest.NewRequest(http.MethodPost, "/api/assistant/chat", bytes.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, a.history, 60)
	})

	t.Run("chat reports tools as objects", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewAssistantHandler(&mockAssistant{}, &mockReindexer{}).Chat(rec,
			httptest.NewRequest(http.MethodPost, "/api/assistant/chat", strings.NewReader(`{"message":"rolls?"}`)))

		require.Equal(t, http.StatusOK, rec.Code)

		var raw struct {
			ToolsUsed []map[string]string `json:"toolsUsed"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		require.Len(t, raw.ToolsUsed, 1)
		assert.Equal(t, "menu_search", raw.ToolsUsed[0]["tool"])
	})

	t.Run("reindex body of unknown length", func(t *testing.T) {
		r := &mockReindexer{}
		rec := httptest.NewRecorder()

		req := httptest.NewRequest(http.MethodPost, "/api/assistant/reindex",
			io.NopCloser(strings.NewReader(`{"source":"live"}`)))
		req.ContentLength = -1

		NewAssistantHandler(&mockAssistant{}, r).Reindex(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "live", r.source)
	})

	t.Run("reindex malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewAssistantHandler(&mockAssistant{}, &mockReindexer{}).Reindex(rec,
			httptest.NewRequest(http.MethodPost, "/api/assistant/reindex", strings.NewReader(`{"source":`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reindex accepted", func(t *testing.T) {
		r := &mockReindexer{}
		rec := httptest.NewRecorder()

		NewAssistantHandler(&mockAssistant{}, r).Reindex(rec,
			httptest.NewRequest(http.MethodPost, "/api/assistant/reindex", strings.NewReader(`{"source":"live"}`)))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "live", r.source)
	})

	t.Run("reindex empty body", func(t *testing.T) {
		r := &mockReindexer{}
		rec := httptest.NewRecorder()

		NewAssistantHandler(&mockAssistant{}, r).Reindex(rec,
			httptest.NewRequest(http.MethodPost, "/api/assistant/reindex", http.NoBody))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Empty(t, r.source)
	})

	t.Run("reindex without queue", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewAssistantHandler(&mockAssistant{}, &mockReindexer{err: huberrors.NewUnavailableError("job queue")}).Reindex(rec,
			httptest.NewRequest(http.MethodPost, "/api/assistant/reindex", strings.NewReader(`{"source":"static"}`)))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("reindex bad source", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewAssistantHandler(&mockAssistant{}, &mockReindexer{}).Reindex(rec,
			httptest.NewRequest(http.MethodPost, "/api/assistant/reindex", strings.NewReader(`{"source":"weekly"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandler_Check(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("connected", func(t *testing.T) {
		h := NewHealthHandler(fakePinger{})
		h.now = func() time.Time { return fixed }
		rec := httptest.NewRecorder()

		h.Check(rec, httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","database":"connected","timestamp":"2026-03-01T12:00:00Z"}`, rec.Body.String())
	})

	t.Run("disconnected", func(t *testing.T) {
		h := NewHealthHandler(fakePinger{err: errors.New("dial tcp: refused")})
		rec := httptest.NewRecorder()

		h.Check(rec, httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"database":"disconnected"`)
	})
}
