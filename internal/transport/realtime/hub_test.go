package realtime_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/access"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/transport/realtime"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type tokenVerifier map[string]*internal.Actor

func (v tokenVerifier) Verify(ctx context.Context, token string) (*internal.Actor, error) {
	if actor, ok := v[token]; ok {
		return actor, nil
	}
	return nil, internal.ErrInvalidToken
}

type resolverRights struct {
	resolver *access.Resolver
}

func (r resolverRights) Rights(ctx context.Context, email string) (access.Rights, error) {
	return r.resolver.Rights(email, nil), nil
}

var _ = Describe("Hub", func() {
	var (
		hub    *realtime.Hub
		server *httptest.Server
	)

	BeforeEach(func() {
		verifier := tokenVerifier{
			"t-admin": {UID: "a", Email: "boss@company.com"},
			"t-ana":   {UID: "b", Email: "ana@company.com"},
			"t-ben":   {UID: "c", Email: "ben@company.com"},
		}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		hub = realtime.NewHub(verifier, resolverRights{resolver: access.NewResolver([]string{"boss@company.com"})}, "*", logger)
		server = httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	})

	AfterEach(func() {
		server.Close()
	})

	dial := func(token string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		Expect(err).NotTo(HaveOccurred())
		return conn
	}

	It("rejects handshakes without a valid token", func() {
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=nope"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)

		Expect(err).To(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("sends events to admins and the owner only", func() {
		// Given
		admin := dial("t-admin")
		defer admin.Close()
		ana := dial("t-ana")
		defer ana.Close()
		ben := dial("t-ben")
		defer ben.Close()
		Eventually(hub.ClientCount).Should(Equal(3))

		// When
		event := events.NewExpenseSubmittedEvent(events.ExpenseSnapshot{
			ID:     "exp-1",
			User:   events.SubmitterSnapshot{Name: "Ana", Email: "Ana@Company.com"},
			Total:  150,
			Status: "Under Review",
		})
		Expect(hub.HandleEvent(context.Background(), event)).To(Succeed())

		// Then
		for _, conn := range []*websocket.Conn{admin, ana} {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, frame, err := conn.ReadMessage()
			Expect(err).NotTo(HaveOccurred())

			var msg realtime.Message
			Expect(json.Unmarshal(frame, &msg)).To(Succeed())
			Expect(msg.Type).To(Equal(events.KindNewExpense))
			Expect(msg.Data.Expense.ID).To(Equal("exp-1"))
		}

		ben.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		_, _, err := ben.ReadMessage()
		Expect(err).To(HaveOccurred())
	})

	It("forgets clients that disconnect", func() {
		conn := dial("t-ana")
		Eventually(hub.ClientCount).Should(Equal(1))

		conn.Close()

		Eventually(hub.ClientCount).Should(Equal(0))
	})
})
