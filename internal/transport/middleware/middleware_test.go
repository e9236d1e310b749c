package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/expense-tracker/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testDocument = `openapi: 3.0.3
info:
  title: test
  version: "1"
paths:
  /items:
    get:
      parameters:
        - name: limit
          in: query
          schema:
            type: integer
            minimum: 0
      responses:
        "200":
          description: ok
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                name:
                  type: string
      responses:
        "201":
          description: created
`

var _ = Describe("Middleware", func() {
	var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	Describe("RequestID", func() {
		It("keeps an incoming trace id", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(middleware.TraceHeader, "trace-1")
			rec := httptest.NewRecorder()

			middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

			Expect(rec.Header().Get(middleware.TraceHeader)).To(Equal("trace-1"))
		})

		It("mints a trace id when missing", func() {
			rec := httptest.NewRecorder()

			middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(rec.Header().Get(middleware.TraceHeader)).To(HaveLen(36))
		})
	})

	Describe("RecoveryMiddleware", func() {
		It("turns a panic into a 500", func() {
			rec := httptest.NewRecorder()
			panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })

			middleware.RecoveryMiddleware(logger)(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).NotTo(ContainSubstring("boom"))
		})
	})

	Describe("CORS", func() {
		It("answers preflight requests for allowed origins", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/expenses", nil)
			req.Header.Set("Origin", "https://app.example.com")
			rec := httptest.NewRecorder()

			middleware.CORS("https://app.example.com")(http.NotFoundHandler()).ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.example.com"))
		})

		It("does not echo unknown origins", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
			req.Header.Set("Origin", "https://evil.example.com")
			rec := httptest.NewRecorder()

			middleware.CORS("https://app.example.com")(http.NotFoundHandler()).ServeHTTP(rec, req)

			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		})
	})

	Describe("OpenAPIValidator", func() {
		var (
			validator func(http.Handler) http.Handler
			reached   bool
			seenBody  string
		)

		BeforeEach(func() {
			path := filepath.Join(GinkgoT().TempDir(), "openapi.yml")
			Expect(os.WriteFile(path, []byte(testDocument), 0o600)).To(Succeed())

			doc, err := middleware.LoadOpenAPI(context.Background(), path)
			Expect(err).NotTo(HaveOccurred())
			validator, err = middleware.OpenAPIValidator(doc, logger)
			Expect(err).NotTo(HaveOccurred())
			reached = false
			seenBody = ""
		})

		serve := func(req *http.Request) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			validator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				body, _ := io.ReadAll(r.Body)
				seenBody = string(body)
			})).ServeHTTP(rec, req)
			return rec
		}

		It("rejects an invalid query parameter", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/items?limit=abc", nil))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(reached).To(BeFalse())
		})

		It("passes valid requests", func() {
			serve(httptest.NewRequest(http.MethodGet, "/items?limit=5", nil))
			Expect(reached).To(BeTrue())
		})

		It("rejects a body missing required fields", func() {
			req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")

			rec := serve(req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("leaves a valid body readable for the handler", func() {
			req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"name":"pen"}`))
			req.Header.Set("Content-Type", "application/json")

			serve(req)

			Expect(reached).To(BeTrue())
			Expect(seenBody).To(Equal(`{"name":"pen"}`))
		})

		It("ignores paths the document does not describe", func() {
			serve(httptest.NewRequest(http.MethodGet, "/ws", nil))
			Expect(reached).To(BeTrue())
		})
	})
})
