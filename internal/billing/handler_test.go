package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/maxvolts/maxvolts/internal/identity"
)

// BillingHTTPSuite drives the full quote-to-invoice workflow through the
// HTTP surface against the in-memory repository.
type BillingHTTPSuite struct {
	suite.Suite
	repo   *mockRepository
	router *chi.Mux
}

func TestBillingHTTPSuite(t *testing.T) {
	suite.Run(t, new(BillingHTTPSuite))
}

func (s *BillingHTTPSuite) SetupTest() {
	s.repo = newMockRepository()
	svc, _, _ := newTestService(s.repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc)

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &identity.Session{ID: "test-session"}
			sess.SetActor(identity.Actor{ID: 7, Email: "amy@maxvolts.example"})
			next.ServeHTTP(w, r.WithContext(identity.ContextWithSession(r.Context(), sess)))
		})
	})
	s.router.Route("/billing", handler.MountRoutes)
}

func (s *BillingHTTPSuite) request(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *BillingHTTPSuite) decode(rec *httptest.ResponseRecorder, target any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(target))
}

func (s *BillingHTTPSuite) TestQuoteLifecycle() {
	rec := s.request(http.MethodPost, "/billing/quotes", CreateQuoteRequest{
		ClientID: 1,
		Lines: []LineRequest{
			{ProductID: 10, Quantity: 10},
			{ProductID: 11, Quantity: 2},
		},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var quote Quote
	s.decode(rec, &quote)
	s.Equal(QuoteStatusNew, quote.Status)
	s.InDelta(463.20, quote.TotalValue, 0.001)
	s.Len(quote.Lines, 2)

	rec = s.request(http.MethodGet, fmt.Sprintf("/billing/quotes/%d", quote.ID), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.request(http.MethodPut, fmt.Sprintf("/billing/quotes/%d", quote.ID), UpdateQuoteRequest{
		ClientID: 1,
		Status:   "accepted",
		Lines:    []LineRequest{{ProductID: 10, Quantity: 10}},
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var updated Quote
	s.decode(rec, &updated)
	s.Equal(QuoteStatusAccepted, updated.Status)
	s.InDelta(132.00, updated.TotalValue, 0.001)

	rec = s.request(http.MethodGet, "/billing/quotes?status=accepted", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list quoteListResponse
	s.decode(rec, &list)
	s.Equal(1, list.Total)
}

func (s *BillingHTTPSuite) TestConvertQuote() {
	rec := s.request(http.MethodPost, "/billing/quotes", CreateQuoteRequest{
		ClientID: 1,
		Status:   "accepted",
		Lines:    []LineRequest{{ProductID: 10, Quantity: 10}},
	})
	s.Require().Equal(http.StatusCreated, rec.Code)
	var quote Quote
	s.decode(rec, &quote)

	rec = s.request(http.MethodPost, fmt.Sprintf("/billing/quotes/%d/convert", quote.ID), nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var invoice Invoice
	s.decode(rec, &invoice)
	s.Equal(InvoiceStatusNew, invoice.Status)
	s.Require().NotNil(invoice.QuoteID)
	s.Equal(quote.ID, *invoice.QuoteID)
	s.InDelta(quote.TotalValue, invoice.TotalValue, 1e-9)

	// Source quote is frozen afterwards.
	rec = s.request(http.MethodPut, fmt.Sprintf("/billing/quotes/%d", quote.ID), UpdateQuoteRequest{
		ClientID: 1,
		Status:   "quoted",
		Lines:    []LineRequest{{ProductID: 10, Quantity: 1}},
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *BillingHTTPSuite) TestConvertRollbackSurfacesAsServerError() {
	rec := s.request(http.MethodPost, "/billing/quotes", CreateQuoteRequest{
		ClientID: 1,
		Lines:    []LineRequest{{ProductID: 10, Quantity: 10}},
	})
	s.Require().Equal(http.StatusCreated, rec.Code)
	var quote Quote
	s.decode(rec, &quote)

	s.repo.failInsertInvoiceLine = errors.New("connection reset")

	rec = s.request(http.MethodPost, fmt.Sprintf("/billing/quotes/%d/convert", quote.ID), nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "Conversion Rolled Back")
	s.Empty(s.repo.invoices)
}

func (s *BillingHTTPSuite) TestQuoteNotFound() {
	rec := s.request(http.MethodGet, "/billing/quotes/999", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.request(http.MethodGet, "/billing/quotes/abc", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *BillingHTTPSuite) TestCreateQuoteValidation() {
	rec := s.request(http.MethodPost, "/billing/quotes", CreateQuoteRequest{ClientID: 1})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodPost, "/billing/quotes", map[string]any{"client_id": "not-a-number"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *BillingHTTPSuite) TestPreview() {
	rec := s.request(http.MethodPost, "/billing/preview", LineRequest{ProductID: 10, Quantity: 10})
	s.Require().Equal(http.StatusOK, rec.Code)

	var preview LinePreview
	s.decode(rec, &preview)
	s.Equal("Double socket", preview.Name)
	s.InDelta(132.00, preview.TotalValue, 0.001)
}

func (s *BillingHTTPSuite) TestWizardOptions() {
	rec := s.request(http.MethodGet, "/billing/wizard/options", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var opts WizardOptions
	s.decode(rec, &opts)
	s.Len(opts.Clients, 2)
	s.Len(opts.Products, 3)
}

func (s *BillingHTTPSuite) TestInvoiceLifecycle() {
	rec := s.request(http.MethodPost, "/billing/invoices", CreateInvoiceRequest{
		ClientID: 2,
		Lines:    []LineRequest{{ProductID: 11, Quantity: 1}},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var invoice Invoice
	s.decode(rec, &invoice)
	s.Equal(InvoiceStatusNew, invoice.Status)
	s.Nil(invoice.QuoteID)
	s.InDelta(165.60, invoice.TotalValue, 0.001)

	rec = s.request(http.MethodPut, fmt.Sprintf("/billing/invoices/%d", invoice.ID), UpdateInvoiceRequest{
		ClientID: 2,
		Status:   "paid",
		Lines:    []LineRequest{{ProductID: 11, Quantity: 1}},
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var updated Invoice
	s.decode(rec, &updated)
	s.Equal(InvoiceStatusPaid, updated.Status)
}
