package billing

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maxvolts/maxvolts/internal/platform/httpx"
	"github.com/maxvolts/maxvolts/internal/wizard"
)

// Handler wires HTTP endpoints for quotes, invoices and the document
// wizard.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers billing routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/quotes", func(r chi.Router) {
		r.Get("/", h.ListQuotes)
		r.Post("/", h.CreateQuote)
		r.Get("/{id}", h.ShowQuote)
		r.Put("/{id}", h.UpdateQuote)
		r.Post("/{id}/convert", h.ConvertQuote)
	})
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.ListInvoices)
		r.Post("/", h.CreateInvoice)
		r.Get("/{id}", h.ShowInvoice)
		r.Put("/{id}", h.UpdateInvoice)
	})
	r.Route("/wizard", func(r chi.Router) {
		r.Get("/options", h.WizardOptions)
		r.Get("/quotes/{id}", h.ResumeQuote)
		r.Get("/invoices/{id}", h.ResumeInvoice)
		r.Post("/submit", h.SubmitWizard)
	})
	r.Post("/preview", h.Preview)
}

type quoteListResponse struct {
	Quotes []QuoteSummary `json:"quotes"`
	Total  int            `json:"total"`
}

func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{
		Status:   r.URL.Query().Get("status"),
		ClientID: parseInt64Query(r, "client_id"),
		Limit:    parseIntQuery(r, "limit", 50),
		Offset:   parseIntQuery(r, "offset", 0),
	}

	quotes, total, err := h.service.ListQuotes(r.Context(), req)
	if err != nil {
		h.logger.Error("list quotes failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if quotes == nil {
		quotes = []QuoteSummary{}
	}
	httpx.JSON(w, http.StatusOK, quoteListResponse{Quotes: quotes, Total: total})
}

func (h *Handler) ShowQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	quote, err := h.service.GetQuote(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	quote, err := h.service.CreateQuote(r.Context(), req)
	if err != nil {
		h.logger.Error("create quote failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) UpdateQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	quote, err := h.service.UpdateQuote(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update quote failed", slog.Int64("quote_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) ConvertQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.ConvertQuoteToInvoice(r.Context(), id)
	if err != nil {
		h.logger.Error("convert quote failed", slog.Int64("quote_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

type invoiceListResponse struct {
	Invoices []InvoiceSummary `json:"invoices"`
	Total    int              `json:"total"`
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{
		Status:   r.URL.Query().Get("status"),
		ClientID: parseInt64Query(r, "client_id"),
		Limit:    parseIntQuery(r, "limit", 50),
		Offset:   parseIntQuery(r, "offset", 0),
	}

	invoices, total, err := h.service.ListInvoices(r.Context(), req)
	if err != nil {
		h.logger.Error("list invoices failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if invoices == nil {
		invoices = []InvoiceSummary{}
	}
	httpx.JSON(w, http.StatusOK, invoiceListResponse{Invoices: invoices, Total: total})
}

func (h *Handler) ShowInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	invoice, err := h.service.CreateInvoice(r.Context(), req)
	if err != nil {
		h.logger.Error("create invoice failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	invoice, err := h.service.UpdateInvoice(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update invoice failed", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) WizardOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		h.logger.Error("wizard options failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, opts)
}

func (h *Handler) ResumeQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	state, err := h.service.ResumeQuoteWizard(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

func (h *Handler) ResumeInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	state, err := h.service.ResumeInvoiceWizard(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

type submitWizardRequest struct {
	State      wizard.State `json:"state"`
	ExistingID *int64       `json:"existing_id,omitempty"`
}

type submitWizardResponse struct {
	ID int64 `json:"id"`
}

func (h *Handler) SubmitWizard(w http.ResponseWriter, r *http.Request) {
	var req submitWizardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	id, err := h.service.SubmitWizard(r.Context(), req.State, req.ExistingID)
	if err != nil {
		h.logger.Error("submit wizard failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, submitWizardResponse{ID: id})
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req LineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	preview, err := h.service.PreviewLine(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func parseInt64Query(r *http.Request, key string) int64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
