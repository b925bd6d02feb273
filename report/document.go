package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maxvolts/maxvolts/internal/billing"
	"github.com/maxvolts/maxvolts/internal/clients"
	"github.com/maxvolts/maxvolts/internal/platform/httpx"
)

// DocumentSource provides the data a printable document needs.
type DocumentSource interface {
	GetQuote(ctx context.Context, id int64) (*billing.Quote, error)
	GetInvoice(ctx context.Context, id int64) (*billing.Invoice, error)
}

// ClientSource resolves the client a document is addressed to.
type ClientSource interface {
	Get(ctx context.Context, id int64) (*clients.Client, error)
}

type documentData struct {
	Title      string
	Number     string
	IssuedAt   string
	Status     string
	Notes      string
	Client     *clients.Client
	Lines      []billing.Line
	TotalValue float64
	TotalVAT   float64
	Subtotal   float64
}

var documentTmpl = template.Must(template.New("document").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} {{.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 40px; color: #222; }
h1 { font-size: 22px; margin-bottom: 2px; }
.meta { color: #666; margin-bottom: 24px; }
table { width: 100%; border-collapse: collapse; }
th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #ddd; }
th.num, td.num { text-align: right; }
tfoot td { font-weight: bold; border-bottom: none; }
.notes { margin-top: 24px; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Title}} {{.Number}}</h1>
<div class="meta">Issued {{.IssuedAt}} &middot; Status: {{.Status}}</div>
{{with .Client}}
<p><strong>{{.Name}}</strong>{{if .Company}}<br>{{.Company}}{{end}}
{{if .Address1}}<br>{{.Address1}}{{end}}{{if .Address2}}<br>{{.Address2}}{{end}}
{{if .City}}<br>{{.City}}{{end}}{{if .Postcode}} {{.Postcode}}{{end}}</p>
{{end}}
<table>
<thead>
<tr><th>Item</th><th class="num">Qty</th><th class="num">Unit</th><th class="num">VAT</th><th class="num">Total</th></tr>
</thead>
<tbody>
{{range .Lines}}
<tr>
<td>{{.Name}}{{if .Description}}<br><small>{{.Description}}</small>{{end}}</td>
<td class="num">{{.Quantity}}</td>
<td class="num">{{money .Value}}</td>
<td class="num">{{money .TotalVAT}}</td>
<td class="num">{{money .TotalValue}}</td>
</tr>
{{end}}
</tbody>
<tfoot>
<tr><td colspan="4">Subtotal</td><td class="num">{{money .Subtotal}}</td></tr>
<tr><td colspan="4">VAT</td><td class="num">{{money .TotalVAT}}</td></tr>
<tr><td colspan="4">Total</td><td class="num">{{money .TotalValue}}</td></tr>
</tfoot>
</table>
{{if .Notes}}<div class="notes">{{.Notes}}</div>{{end}}
</body>
</html>`))

// renderDocumentHTML produces the printable HTML for a quote or invoice.
func renderDocumentHTML(data documentData) (string, error) {
	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("report: render document: %w", err)
	}
	return buf.String(), nil
}

// Handler serves printable PDF renditions of quotes and invoices.
type Handler struct {
	client    *Client
	documents DocumentSource
	clients   ClientSource
	logger    *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, documents DocumentSource, clientSource ClientSource, logger *slog.Logger) *Handler {
	return &Handler{client: client, documents: documents, clients: clientSource, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/quotes/{id}.pdf", h.quotePDF)
	r.Get("/invoices/{id}.pdf", h.invoicePDF)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Renderer Unavailable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) quotePDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}
	quote, err := h.documents.GetQuote(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.servePDF(w, r, documentData{
		Title:      "Quote",
		Number:     fmt.Sprintf("Q-%04d", quote.ID),
		IssuedAt:   quote.CreatedAt.Format("2 January 2006"),
		Status:     string(quote.Status),
		Notes:      deref(quote.Notes),
		Lines:      quote.Lines,
		TotalValue: quote.TotalValue,
		TotalVAT:   quote.TotalVAT,
		Subtotal:   quote.TotalValue - quote.TotalVAT,
	}, quote.ClientID, fmt.Sprintf("quote-%d.pdf", quote.ID))
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	invoice, err := h.documents.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.servePDF(w, r, documentData{
		Title:      "Invoice",
		Number:     fmt.Sprintf("INV-%04d", invoice.ID),
		IssuedAt:   invoice.CreatedAt.Format("2 January 2006"),
		Status:     string(invoice.Status),
		Notes:      deref(invoice.Notes),
		Lines:      invoice.Lines,
		TotalValue: invoice.TotalValue,
		TotalVAT:   invoice.TotalVAT,
		Subtotal:   invoice.TotalValue - invoice.TotalVAT,
	}, invoice.ClientID, fmt.Sprintf("invoice-%d.pdf", invoice.ID))
}

func (h *Handler) servePDF(w http.ResponseWriter, r *http.Request, data documentData, clientID int64, filename string) {
	client, err := h.clients.Get(r.Context(), clientID)
	if err != nil {
		h.logger.Warn("load document client", slog.Int64("client_id", clientID), slog.Any("error", err))
	} else {
		data.Client = client
	}

	html, err := renderDocumentHTML(data)
	if err != nil {
		h.logger.Error("render document html", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Render Failed", err.Error())
		return
	}

	pdf, err := h.client.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render document pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Renderer Unavailable", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
